package hook

// Context is the mutable-by-merge record threaded through a single Run.
// Handlers receive the accumulated context and may return a partial
// Context; the registry shallow-merges the partial into a copy before
// the next handler runs. A field set by an earlier handler is never
// lost, though the map identity may change between handlers.
//
// Field ownership is by convention: each hook point documents the keys
// its handlers read and write.
type Context map[string]any

// Get returns the value for key and whether it is present.
func (c Context) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// GetString returns the string value for key, or "" when absent or not
// a string.
func (c Context) GetString(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// GetInt returns the int value for key, or 0 when absent or not an int.
func (c Context) GetInt(key string) int {
	if v, ok := c[key].(int); ok {
		return v
	}
	return 0
}

// GetBool returns the bool value for key, or false when absent or not
// a bool.
func (c Context) GetBool(key string) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return false
}

// Clone returns a shallow copy of the context.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Merge returns a new context with the partial's fields shallow-merged
// over this one. Neither receiver nor partial is modified.
func (c Context) Merge(partial Context) Context {
	if len(partial) == 0 {
		return c
	}
	out := c.Clone()
	for k, v := range partial {
		out[k] = v
	}
	return out
}
