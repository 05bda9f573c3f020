package hook

import "context"

// Point names an ordered extension point in a workflow
// (e.g. "api.request.before").
type Point string

// String returns the point as a string.
func (p Point) String() string {
	return string(p)
}

// Handler is a middleware step registered at a hook point. It receives
// the accumulated context and may return a partial Context to be
// shallow-merged into what subsequent handlers see. Returning nil
// leaves the context unchanged.
type Handler func(ctx context.Context, hc Context) (Context, error)

// Registration describes a registered hook without exposing the
// handler itself.
type Registration struct {
	// ID is the unique registration identifier.
	ID string

	// Point is the hook point the handler is registered at.
	Point Point

	// Priority determines execution order (higher runs earlier).
	Priority int

	// Once indicates the registration is removed after its first run.
	Once bool
}

// Reporter receives isolated handler failures. The registry never
// propagates them to the caller of Run.
type Reporter func(point Point, registrationID string, err error)
