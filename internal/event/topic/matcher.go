package topic

import "sync"

// Matcher indexes subscription patterns and finds every pattern that
// matches a concrete topic. Patterns are stored in a segment trie so a
// lookup walks at most the pattern depth rather than every pattern.
// It is safe for concurrent use.
type Matcher struct {
	mu   sync.RWMutex
	root *node
}

// node is a single trie level keyed by segment text. Wildcard segments
// ("*" and "**") are ordinary child keys.
type node struct {
	children map[string]*node
	patterns []Topic
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// NewMatcher creates an empty pattern matcher.
func NewMatcher() *Matcher {
	return &Matcher{root: newNode()}
}

// Add indexes a pattern. Returns false if the pattern was already present
// or is invalid.
func (m *Matcher) Add(pattern Topic) bool {
	if !pattern.IsValid() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.root
	for _, seg := range pattern.Segments() {
		child := n.children[seg]
		if child == nil {
			child = newNode()
			n.children[seg] = child
		}
		n = child
	}

	for _, p := range n.patterns {
		if p == pattern {
			return false
		}
	}
	n.patterns = append(n.patterns, pattern)
	return true
}

// Remove drops a pattern from the index. Empty trie branches are pruned.
// Returns false if the pattern was not present.
func (m *Matcher) Remove(pattern Topic) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	segs := pattern.Segments()
	if len(segs) == 0 {
		return false
	}

	// Walk down, remembering the path for pruning on the way back up.
	path := make([]*node, 0, len(segs)+1)
	path = append(path, m.root)
	n := m.root
	for _, seg := range segs {
		n = n.children[seg]
		if n == nil {
			return false
		}
		path = append(path, n)
	}

	found := false
	for i, p := range n.patterns {
		if p == pattern {
			n.patterns = append(n.patterns[:i], n.patterns[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}

	// Prune empty nodes bottom-up.
	for i := len(segs) - 1; i >= 0; i-- {
		child := path[i+1]
		if len(child.children) > 0 || len(child.patterns) > 0 {
			break
		}
		delete(path[i].children, segs[i])
	}

	return true
}

// Match returns every indexed pattern that matches the concrete topic.
// The result order is unspecified; callers impose their own ordering.
func (m *Matcher) Match(t Topic) []Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[Topic]bool)
	var out []Topic
	collect(m.root, t.Segments(), seen, &out)
	return out
}

// Clear removes all patterns.
func (m *Matcher) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.root = newNode()
}

// collect gathers patterns terminating at nodes reachable by consuming
// all remaining segments.
func collect(n *node, segs []string, seen map[Topic]bool, out *[]Topic) {
	if len(segs) == 0 {
		emit(n, seen, out)
		// A trailing ** may match zero segments.
		if multi := n.children[WildcardMulti]; multi != nil {
			collect(multi, nil, seen, out)
		}
		return
	}

	if child := n.children[segs[0]]; child != nil {
		collect(child, segs[1:], seen, out)
	}
	if child := n.children[WildcardSingle]; child != nil {
		collect(child, segs[1:], seen, out)
	}
	if child := n.children[WildcardMulti]; child != nil {
		// ** consumes zero or more leading segments.
		for i := 0; i <= len(segs); i++ {
			collect(child, segs[i:], seen, out)
		}
	}
}

func emit(n *node, seen map[Topic]bool, out *[]Topic) {
	for _, p := range n.patterns {
		if !seen[p] {
			seen[p] = true
			*out = append(*out, p)
		}
	}
}
