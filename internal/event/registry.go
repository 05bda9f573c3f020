package event

import (
	"sort"
	"sync"

	"github.com/dshills/pulse/internal/event/topic"
)

// Registry manages subscriptions organized by topic pattern. Within a
// pattern, subscriptions are kept sorted by descending priority, ties
// broken by registration order; the ordering is maintained by insertion,
// not by re-sorting. The registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	subs    map[topic.Topic][]*subscription
	byID    map[string]*subscription
	matcher *topic.Matcher
	seq     uint64
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		subs:    make(map[topic.Topic][]*subscription),
		byID:    make(map[string]*subscription),
		matcher: topic.NewMatcher(),
	}
}

// Add inserts a subscription in priority order for its pattern.
func (r *Registry) Add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	sub.seq = r.seq

	pattern := sub.Pattern()
	list := r.subs[pattern]

	// Ordered insert: after every entry with priority >= ours. Equal
	// priorities keep registration order because earlier entries always
	// carry smaller sequence numbers.
	idx := len(list)
	for i, s := range list {
		if s.config.Priority < sub.config.Priority {
			idx = i
			break
		}
	}
	list = append(list, nil)
	copy(list[idx+1:], list[idx:])
	list[idx] = sub

	r.subs[pattern] = list
	r.byID[sub.ID()] = sub
	r.matcher.Add(pattern)
}

// Remove removes a subscription by ID. Returns false if it was not
// present.
func (r *Registry) Remove(subID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[subID]
	if !ok {
		return false
	}
	r.removeLocked(sub)
	return true
}

// RemovePattern removes every subscription registered under the exact
// pattern. Returns the number removed.
func (r *Registry) RemovePattern(pattern topic.Topic) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.subs[pattern]
	for _, sub := range list {
		sub.Cancel()
		delete(r.byID, sub.ID())
	}
	delete(r.subs, pattern)
	r.matcher.Remove(pattern)
	return len(list)
}

// Get returns a subscription by ID.
func (r *Registry) Get(subID string) (*subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.byID[subID]
	return sub, ok
}

// MatchActive returns a snapshot of every active subscription whose
// pattern matches the concrete topic, ordered by descending priority
// then registration order across all matching patterns. The returned
// slice is a copy; mutating the registry afterwards does not affect it.
func (r *Registry) MatchActive(t topic.Topic) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patterns := r.matcher.Match(t)
	if len(patterns) == 0 {
		return nil
	}

	var all []*subscription
	for _, pattern := range patterns {
		for _, sub := range r.subs[pattern] {
			if sub.IsActive() {
				all = append(all, sub)
			}
		}
	}
	if len(all) == 0 {
		return nil
	}

	// Merge ordering across patterns. Sequence numbers are unique, so
	// the comparator is total and does not depend on sort stability.
	sort.Slice(all, func(i, j int) bool {
		if all[i].config.Priority != all[j].config.Priority {
			return all[i].config.Priority > all[j].config.Priority
		}
		return all[i].seq < all[j].seq
	})

	return all
}

// CountPattern returns the number of subscriptions for the exact pattern.
func (r *Registry) CountPattern(pattern topic.Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subs[pattern])
}

// CountActive returns the number of active subscriptions.
func (r *Registry) CountActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, sub := range r.byID {
		if sub.IsActive() {
			count++
		}
	}
	return count
}

// Patterns returns every pattern with at least one subscription.
func (r *Registry) Patterns() []topic.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.subs) == 0 {
		return nil
	}
	patterns := make([]topic.Topic, 0, len(r.subs))
	for p := range r.subs {
		patterns = append(patterns, p)
	}
	return patterns
}

// Clear removes all subscriptions.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.byID {
		sub.Cancel()
	}
	r.subs = make(map[topic.Topic][]*subscription)
	r.byID = make(map[string]*subscription)
	r.matcher.Clear()
}

// removeLocked removes a subscription; caller holds the write lock.
func (r *Registry) removeLocked(sub *subscription) {
	pattern := sub.Pattern()
	list := r.subs[pattern]
	for i, s := range list {
		if s.ID() == sub.ID() {
			r.subs[pattern] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(r.subs[pattern]) == 0 {
		delete(r.subs, pattern)
		r.matcher.Remove(pattern)
	}
	delete(r.byID, sub.ID())
}
