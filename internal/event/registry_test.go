package event

import (
	"context"
	"testing"
)

func newTestHandler() Handler {
	return HandlerFunc(func(ctx context.Context, ev Envelope) error {
		return nil
	})
}

func TestRegistry_AddOrdersByPriority(t *testing.T) {
	r := NewRegistry()

	// Registered A(1), B(5), C(1): expected order B, A, C. Higher
	// priority first, ties in registration order.
	a := newSubscription("A", "test", newTestHandler(), WithPriority(1))
	b := newSubscription("B", "test", newTestHandler(), WithPriority(5))
	c := newSubscription("C", "test", newTestHandler(), WithPriority(1))

	r.Add(a)
	r.Add(b)
	r.Add(c)

	subs := r.MatchActive("test")
	want := []string{"B", "A", "C"}
	if len(subs) != len(want) {
		t.Fatalf("expected %d subscriptions, got %d", len(want), len(subs))
	}
	for i, sub := range subs {
		if sub.ID() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], sub.ID())
		}
	}
}

func TestRegistry_OrderAcrossPatterns(t *testing.T) {
	r := NewRegistry()

	// Subscriptions from different matching patterns merge into one
	// ordered sequence.
	r.Add(newSubscription("wild", "auth.*", newTestHandler(), WithPriority(10)))
	r.Add(newSubscription("exact", "auth.login", newTestHandler(), WithPriority(20)))
	r.Add(newSubscription("multi", "auth.**", newTestHandler(), WithPriority(10)))

	subs := r.MatchActive("auth.login")
	want := []string{"exact", "wild", "multi"}
	if len(subs) != len(want) {
		t.Fatalf("expected %d subscriptions, got %d", len(want), len(subs))
	}
	for i, sub := range subs {
		if sub.ID() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], sub.ID())
		}
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	r.Add(newSubscription("sub-1", "test", newTestHandler()))

	if !r.Remove("sub-1") {
		t.Error("expected Remove to return true")
	}
	if r.Remove("sub-1") {
		t.Error("expected repeated Remove to return false")
	}
	if r.Remove("never-added") {
		t.Error("expected Remove of unknown id to return false")
	}
	if len(r.MatchActive("test")) != 0 {
		t.Error("expected no subscriptions after removal")
	}
}

func TestRegistry_RemovePattern(t *testing.T) {
	r := NewRegistry()
	r.Add(newSubscription("s1", "auth.*", newTestHandler()))
	r.Add(newSubscription("s2", "auth.*", newTestHandler()))
	r.Add(newSubscription("s3", "other", newTestHandler()))

	if got := r.RemovePattern("auth.*"); got != 2 {
		t.Errorf("expected 2 removed, got %d", got)
	}
	if got := r.RemovePattern("auth.*"); got != 0 {
		t.Errorf("expected 0 removed on repeat, got %d", got)
	}
	if r.CountActive() != 1 {
		t.Errorf("expected 1 remaining subscription, got %d", r.CountActive())
	}
}

func TestRegistry_MatchActiveSkipsCancelled(t *testing.T) {
	r := NewRegistry()
	sub := newSubscription("s1", "test", newTestHandler())
	r.Add(sub)

	sub.Cancel()

	if len(r.MatchActive("test")) != 0 {
		t.Error("expected cancelled subscription to be excluded")
	}
}

func TestRegistry_MatchActiveIsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Add(newSubscription("s1", "test", newTestHandler()))

	snapshot := r.MatchActive("test")
	r.Add(newSubscription("s2", "test", newTestHandler()))
	r.Remove("s1")

	if len(snapshot) != 1 || snapshot[0].ID() != "s1" {
		t.Error("snapshot changed after registry mutation")
	}
}

func TestRegistry_Patterns(t *testing.T) {
	r := NewRegistry()
	r.Add(newSubscription("s1", "auth.*", newTestHandler()))
	r.Add(newSubscription("s2", "api.**", newTestHandler()))

	if got := len(r.Patterns()); got != 2 {
		t.Errorf("expected 2 patterns, got %d", got)
	}
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry()
	sub := newSubscription("s1", "test", newTestHandler())
	r.Add(sub)

	r.Clear()

	if r.CountActive() != 0 {
		t.Error("expected empty registry after Clear")
	}
	if sub.IsActive() {
		t.Error("expected cleared subscription to be cancelled")
	}
}
