package event

import "context"

// Priority determines handler invocation order within a topic.
// Higher values run earlier; ties are broken by registration order.
type Priority int

// Standard priority bands.
const (
	// PrioritySystem is for critical handlers that must observe events first.
	PrioritySystem Priority = 1000

	// PriorityFramework is for infrastructure handlers (routing, interception).
	PriorityFramework Priority = 500

	// PriorityPlugin is for extension and integration handlers.
	PriorityPlugin Priority = 100

	// PriorityUser is the default priority.
	PriorityUser Priority = 0
)

// String returns a human-readable priority band name.
func (p Priority) String() string {
	switch {
	case p >= PrioritySystem:
		return "system"
	case p >= PriorityFramework:
		return "framework"
	case p >= PriorityPlugin:
		return "plugin"
	default:
		return "user"
	}
}

// DeliveryMode specifies how a subscription's handler is invoked during
// an emit.
type DeliveryMode int

const (
	// DeliverySync runs the handler inline, strictly in priority order.
	DeliverySync DeliveryMode = iota

	// DeliveryConcurrent starts the handler in its own goroutine (started
	// in priority order) and awaits it before Emit returns.
	DeliveryConcurrent
)

// String returns a human-readable delivery mode name.
func (m DeliveryMode) String() string {
	switch m {
	case DeliverySync:
		return "sync"
	case DeliveryConcurrent:
		return "concurrent"
	default:
		return "unknown"
	}
}

// Handler processes events delivered by the bus.
type Handler interface {
	Handle(ctx context.Context, ev Envelope) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, ev Envelope) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, ev Envelope) error {
	return f(ctx, ev)
}

// TypedHandlerFunc handles events whose payload is known to be T.
type TypedHandlerFunc[T any] func(ctx context.Context, ev Event[T]) error

// AsHandler converts a TypedHandlerFunc to a generic Handler. Events
// whose payload is not T are skipped silently.
func AsHandler[T any](fn TypedHandlerFunc[T]) Handler {
	return HandlerFunc(func(ctx context.Context, ev Envelope) error {
		payload, ok := ev.Payload.(T)
		if !ok {
			return nil
		}
		return fn(ctx, Event[T]{Topic: ev.Topic, Payload: payload, Meta: ev.Meta})
	})
}

// FilterFunc is a predicate applied before delivery. Return false to
// skip the subscription for this event.
type FilterFunc func(ev Envelope) bool

// Stats contains bus counters.
type Stats struct {
	// EventsEmitted is the total number of events accepted for delivery.
	EventsEmitted uint64

	// EventsDelivered is the number of successful handler invocations.
	EventsDelivered uint64

	// HandlerErrors is the number of handler invocations that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handler invocations that panicked.
	HandlerPanics uint64

	// EventsDropped is the number of async emits dropped (queue full).
	EventsDropped uint64

	// ReportsDropped is the number of error reports dropped (report queue full).
	ReportsDropped uint64

	// ActiveSubscriptions is the current number of active subscriptions.
	ActiveSubscriptions int

	// AsyncQueueDepth is the current fire-and-forget queue depth.
	AsyncQueueDepth int
}
