package event

import (
	"sync/atomic"

	"github.com/dshills/pulse/internal/event/topic"
)

// Subscription is an active registration on the bus.
type Subscription interface {
	// ID returns the unique subscription identifier.
	ID() string

	// Pattern returns the subscribed topic pattern.
	Pattern() topic.Topic

	// Priority returns the subscription priority.
	Priority() Priority

	// IsActive returns true if the subscription can receive events.
	IsActive() bool

	// Cancel permanently cancels the subscription. Cancel is idempotent;
	// a dispatch already in flight still delivers to the handler set it
	// snapshotted.
	Cancel()
}

// SubscriptionConfig contains configuration for a subscription.
type SubscriptionConfig struct {
	// Priority determines invocation order (higher values run earlier).
	Priority Priority

	// Mode selects inline or concurrent delivery during Emit.
	Mode DeliveryMode

	// Filter is an optional delivery predicate.
	Filter FilterFunc

	// Once auto-removes the subscription before its first invocation.
	Once bool

	// RetryAttempts is the total number of tries for a failing handler.
	// Zero or one means no retry.
	RetryAttempts uint
}

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*SubscriptionConfig)

// WithPriority sets the subscription priority.
func WithPriority(p Priority) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Priority = p
	}
}

// WithConcurrent selects concurrent delivery for this subscription.
func WithConcurrent() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Mode = DeliveryConcurrent
	}
}

// WithFilter sets a delivery predicate.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Filter = f
	}
}

// WithOnce auto-removes the subscription before its first invocation,
// so re-entrant emits during handling cannot double-fire it.
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

// WithRetry re-runs a failing handler up to attempts total tries with
// backoff before the failure is reported.
func WithRetry(attempts uint) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.RetryAttempts = attempts
	}
}

// subscription is the internal Subscription implementation.
type subscription struct {
	id      string
	pattern topic.Topic
	handler Handler
	config  SubscriptionConfig

	// seq is assigned by the registry at insertion; it breaks priority
	// ties in registration order.
	seq uint64

	cancelled atomic.Bool
}

func newSubscription(id string, pattern topic.Topic, h Handler, opts ...SubscriptionOption) *subscription {
	config := SubscriptionConfig{Priority: PriorityUser, Mode: DeliverySync}
	for _, opt := range opts {
		opt(&config)
	}
	return &subscription{
		id:      id,
		pattern: pattern,
		handler: h,
		config:  config,
	}
}

func (s *subscription) ID() string           { return s.id }
func (s *subscription) Pattern() topic.Topic { return s.pattern }
func (s *subscription) Priority() Priority   { return s.config.Priority }
func (s *subscription) IsActive() bool       { return !s.cancelled.Load() }
func (s *subscription) Cancel()              { s.cancelled.Store(true) }

// Config returns the subscription configuration.
func (s *subscription) Config() SubscriptionConfig { return s.config }

// Handler returns the subscription's handler.
func (s *subscription) Handler() Handler { return s.handler }
