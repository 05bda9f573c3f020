package event

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/pulse/internal/event/dispatch"
	"github.com/dshills/pulse/internal/event/topic"
)

// TopicError is the reserved topic carrying handler failure reports.
// Failures of handlers subscribed to this topic are logged, never
// re-reported, so error reporting always terminates.
const TopicError topic.Topic = "bus.error"

// ErrorEvent is the payload delivered on TopicError.
type ErrorEvent struct {
	// Topic is the concrete topic of the event whose handler failed.
	Topic topic.Topic

	// SubscriptionID identifies the failed handler's subscription.
	SubscriptionID string

	// Err is the handler error (a *HandlerError or *PanicError).
	Err error
}

// Bus is a typed publish/subscribe event bus with priority-ordered
// delivery, wildcard topic patterns, and isolated handler failures.
//
// Emit never surfaces handler errors to its caller: each failure is
// wrapped and scheduled on the TopicError channel through an internal
// report queue. Handler sets are snapshotted before iteration, so
// subscribing or unsubscribing from inside a handler only affects
// future emits.
type Bus struct {
	registry *Registry
	exec     *dispatch.Executor
	pool     *dispatch.Pool

	reports  chan Envelope
	quit     chan struct{}
	reportWG sync.WaitGroup

	running atomic.Bool

	config busConfig
	logger *zap.Logger

	// Stats
	emitted        atomic.Uint64
	delivered      atomic.Uint64
	handlerErrors  atomic.Uint64
	handlerPanics  atomic.Uint64
	reportsDropped atomic.Uint64
}

// NewBus creates a stopped bus with the given options. Call Start
// before emitting.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	b := &Bus{
		registry: NewRegistry(),
		config:   config,
		logger:   config.logger,
	}
	b.exec = dispatch.NewExecutor()
	b.pool = dispatch.NewPool(
		dispatch.WithQueueSize(config.asyncQueueSize),
		dispatch.WithWorkerCount(config.asyncWorkerCount),
	)
	return b
}

// Start launches the fire-and-forget workers and the error reporter.
func (b *Bus) Start() error {
	if b.running.Load() {
		return ErrBusAlreadyRunning
	}
	if err := b.pool.Start(); err != nil {
		return err
	}

	b.reports = make(chan Envelope, b.config.reportBuffer)
	b.quit = make(chan struct{})
	b.reportWG.Add(1)
	go b.reporter()

	b.running.Store(true)
	return nil
}

// Stop stops the bus, draining queued async deliveries and pending
// error reports or returning early when the context is cancelled.
func (b *Bus) Stop(ctx context.Context) error {
	if !b.running.Swap(false) {
		return ErrBusNotRunning
	}

	if err := b.pool.Stop(ctx); err != nil {
		return err
	}

	close(b.quit)
	done := make(chan struct{})
	go func() {
		b.reportWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns true if the bus is accepting emits.
func (b *Bus) IsRunning() bool {
	return b.running.Load()
}

// Subscribe registers a handler for a topic pattern. The returned
// Subscription's Cancel plus Bus.Unsubscribe are both idempotent.
func (b *Bus) Subscribe(pattern topic.Topic, h Handler, opts ...SubscriptionOption) (Subscription, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := newSubscription(newID(), pattern, h, opts...)
	b.registry.Add(sub)
	return sub, nil
}

// SubscribeFunc registers a function handler for a topic pattern.
func (b *Bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	return b.Subscribe(pattern, fn, opts...)
}

// Once registers a handler that is removed before its first invocation,
// so re-entrant emits during handling cannot double-fire it.
func (b *Bus) Once(pattern topic.Topic, h Handler, opts ...SubscriptionOption) (Subscription, error) {
	return b.Subscribe(pattern, h, append(opts, WithOnce())...)
}

// Unsubscribe removes a subscription. Returns false if it was already
// removed; repeated calls are no-ops.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	if sub == nil {
		return false
	}
	sub.Cancel()
	return b.registry.Remove(sub.ID())
}

// UnsubscribeAll removes every subscription registered under the exact
// pattern. Returns the number removed; zero when nothing matched.
func (b *Bus) UnsubscribeAll(pattern topic.Topic) int {
	return b.registry.RemovePattern(pattern)
}

// Emit delivers an event to every matching subscription and blocks
// until all handlers, including concurrent ones, have completed.
//
// Handlers run in descending priority order, ties in registration
// order. Sync handlers run strictly in sequence; concurrent handlers
// are started in order and awaited collectively before Emit returns.
// Handler failures are isolated and reported on TopicError; only usage
// errors (stopped bus, invalid event) are returned.
func (b *Bus) Emit(ctx context.Context, event any) error {
	env, err := b.checkEmit(event)
	if err != nil {
		return err
	}
	b.dispatchEvent(ctx, env)
	return nil
}

// EmitTopic is shorthand for emitting a payload on a concrete topic.
func (b *Bus) EmitTopic(ctx context.Context, t topic.Topic, payload any) error {
	return b.Emit(ctx, NewEnvelope(t, payload, ""))
}

// EmitAsync queues an event for fire-and-forget delivery on the worker
// pool. Returns ErrQueueFull if the delivery queue is at capacity; the
// event is dropped in that case.
func (b *Bus) EmitAsync(ctx context.Context, event any) error {
	env, err := b.checkEmit(event)
	if err != nil {
		return err
	}

	err = b.pool.Submit(func() {
		b.dispatchEvent(context.Background(), env)
	})
	if err != nil {
		return ErrQueueFull
	}
	return nil
}

// HasSubscribers returns true if at least one active subscription
// matches the concrete topic.
func (b *Bus) HasSubscribers(t topic.Topic) bool {
	return len(b.registry.MatchActive(t)) > 0
}

// SubscriberCount returns the number of active subscriptions matching
// the concrete topic.
func (b *Bus) SubscriberCount(t topic.Topic) int {
	return len(b.registry.MatchActive(t))
}

// Topics returns every pattern with at least one subscription.
func (b *Bus) Topics() []topic.Topic {
	return b.registry.Patterns()
}

// Clear removes all subscriptions. Intended for tests.
func (b *Bus) Clear() {
	b.registry.Clear()
}

// Stats returns current bus counters.
func (b *Bus) Stats() Stats {
	pool := b.pool.Stats()
	return Stats{
		EventsEmitted:       b.emitted.Load(),
		EventsDelivered:     b.delivered.Load(),
		HandlerErrors:       b.handlerErrors.Load(),
		HandlerPanics:       b.handlerPanics.Load(),
		EventsDropped:       pool.Dropped,
		ReportsDropped:      b.reportsDropped.Load(),
		ActiveSubscriptions: b.registry.CountActive(),
		AsyncQueueDepth:     pool.QueueDepth,
	}
}

// checkEmit validates bus state and converts the event to an Envelope.
func (b *Bus) checkEmit(event any) (Envelope, error) {
	if !b.running.Load() {
		return Envelope{}, ErrBusNotRunning
	}
	env, ok := toEnvelope(event)
	if !ok {
		return Envelope{}, ErrInvalidEvent
	}
	if !env.Topic.IsValid() || env.Topic.IsPattern() {
		return Envelope{}, ErrInvalidTopic
	}
	return env, nil
}

// dispatchEvent delivers an envelope to the snapshot of matching
// subscriptions.
func (b *Bus) dispatchEvent(ctx context.Context, env Envelope) {
	// Snapshot before iterating: registrations made or removed by
	// handlers during this dispatch only affect future emits.
	snapshot := b.registry.MatchActive(env.Topic)

	b.emitted.Add(1)

	if b.config.development {
		b.logger.Debug("emit",
			zap.String("topic", env.Topic.String()),
			zap.String("event_id", env.Meta.ID),
			zap.Int("handlers", len(snapshot)))
	}

	if len(snapshot) == 0 {
		return
	}

	// Failures on the error channel itself are logged, never re-reported.
	report := env.Topic != TopicError

	var group errgroup.Group
	for _, sub := range snapshot {
		if sub.config.Filter != nil && !sub.config.Filter(env) {
			continue
		}

		// One-shot subscriptions leave the registry before their first
		// invocation. Removal doubles as the claim: a concurrent dispatch
		// that snapshotted the same entry loses the removal race and must
		// skip it, so the handler fires at most once.
		if sub.config.Once {
			if !b.registry.Remove(sub.ID()) {
				continue
			}
			sub.Cancel()
		}

		if sub.config.Mode == DeliveryConcurrent {
			sub := sub
			group.Go(func() error {
				b.deliver(ctx, env, sub, report)
				return nil
			})
			continue
		}

		b.deliver(ctx, env, sub, report)
	}

	// Collective await: Emit resolves only after every concurrent
	// handler has completed.
	_ = group.Wait()
}

// deliver runs one handler under panic recovery and records the outcome.
func (b *Bus) deliver(ctx context.Context, env Envelope, sub *subscription, report bool) {
	task := func(c context.Context) error {
		return sub.Handler().Handle(c, env)
	}

	var res dispatch.Result
	if sub.config.RetryAttempts > 1 {
		res = b.exec.ExecuteWithRetry(ctx, task, sub.config.RetryAttempts)
	} else {
		res = b.exec.Execute(ctx, task)
	}

	switch {
	case res.Panicked:
		b.handlerPanics.Add(1)
		perr := &PanicError{
			SubscriptionID: sub.ID(),
			Topic:          env.Topic.String(),
			Value:          res.PanicValue,
			Stack:          string(res.PanicStack),
		}
		b.reportFailure(env, sub, perr, report)
	case res.Err != nil && !res.Skipped:
		b.handlerErrors.Add(1)
		herr := &HandlerError{
			SubscriptionID: sub.ID(),
			Topic:          env.Topic.String(),
			Err:            res.Err,
		}
		b.reportFailure(env, sub, herr, report)
	case res.OK():
		b.delivered.Add(1)
	}
}

// reportFailure schedules a failure on the error channel, or logs it
// when reporting is disabled for this dispatch.
func (b *Bus) reportFailure(env Envelope, sub *subscription, err error, report bool) {
	if !report {
		b.logger.Error("error channel handler failed",
			zap.String("subscription", sub.ID()),
			zap.Error(err))
		return
	}

	reportEnv := NewEnvelope(TopicError, ErrorEvent{
		Topic:          env.Topic,
		SubscriptionID: sub.ID(),
		Err:            err,
	}, "bus")

	if !b.running.Load() {
		b.reportsDropped.Add(1)
		return
	}

	select {
	case b.reports <- reportEnv:
	default:
		b.reportsDropped.Add(1)
		b.logger.Warn("error report dropped, report queue full",
			zap.String("topic", env.Topic.String()),
			zap.String("subscription", sub.ID()))
	}
}

// reporter delivers queued error reports on a dedicated goroutine so
// reporting is never re-entrant with the failing dispatch.
func (b *Bus) reporter() {
	defer b.reportWG.Done()

	for {
		select {
		case env := <-b.reports:
			b.dispatchEvent(context.Background(), env)
		case <-b.quit:
			// Drain anything still queued.
			for {
				select {
				case env := <-b.reports:
					b.dispatchEvent(context.Background(), env)
				default:
					return
				}
			}
		}
	}
}
