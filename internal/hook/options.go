package hook

import "go.uber.org/zap"

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger. Failures with no Reporter wired
// are logged here.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReporter sets the failure reporter. Callers typically wire this
// to the event bus error channel.
func WithReporter(rep Reporter) Option {
	return func(r *Registry) {
		r.reporter = rep
	}
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	priority int
	once     bool
	id       string
}

// WithPriority sets the registration priority (higher runs earlier).
func WithPriority(p int) RegisterOption {
	return func(c *registerConfig) {
		c.priority = p
	}
}

// WithOnce removes the registration after the run it first fires in
// completes, even if the handler failed.
func WithOnce() RegisterOption {
	return func(c *registerConfig) {
		c.once = true
	}
}

// WithID supplies a stable registration id instead of a generated one.
func WithID(id string) RegisterOption {
	return func(c *registerConfig) {
		c.id = id
	}
}
