package event

import "go.uber.org/zap"

// BusOption configures a Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for the event bus.
type busConfig struct {
	// asyncQueueSize is the fire-and-forget delivery queue capacity.
	asyncQueueSize int

	// asyncWorkerCount is the number of fire-and-forget workers.
	asyncWorkerCount int

	// reportBuffer is the error-report queue capacity.
	reportBuffer int

	// logger receives bus diagnostics and terminal error-channel failures.
	logger *zap.Logger

	// development enables debug-level dispatch logging.
	development bool
}

func defaultBusConfig() busConfig {
	return busConfig{
		asyncQueueSize:   1024,
		asyncWorkerCount: 4,
		reportBuffer:     256,
		logger:           zap.NewNop(),
	}
}

// WithAsyncQueueSize sets the fire-and-forget queue capacity.
func WithAsyncQueueSize(size int) BusOption {
	return func(c *busConfig) {
		if size > 0 {
			c.asyncQueueSize = size
		}
	}
}

// WithAsyncWorkerCount sets the number of fire-and-forget workers.
func WithAsyncWorkerCount(count int) BusOption {
	return func(c *busConfig) {
		if count > 0 {
			c.asyncWorkerCount = count
		}
	}
}

// WithReportBuffer sets the error-report queue capacity.
func WithReportBuffer(size int) BusOption {
	return func(c *busConfig) {
		if size > 0 {
			c.reportBuffer = size
		}
	}
}

// WithLogger sets the bus logger.
func WithLogger(logger *zap.Logger) BusOption {
	return func(c *busConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDevelopment enables debug-level dispatch logging.
func WithDevelopment(enabled bool) BusOption {
	return func(c *busConfig) {
		c.development = enabled
	}
}
