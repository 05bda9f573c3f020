package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, read once at startup from
// environment variables. It is frozen after Load: nothing writes to it
// afterwards.
type Config struct {
	// Development enables debug-level dispatch logging and a
	// human-readable log format.
	Development bool `env:"PULSE_DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"PULSE_LOG_LEVEL" envDefault:"info"`

	// AsyncQueueSize is the fire-and-forget delivery queue capacity.
	AsyncQueueSize int `env:"PULSE_QUEUE_SIZE" envDefault:"1024"`

	// AsyncWorkers is the number of fire-and-forget delivery workers.
	AsyncWorkers int `env:"PULSE_WORKERS" envDefault:"4"`

	// ReportBuffer is the error-report queue capacity.
	ReportBuffer int `env:"PULSE_REPORT_BUFFER" envDefault:"256"`

	// ScriptDir, when set, is scanned for Lua handler scripts at startup.
	ScriptDir string `env:"PULSE_SCRIPT_DIR"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", c.LogLevel)
	}
	if c.AsyncQueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", c.AsyncQueueSize)
	}
	if c.AsyncWorkers <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.AsyncWorkers)
	}
	if c.ReportBuffer <= 0 {
		return fmt.Errorf("report buffer must be positive, got %d", c.ReportBuffer)
	}
	return nil
}
