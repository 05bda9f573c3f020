// Package main is the entry point for pulsemon, a live terminal
// monitor for a demo event pipeline built on the pulse bus and hook
// registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/pulse/internal/config"
	"github.com/dshills/pulse/internal/event"
	"github.com/dshills/pulse/internal/event/topic"
	"github.com/dshills/pulse/internal/hook"
	"github.com/dshills/pulse/internal/logging"
	"github.com/dshills/pulse/internal/script"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

const hookBeforeRequest hook.Point = "api.request.before"

func main() {
	os.Exit(run())
}

func run() int {
	rate := flag.Int("rate", 10, "Synthetic events per second")
	dev := flag.Bool("dev", false, "Force development mode")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pulsemon %s (%s)\n", version, commit)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	if *dev {
		cfg.Development = true
	}

	logger, err := logging.New(cfg.Development, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	bus := event.NewBus(
		event.WithAsyncQueueSize(cfg.AsyncQueueSize),
		event.WithAsyncWorkerCount(cfg.AsyncWorkers),
		event.WithReportBuffer(cfg.ReportBuffer),
		event.WithLogger(logger),
		event.WithDevelopment(cfg.Development),
	)
	if err := bus.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start bus: %v\n", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = bus.Stop(ctx)
	}()

	// Hook failures flow onto the bus error channel like any handler
	// failure.
	hooks := hook.NewRegistry(
		hook.WithLogger(logger),
		hook.WithReporter(func(point hook.Point, id string, err error) {
			_ = bus.EmitTopic(context.Background(), event.TopicError, event.ErrorEvent{
				Topic:          topic.Topic(point),
				SubscriptionID: id,
				Err:            err,
			})
		}),
	)

	log := newEventLog(64)
	wirePipeline(bus, hooks, log)

	if cfg.ScriptDir != "" {
		if err := loadScripts(bus, hooks, cfg.ScriptDir, logger); err != nil {
			logger.Warn("script loading incomplete", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	go generate(ctx, bus, hooks, *rate)

	mon, err := newMonitor(bus, hooks, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create monitor: %v\n", err)
		return 1
	}
	if err := mon.Run(ctx, cancel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

// wirePipeline registers the demo subscribers and hooks.
func wirePipeline(bus *event.Bus, hooks *hook.Registry, log *eventLog) {
	// Rolling log of everything that flows through the bus.
	_, _ = bus.SubscribeFunc("**", func(ctx context.Context, ev event.Envelope) error {
		log.Add(fmt.Sprintf("%s  %s", ev.Meta.Timestamp.Format("15:04:05.000"), ev.Topic))
		return nil
	}, event.WithPriority(event.PriorityUser))

	// Error-channel consumer: render handler failures into the log.
	_, _ = bus.SubscribeFunc(event.TopicError, func(ctx context.Context, ev event.Envelope) error {
		if report, ok := ev.Payload.(event.ErrorEvent); ok {
			log.Add(fmt.Sprintf("ERROR %s: %v", report.Topic, report.Err))
		}
		return nil
	}, event.WithPriority(event.PrioritySystem))

	// A deliberately flaky task handler exercises the error channel and
	// the retry option.
	_, _ = bus.SubscribeFunc("task.*", func(ctx context.Context, ev event.Envelope) error {
		if ev.Topic == "task.failed" {
			return fmt.Errorf("task processing failed")
		}
		return nil
	}, event.WithRetry(3))

	// Request hooks: auth stamps credentials first, tracing follows.
	_, _ = hooks.Register(hookBeforeRequest, func(ctx context.Context, hc hook.Context) (hook.Context, error) {
		return hook.Context{"authorization": "Bearer demo-token"}, nil
	}, hook.WithPriority(500), hook.WithID("auth"))

	_, _ = hooks.Register(hookBeforeRequest, func(ctx context.Context, hc hook.Context) (hook.Context, error) {
		return hook.Context{"trace_id": fmt.Sprintf("%08x", rand.Uint32())}, nil
	}, hook.WithPriority(100), hook.WithID("trace"))
}

// loadScripts wires Lua handlers from *.lua files in dir. A script may
// define on_event(ev) to subscribe to all topics and before_request(ctx)
// to join the request hook chain.
func loadScripts(bus *event.Bus, hooks *hook.Registry, dir string, logger *zap.Logger) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return err
	}

	for _, path := range paths {
		s, err := script.LoadFile(path)
		if err != nil {
			logger.Warn("skipping script", zap.String("path", path), zap.Error(err))
			continue
		}

		if h, err := s.EventHandler("on_event"); err == nil {
			_, _ = bus.Subscribe("**", h, event.WithPriority(event.PriorityPlugin))
		}
		if h, err := s.HookHandler("before_request"); err == nil {
			_, _ = hooks.Register(hookBeforeRequest, h, hook.WithPriority(50))
		}
		logger.Info("loaded script", zap.String("path", path))
	}
	return nil
}

// generate emits synthetic traffic until the context is cancelled.
func generate(ctx context.Context, bus *event.Bus, hooks *hook.Registry, rate int) {
	if rate <= 0 {
		rate = 1
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	topics := []topic.Topic{
		"api.request.completed",
		"api.request.completed",
		"auth.login",
		"task.completed",
		"task.failed",
	}

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		t := topics[i%len(topics)]
		payload := map[string]any{"seq": i}

		// Requests pass through the hook chain before being emitted.
		if t == "api.request.completed" {
			hc := hooks.Run(ctx, hookBeforeRequest, hook.Context{"url": "/api/demo"})
			payload["trace_id"] = hc.GetString("trace_id")
		}

		_ = bus.Emit(ctx, event.NewEnvelope(t, payload, "pulsemon"))
	}
}
