package dispatch

import (
	"context"
	"runtime/debug"
	"time"

	retry "github.com/avast/retry-go/v4"
)

// Task is a unit of handler work executed under panic recovery.
type Task func(ctx context.Context) error

// Result is the outcome of a single task execution.
type Result struct {
	// Err is the error returned by the task, if any.
	Err error

	// Panicked is true if the task panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace captured at the point of panic.
	PanicStack []byte

	// Duration is how long the task ran.
	Duration time.Duration

	// Skipped is true if the task never ran (context already cancelled).
	Skipped bool
}

// OK returns true if the task completed without error or panic.
func (r Result) OK() bool {
	return !r.Panicked && !r.Skipped && r.Err == nil
}

// PanicHook is called when a task panics during execution.
type PanicHook func(value any, stack []byte)

// Executor runs tasks with panic recovery and timing. A zero-value
// Executor is usable; the panic hook is optional.
type Executor struct {
	panicHook PanicHook
}

// NewExecutor creates an executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPanicHook sets the hook invoked when a task panics.
func WithPanicHook(h PanicHook) ExecutorOption {
	return func(e *Executor) {
		e.panicHook = h
	}
}

// Execute runs a task and returns its result. Panics are recovered and
// captured on the result; they never escape to the caller.
func (e *Executor) Execute(ctx context.Context, task Task) (result Result) {
	select {
	case <-ctx.Done():
		return Result{Err: ctx.Err(), Skipped: true}
	default:
	}

	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			if e.panicHook != nil {
				// The hook must not crash the process either.
				func() {
					defer func() { _ = recover() }()
					e.panicHook(r, stack)
				}()
			}
		}
	}()

	result.Err = task(ctx)
	return result
}

// ExecuteWithRetry runs a task, retrying on error up to attempts total
// tries with exponential backoff. A panic counts as a failed attempt.
// attempts <= 1 behaves like Execute.
func (e *Executor) ExecuteWithRetry(ctx context.Context, task Task, attempts uint) Result {
	if attempts <= 1 {
		return e.Execute(ctx, task)
	}

	var last Result
	err := retry.Do(
		func() error {
			last = e.Execute(ctx, task)
			switch {
			case last.Skipped:
				return retry.Unrecoverable(last.Err)
			case last.Panicked:
				return ErrTaskPanic
			default:
				return last.Err
			}
		},
		retry.Attempts(attempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.Delay(10*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil && last.Err == nil && !last.Panicked && !last.Skipped {
		// Context cancelled between attempts.
		last.Err = err
	}
	return last
}
