package dispatch

import "errors"

// Sentinel errors for the dispatch package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running pool.
	ErrAlreadyRunning = errors.New("worker pool is already running")

	// ErrNotRunning is returned when work is submitted to a stopped pool.
	ErrNotRunning = errors.New("worker pool is not running")

	// ErrQueueFull is returned when the task queue cannot accept more work.
	ErrQueueFull = errors.New("task queue is full")

	// ErrTaskPanic marks a task attempt that ended in a panic.
	ErrTaskPanic = errors.New("task panicked")
)
