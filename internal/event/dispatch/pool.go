package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
)

// Pool runs submitted jobs on a fixed set of worker goroutines with a
// bounded queue. Submission never blocks: when the queue is full the job
// is dropped and ErrQueueFull is returned.
type Pool struct {
	queueSize   int
	workerCount int

	mu      sync.Mutex // serializes queue lifecycle with submission
	queue   chan func()
	running atomic.Bool
	wg      sync.WaitGroup

	// Stats
	submitted atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
}

// NewPool creates a pool with the given options.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		queueSize:   1024,
		workerCount: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithQueueSize sets the job queue capacity.
func WithQueueSize(size int) PoolOption {
	return func(p *Pool) {
		if size > 0 {
			p.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) PoolOption {
	return func(p *Pool) {
		if count > 0 {
			p.workerCount = count
		}
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return ErrAlreadyRunning
	}

	p.queue = make(chan func(), p.queueSize)
	p.running.Store(true)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return nil
}

// Stop drains the queue and stops the workers. It waits for in-flight
// jobs to finish or for the context to be cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running.Load() {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.running.Store(false)
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues a job for execution. Returns ErrNotRunning if the pool
// is stopped and ErrQueueFull if the queue is at capacity. The lock
// orders Submit against Stop's close of the queue, so a Submit racing
// Stop returns ErrNotRunning instead of sending on a closed channel.
func (p *Pool) Submit(job func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running.Load() {
		return ErrNotRunning
	}

	select {
	case p.queue <- job:
		p.submitted.Add(1)
		return nil
	default:
		p.dropped.Add(1)
		return ErrQueueFull
	}
}

// QueueDepth returns the number of jobs waiting in the queue.
func (p *Pool) QueueDepth() int {
	if !p.running.Load() {
		return 0
	}
	return len(p.queue)
}

// IsRunning returns true if the pool is accepting work.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// Stats returns pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Dropped:    p.dropped.Load(),
		QueueDepth: p.QueueDepth(),
	}
}

// PoolStats contains worker pool counters.
type PoolStats struct {
	// Submitted is the total number of jobs accepted.
	Submitted uint64

	// Processed is the number of jobs that have run.
	Processed uint64

	// Dropped is the number of jobs rejected because the queue was full.
	Dropped uint64

	// QueueDepth is the current number of queued jobs.
	QueueDepth int
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.queue {
		p.runJob(job)
	}
}

// runJob executes a job, isolating panics so a bad job cannot kill the
// worker.
func (p *Pool) runJob(job func()) {
	defer func() {
		_ = recover()
		p.processed.Add(1)
	}()
	job()
}
