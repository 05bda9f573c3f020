package hook

import (
	"context"
	"sync"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/dshills/pulse/internal/event/dispatch"
)

// Registry manages ordered middleware chains for named hook points.
// Within a point, handlers are kept sorted by descending priority, ties
// broken by registration order. Run threads a Context through the chain
// strictly sequentially; handler failures are isolated and reported,
// never propagated to the caller. The registry is safe for concurrent
// use.
type Registry struct {
	mu     sync.RWMutex
	points map[Point][]*entry
	byID   map[string]*entry
	seq    uint64

	exec     *dispatch.Executor
	reporter Reporter
	logger   *zap.Logger
}

// entry is a single registered hook.
type entry struct {
	reg     Registration
	handler Handler
	seq     uint64
}

// NewRegistry creates an empty hook registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		points: make(map[Point][]*entry),
		byID:   make(map[string]*entry),
		exec:   dispatch.NewExecutor(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a handler to the point's ordered chain and returns its
// registration descriptor.
func (r *Registry) Register(point Point, h Handler, opts ...RegisterOption) (Registration, error) {
	if h == nil {
		return Registration{}, ErrNilHandler
	}
	if point == "" {
		return Registration{}, ErrInvalidPoint
	}

	config := registerConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	if config.id == "" {
		config.id = ksuid.New().String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[config.id]; exists {
		return Registration{}, ErrDuplicateID
	}

	r.seq++
	e := &entry{
		reg: Registration{
			ID:       config.id,
			Point:    point,
			Priority: config.priority,
			Once:     config.once,
		},
		handler: h,
		seq:     r.seq,
	}

	// Ordered insert: after every entry with priority >= ours. Equal
	// priorities keep registration order because earlier entries carry
	// smaller sequence numbers.
	chain := r.points[point]
	idx := len(chain)
	for i, cur := range chain {
		if cur.reg.Priority < e.reg.Priority {
			idx = i
			break
		}
	}
	chain = append(chain, nil)
	copy(chain[idx+1:], chain[idx:])
	chain[idx] = e

	r.points[point] = chain
	r.byID[e.reg.ID] = e

	return e.reg, nil
}

// Unregister removes the registration with the given id from whichever
// point holds it. Returns false if the id is unknown; repeated calls
// are no-ops.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(id)
}

// Run executes the point's chain strictly sequentially in priority
// order, threading hc through the handlers. Each handler receives the
// accumulated context; a returned partial is shallow-merged into a new
// context before the next handler runs. A failing handler is skipped
// (reported, context unchanged) and the chain continues. One-shot
// registrations fire at most once across concurrent runs and are
// removed after the run completes, whether or not they failed.
//
// Running an unknown point returns hc unchanged. Run never returns an
// error; only the final merged context.
func (r *Registry) Run(ctx context.Context, point Point, hc Context) Context {
	// Snapshot: registrations changed by handlers mid-run affect only
	// future runs.
	snapshot := r.snapshot(point)
	if hc == nil {
		hc = Context{}
	}
	if len(snapshot) == 0 {
		return hc
	}

	// Claim one-shot entries up front so a re-entrant or concurrent run
	// cannot fire them again. Deletion from byID is the claim: a run that
	// finds the id already gone lost the race to another run holding the
	// same snapshot and must skip the entry.
	var claimed map[string]bool
	for _, e := range snapshot {
		if !e.reg.Once {
			continue
		}
		if claimed == nil {
			claimed = make(map[string]bool)
		}
		r.mu.Lock()
		if ent, ok := r.byID[e.reg.ID]; ok {
			delete(r.byID, e.reg.ID)
			r.detachLocked(ent)
			claimed[e.reg.ID] = true
		}
		r.mu.Unlock()
	}

	cur := hc
	for _, e := range snapshot {
		if e.reg.Once && !claimed[e.reg.ID] {
			continue
		}
		var partial Context
		handler := e.handler
		in := cur

		res := r.exec.Execute(ctx, func(c context.Context) error {
			var err error
			partial, err = handler(c, in)
			return err
		})

		switch {
		case res.Skipped:
			// Context cancelled; remaining handlers are not run.
			return cur
		case res.Panicked:
			r.report(point, e.reg.ID, &PanicError{
				Point:          point,
				RegistrationID: e.reg.ID,
				Value:          res.PanicValue,
				Stack:          string(res.PanicStack),
			})
		case res.Err != nil:
			r.report(point, e.reg.ID, res.Err)
		default:
			if partial != nil {
				cur = cur.Merge(partial)
			}
		}
	}

	return cur
}

// Hooks returns registration metadata for the point, in execution
// order, without handler references.
func (r *Registry) Hooks(point Point) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := r.points[point]
	if len(chain) == 0 {
		return nil
	}
	out := make([]Registration, len(chain))
	for i, e := range chain {
		out[i] = e.reg
	}
	return out
}

// HasHooks returns true if the point has at least one registration.
func (r *Registry) HasHooks(point Point) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.points[point]) > 0
}

// HookCount returns the number of registrations at the point.
func (r *Registry) HookCount(point Point) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.points[point])
}

// Points returns every point with at least one registration.
func (r *Registry) Points() []Point {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.points) == 0 {
		return nil
	}
	out := make([]Point, 0, len(r.points))
	for p := range r.points {
		out = append(out, p)
	}
	return out
}

// Clear removes every registration at the given points, or all
// registrations when no points are given.
func (r *Registry) Clear(points ...Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(points) == 0 {
		r.points = make(map[Point][]*entry)
		r.byID = make(map[string]*entry)
		return
	}
	for _, p := range points {
		for _, e := range r.points[p] {
			delete(r.byID, e.reg.ID)
		}
		delete(r.points, p)
	}
}

// snapshot returns a copy of the point's chain in execution order.
func (r *Registry) snapshot(point Point) []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := r.points[point]
	if len(chain) == 0 {
		return nil
	}
	out := make([]*entry, len(chain))
	copy(out, chain)
	return out
}

// report forwards an isolated failure to the reporter, or logs it when
// none is wired.
func (r *Registry) report(point Point, id string, err error) {
	if r.reporter != nil {
		// A panicking reporter must not abort the chain.
		func() {
			defer func() { _ = recover() }()
			r.reporter(point, id, err)
		}()
		return
	}
	r.logger.Error("hook handler failed",
		zap.String("point", point.String()),
		zap.String("registration", id),
		zap.Error(err))
}

// removeLocked removes a registration by id; caller holds the write lock.
func (r *Registry) removeLocked(id string) bool {
	e, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	r.detachLocked(e)
	return true
}

// detachLocked removes an entry from its point chain; caller holds the
// write lock.
func (r *Registry) detachLocked(e *entry) {
	chain := r.points[e.reg.Point]
	for i, cur := range chain {
		if cur.reg.ID == e.reg.ID {
			r.points[e.reg.Point] = append(chain[:i], chain[i+1:]...)
			break
		}
	}
	if len(r.points[e.reg.Point]) == 0 {
		delete(r.points, e.reg.Point)
	}
}
