package hook

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testPoint Point = "api.request.before"

func namedHandler(order *[]string, name string) Handler {
	return func(ctx context.Context, hc Context) (Context, error) {
		if order != nil {
			*order = append(*order, name)
		}
		return nil, nil
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Register(testPoint, nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
	if _, err := r.Register("", namedHandler(nil, "x")); !errors.Is(err, ErrInvalidPoint) {
		t.Errorf("expected ErrInvalidPoint, got %v", err)
	}
}

func TestRegistry_RegisterAssignsID(t *testing.T) {
	r := NewRegistry()

	reg, err := r.Register(testPoint, namedHandler(nil, "x"))
	if err != nil {
		t.Fatal(err)
	}
	if reg.ID == "" {
		t.Error("expected generated registration id")
	}
	if reg.Point != testPoint {
		t.Errorf("expected point %q, got %q", testPoint, reg.Point)
	}
}

func TestRegistry_DuplicateID(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Register(testPoint, namedHandler(nil, "a"), WithID("auth")); err != nil {
		t.Fatal(err)
	}
	_, err := r.Register(testPoint, namedHandler(nil, "b"), WithID("auth"))
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestRegistry_RunPriorityOrder(t *testing.T) {
	r := NewRegistry()

	// Registered A(1), B(5), C(1): expected order B, A, C. Higher
	// priority first, ties in registration order.
	var order []string
	_, _ = r.Register(testPoint, namedHandler(&order, "A"), WithPriority(1))
	_, _ = r.Register(testPoint, namedHandler(&order, "B"), WithPriority(5))
	_, _ = r.Register(testPoint, namedHandler(&order, "C"), WithPriority(1))

	r.Run(context.Background(), testPoint, nil)

	want := []string{"B", "A", "C"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected execution order %v, got %v", want, order)
		}
	}
}

func TestRegistry_RunThreadsContext(t *testing.T) {
	r := NewRegistry()

	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		return Context{"a": 1}, nil
	}, WithPriority(10))

	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		// Second handler observes the first handler's merge.
		if hc.GetInt("a") != 1 {
			t.Error("second handler did not see field set by first")
		}
		return Context{"b": 2}, nil
	}, WithPriority(5))

	got := r.Run(context.Background(), testPoint, Context{"seed": true})

	if !got.GetBool("seed") {
		t.Error("initial context field lost")
	}
	if got.GetInt("a") != 1 || got.GetInt("b") != 2 {
		t.Errorf("expected merged fields a=1 b=2, got %v", got)
	}
}

func TestRegistry_RunSequentialObservation(t *testing.T) {
	r := NewRegistry()

	// H1 appends itself, H2 must observe H1's write. Strictly sequential
	// execution, never parallel.
	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		seen, _ := hc.Get("seen")
		list, _ := seen.([]string)
		return Context{"seen": append(list, "H1")}, nil
	}, WithPriority(2))

	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		seen, _ := hc.Get("seen")
		list, _ := seen.([]string)
		return Context{"seen": append(list, "H2")}, nil
	}, WithPriority(1))

	got := r.Run(context.Background(), testPoint, nil)

	seen, _ := got.Get("seen")
	list, _ := seen.([]string)
	if len(list) != 2 || list[0] != "H1" || list[1] != "H2" {
		t.Errorf("expected seen [H1 H2], got %v", list)
	}
}

func TestRegistry_RunFailureIsolated(t *testing.T) {
	r := NewRegistry()

	var order []string
	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		order = append(order, "first")
		return Context{"first": true}, nil
	}, WithPriority(3))

	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		order = append(order, "failing")
		return Context{"poison": true}, errors.New("hook failed")
	}, WithPriority(2))

	_, _ = r.Register(testPoint, namedHandler(&order, "last"), WithPriority(1))

	got := r.Run(context.Background(), testPoint, nil)

	if len(order) != 3 {
		t.Fatalf("expected all three handlers attempted, got %v", order)
	}
	if !got.GetBool("first") {
		t.Error("field from successful handler lost")
	}
	// The failing handler's partial is discarded.
	if got.GetBool("poison") {
		t.Error("partial from failing handler was merged")
	}
}

func TestRegistry_RunPanicIsolated(t *testing.T) {
	var reportedErr error
	r := NewRegistry(WithReporter(func(point Point, id string, err error) {
		reportedErr = err
	}))

	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		panic("hook panic")
	}, WithPriority(2))

	ran := false
	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		ran = true
		return nil, nil
	}, WithPriority(1))

	r.Run(context.Background(), testPoint, nil)

	if !ran {
		t.Error("expected chain to continue after panic")
	}
	var perr *PanicError
	if !errors.As(reportedErr, &perr) {
		t.Fatalf("expected *PanicError reported, got %v", reportedErr)
	}
	if perr.Value != "hook panic" {
		t.Errorf("expected panic value preserved, got %v", perr.Value)
	}
	if !errors.Is(reportedErr, ErrHandlerPanic) {
		t.Error("expected report to match ErrHandlerPanic")
	}
}

func TestRegistry_RunReportsFailures(t *testing.T) {
	type report struct {
		point Point
		id    string
		err   error
	}
	var reports []report
	r := NewRegistry(WithReporter(func(point Point, id string, err error) {
		reports = append(reports, report{point, id, err})
	}))

	wantErr := errors.New("auth failed")
	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		return nil, wantErr
	}, WithID("auth"))

	r.Run(context.Background(), testPoint, nil)

	if len(reports) != 1 {
		t.Fatalf("expected one report, got %d", len(reports))
	}
	if reports[0].point != testPoint || reports[0].id != "auth" {
		t.Errorf("unexpected report identity: %+v", reports[0])
	}
	if !errors.Is(reports[0].err, wantErr) {
		t.Errorf("expected reported error %v, got %v", wantErr, reports[0].err)
	}
}

func TestRegistry_ReporterPanicIsolated(t *testing.T) {
	r := NewRegistry(WithReporter(func(point Point, id string, err error) {
		panic("reporter panic")
	}))

	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		return nil, errors.New("fail")
	}, WithPriority(2))

	ran := false
	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		ran = true
		return nil, nil
	}, WithPriority(1))

	// Must not panic the test; chain continues.
	r.Run(context.Background(), testPoint, nil)

	if !ran {
		t.Error("expected chain to survive a panicking reporter")
	}
}

func TestRegistry_RunUnknownPoint(t *testing.T) {
	r := NewRegistry()

	in := Context{"a": 1}
	got := r.Run(context.Background(), "never.registered", in)

	if got.GetInt("a") != 1 {
		t.Errorf("expected input context returned unchanged, got %v", got)
	}
}

func TestRegistry_RunNilContext(t *testing.T) {
	r := NewRegistry()

	got := r.Run(context.Background(), testPoint, nil)
	if got == nil {
		t.Fatal("expected non-nil context for nil input")
	}
}

func TestRegistry_RunCancelledContext(t *testing.T) {
	r := NewRegistry()

	first := 0
	_, _ = r.Register(testPoint, func(c context.Context, hc Context) (Context, error) {
		first++
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Run(ctx, testPoint, nil)

	if first != 0 {
		t.Error("expected no handlers to run under a cancelled context")
	}
}

func TestRegistry_OnceRemovedAfterRun(t *testing.T) {
	r := NewRegistry()

	count := 0
	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		count++
		return nil, nil
	}, WithOnce())

	r.Run(context.Background(), testPoint, nil)
	r.Run(context.Background(), testPoint, nil)

	if count != 1 {
		t.Errorf("expected one-shot hook to fire once, got %d", count)
	}
	if r.HasHooks(testPoint) {
		t.Error("expected one-shot hook removed after run")
	}
}

func TestRegistry_OnceRemovedEvenWhenFailing(t *testing.T) {
	r := NewRegistry()

	count := 0
	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		count++
		return nil, errors.New("once failed")
	}, WithOnce())

	r.Run(context.Background(), testPoint, nil)
	r.Run(context.Background(), testPoint, nil)

	if count != 1 {
		t.Errorf("expected a failing one-shot hook to still fire once, got %d", count)
	}
	if r.HookCount(testPoint) != 0 {
		t.Error("expected failing one-shot hook removed")
	}
}

func TestRegistry_OnceConcurrentRuns(t *testing.T) {
	r := NewRegistry()

	// Concurrent runs over the same one-shot entries must fire each
	// exactly once: deletion from the registry is the claim, and the run
	// that loses it skips the snapshot entry.
	const hooks = 50
	counts := make([]atomic.Int32, hooks)
	for i := 0; i < hooks; i++ {
		i := i
		_, err := r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
			counts[i].Add(1)
			time.Sleep(50 * time.Microsecond)
			return nil, nil
		}, WithOnce())
		if err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	for n := 0; n < 2; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(context.Background(), testPoint, nil)
		}()
	}
	wg.Wait()

	for i := range counts {
		if got := counts[i].Load(); got != 1 {
			t.Errorf("one-shot hook %d fired %d times", i, got)
		}
	}
	if r.HasHooks(testPoint) {
		t.Error("expected all one-shot hooks removed")
	}
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	r := NewRegistry()

	reg, _ := r.Register(testPoint, namedHandler(nil, "x"))

	if !r.Unregister(reg.ID) {
		t.Error("expected first Unregister to return true")
	}
	if r.Unregister(reg.ID) {
		t.Error("expected repeated Unregister to return false")
	}
	if r.Unregister("never-registered") {
		t.Error("expected Unregister of unknown id to return false")
	}
	if r.HasHooks(testPoint) {
		t.Error("expected no remaining hooks")
	}
}

func TestRegistry_SnapshotDuringRun(t *testing.T) {
	r := NewRegistry()

	var addedRan bool
	_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
		_, _ = r.Register(testPoint, func(ctx context.Context, hc Context) (Context, error) {
			addedRan = true
			return nil, nil
		}, WithID("added"))
		return nil, nil
	})

	r.Run(context.Background(), testPoint, nil)
	if addedRan {
		t.Error("hook registered mid-run must not run in the same run")
	}

	r.Run(context.Background(), testPoint, nil)
	if !addedRan {
		t.Error("hook registered during the previous run did not run later")
	}
}

func TestRegistry_Introspection(t *testing.T) {
	r := NewRegistry()

	if r.HasHooks(testPoint) {
		t.Error("expected no hooks on a fresh registry")
	}

	_, _ = r.Register(testPoint, namedHandler(nil, "a"), WithPriority(1), WithID("low"))
	_, _ = r.Register(testPoint, namedHandler(nil, "b"), WithPriority(9), WithID("high"))
	_, _ = r.Register("other.point", namedHandler(nil, "c"))

	if got := r.HookCount(testPoint); got != 2 {
		t.Errorf("expected 2 hooks, got %d", got)
	}

	hooks := r.Hooks(testPoint)
	if len(hooks) != 2 || hooks[0].ID != "high" || hooks[1].ID != "low" {
		t.Errorf("expected metadata in execution order [high low], got %+v", hooks)
	}

	if got := len(r.Points()); got != 2 {
		t.Errorf("expected 2 points, got %d", got)
	}
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry()

	_, _ = r.Register(testPoint, namedHandler(nil, "a"))
	_, _ = r.Register("other.point", namedHandler(nil, "b"))

	r.Clear(testPoint)
	if r.HasHooks(testPoint) {
		t.Error("expected cleared point to be empty")
	}
	if !r.HasHooks("other.point") {
		t.Error("expected other point to survive targeted Clear")
	}

	r.Clear()
	if len(r.Points()) != 0 {
		t.Error("expected empty registry after full Clear")
	}
}
