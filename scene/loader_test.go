package scene

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
)

type statusRecorder struct {
	mu      sync.Mutex
	history []Status
}

func (r *statusRecorder) record(s Status) {
	r.mu.Lock()
	r.history = append(r.history, s)
	r.mu.Unlock()
}

func (r *statusRecorder) snapshot() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.history))
	copy(out, r.history)
	return out
}

func waitState(t *testing.T, l *Loader, want State) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st := l.Status(); st.State == want {
			return st
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("loader never reached state %v, stuck at %v", want, l.Status().State)
	return Status{}
}

func TestLoaderStateMachine(t *testing.T) {
	rec := &statusRecorder{}
	l := NewLoader(func(ctx context.Context, ref string, report func(float64, string)) (*Scene, error) {
		report(30, "reading")
		report(60, "parsing")
		return &Scene{Name: ref}, nil
	})
	l.OnChange(rec.record)

	if st := l.Status(); st.State != StateIdle {
		t.Fatalf("fresh loader state %v; expected idle", st.State)
	}
	if _, ok := l.Scene(); ok {
		t.Fatalf("fresh loader must not expose a scene")
	}

	l.Load(context.Background(), "bus.glb")
	st := waitState(t, l, StateReady)

	if st.Progress != 100 {
		t.Errorf("ready progress %v; expected 100", st.Progress)
	}
	sc, ok := l.Scene()
	if !ok || sc.Name != "bus.glb" {
		t.Errorf("Scene()=%v,%v; expected loaded scene", sc, ok)
	}

	history := rec.snapshot()
	if len(history) == 0 || history[0].State != StateLoading {
		t.Errorf("first notification must be loading, got %+v", history)
	}
	if last := history[len(history)-1]; last.State != StateReady {
		t.Errorf("last notification %v; expected ready", last.State)
	}
}

func TestLoaderProgressMonotonic(t *testing.T) {
	rec := &statusRecorder{}
	l := NewLoader(func(ctx context.Context, ref string, report func(float64, string)) (*Scene, error) {
		report(50, "half")
		report(20, "out of order")
		report(250, "overshoot")
		return &Scene{Name: ref}, nil
	})
	l.OnChange(rec.record)

	l.Load(context.Background(), "bus.glb")
	waitState(t, l, StateReady)

	prev := float64(-1)
	for _, st := range rec.snapshot() {
		if st.Progress < prev {
			t.Errorf("progress regressed from %v to %v", prev, st.Progress)
		}
		if st.Progress > 100 {
			t.Errorf("progress %v exceeds 100", st.Progress)
		}
		prev = st.Progress
	}
}

func TestLoaderErrorState(t *testing.T) {
	loadErr := errors.New("corrupt file")
	l := NewLoader(func(ctx context.Context, ref string, report func(float64, string)) (*Scene, error) {
		return nil, loadErr
	})

	l.Load(context.Background(), "broken.glb")
	st := waitState(t, l, StateError)

	if st.Err == nil {
		t.Errorf("error state must carry the error")
	}
	if _, ok := l.Scene(); ok {
		t.Errorf("failed load must not expose a scene")
	}
}

func TestLoaderDropsStaleResult(t *testing.T) {
	release := make(chan struct{})
	l := NewLoader(func(ctx context.Context, ref string, report func(float64, string)) (*Scene, error) {
		if ref == "slow.glb" {
			<-release
		}
		return &Scene{Name: ref}, nil
	})

	l.Load(context.Background(), "slow.glb")
	l.Load(context.Background(), "fast.glb")
	waitState(t, l, StateReady)

	close(release)
	// the slow result lands after the fast one and must be dropped
	time.Sleep(50 * time.Millisecond)

	sc, ok := l.Scene()
	if !ok || sc.Name != "fast.glb" {
		t.Errorf("Scene()=%v,%v; stale slow result must not win", sc, ok)
	}
}

func TestLoaderClearCancelsLoad(t *testing.T) {
	started := make(chan struct{})
	l := NewLoader(func(ctx context.Context, ref string, report func(float64, string)) (*Scene, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	l.Load(context.Background(), "bus.glb")
	<-started
	l.Clear()

	if st := l.Status(); st.State != StateIdle {
		t.Errorf("state after Clear %v; expected idle", st.State)
	}
	// the canceled resolver's error must never surface
	time.Sleep(50 * time.Millisecond)
	if st := l.Status(); st.State != StateIdle || st.Err != nil {
		t.Errorf("canceled load leaked into status: %+v", st)
	}
}
