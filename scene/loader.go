package scene

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Status is a snapshot of the loader for UI binding.
type Status struct {
	State    State
	Ref      string
	Progress float64 // 0..100, monotonically non-decreasing per load
	Message  string
	Err      error
}

// ResolveFunc turns a model reference into a loaded scene graph. report may be
// called with coarse progress in [0,100]; out-of-order values are clamped by
// the loader.
type ResolveFunc func(ctx context.Context, ref string, report func(pct float64, msg string)) (*Scene, error)

// Loader drives Idle -> Loading -> {Ready | Error}. Load with a new reference
// or Clear invalidates the previous load: its progress callbacks and result
// are matched against a generation counter and dropped when stale.
type Loader struct {
	mu      sync.Mutex
	resolve ResolveFunc
	notify  func(Status)

	gen    uint64
	cancel context.CancelFunc
	status Status
	scene  *Scene
}

func NewLoader(resolve ResolveFunc) *Loader {
	return &Loader{resolve: resolve}
}

// OnChange registers a single listener receiving every status transition.
// The listener is called without the loader lock held.
func (l *Loader) OnChange(fn func(Status)) {
	l.mu.Lock()
	l.notify = fn
	l.mu.Unlock()
}

func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Scene returns the loaded scene graph, valid only in StateReady.
func (l *Loader) Scene() (*Scene, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status.State != StateReady {
		return nil, false
	}
	return l.scene, true
}

// Load starts resolving ref. Any in-flight load loses interest in UI state:
// it keeps running until its context cancellation is observed, but nothing it
// reports is applied.
func (l *Loader) Load(ctx context.Context, ref string) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	if l.cancel != nil {
		l.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.scene = nil
	l.status = Status{State: StateLoading, Ref: ref, Message: "Loading 3D model..."}
	notify, status := l.notify, l.status
	l.mu.Unlock()

	if notify != nil {
		notify(status)
	}

	go l.run(loadCtx, gen, ref)
}

// Clear drops the current model and cancels any in-flight load's effect on
// observable state.
func (l *Loader) Clear() {
	l.mu.Lock()
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.scene = nil
	l.status = Status{State: StateIdle}
	notify, status := l.notify, l.status
	l.mu.Unlock()

	if notify != nil {
		notify(status)
	}
}

func (l *Loader) run(ctx context.Context, gen uint64, ref string) {
	report := func(pct float64, msg string) {
		l.mu.Lock()
		if l.gen != gen {
			l.mu.Unlock()
			return
		}
		if pct > 100 {
			pct = 100
		}
		if pct > l.status.Progress {
			l.status.Progress = pct
		}
		if msg != "" {
			l.status.Message = msg
		}
		notify, status := l.notify, l.status
		l.mu.Unlock()
		if notify != nil {
			notify(status)
		}
	}

	s, err := l.resolve(ctx, ref, report)

	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		if err == nil {
			log.Printf("[scene] Dropping stale load result for %q", ref)
		}
		return
	}
	if err != nil {
		l.status.State = StateError
		l.status.Err = err
		l.status.Message = err.Error()
		l.scene = nil
	} else {
		l.status.State = StateReady
		l.status.Progress = 100
		l.status.Message = "Model loaded"
		l.scene = s
	}
	notify, status := l.notify, l.status
	l.mu.Unlock()

	if err != nil {
		log.Printf("[scene] Load of %q failed: %v", ref, err)
	}
	if notify != nil {
		notify(status)
	}
}

// GLBResolver resolves a model reference against dir. References must not
// escape the model directory.
func GLBResolver(dir string) ResolveFunc {
	return func(ctx context.Context, ref string, report func(pct float64, msg string)) (*Scene, error) {
		path := filepath.Join(dir, filepath.Base(ref))

		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to open model %q", ref)
		}
		defer f.Close()

		fi, err := f.Stat()
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to stat model %q", ref)
		}

		report(0, "Reading model file...")

		var buf bytes.Buffer
		buf.Grow(int(fi.Size()))
		chunk := make([]byte, 256*1024)
		for {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrapf(err, "Load of %q canceled", ref)
			}
			n, err := f.Read(chunk)
			if n > 0 {
				buf.Write(chunk[:n])
				if fi.Size() > 0 {
					pct := 60 * float64(buf.Len()) / float64(fi.Size())
					report(pct, "Reading model file...")
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, errors.Wrapf(err, "Failed to read model %q", ref)
			}
		}

		report(60, "Parsing scene container...")
		name := ref
		if ext := filepath.Ext(name); ext != "" {
			name = name[:len(name)-len(ext)]
		}
		s, err := DecodeGLB(bytes.NewReader(buf.Bytes()), filepath.Base(name))
		if err != nil {
			return nil, err
		}

		report(95, "Preparing materials...")
		return s, nil
	}
}
