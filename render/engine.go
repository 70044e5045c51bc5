package render

import (
	"image"
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/trijayaagung/armada-studio/scene"
)

var (
	// ErrNotReady means capture was requested before a scene and camera
	// exist. This is a caller contract violation, reported synchronously.
	ErrNotReady = errors.New("capture requested before scene and camera are ready")

	// ErrDegraded means a previous viewport restore failed. The engine
	// refuses captures until the scene is reloaded rather than silently
	// producing mis-sized frames.
	ErrDegraded = errors.New("render engine degraded after failed viewport restore")

	errRestore = errors.New("viewport restore failed")
)

// Viewport is the interactive render target state that a capture must
// preserve bit for bit.
type Viewport struct {
	Width      int
	Height     int
	PixelRatio float32
}

// Engine owns the render target. The mutex is the single-owner rule for the
// target's size and the camera aspect: either the interactive preview or a
// capture holds it, never both.
type Engine struct {
	mu       sync.Mutex
	fb       *Framebuffer
	degraded bool
}

func NewEngine(width, height int) *Engine {
	return &Engine{fb: NewFramebuffer(width, height)}
}

func (e *Engine) Viewport() Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Viewport{Width: e.fb.Width, Height: e.fb.Height, PixelRatio: e.fb.PixelRatio}
}

// SetViewport resizes the interactive render target.
func (e *Engine) SetViewport(width, height int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyViewport(Viewport{Width: width, Height: height, PixelRatio: e.fb.PixelRatio})
}

func (e *Engine) applyViewport(vp Viewport) error {
	if vp.Width <= 0 || vp.Height <= 0 || vp.PixelRatio <= 0 {
		return errors.Errorf("Invalid viewport %dx%d@%v", vp.Width, vp.Height, vp.PixelRatio)
	}
	if vp.Width != e.fb.Width || vp.Height != e.fb.Height {
		e.fb.Resize(vp.Width, vp.Height)
	}
	e.fb.PixelRatio = vp.PixelRatio
	return nil
}

// TargetLock exposes the render target's single-owner mutex so texture swaps
// can be serialized against in-flight frames.
func (e *Engine) TargetLock() sync.Locker {
	return &e.mu
}

func (e *Engine) Degraded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.degraded
}

// Reset clears the degraded flag when the scene is reloaded.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.degraded = false
	e.fb.Clear()
	e.mu.Unlock()
}

// RenderPreview renders one frame at the interactive viewport size and
// returns a copy.
func (e *Engine) RenderPreview(sc *scene.Scene, cam *Camera) (*image.RGBA, error) {
	if sc == nil || cam == nil {
		return nil, ErrNotReady
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.degraded {
		return nil, ErrDegraded
	}

	cam.Aspect = float32(e.fb.Width) / float32(e.fb.Height)
	cam.UpdateProjection()

	e.fb.Clear()
	RenderFrame(e.fb, sc, cam)
	return e.fb.Image(), nil
}

// Capture renders exactly one frame at width x height and restores the
// interactive viewport and camera aspect afterwards. Restoration runs on
// every exit path, render panics included; if it cannot complete the engine
// flags itself degraded and refuses further captures.
func (e *Engine) Capture(sc *scene.Scene, cam *Camera, width, height int) (out *image.RGBA, err error) {
	if sc == nil || cam == nil {
		return nil, ErrNotReady
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.degraded {
		return nil, ErrDegraded
	}

	// Step 1: record interactive state.
	saved := Viewport{Width: e.fb.Width, Height: e.fb.Height, PixelRatio: e.fb.PixelRatio}
	savedAspect := cam.Aspect

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errors.Errorf("Render panic during capture: %v", r)
		}
	}()

	// Step 5 (deferred): restore, on success and failure alike.
	defer func() {
		if rerr := e.applyViewport(saved); rerr != nil {
			e.degraded = true
			log.Printf("[render] VIEWPORT RESTORE FAILED, preview corrupted until scene reload: %v", rerr)
			out = nil
			err = errors.Wrapf(errRestore, "restore to %dx%d: %v", saved.Width, saved.Height, rerr)
			return
		}
		cam.Aspect = savedAspect
		cam.UpdateProjection()
	}()

	// Step 2: switch to the export resolution.
	if err = e.applyViewport(Viewport{Width: width, Height: height, PixelRatio: 1}); err != nil {
		return nil, err
	}
	cam.Aspect = float32(width) / float32(height)
	cam.UpdateProjection()

	// Step 3: clear and render one frame.
	e.fb.Clear()
	RenderFrame(e.fb, sc, cam)

	// Step 4: defensive readback copy.
	out = e.fb.Image()
	return out, nil
}

// IsRestoreFailure reports whether err came from a failed viewport restore.
func IsRestoreFailure(err error) bool {
	return errors.Is(err, errRestore)
}
