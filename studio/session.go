// Package studio ties the model loader, livery binder, camera pose controller
// and render engine together into the single editing session the admin UI
// drives.
package studio

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trijayaagung/armada-studio/config"
	"github.com/trijayaagung/armada-studio/livery"
	"github.com/trijayaagung/armada-studio/pose"
	"github.com/trijayaagung/armada-studio/render"
	"github.com/trijayaagung/armada-studio/scene"
	"github.com/trijayaagung/armada-studio/status"
	"github.com/trijayaagung/armada-studio/storage"
	"github.com/trijayaagung/armada-studio/watermark"
)

var (
	// ErrNoModel is returned by operations that need a selected model.
	ErrNoModel = errors.New("no model selected")
)

const (
	previewWidth  = 800
	previewHeight = 600
)

// State is the snapshot served to the admin UI on /api/session/state.
type State struct {
	ModelID    string          `json:"model_id,omitempty"`
	ModelName  string          `json:"model_name,omitempty"`
	LoadState  string          `json:"load_state"`
	Progress   float64         `json:"progress"`
	Message    string          `json:"message,omitempty"`
	LoadError  string          `json:"load_error,omitempty"`
	Degraded   bool            `json:"degraded"`
	Viewport   render.Viewport `json:"viewport"`
	CameraPos  pose.Vector     `json:"camera_pos"`
	CameraFOV  float32         `json:"camera_fov"`
	CameraZoom float32         `json:"camera_zoom"`
	BoundBody  bool            `json:"bound_body"`
	BoundAlpha bool            `json:"bound_alpha"`
	Triangles  int             `json:"triangles"`
	Center     pose.Vector     `json:"center"`
	Radius     float32         `json:"radius"`
}

// Session is the single mutable editing context. All entry points are safe
// for concurrent use; texture decodes and model loads run on their own
// goroutines and report through the status hub.
type Session struct {
	mu sync.Mutex

	cfg *config.Config
	db  storage.Backend
	hub *status.Hub

	loader     *scene.Loader
	engine     *render.Engine
	camera     *render.Camera
	controller *pose.Controller
	binder     *livery.Binder
	wm         *watermark.Compositor

	model *storage.ModelAsset
}

func NewSession(cfg *config.Config, db storage.Backend, hub *status.Hub) (*Session, error) {
	wm, err := watermark.NewCompositor(cfg.Brand.Name, cfg.Brand.Credit)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot prepare watermark compositor")
	}

	cam := render.NewCamera()
	cam.UpdateProjection()
	engine := render.NewEngine(previewWidth, previewHeight)

	s := &Session{
		cfg:        cfg,
		db:         db,
		hub:        hub,
		loader:     scene.NewLoader(scene.GLBResolver(filepath.Join(cfg.DataDir, "models"))),
		engine:     engine,
		camera:     cam,
		controller: pose.NewController(cam),
		binder:     livery.NewBinder(engine.TargetLock()),
		wm:         wm,
	}
	s.loader.OnChange(s.publishLoad)
	return s, nil
}

func (s *Session) publishLoad(st scene.Status) {
	s.mu.Lock()
	model := ""
	if s.model != nil {
		model = s.model.Name
	}
	s.mu.Unlock()

	u := status.Update{
		State:    st.State.String(),
		Model:    model,
		Progress: st.Progress,
		Message:  st.Message,
	}
	if st.Err != nil {
		u.Error = st.Err.Error()
	}
	s.hub.Publish(u)
}

// SelectModel loads the model's scene and resets per-model session state.
// Textures bound to the previous model are released; a degraded render
// engine is recovered by the reload.
func (s *Session) SelectModel(ctx context.Context, id string) (*storage.ModelAsset, error) {
	m, err := s.db.GetModel(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.model = m
	s.binder.ReleaseAll()
	s.binder = livery.NewBinder(s.engine.TargetLock())
	s.engine.Reset()
	s.camera = render.NewCamera()
	s.camera.UpdateProjection()
	s.controller = pose.NewController(s.camera)
	s.mu.Unlock()

	log.Printf("[studio] Selecting model %q (%s)", m.Name, m.GLBFile)
	// The load outlives the request; the loader cancels it itself when a
	// newer selection supersedes it.
	s.loader.Load(context.Background(), m.GLBFile)
	return m, nil
}

// ClearModel drops the selection and frees every bound texture.
func (s *Session) ClearModel() {
	s.mu.Lock()
	s.model = nil
	s.binder.ReleaseAll()
	s.binder = livery.NewBinder(s.engine.TargetLock())
	s.engine.Reset()
	s.mu.Unlock()

	s.loader.Clear()
	log.Printf("[studio] Cleared model selection")
}

// Model returns the currently selected model, if any.
func (s *Session) Model() (*storage.ModelAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return nil, false
	}
	m := *s.model
	return &m, true
}

// BindLivery decodes the uploaded image on a background goroutine and swaps
// it onto every material matching the role. A nil src is a no-op bind.
func (s *Session) BindLivery(role livery.Role, src io.Reader) (*livery.Bind, error) {
	sc, ok := s.loader.Scene()
	if !ok {
		return nil, ErrNoModel
	}

	s.mu.Lock()
	binder := s.binder
	s.mu.Unlock()

	b := binder.Bind(sc, role, src)
	go func() {
		<-b.Done()
		if err := b.Err(); err != nil {
			log.Printf("[studio] Livery bind %v failed: %v", role, err)
			s.hub.Publish(status.Update{State: "bind_error", Error: err.Error()})
			return
		}
		s.hub.Publish(status.Update{
			State:   "bind_done",
			Message: fmt.Sprintf("Applied %v texture to %d materials", role, b.Applied()),
		})
	}()
	return b, nil
}

// TexturesReady blocks until every pending texture bind has settled.
func (s *Session) TexturesReady(ctx context.Context) error {
	return s.currentBinder().Ready(ctx)
}

func (s *Session) currentBinder() *livery.Binder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binder
}

// SavePose persists the live camera as a named pose for the current model.
// An empty name gets a generated one.
func (s *Session) SavePose(ctx context.Context, name string) (*pose.Pose, error) {
	s.mu.Lock()
	if s.model == nil {
		s.mu.Unlock()
		return nil, ErrNoModel
	}
	p := s.controller.Capture(s.camera, s.model.ID, name)
	s.mu.Unlock()

	if err := s.db.CreatePose(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("[studio] Saved pose %q (%s)", p.Name, p.ID)
	return p, nil
}

// ApplyPose replays a stored pose onto the session camera.
func (s *Session) ApplyPose(ctx context.Context, id string) (*pose.Pose, error) {
	p, err := s.db.GetPose(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.controller.Apply(p, s.camera)
	s.mu.Unlock()
	return p, nil
}

// SetManual drives the zoom and FOV sliders directly.
func (s *Session) SetManual(zoom, fov float32) {
	s.mu.Lock()
	s.controller.ApplyManual(s.camera, zoom, fov)
	s.mu.Unlock()
}

// SetViewport resizes the interactive preview target.
func (s *Session) SetViewport(width, height int) error {
	return s.engine.SetViewport(width, height)
}

// State snapshots the session for the UI.
func (s *Session) State() State {
	st := s.loader.Status()
	sc, _ := s.loader.Scene()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := State{
		LoadState:  st.State.String(),
		Progress:   st.Progress,
		Message:    st.Message,
		Degraded:   s.engine.Degraded(),
		Viewport:   s.engine.Viewport(),
		CameraPos:  pose.FromVec3(s.camera.Position),
		CameraFOV:  s.camera.FOV,
		CameraZoom: s.controller.Zoom(),
	}
	if st.Err != nil {
		out.LoadError = st.Err.Error()
	}
	if s.model != nil {
		out.ModelID = s.model.ID
		out.ModelName = s.model.Name
	}
	if sc != nil {
		out.Triangles = sc.TriangleCount()
		out.Center = pose.FromVec3(sc.Center())
		out.Radius = sc.BoundingRadius()
	}
	_, out.BoundBody = s.binder.Bound(livery.RoleBody)
	_, out.BoundAlpha = s.binder.Bound(livery.RoleAlpha)
	return out
}

// Preview renders the scene at the interactive viewport size, without the
// watermark and without waiting for in-flight texture binds.
func (s *Session) Preview() (*image.RGBA, error) {
	sc, ok := s.loader.Scene()
	if !ok {
		return nil, render.ErrNotReady
	}

	s.mu.Lock()
	cam := *s.camera
	s.mu.Unlock()
	return s.engine.RenderPreview(sc, &cam)
}

// Export produces the final deliverable: waits for texture binds to settle,
// captures at the configured export resolution, composites the watermark and
// returns the encoded PNG with its download filename.
func (s *Session) Export(ctx context.Context) (string, []byte, error) {
	s.mu.Lock()
	model := s.model
	s.mu.Unlock()
	if model == nil {
		return "", nil, ErrNoModel
	}
	sc, ok := s.loader.Scene()
	if !ok {
		return "", nil, render.ErrNotReady
	}

	if err := s.TexturesReady(ctx); err != nil {
		return "", nil, errors.Wrapf(err, "Texture binds did not settle")
	}

	s.mu.Lock()
	cam := *s.camera
	s.mu.Unlock()

	img, err := s.engine.Capture(sc, &cam, s.cfg.ExportWidth, s.cfg.ExportHeight)
	if err != nil {
		if render.IsRestoreFailure(err) {
			s.hub.Publish(status.Update{State: "degraded", Error: err.Error()})
		}
		return "", nil, err
	}

	stamped, err := s.wm.Apply(img)
	if err != nil {
		return "", nil, err
	}
	data, err := watermark.EncodePNG(stamped)
	if err != nil {
		return "", nil, err
	}

	name := fmt.Sprintf("livery_%s_%d.png", sanitizeName(model.Name), time.Now().UnixMilli())
	log.Printf("[studio] Exported %s (%dx%d, %d bytes)", name, s.cfg.ExportWidth, s.cfg.ExportHeight, len(data))
	return name, data, nil
}

func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
