package pose

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/trijayaagung/armada-studio/render"
)

const (
	// MinFOV rejects physically meaningless fields of view by clamping,
	// not by error.
	MinFOV float32 = 1
	MaxFOV float32 = 120

	DefaultFOV  float32 = render.DefaultFOV
	DefaultZoom float32 = 1

	// minZoom keeps the camera distance strictly positive.
	minZoom float32 = 1e-3
)

func ClampFOV(v float32) float32 {
	if v < MinFOV {
		return MinFOV
	}
	if v > MaxFOV {
		return MaxFOV
	}
	return v
}

func ClampZoom(v float32) float32 {
	if v < minZoom {
		return minZoom
	}
	return v
}

// Controller reads and replays camera framings on an explicitly injected
// camera. It never reaches for shared global camera state; every operation
// takes the live camera as a parameter.
//
// Zoom scales the camera's distance from the target along the current view
// direction (distance = base / zoom). FOV changes the projection. The two are
// orthogonal controls and are never conflated.
type Controller struct {
	baseDistance float32
	zoom         float32
}

// NewController records the camera's current distance as the zoom-1 baseline.
func NewController(cam *render.Camera) *Controller {
	return &Controller{
		baseDistance: cam.Distance(),
		zoom:         DefaultZoom,
	}
}

func (c *Controller) Zoom() float32 { return c.zoom }

// Capture reads the live camera into a new record. The target is recorded as
// the world origin, matching how poses are framed in the pose editor; it is
// not the interactive orbit point.
func (c *Controller) Capture(cam *render.Camera, modelID, name string) *Pose {
	fov := cam.FOV
	zoom := c.zoom
	return &Pose{
		ModelID:    modelID,
		Name:       name,
		CameraPos:  FromVec3(cam.Position),
		TargetPos:  Vector{},
		CameraFOV:  &fov,
		CameraZoom: &zoom,
	}
}

// Apply replays a stored pose onto the live camera and recomputes the
// projection. Absent FOV/zoom fall back to the defaults. A zoom of exactly 1
// leaves the stored position untouched.
func (c *Controller) Apply(p *Pose, cam *render.Camera) {
	cam.Position = p.CameraPos.Vec3()
	cam.LookAt(p.TargetPos.Vec3())

	fov := DefaultFOV
	if p.CameraFOV != nil {
		fov = *p.CameraFOV
	}
	if fov < MinFOV {
		fov = MinFOV
	}
	cam.FOV = fov

	c.baseDistance = cam.Distance()
	c.zoom = DefaultZoom
	if p.CameraZoom != nil {
		c.setZoom(cam, *p.CameraZoom)
	}

	cam.UpdateProjection()
}

// ApplyManual drives the zoom and FOV sliders independently of any stored
// pose.
func (c *Controller) ApplyManual(cam *render.Camera, zoom, fov float32) {
	cam.FOV = ClampFOV(fov)
	c.setZoom(cam, zoom)
	cam.UpdateProjection()
}

func (c *Controller) setZoom(cam *render.Camera, zoom float32) {
	zoom = ClampZoom(zoom)
	c.zoom = zoom

	distance := c.baseDistance / zoom
	dir := mgl32.Vec3{0, 0, -1}
	if cam.Distance() > 1e-6 {
		dir = cam.ViewDirection()
	}
	cam.Position = cam.Target.Sub(dir.Mul(distance))
}
