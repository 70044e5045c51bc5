package pose

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

type Vector struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func (v Vector) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{v.X, v.Y, v.Z}
}

func FromVec3(v mgl32.Vec3) Vector {
	return Vector{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// Pose is a named, persisted camera framing for one model. FOV and zoom are
// optional; absent values fall back to the default framing. A pose holds a
// weak reference to its model: deleting the model does not cascade here.
type Pose struct {
	ID         string    `json:"id"`
	ModelID    string    `json:"model_id"`
	Name       string    `json:"name"`
	CameraPos  Vector    `json:"camera_pos"`
	TargetPos  Vector    `json:"target_pos"`
	CameraFOV  *float32  `json:"camera_fov,omitempty"`
	CameraZoom *float32  `json:"camera_zoom,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
