package render

import (
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultFOV    float32 = 45
	DefaultNear   float32 = 0.1
	DefaultFar    float32 = 2000
	DefaultAspect float32 = 4.0 / 3.0
)

// Camera is the live perspective camera. The projection matrix is cached;
// every mutation of FOV or Aspect must be followed by UpdateProjection, the
// same way the source viewport recomputed its projection after resizes.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FOV      float32 // vertical field of view, degrees
	Aspect   float32
	Near     float32
	Far      float32

	proj mgl32.Mat4
}

// NewCamera matches the source's default framing: eye (5,2,5) looking at the
// origin with a 45 degree field of view.
func NewCamera() *Camera {
	c := &Camera{
		Position: mgl32.Vec3{5, 2, 5},
		Target:   mgl32.Vec3{0, 0, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		FOV:      DefaultFOV,
		Aspect:   DefaultAspect,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
	c.UpdateProjection()
	return c
}

func (c *Camera) LookAt(target mgl32.Vec3) {
	c.Target = target
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

func (c *Camera) UpdateProjection() {
	c.proj = mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return c.proj
}

// ViewDirection is the unit vector from the camera toward its target.
func (c *Camera) ViewDirection() mgl32.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

// Distance is the camera's distance from its target.
func (c *Camera) Distance() float32 {
	return c.Position.Sub(c.Target).Len()
}
