package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

type Mesh struct {
	Name          string
	Vertices      []Vertex
	Indices       []uint32
	MaterialIndex int
}

func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Material is a named surface of the scene. Livery art is applied by swapping
// Map at runtime; BlendColor is used when no map is bound.
type Material struct {
	Name        string
	BlendColor  ColorFloat
	Map         *Texture
	Transparent bool
	AlphaTest   float32
	DoubleSided bool
}

type Scene struct {
	Name      string
	Meshes    []*Mesh
	Materials []*Material

	BoundsMin mgl32.Vec3
	BoundsMax mgl32.Vec3
}

func (s *Scene) CalculateBounds() {
	first := true
	for _, mesh := range s.Meshes {
		for i := range mesh.Vertices {
			p := mesh.Vertices[i].Position
			if first {
				s.BoundsMin, s.BoundsMax = p, p
				first = false
				continue
			}
			for axis := 0; axis < 3; axis++ {
				if p[axis] < s.BoundsMin[axis] {
					s.BoundsMin[axis] = p[axis]
				}
				if p[axis] > s.BoundsMax[axis] {
					s.BoundsMax[axis] = p[axis]
				}
			}
		}
	}
}

func (s *Scene) Center() mgl32.Vec3 {
	return s.BoundsMin.Add(s.BoundsMax).Mul(0.5)
}

func (s *Scene) BoundingRadius() float32 {
	return s.BoundsMax.Sub(s.Center()).Len()
}

// MaterialsMatching returns every material whose name satisfies match.
// Role resolution is a predicate over the name, not string equality, so that
// asset-author naming variance ("bodybasic", "BodyPaint", "glass_fr") still
// resolves.
func (s *Scene) MaterialsMatching(match func(name string) bool) []*Material {
	var out []*Material
	for _, mat := range s.Materials {
		if match(mat.Name) {
			out = append(out, mat)
		}
	}
	return out
}

func (s *Scene) TriangleCount() int {
	total := 0
	for _, mesh := range s.Meshes {
		total += mesh.TriangleCount()
	}
	return total
}
