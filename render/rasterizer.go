package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/trijayaagung/armada-studio/scene"
)

type directionalLight struct {
	dir       mgl32.Vec3
	intensity float32
}

// The light rig mirrors the preview canvas: 0.6 ambient, a key light from
// (5,10,5) and a weaker fill from (-3,3,-3).
var (
	ambientIntensity float32 = 0.6

	sceneLights = []directionalLight{
		{mgl32.Vec3{5, 10, 5}.Normalize(), 1.0},
		{mgl32.Vec3{-3, 3, -3}.Normalize(), 0.4},
	}
)

var defaultMaterial = scene.Material{Name: "default", BlendColor: scene.White()}

// RenderFrame rasterizes one frame of sc through cam into fb. The caller is
// responsible for clearing fb first.
func RenderFrame(fb *Framebuffer, sc *scene.Scene, cam *Camera) {
	viewProj := cam.ProjectionMatrix().Mul4(cam.ViewMatrix())

	for _, mesh := range sc.Meshes {
		mat := &defaultMaterial
		if mesh.MaterialIndex >= 0 && mesh.MaterialIndex < len(sc.Materials) {
			mat = sc.Materials[mesh.MaterialIndex]
		}
		for i := 0; i+2 < len(mesh.Indices); i += 3 {
			rasterizeTriangle(fb, viewProj, mat,
				&mesh.Vertices[mesh.Indices[i]],
				&mesh.Vertices[mesh.Indices[i+1]],
				&mesh.Vertices[mesh.Indices[i+2]])
		}
	}
}

type screenVertex struct {
	x, y    float32
	z       float32 // NDC depth
	invW    float32
	uOverW  float32
	vOverW  float32
	nOverW  mgl32.Vec3
}

func rasterizeTriangle(fb *Framebuffer, viewProj mgl32.Mat4, mat *scene.Material, v0, v1, v2 *scene.Vertex) {
	var sv [3]screenVertex
	for i, v := range []*scene.Vertex{v0, v1, v2} {
		clip := viewProj.Mul4x1(v.Position.Vec4(1))
		w := clip.W()
		if w <= 1e-5 {
			// Behind the near plane; no clipping path, drop the triangle.
			return
		}
		invW := 1 / w
		sv[i] = screenVertex{
			x:      (clip.X()*invW + 1) * 0.5 * float32(fb.Width),
			y:      (1 - clip.Y()*invW) * 0.5 * float32(fb.Height),
			z:      clip.Z() * invW,
			invW:   invW,
			uOverW: v.UV.X() * invW,
			vOverW: v.UV.Y() * invW,
			nOverW: v.Normal.Mul(invW),
		}
	}

	area := edge(sv[0].x, sv[0].y, sv[1].x, sv[1].y, sv[2].x, sv[2].y)
	if area == 0 {
		return
	}
	// Screen y points down, so a world-CCW front face projects with negative
	// area here.
	frontFacing := area < 0
	if !frontFacing && !mat.DoubleSided {
		return
	}
	if frontFacing {
		sv[1], sv[2] = sv[2], sv[1]
		area = -area
	}

	lod := mipLOD(mat.Map, &sv, area)

	minX := int(math.Floor(float64(min3(sv[0].x, sv[1].x, sv[2].x))))
	maxX := int(math.Ceil(float64(max3(sv[0].x, sv[1].x, sv[2].x))))
	minY := int(math.Floor(float64(min3(sv[0].y, sv[1].y, sv[2].y))))
	maxY := int(math.Ceil(float64(max3(sv[0].y, sv[1].y, sv[2].y))))
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX > fb.Width-1 {
		maxX = fb.Width - 1
	}
	if maxY > fb.Height-1 {
		maxY = fb.Height - 1
	}

	invArea := 1 / area

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			py := float32(y) + 0.5

			w0 := edge(sv[1].x, sv[1].y, sv[2].x, sv[2].y, px, py)
			w1 := edge(sv[2].x, sv[2].y, sv[0].x, sv[0].y, px, py)
			w2 := edge(sv[0].x, sv[0].y, sv[1].x, sv[1].y, px, py)
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			w0 *= invArea
			w1 *= invArea
			w2 *= invArea

			z := w0*sv[0].z + w1*sv[1].z + w2*sv[2].z
			if z < -1 || z > 1 || z >= fb.depthAt(x, y) {
				continue
			}

			invW := w0*sv[0].invW + w1*sv[1].invW + w2*sv[2].invW
			if invW <= 0 {
				continue
			}
			u := (w0*sv[0].uOverW + w1*sv[1].uOverW + w2*sv[2].uOverW) / invW
			v := (w0*sv[0].vOverW + w1*sv[1].vOverW + w2*sv[2].vOverW) / invW

			r, g, b, a := shade(mat, u, v, lod,
				sv[0].nOverW.Mul(w0).Add(sv[1].nOverW.Mul(w1)).Add(sv[2].nOverW.Mul(w2)).Mul(1/invW))
			if mat.Transparent && a < mat.AlphaTest {
				continue
			}

			fb.setDepth(x, y, z)
			fb.blendPixel(x, y, r, g, b, a)
		}
	}
}

func shade(mat *scene.Material, u, v, lod float32, normal mgl32.Vec3) (r, g, b, a float32) {
	r, g, b, a = 1, 1, 1, 1
	if mat.Map != nil {
		r, g, b, a = sampleTexture(mat.Map, u, v, lod)
	}

	blend := mat.BlendColor
	r *= blend[0]
	g *= blend[1]
	b *= blend[2]
	a *= blend[3]

	light := float32(1)
	if normal.Len() > 1e-6 {
		n := normal.Normalize()
		light = ambientIntensity
		for _, l := range sceneLights {
			if d := n.Dot(l.dir); d > 0 {
				light += d * l.intensity
			}
		}
		if light > 1 {
			light = 1
		}
	}

	return r * light, g * light, b * light, a
}

// mipLOD estimates the minification level from the texel-to-pixel area ratio
// of the whole triangle.
func mipLOD(tex *scene.Texture, sv *[3]screenVertex, screenArea float32) float32 {
	if tex == nil || tex.LevelCount() < 2 {
		return 0
	}

	u0 := sv[0].uOverW / sv[0].invW
	v0 := sv[0].vOverW / sv[0].invW
	u1 := sv[1].uOverW / sv[1].invW
	v1 := sv[1].vOverW / sv[1].invW
	u2 := sv[2].uOverW / sv[2].invW
	v2 := sv[2].vOverW / sv[2].invW

	du1, dv1 := (u1-u0)*float32(tex.Width), (v1-v0)*float32(tex.Height)
	du2, dv2 := (u2-u0)*float32(tex.Width), (v2-v0)*float32(tex.Height)
	texelArea := float32(math.Abs(float64(du1*dv2 - du2*dv1)))
	if texelArea <= 0 || screenArea <= 0 {
		return 0
	}

	lod := 0.5 * float32(math.Log2(float64(texelArea/screenArea)))
	if lod < 0 {
		return 0
	}
	if max := float32(tex.LevelCount() - 1); lod > max {
		return max
	}
	return lod
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func min3(a, b, c float32) float32 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func max3(a, b, c float32) float32 {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}
