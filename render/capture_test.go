package render

import (
	"bytes"
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/trijayaagung/armada-studio/scene"
)

// quadScene is a unit quad in the z=0 plane facing +z, big enough to cover
// the view center from testCamera.
func quadScene() *scene.Scene {
	sc := &scene.Scene{
		Name: "quad",
		Materials: []*scene.Material{
			{Name: "BusBody_Main", BlendColor: scene.NewColorFloat([]float32{1, 0, 0})},
		},
		Meshes: []*scene.Mesh{{
			Name:          "quad",
			MaterialIndex: 0,
			Vertices: []scene.Vertex{
				{Position: mgl32.Vec3{-1, -1, 0}, Normal: mgl32.Vec3{0, 0, 1}, UV: mgl32.Vec2{0, 1}},
				{Position: mgl32.Vec3{1, -1, 0}, Normal: mgl32.Vec3{0, 0, 1}, UV: mgl32.Vec2{1, 1}},
				{Position: mgl32.Vec3{1, 1, 0}, Normal: mgl32.Vec3{0, 0, 1}, UV: mgl32.Vec2{1, 0}},
				{Position: mgl32.Vec3{-1, 1, 0}, Normal: mgl32.Vec3{0, 0, 1}, UV: mgl32.Vec2{0, 0}},
			},
			Indices: []uint32{0, 1, 2, 0, 2, 3},
		}},
	}
	sc.CalculateBounds()
	return sc
}

func testCamera() *Camera {
	cam := NewCamera()
	cam.Position = mgl32.Vec3{0, 0, 5}
	cam.LookAt(mgl32.Vec3{})
	cam.UpdateProjection()
	return cam
}

func TestRenderPreviewDrawsScene(t *testing.T) {
	e := NewEngine(64, 64)
	img, err := e.RenderPreview(quadScene(), testCamera())
	if err != nil {
		t.Fatalf("RenderPreview failed: %v", err)
	}

	center := img.RGBAAt(32, 32)
	if center.R < 150 || center.G > 50 || center.B > 50 || center.A != 255 {
		t.Errorf("center pixel %+v; expected lit red", center)
	}
	corner := img.RGBAAt(0, 0)
	if corner.A != 0 {
		t.Errorf("corner pixel %+v; expected empty background", corner)
	}
}

func TestRenderPreviewNotReady(t *testing.T) {
	e := NewEngine(64, 64)
	if _, err := e.RenderPreview(nil, testCamera()); err != ErrNotReady {
		t.Errorf("nil scene error %v; expected ErrNotReady", err)
	}
	if _, err := e.RenderPreview(quadScene(), nil); err != ErrNotReady {
		t.Errorf("nil camera error %v; expected ErrNotReady", err)
	}
}

func TestCaptureNotReady(t *testing.T) {
	e := NewEngine(64, 64)
	if _, err := e.Capture(nil, testCamera(), 128, 128); err != ErrNotReady {
		t.Errorf("nil scene error %v; expected ErrNotReady", err)
	}
}

func TestCaptureDimensionsAndContent(t *testing.T) {
	e := NewEngine(64, 64)
	img, err := e.Capture(quadScene(), testCamera(), 320, 180)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 180 {
		t.Fatalf("capture size %dx%d; expected 320x180", b.Dx(), b.Dy())
	}
	center := img.RGBAAt(160, 90)
	if center.R < 150 || center.A != 255 {
		t.Errorf("center pixel %+v; expected lit red", center)
	}
}

func TestCaptureRestoresViewport(t *testing.T) {
	e := NewEngine(64, 48)
	cam := testCamera()
	cam.Aspect = float32(64) / 48
	cam.UpdateProjection()
	sc := quadScene()

	for i := 0; i < 3; i++ {
		if _, err := e.Capture(sc, cam, 320, 180); err != nil {
			t.Fatalf("capture %d failed: %v", i, err)
		}
		vp := e.Viewport()
		if vp.Width != 64 || vp.Height != 48 {
			t.Fatalf("capture %d left viewport %dx%d; expected 64x48", i, vp.Width, vp.Height)
		}
		if cam.Aspect != float32(64)/48 {
			t.Fatalf("capture %d left camera aspect %v; expected restore", i, cam.Aspect)
		}
		if e.Degraded() {
			t.Fatalf("capture %d degraded the engine", i)
		}
	}
}

func TestCaptureDeterministic(t *testing.T) {
	e := NewEngine(64, 64)
	cam := testCamera()
	sc := quadScene()

	a, err := e.Capture(sc, cam, 128, 128)
	if err != nil {
		t.Fatalf("first capture failed: %v", err)
	}
	b, err := e.Capture(sc, cam, 128, 128)
	if err != nil {
		t.Fatalf("second capture failed: %v", err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Errorf("identical captures produced different pixels")
	}
}

func TestCaptureReturnsDefensiveCopy(t *testing.T) {
	e := NewEngine(64, 64)
	cam := testCamera()
	sc := quadScene()

	a, err := e.Capture(sc, cam, 128, 128)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	for i := range a.Pix {
		a.Pix[i] = 0x7f
	}

	b, err := e.Capture(sc, cam, 128, 128)
	if err != nil {
		t.Fatalf("second capture failed: %v", err)
	}
	if bytes.Equal(a.Pix, b.Pix) {
		t.Errorf("scribbling on a returned capture leaked into the engine buffer")
	}
}

func TestCaptureTexturedBodyMaterial(t *testing.T) {
	red := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(red.Pix); i += 4 {
		red.Pix[i] = 255
		red.Pix[i+3] = 255
	}
	tex := scene.NewTexture("body", red)
	tex.MinFilter = scene.FilterTrilinear
	tex.MagFilter = scene.FilterBilinear
	tex.BuildMipmaps()

	sc := quadScene()
	sc.Materials[0].Name = "bodybasic"
	sc.Materials[0].BlendColor = scene.White()
	sc.Materials[0].Map = tex

	e := NewEngine(64, 64)
	img, err := e.Capture(sc, testCamera(), 64, 64)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	covered := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			p := img.RGBAAt(x, y)
			if p.A == 0 {
				continue
			}
			covered++
			if p.R < 100 || p.G > 40 || p.B > 40 {
				t.Fatalf("pixel (%d,%d)=%+v; expected red within tolerance", x, y, p)
			}
		}
	}
	if covered == 0 {
		t.Fatalf("no covered pixels; quad not rendered")
	}
}

func TestSetViewportRejectsInvalid(t *testing.T) {
	e := NewEngine(64, 64)
	if err := e.SetViewport(0, 100); err == nil {
		t.Errorf("zero width accepted")
	}
	if err := e.SetViewport(100, -1); err == nil {
		t.Errorf("negative height accepted")
	}
	vp := e.Viewport()
	if vp.Width != 64 || vp.Height != 64 {
		t.Errorf("rejected resize still changed viewport to %dx%d", vp.Width, vp.Height)
	}
}
