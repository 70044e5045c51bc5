package studio

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trijayaagung/armada-studio/config"
	"github.com/trijayaagung/armada-studio/livery"
	"github.com/trijayaagung/armada-studio/pose"
	"github.com/trijayaagung/armada-studio/status"
	"github.com/trijayaagung/armada-studio/storage"
)

// writeTestGLB drops a single textured quad model into dir.
func writeTestGLB(t *testing.T, dir, name string) {
	t.Helper()
	doc := gltf.NewDocument()

	positions := [][3]float32{{-2, -2, 0}, {2, -2, 0}, {2, 2, 0}, {-2, 2, 0}}
	normals := [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	uvs := [][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
	indices := []uint32{0, 1, 2, 0, 2, 3}

	doc.Materials = append(doc.Materials, &gltf.Material{Name: "BusBody_Main"})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "quad",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{
				"POSITION":   modeler.WritePosition(doc, positions),
				"NORMAL":     modeler.WriteNormal(doc, normals),
				"TEXCOORD_0": modeler.WriteTextureCoord(doc, uvs),
			},
			Indices:  gltf.Index(modeler.WriteIndices(doc, indices)),
			Material: gltf.Index(0),
		}},
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "quad", Mesh: gltf.Index(0)})

	require.NoError(t, os.MkdirAll(dir, 0755))
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()

	enc := gltf.NewEncoder(f)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(doc))
}

func testSession(t *testing.T) (*Session, storage.Backend, *storage.ModelAsset) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.ExportWidth = 320
	cfg.ExportHeight = 180

	writeTestGLB(t, filepath.Join(cfg.DataDir, "models"), "bus.glb")

	db := storage.NewMemory()
	m := &storage.ModelAsset{Name: "City Bus", GLBFile: "bus.glb"}
	require.NoError(t, db.CreateModel(context.Background(), m))

	s, err := NewSession(cfg, db, status.NewHub())
	require.NoError(t, err)
	return s, db, m
}

func waitReady(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := s.State()
		if st.LoadState == "ready" {
			return
		}
		if st.LoadState == "error" {
			t.Fatalf("load failed: %s", st.LoadError)
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("model never became ready: %+v", s.State())
}

func redPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, color.RGBA{200, 10, 10, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSessionSelectAndPreview(t *testing.T) {
	s, _, m := testSession(t)

	got, err := s.SelectModel(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "City Bus", got.Name)
	waitReady(t, s)

	st := s.State()
	assert.Equal(t, m.ID, st.ModelID)
	assert.Equal(t, float64(100), st.Progress)
	assert.Equal(t, 2, st.Triangles)
	assert.Equal(t, pose.Vector{}, st.Center, "quad is centered on the origin")
	assert.InDelta(t, 2.828, st.Radius, 0.01)
	assert.False(t, st.Degraded)

	img, err := s.Preview()
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}

func TestSessionPreviewWithoutModel(t *testing.T) {
	s, _, _ := testSession(t)
	_, err := s.Preview()
	assert.Error(t, err)
}

func TestSessionSelectUnknownModel(t *testing.T) {
	s, _, _ := testSession(t)
	_, err := s.SelectModel(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionBindAndExport(t *testing.T) {
	s, _, m := testSession(t)

	_, err := s.SelectModel(context.Background(), m.ID)
	require.NoError(t, err)
	waitReady(t, s)

	b, err := s.BindLivery(livery.RoleBody, bytes.NewReader(redPNG(t)))
	require.NoError(t, err)
	require.NoError(t, b.Wait(context.Background()))
	assert.Equal(t, 1, b.Applied())

	st := s.State()
	assert.True(t, st.BoundBody)
	assert.False(t, st.BoundAlpha)

	name, data, err := s.Export(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^livery_City_Bus_\d+\.png$`), name)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 180, img.Bounds().Dy())

	// the bound red livery must show through at the frame center
	r, g, _, a := img.At(160, 90).RGBA()
	assert.Greater(t, r>>8, uint32(100), "center pixel not red: %v", img.At(160, 90))
	assert.Less(t, g>>8, uint32(80))
	assert.Equal(t, uint32(255), a>>8)

	// export must not disturb the interactive viewport
	vp := s.State().Viewport
	assert.Equal(t, 800, vp.Width)
	assert.Equal(t, 600, vp.Height)
	assert.False(t, s.State().Degraded)
}

func TestSessionExportWithoutModel(t *testing.T) {
	s, _, _ := testSession(t)
	_, _, err := s.Export(context.Background())
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestSessionPoseRoundTrip(t *testing.T) {
	s, db, m := testSession(t)

	_, err := s.SelectModel(context.Background(), m.ID)
	require.NoError(t, err)
	waitReady(t, s)

	s.SetManual(2, 60)
	saved, err := s.SavePose(context.Background(), "front left")
	require.NoError(t, err)
	assert.Equal(t, m.ID, saved.ModelID)
	require.NotNil(t, saved.CameraFOV)
	assert.Equal(t, float32(60), *saved.CameraFOV)
	require.NotNil(t, saved.CameraZoom)
	assert.Equal(t, float32(2), *saved.CameraZoom)

	list, err := db.ListPoses(context.Background(), m.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// disturb the camera, then replay
	s.SetManual(8, 100)
	applied, err := s.ApplyPose(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, applied.ID)

	st := s.State()
	assert.Equal(t, float32(60), st.CameraFOV)
	assert.Equal(t, float32(2), st.CameraZoom)
}

func TestSessionSavePoseWithoutModel(t *testing.T) {
	s, _, _ := testSession(t)
	_, err := s.SavePose(context.Background(), "front")
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestSessionClearReleasesTextures(t *testing.T) {
	s, _, m := testSession(t)

	_, err := s.SelectModel(context.Background(), m.ID)
	require.NoError(t, err)
	waitReady(t, s)

	b, err := s.BindLivery(livery.RoleBody, bytes.NewReader(redPNG(t)))
	require.NoError(t, err)
	require.NoError(t, b.Wait(context.Background()))

	binder := s.currentBinder()
	tex, ok := binder.Bound(livery.RoleBody)
	require.True(t, ok)

	s.ClearModel()

	assert.True(t, tex.Released())
	assert.Equal(t, 1, tex.ReleaseCalls())
	st := s.State()
	assert.Equal(t, "idle", st.LoadState)
	assert.Empty(t, st.ModelID)
	assert.False(t, st.BoundBody)
}

func TestConcurrentBindAndPreview(t *testing.T) {
	s, _, m := testSession(t)

	_, err := s.SelectModel(context.Background(), m.ID)
	require.NoError(t, err)
	waitReady(t, s)

	art := redPNG(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			role := livery.RoleBody
			if i%2 == 1 {
				role = livery.RoleAlpha
			}
			b, err := s.BindLivery(role, bytes.NewReader(art))
			if err != nil {
				t.Errorf("bind %d failed: %v", i, err)
				return
			}
			if err := b.Wait(context.Background()); err != nil {
				t.Errorf("bind %d settle failed: %v", i, err)
				return
			}
		}
	}()

	// render frames while the rebinds churn; texture swaps must never
	// interleave with a frame
	for {
		select {
		case <-done:
			require.NoError(t, s.TexturesReady(context.Background()))
			return
		default:
			if _, err := s.Preview(); err != nil {
				t.Fatalf("preview during rebind failed: %v", err)
			}
		}
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "City_Bus", sanitizeName("City Bus"))
	assert.Equal(t, "AL-7012", sanitizeName("AL-7012"))
	assert.Equal(t, "a_b_c", sanitizeName("a/b\\c"))
}
