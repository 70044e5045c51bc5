package scene

import (
	"math"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func buildQuadDocument(matName string) *gltf.Document {
	doc := gltf.NewDocument()

	positions := [][3]float32{
		{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0},
	}
	normals := [][3]float32{
		{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1},
	}
	uvs := [][2]float32{
		{0, 1}, {1, 1}, {1, 0}, {0, 0},
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}

	doc.Materials = append(doc.Materials, &gltf.Material{Name: matName})
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
	return doc
}

func TestFromDocumentQuad(t *testing.T) {
	sc, err := FromDocument(buildQuadDocument("BusBody_Main"), "bus")
	if err != nil {
		t.Fatalf("FromDocument failed: %v", err)
	}

	if len(sc.Meshes) != 1 {
		t.Fatalf("got %d meshes; expected 1", len(sc.Meshes))
	}
	mesh := sc.Meshes[0]
	if len(mesh.Vertices) != 4 || len(mesh.Indices) != 6 {
		t.Fatalf("mesh has %d vertices, %d indices; expected 4, 6", len(mesh.Vertices), len(mesh.Indices))
	}
	if mesh.TriangleCount() != 2 {
		t.Errorf("TriangleCount()=%d; expected 2", mesh.TriangleCount())
	}
	if mesh.MaterialIndex != 0 {
		t.Errorf("MaterialIndex=%d; expected 0", mesh.MaterialIndex)
	}

	if len(sc.Materials) != 1 || sc.Materials[0].Name != "BusBody_Main" {
		t.Fatalf("materials=%+v; expected one named BusBody_Main", sc.Materials)
	}

	if sc.BoundsMin.X() != -1 || sc.BoundsMax.X() != 1 {
		t.Errorf("bounds [%v %v]; expected x range [-1 1]", sc.BoundsMin, sc.BoundsMax)
	}
	if got := mesh.Vertices[1].UV; got.X() != 1 || got.Y() != 1 {
		t.Errorf("vertex 1 uv=%v; expected (1,1)", got)
	}
}

func TestFromDocumentBakesNodeTransform(t *testing.T) {
	doc := buildQuadDocument("BusBody_Main")
	doc.Nodes[0].Translation = [3]float32{10, 0, 0}
	doc.Nodes[0].Scale = [3]float32{2, 2, 2}

	sc, err := FromDocument(doc, "bus")
	if err != nil {
		t.Fatalf("FromDocument failed: %v", err)
	}

	v0 := sc.Meshes[0].Vertices[0].Position
	if v0.X() != 8 || v0.Y() != -2 || v0.Z() != 0 {
		t.Errorf("transformed vertex 0 = %v; expected (8,-2,0)", v0)
	}
	// uniform scaling must not change normal direction
	n0 := sc.Meshes[0].Vertices[0].Normal
	if math.Abs(float64(n0.Z()-1)) > 1e-5 {
		t.Errorf("normal after transform = %v; expected +z", n0)
	}
}

func TestFromDocumentMaterialDefaults(t *testing.T) {
	doc := buildQuadDocument("")
	cutoff := float32(0.35)
	doc.Materials[0].AlphaMode = gltf.AlphaMask
	doc.Materials[0].AlphaCutoff = &cutoff

	sc, err := FromDocument(doc, "bus")
	if err != nil {
		t.Fatalf("FromDocument failed: %v", err)
	}

	mat := sc.Materials[0]
	if mat.Name != "material_0" {
		t.Errorf("unnamed material got %q; expected generated material_0", mat.Name)
	}
	if !mat.Transparent || mat.AlphaTest != cutoff {
		t.Errorf("alpha mask material = %+v; expected transparent with cutoff %v", mat, cutoff)
	}
	if mat.BlendColor != White() {
		t.Errorf("BlendColor=%v; expected white default", mat.BlendColor)
	}
}

func TestFromDocumentGeneratesIndices(t *testing.T) {
	doc := gltf.NewDocument()
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{
				"POSITION": modeler.WritePosition(doc, positions),
			},
		}},
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "tri", Mesh: gltf.Index(0)})

	sc, err := FromDocument(doc, "tri")
	if err != nil {
		t.Fatalf("FromDocument failed: %v", err)
	}

	mesh := sc.Meshes[0]
	if len(mesh.Indices) != 3 {
		t.Fatalf("generated %d indices; expected 3", len(mesh.Indices))
	}
	for i, idx := range mesh.Indices {
		if idx != uint32(i) {
			t.Errorf("index %d = %d; expected sequential", i, idx)
		}
	}
	if mesh.MaterialIndex != -1 {
		t.Errorf("MaterialIndex=%d; expected -1 for unassigned", mesh.MaterialIndex)
	}
	if mesh.Name != "tri" {
		t.Errorf("mesh name %q; expected node name fallback", mesh.Name)
	}
}
