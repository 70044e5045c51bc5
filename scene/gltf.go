package scene

import (
	"io"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// DecodeGLB loads a glTF binary container from a stream (uploaded blob).
func DecodeGLB(r io.Reader, name string) (*Scene, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode gltf %q", name)
	}
	return FromDocument(doc, name)
}

// FromDocument flattens a gltf document into a renderable scene graph.
// Node transforms are baked into vertex positions so the rasterizer works in
// world space only.
func FromDocument(doc *gltf.Document, name string) (*Scene, error) {
	s := &Scene{Name: name}

	for iMat, gm := range doc.Materials {
		mat := &Material{
			Name:        gm.Name,
			BlendColor:  White(),
			DoubleSided: gm.DoubleSided,
		}
		if mat.Name == "" {
			mat.Name = "material_" + strconv.Itoa(iMat)
		}
		if pbr := gm.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
			mat.BlendColor = NewColorFloatA((*pbr.BaseColorFactor)[:])
		}
		switch gm.AlphaMode {
		case gltf.AlphaMask:
			mat.Transparent = true
			mat.AlphaTest = 0.5
			if gm.AlphaCutoff != nil {
				mat.AlphaTest = *gm.AlphaCutoff
			}
		case gltf.AlphaBlend:
			mat.Transparent = true
		}
		s.Materials = append(s.Materials, mat)
	}

	for _, iNode := range rootNodes(doc) {
		if err := appendNode(doc, s, iNode, mgl32.Ident4()); err != nil {
			return nil, err
		}
	}

	s.CalculateBounds()
	return s, nil
}

func rootNodes(doc *gltf.Document) []uint32 {
	if len(doc.Scenes) > 0 {
		iScene := uint32(0)
		if doc.Scene != nil {
			iScene = *doc.Scene
		}
		if int(iScene) < len(doc.Scenes) && len(doc.Scenes[iScene].Nodes) > 0 {
			return doc.Scenes[iScene].Nodes
		}
	}

	// No scene list: every node that is not somebody's child is a root.
	child := make(map[uint32]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[c] = true
		}
	}
	roots := make([]uint32, 0, len(doc.Nodes))
	for i := range doc.Nodes {
		if !child[uint32(i)] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func appendNode(doc *gltf.Document, s *Scene, iNode uint32, parent mgl32.Mat4) error {
	if int(iNode) >= len(doc.Nodes) {
		return errors.Errorf("Node index %d out of range", iNode)
	}
	node := doc.Nodes[iNode]
	tf := parent.Mul4(nodeTransform(node))

	if node.Mesh != nil {
		if err := appendMesh(doc, s, *node.Mesh, node.Name, tf); err != nil {
			return err
		}
	}

	for _, iChild := range node.Children {
		if err := appendNode(doc, s, iChild, tf); err != nil {
			return err
		}
	}
	return nil
}

func appendMesh(doc *gltf.Document, s *Scene, iMesh uint32, nodeName string, tf mgl32.Mat4) error {
	if int(iMesh) >= len(doc.Meshes) {
		return errors.Errorf("Mesh index %d out of range", iMesh)
	}
	gm := doc.Meshes[iMesh]

	normalMat := tf.Mat3().Inv().Transpose()
	if normalMat == (mgl32.Mat3{}) {
		normalMat = tf.Mat3()
	}

	for iPrim, prim := range gm.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}

		iPosAcc, ok := prim.Attributes["POSITION"]
		if !ok {
			continue
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[iPosAcc], nil)
		if err != nil {
			return errors.Wrapf(err, "Failed to read positions of mesh %q", gm.Name)
		}

		var normals [][3]float32
		if iAcc, ok := prim.Attributes["NORMAL"]; ok {
			if normals, err = modeler.ReadNormal(doc, doc.Accessors[iAcc], nil); err != nil {
				return errors.Wrapf(err, "Failed to read normals of mesh %q", gm.Name)
			}
		}

		var uvs [][2]float32
		if iAcc, ok := prim.Attributes["TEXCOORD_0"]; ok {
			if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[iAcc], nil); err != nil {
				return errors.Wrapf(err, "Failed to read uv of mesh %q", gm.Name)
			}
		}

		mesh := &Mesh{
			Name:          primName(gm.Name, nodeName, iPrim),
			MaterialIndex: -1,
		}
		if prim.Material != nil {
			mesh.MaterialIndex = int(*prim.Material)
		}

		mesh.Vertices = make([]Vertex, len(positions))
		for i := range positions {
			p := tf.Mul4x1(mgl32.Vec3(positions[i]).Vec4(1))
			mesh.Vertices[i].Position = p.Vec3()
			if normals != nil {
				mesh.Vertices[i].Normal = normalMat.Mul3x1(mgl32.Vec3(normals[i])).Normalize()
			}
			if uvs != nil {
				mesh.Vertices[i].UV = mgl32.Vec2(uvs[i])
			}
		}

		if prim.Indices != nil {
			mesh.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return errors.Wrapf(err, "Failed to read indices of mesh %q", gm.Name)
			}
		} else {
			mesh.Indices = make([]uint32, len(positions))
			for i := range mesh.Indices {
				mesh.Indices[i] = uint32(i)
			}
		}

		s.Meshes = append(s.Meshes, mesh)
	}
	return nil
}

var identityMatrix = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// nodeTransform tolerates both decoded nodes (defaults filled in) and
// hand-built documents (zero values for unset TRS fields).
func nodeTransform(n *gltf.Node) mgl32.Mat4 {
	if n.Matrix != ([16]float32{}) && n.Matrix != identityMatrix {
		return mgl32.Mat4(n.Matrix)
	}

	t := n.Translation
	r := n.Rotation
	if r == ([4]float32{}) {
		r = [4]float32{0, 0, 0, 1}
	}
	sc := n.Scale
	if sc == ([3]float32{}) {
		sc = [3]float32{1, 1, 1}
	}

	q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(sc[0], sc[1], sc[2]))
}

func primName(meshName, nodeName string, iPrim int) string {
	name := meshName
	if name == "" {
		name = nodeName
	}
	if name == "" {
		name = "mesh"
	}
	if iPrim > 0 {
		name += "_" + strconv.Itoa(iPrim)
	}
	return name
}
