package mesh

import (
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/kvistgaard/meshpreview/pkg/math"
)

// DecodeGLTF reads a glTF or GLB file from disk, flattening the default
// scene's node hierarchy into a single triangle soup. Per-vertex COLOR_0
// attributes are preserved when any primitive carries them. glTF is Y-up.
func DecodeGLTF(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}

	m := &Mesh{Up: UpY}
	hasColor := false

	var walk func(nodeIdx int, parent math.Mat4) error
	walk = func(nodeIdx int, parent math.Mat4) error {
		if nodeIdx < 0 || nodeIdx >= len(doc.Nodes) {
			return nil
		}
		node := doc.Nodes[nodeIdx]
		world := parent.Mul(nodeTransform(node))

		if node.Mesh != nil && *node.Mesh < len(doc.Meshes) {
			for _, prim := range doc.Meshes[*node.Mesh].Primitives {
				if prim.Mode != gltf.PrimitiveTriangles {
					continue
				}
				if err := appendPrimitive(doc, prim, world, m, &hasColor); err != nil {
					return err
				}
			}
		}
		for _, child := range node.Children {
			if err := walk(child, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, scene := range sceneNodes(doc) {
		if err := walk(scene, math.Identity()); err != nil {
			return nil, err
		}
	}
	if !hasColor {
		m.Colors = nil
	}
	return m, nil
}

// sceneNodes returns the root nodes of the default scene, or of every node
// when the document declares no scene at all.
func sceneNodes(doc *gltf.Document) []int {
	idx := 0
	if doc.Scene != nil {
		idx = *doc.Scene
	}
	if idx < len(doc.Scenes) {
		return doc.Scenes[idx].Nodes
	}
	roots := make([]int, len(doc.Nodes))
	for i := range doc.Nodes {
		roots[i] = i
	}
	return roots
}

func appendPrimitive(doc *gltf.Document, prim *gltf.Primitive, world math.Mat4, m *Mesh, hasColor *bool) error {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok || posIdx >= len(doc.Accessors) {
		return nil
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return err
	}

	base := len(m.Positions)
	for _, p := range positions {
		m.Positions = append(m.Positions, world.TransformPoint(math.Vec3{X: p[0], Y: p[1], Z: p[2]}))
	}

	if colIdx, ok := prim.Attributes[gltf.COLOR_0]; ok && colIdx < len(doc.Accessors) {
		colors, err := modeler.ReadColor(doc, doc.Accessors[colIdx], nil)
		if err != nil {
			return err
		}
		padColors(m, base)
		for _, c := range colors {
			m.Colors = append(m.Colors, math.Vec3{
				X: float32(c[0]) / 255,
				Y: float32(c[1]) / 255,
				Z: float32(c[2]) / 255,
			})
		}
		*hasColor = true
	} else if *hasColor {
		padColors(m, len(m.Positions))
	}

	if prim.Indices != nil && *prim.Indices < len(doc.Accessors) {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return err
		}
		for i := 0; i+2 < len(indices); i += 3 {
			m.Triangles = append(m.Triangles, [3]int{
				base + int(indices[i]),
				base + int(indices[i+1]),
				base + int(indices[i+2]),
			})
		}
	} else {
		for i := 0; i+2 < len(positions); i += 3 {
			m.Triangles = append(m.Triangles, [3]int{base + i, base + i + 1, base + i + 2})
		}
	}
	return nil
}

// padColors extends the color slice with white up to n entries so it stays
// parallel to Positions across primitives with and without COLOR_0.
func padColors(m *Mesh, n int) {
	for len(m.Colors) < n {
		m.Colors = append(m.Colors, math.Vec3{X: 1, Y: 1, Z: 1})
	}
}

// nodeTransform builds a node's local matrix. Hand-built documents may
// carry zero-valued Matrix/Scale/Rotation fields; those are treated as the
// glTF defaults.
func nodeTransform(node *gltf.Node) math.Mat4 {
	if node.Matrix != [16]float64{} && node.Matrix != gltfIdentity {
		var out math.Mat4
		for i, v := range node.Matrix {
			out[i] = float32(v)
		}
		return out
	}

	t := math.Translate(float32(node.Translation[0]), float32(node.Translation[1]), float32(node.Translation[2]))

	r := math.Identity()
	if node.Rotation != [4]float64{} {
		q := math.Quat{
			X: float32(node.Rotation[0]),
			Y: float32(node.Rotation[1]),
			Z: float32(node.Rotation[2]),
			W: float32(node.Rotation[3]),
		}
		r = q.Mat4()
	}

	s := math.Identity()
	if node.Scale != [3]float64{} {
		s = math.Scale(float32(node.Scale[0]), float32(node.Scale[1]), float32(node.Scale[2]))
	}

	return t.Mul(r).Mul(s)
}

var gltfIdentity = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
