// Package mesh provides triangle-mesh loading and canonicalisation for the
// thumbnail pipeline. Loaders accept STL (binary and ASCII), Wavefront OBJ
// and glTF/GLB files and return plain triangle soup; Normalize brings a
// loaded mesh into the canonical pose the framing code expects.
package mesh

import (
	"errors"
	"fmt"

	"github.com/kvistgaard/meshpreview/pkg/math"
)

// UpAxis identifies the vertical axis convention of a source file.
type UpAxis int

const (
	// UpY is the pipeline's canonical up axis (OBJ, glTF).
	UpY UpAxis = iota
	// UpZ is the common CAD convention (STL).
	UpZ
)

// Mesh is an immutable triangle soup. Colors is either nil or parallel to
// Positions (one RGB value per vertex, components in [0,1]).
type Mesh struct {
	Positions []math.Vec3
	Triangles [][3]int
	Colors    []math.Vec3
	Up        UpAxis
}

// ErrEmptyMesh is returned when a file parses successfully but contains no
// triangles. Meshes past the loader boundary are guaranteed non-empty.
var ErrEmptyMesh = errors.New("mesh contains no triangles")

// LoadError wraps a parse or I/O failure for a mesh file. Malformed uploads
// are an expected outcome, not a fatal condition.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading mesh %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Bounds is an axis-aligned bounding box. Degenerate (zero extent) boxes
// are legal.
type Bounds struct {
	Min, Max math.Vec3
}

// Extend grows the bounds to include p.
func (b *Bounds) Extend(p math.Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// Center returns the box midpoint.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the per-axis extents.
func (b Bounds) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Bounds computes the axis-aligned bounding box of all vertices.
func (m *Mesh) Bounds() Bounds {
	if len(m.Positions) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: m.Positions[0], Max: m.Positions[0]}
	for _, p := range m.Positions[1:] {
		b.Extend(p)
	}
	return b
}

// CenterOfMass returns the mean vertex position.
func (m *Mesh) CenterOfMass() math.Vec3 {
	if len(m.Positions) == 0 {
		return math.Vec3{}
	}
	var sum math.Vec3
	for _, p := range m.Positions {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float32(len(m.Positions)))
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}
