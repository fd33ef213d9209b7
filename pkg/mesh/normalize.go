package mesh

import "github.com/kvistgaard/meshpreview/pkg/math"

// Normalize brings a mesh into canonical pose: center of mass at the
// origin, maximum extent scaled to 1, up axis aligned with +Y. Returns the
// normalized mesh and the pose transform that was applied. A zero-extent
// mesh (single point or degenerate soup) keeps scale 1.
//
// Normalizing an already-normalized mesh is a near no-op.
func Normalize(m *Mesh) (*Mesh, math.Mat4) {
	com := m.CenterOfMass()
	pose := math.Translate(-com.X, -com.Y, -com.Z)

	size := m.Bounds().Size()
	if s := size.MaxComponent(); s > 0 {
		pose = math.Scale(1/s, 1/s, 1/s).Mul(pose)
	}

	if m.Up == UpZ {
		// Rotate Z-up sources onto the canonical Y-up frame.
		pose = math.RotateX(math.Radians(-90)).Mul(pose)
	}

	out := &Mesh{
		Positions: make([]math.Vec3, len(m.Positions)),
		Triangles: m.Triangles,
		Colors:    m.Colors,
		Up:        UpY,
	}
	for i, p := range m.Positions {
		out.Positions[i] = pose.TransformPoint(p)
	}
	return out, pose
}
