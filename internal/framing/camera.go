// Package framing derives an orthographic camera that tightly bounds a
// normalized mesh from a fixed viewing angle. The calculator is pure:
// identical mesh and angles always produce identical camera values.
package framing

import (
	gomath "math"

	"github.com/kvistgaard/meshpreview/pkg/math"
	"github.com/kvistgaard/meshpreview/pkg/mesh"
)

const (
	// minRadius floors the bounding-sphere radius so a single-point mesh
	// never produces a zero-distance eye or zero-size frame.
	minRadius = 1e-5

	// distanceScale and distanceOffset place the eye at
	// center + dir*(distanceScale*radius + distanceOffset).
	distanceScale  = 2.5
	distanceOffset = 0.05

	// depthMarginScale pads near/far by this fraction of the radius.
	depthMarginScale = 0.5

	// minNear keeps the near plane strictly positive.
	minNear = 1e-4

	// parallelUpThreshold detects the gimbal case where the view direction
	// is numerically parallel to the requested up axis.
	parallelUpThreshold = 0.999
)

// DefaultMargin is the relative framing padding (6%).
const DefaultMargin = 0.06

// Default viewing angles, in degrees.
const (
	DefaultAzimuthDeg   = 45
	DefaultElevationDeg = 25
)

// CameraSpec describes an orthographic camera. XMag and YMag are the
// half-extents of the visible frame and are always equal (isotropic
// framing) and strictly positive; Near < Far and the interval contains the
// projected mesh depth range plus margin.
type CameraSpec struct {
	Eye  math.Vec3
	View math.Mat4
	XMag float32
	YMag float32
	Near float32
	Far  float32
}

// Projection returns the orthographic projection matrix for the spec.
func (c CameraSpec) Projection() math.Mat4 {
	return math.Ortho(-c.XMag, c.XMag, -c.YMag, c.YMag, c.Near, c.Far)
}

// Params controls the framing calculation.
type Params struct {
	AzimuthDeg   float32
	ElevationDeg float32
	Margin       float32
	Up           math.Vec3
}

// DefaultParams returns the standard thumbnail viewpoint.
func DefaultParams() Params {
	return Params{
		AzimuthDeg:   DefaultAzimuthDeg,
		ElevationDeg: DefaultElevationDeg,
		Margin:       DefaultMargin,
		Up:           math.Vec3{Y: 1},
	}
}

// Frame computes the camera that frames m from the given angles. The frame
// is square: both extents are set to the larger of the padded width and
// height so thumbnails are directly comparable regardless of model
// proportions.
func Frame(m *mesh.Mesh, p Params) CameraSpec {
	bounds := m.Bounds()
	center := bounds.Center()
	extents := bounds.Size()

	radius := extents.Length() / 2
	if radius < minRadius {
		radius = minRadius
	}

	dir := math.SphericalDirection(math.Radians(p.AzimuthDeg), math.Radians(p.ElevationDeg))
	distance := distanceScale*radius + distanceOffset
	eye := center.Add(dir.Scale(distance))

	up := p.Up
	if up == (math.Vec3{}) {
		up = math.Vec3{Y: 1}
	}
	forward := center.Sub(eye).Normalize()
	if gomath.Abs(float64(forward.Dot(up.Normalize()))) > parallelUpThreshold {
		// Looking straight along the up axis: fall back to a secondary up
		// so the orthonormal basis stays well conditioned.
		up = math.Vec3{Z: 1}
		if gomath.Abs(float64(forward.Dot(up))) > parallelUpThreshold {
			up = math.Vec3{X: 1}
		}
	}
	view := math.LookAt(eye, center, up)

	// Project the eight AABB corners into camera space; their X/Y spread is
	// the unpadded frame, their Z spread the depth range.
	halfW, halfH := float32(0), float32(0)
	nearDepth, farDepth := float32(gomath.Inf(1)), float32(gomath.Inf(-1))
	for _, corner := range corners(bounds) {
		c := view.TransformPoint(corner)
		if w := float32(gomath.Abs(float64(c.X))); w > halfW {
			halfW = w
		}
		if h := float32(gomath.Abs(float64(c.Y))); h > halfH {
			halfH = h
		}
		depth := -c.Z
		if depth < nearDepth {
			nearDepth = depth
		}
		if depth > farDepth {
			farDepth = depth
		}
	}

	halfW *= 1 + p.Margin
	halfH *= 1 + p.Margin

	mag := halfW
	if halfH > mag {
		mag = halfH
	}
	if mag < minRadius {
		mag = minRadius
	}

	depthMargin := depthMarginScale * radius
	near := nearDepth - depthMargin
	if near < minNear {
		near = minNear
	}
	far := farDepth + depthMargin
	if far <= near {
		far = near + depthMargin + minNear
	}

	return CameraSpec{
		Eye:  eye,
		View: view,
		XMag: mag,
		YMag: mag,
		Near: near,
		Far:  far,
	}
}

func corners(b mesh.Bounds) [8]math.Vec3 {
	return [8]math.Vec3{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
	}
}
