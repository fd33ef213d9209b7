package math

import (
	gomath "math"
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3NormalizeZero(t *testing.T) {
	got := (Vec3{}).Normalize()
	if got != (Vec3{}) {
		t.Errorf("Vec3{}.Normalize() = %v, want zero vector", got)
	}
}

func TestVec3MinMax(t *testing.T) {
	a := Vec3{1, 5, -2}
	b := Vec3{3, -4, 0}
	if got := a.Min(b); got != (Vec3{1, -4, -2}) {
		t.Errorf("Min = %v", got)
	}
	if got := a.Max(b); got != (Vec3{3, 5, 0}) {
		t.Errorf("Max = %v", got)
	}
	if got := a.MaxComponent(); got != 5 {
		t.Errorf("MaxComponent = %v, want 5", got)
	}
}

func TestSphericalDirection(t *testing.T) {
	// Zero azimuth and elevation points down +Z.
	got := SphericalDirection(0, 0)
	if gomath.Abs(float64(got.X)) > 1e-6 || gomath.Abs(float64(got.Y)) > 1e-6 || gomath.Abs(float64(got.Z-1)) > 1e-6 {
		t.Errorf("SphericalDirection(0,0) = %v, want +Z", got)
	}

	// Straight-up elevation points along +Y.
	got = SphericalDirection(0, Radians(90))
	if gomath.Abs(float64(got.Y-1)) > 1e-6 {
		t.Errorf("SphericalDirection(0,90deg) = %v, want +Y", got)
	}

	// Always unit length.
	got = SphericalDirection(Radians(45), Radians(25))
	if l := got.Length(); gomath.Abs(float64(l-1)) > 1e-5 {
		t.Errorf("length = %v, want 1", l)
	}
}

func TestLookAtMapsTargetToViewAxis(t *testing.T) {
	eye := Vec3{0, 0, 5}
	center := Vec3{0, 0, 0}
	view := LookAt(eye, center, Vec3{0, 1, 0})

	// The target must land on the -Z view axis at the eye distance.
	p := view.TransformPoint(center)
	if gomath.Abs(float64(p.X)) > 1e-5 || gomath.Abs(float64(p.Y)) > 1e-5 || gomath.Abs(float64(p.Z+5)) > 1e-5 {
		t.Errorf("view * center = %v, want (0,0,-5)", p)
	}

	// The eye maps to the origin.
	p = view.TransformPoint(eye)
	if p.Length() > 1e-5 {
		t.Errorf("view * eye = %v, want origin", p)
	}
}

func TestOrthoMapsExtentsToClipBox(t *testing.T) {
	proj := Ortho(-2, 2, -3, 3, 1, 10)

	p := proj.TransformPoint(Vec3{2, 3, -1})
	if gomath.Abs(float64(p.X-1)) > 1e-5 || gomath.Abs(float64(p.Y-1)) > 1e-5 || gomath.Abs(float64(p.Z+1)) > 1e-5 {
		t.Errorf("ortho corner = %v, want (1,1,-1)", p)
	}

	p = proj.TransformPoint(Vec3{-2, -3, -10})
	if gomath.Abs(float64(p.X+1)) > 1e-5 || gomath.Abs(float64(p.Y+1)) > 1e-5 || gomath.Abs(float64(p.Z-1)) > 1e-5 {
		t.Errorf("ortho corner = %v, want (-1,-1,1)", p)
	}
}

func TestMat4MulIdentity(t *testing.T) {
	m := Translate(1, 2, 3).Mul(RotateX(0.5))
	got := m.Mul(Identity())
	if got != m {
		t.Errorf("m * I = %v, want %v", got, m)
	}
}

func TestQuatMat4Identity(t *testing.T) {
	m := QuatIdentity().Mat4()
	if m != Identity() {
		t.Errorf("identity quat matrix = %v", m)
	}
}

func TestQuatMat4QuarterTurnY(t *testing.T) {
	// 90 degrees around Y: +X rotates to -Z.
	s := float32(gomath.Sin(gomath.Pi / 4))
	q := Quat{X: 0, Y: s, Z: 0, W: s}
	p := q.Mat4().TransformPoint(Vec3{1, 0, 0})
	if gomath.Abs(float64(p.X)) > 1e-5 || gomath.Abs(float64(p.Z+1)) > 1e-5 {
		t.Errorf("rotated point = %v, want (0,0,-1)", p)
	}
}
