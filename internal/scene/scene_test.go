package scene

import (
	gomath "math"
	"testing"

	"github.com/kvistgaard/meshpreview/internal/framing"
	"github.com/kvistgaard/meshpreview/pkg/math"
	"github.com/kvistgaard/meshpreview/pkg/mesh"
)

func testMesh(colors bool) *mesh.Mesh {
	m := &mesh.Mesh{
		Positions: []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		Triangles: [][3]int{{0, 1, 2}},
	}
	if colors {
		m.Colors = []math.Vec3{{X: 1}, {Y: 1}, {Z: 1}}
	}
	return m
}

func TestAssembleThreeNormalizedLights(t *testing.T) {
	m := testMesh(false)
	cam := framing.Frame(m, framing.DefaultParams())
	s := Assemble(m, cam, Options{})

	for i, l := range s.Lights {
		if got := l.Direction.Length(); gomath.Abs(float64(got)-1) > 1e-5 {
			t.Errorf("light %d direction length = %v, want 1", i, got)
		}
		if l.Intensity <= 0 {
			t.Errorf("light %d intensity = %v, want > 0", i, l.Intensity)
		}
	}
	// Key brighter than fill brighter than back.
	if !(s.Lights[0].Intensity > s.Lights[1].Intensity && s.Lights[1].Intensity > s.Lights[2].Intensity) {
		t.Errorf("intensities not ordered key > fill > back: %v %v %v",
			s.Lights[0].Intensity, s.Lights[1].Intensity, s.Lights[2].Intensity)
	}
}

func TestAssembleDefaultsAndOverrides(t *testing.T) {
	m := testMesh(false)
	cam := framing.Frame(m, framing.DefaultParams())

	s := Assemble(m, cam, Options{})
	if s.Background != DefaultBackground {
		t.Errorf("Background = %v, want default %v", s.Background, DefaultBackground)
	}
	if s.VertexColor(0) != DefaultAlbedo {
		t.Errorf("VertexColor = %v, want albedo %v", s.VertexColor(0), DefaultAlbedo)
	}

	bg := math.Vec3{X: 0.1, Y: 0.2, Z: 0.3}
	albedo := math.Vec3{X: 1, Y: 0.5, Z: 0}
	s = Assemble(m, cam, Options{Background: &bg, Albedo: &albedo})
	if s.Background != bg {
		t.Errorf("Background = %v, want %v", s.Background, bg)
	}
	if s.VertexColor(1) != albedo {
		t.Errorf("VertexColor = %v, want %v", s.VertexColor(1), albedo)
	}
}

func TestAssembleVertexColorsWin(t *testing.T) {
	m := testMesh(true)
	cam := framing.Frame(m, framing.DefaultParams())
	s := Assemble(m, cam, Options{})

	if !s.HasVertexColors() {
		t.Fatal("HasVertexColors = false for colored mesh")
	}
	if s.VertexColor(0) != (math.Vec3{X: 1}) {
		t.Errorf("VertexColor(0) = %v, want red", s.VertexColor(0))
	}
}
