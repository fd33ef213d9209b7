// Package scene assembles the minimal render scene around a framed mesh: a
// single renderable, the computed camera, and a fixed three-light rig so
// any model is legible without per-scene tuning.
package scene

import (
	"github.com/kvistgaard/meshpreview/internal/framing"
	"github.com/kvistgaard/meshpreview/pkg/math"
	"github.com/kvistgaard/meshpreview/pkg/mesh"
)

// DirectionalLight is a light infinitely far away. Direction points from
// the scene towards the light.
type DirectionalLight struct {
	Direction math.Vec3
	Color     math.Vec3
	Intensity float32
}

// Light intensities for the key/fill/back rig.
const (
	keyIntensity  = 1.0
	fillIntensity = 0.45
	backIntensity = 0.3
)

// Default surface and background colors (RGB in [0,1]).
var (
	DefaultAlbedo     = math.Vec3{X: 0.72, Y: 0.72, Z: 0.72}
	DefaultBackground = math.Vec3{X: 0.93, Y: 0.93, Z: 0.95}
)

// Scene is the opaque description consumed by the render backends.
type Scene struct {
	Mesh       *mesh.Mesh
	Camera     framing.CameraSpec
	Lights     [3]DirectionalLight
	Background math.Vec3
	// Albedo is the flat surface color used when the mesh carries no
	// per-vertex color.
	Albedo math.Vec3
}

// Options overrides the scene defaults.
type Options struct {
	Background *math.Vec3
	Albedo     *math.Vec3
}

// Assemble builds the scene for a normalized mesh and its camera. The
// three directional lights are positioned relative to the camera: key from
// the upper left, fill from the right, back from behind the model.
func Assemble(m *mesh.Mesh, cam framing.CameraSpec, opts Options) *Scene {
	s := &Scene{
		Mesh:       m,
		Camera:     cam,
		Background: DefaultBackground,
		Albedo:     DefaultAlbedo,
	}
	if opts.Background != nil {
		s.Background = *opts.Background
	}
	if opts.Albedo != nil {
		s.Albedo = *opts.Albedo
	}

	// Camera basis in world space, from the view matrix rows.
	right := math.Vec3{X: cam.View[0], Y: cam.View[4], Z: cam.View[8]}
	up := math.Vec3{X: cam.View[1], Y: cam.View[5], Z: cam.View[9]}
	forward := math.Vec3{X: -cam.View[2], Y: -cam.View[6], Z: -cam.View[10]}
	toEye := forward.Neg()

	white := math.Vec3{X: 1, Y: 1, Z: 1}
	s.Lights = [3]DirectionalLight{
		{
			Direction: toEye.Add(up.Scale(0.8)).Sub(right.Scale(0.5)).Normalize(),
			Color:     white,
			Intensity: keyIntensity,
		},
		{
			Direction: toEye.Add(right.Scale(0.7)).Add(up.Scale(0.2)).Normalize(),
			Color:     white,
			Intensity: fillIntensity,
		},
		{
			Direction: forward.Add(up.Scale(0.3)).Normalize(),
			Color:     white,
			Intensity: backIntensity,
		},
	}
	return s
}

// HasVertexColors reports whether the scene mesh carries per-vertex color.
func (s *Scene) HasVertexColors() bool {
	return len(s.Mesh.Colors) == len(s.Mesh.Positions) && s.Mesh.Colors != nil
}

// VertexColor returns the color for vertex i, falling back to the flat
// albedo for colorless meshes.
func (s *Scene) VertexColor(i int) math.Vec3 {
	if s.HasVertexColors() {
		return s.Mesh.Colors[i]
	}
	return s.Albedo
}
