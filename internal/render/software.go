package render

import (
	"fmt"
	"image"
	"image/color"
	gomath "math"

	"github.com/kvistgaard/meshpreview/internal/scene"
	"github.com/kvistgaard/meshpreview/pkg/math"
)

// ambientTerm is the base illumination so unlit faces stay visible.
const ambientTerm = 0.25

// SoftwareRenderer is a z-buffered triangle rasterizer with per-face
// Lambert shading. It has no external dependencies and serves as the
// fallback when no GL context is available.
type SoftwareRenderer struct{}

// NewSoftware creates the software rasterizer.
func NewSoftware() *SoftwareRenderer {
	return &SoftwareRenderer{}
}

// Close implements Renderer. The software backend holds no resources.
func (r *SoftwareRenderer) Close() {}

// Render rasterizes the scene at the given viewport size.
func (r *SoftwareRenderer) Render(s *scene.Scene, width, height int) (*image.RGBA, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid viewport %dx%d", width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	bg := toRGBA(s.Background, 255)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = bg.R
		img.Pix[i+1] = bg.G
		img.Pix[i+2] = bg.B
		img.Pix[i+3] = bg.A
	}

	depth := make([]float32, width*height)
	for i := range depth {
		depth[i] = float32(gomath.Inf(1))
	}

	viewProj := s.Camera.Projection().Mul(s.Camera.View)

	for _, tri := range s.Mesh.Triangles {
		p0 := s.Mesh.Positions[tri[0]]
		p1 := s.Mesh.Positions[tri[1]]
		p2 := s.Mesh.Positions[tri[2]]

		normal := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
		if normal == (math.Vec3{}) {
			continue
		}
		shade := r.shade(s, normal)

		c0 := shadeColor(s.VertexColor(tri[0]), shade)
		c1 := shadeColor(s.VertexColor(tri[1]), shade)
		c2 := shadeColor(s.VertexColor(tri[2]), shade)

		v0 := toScreen(viewProj.TransformPoint(p0), width, height)
		v1 := toScreen(viewProj.TransformPoint(p1), width, height)
		v2 := toScreen(viewProj.TransformPoint(p2), width, height)

		rasterize(img, depth, v0, v1, v2, c0, c1, c2)
	}

	return img, nil
}

// shade evaluates the three-light Lambert term for a face normal. Shading
// is two-sided: triangle soup carries no reliable winding.
func (r *SoftwareRenderer) shade(s *scene.Scene, normal math.Vec3) float32 {
	total := float32(ambientTerm)
	for _, l := range s.Lights {
		d := float32(gomath.Abs(float64(normal.Dot(l.Direction))))
		total += l.Intensity * d
	}
	if total > 1 {
		total = 1
	}
	return total
}

func shadeColor(base math.Vec3, shade float32) math.Vec3 {
	return base.Scale(shade)
}

// toScreen maps NDC to pixel coordinates, keeping NDC depth in Z. Y is
// flipped: NDC +Y is up, image +Y is down.
func toScreen(ndc math.Vec3, width, height int) math.Vec3 {
	return math.Vec3{
		X: (ndc.X*0.5 + 0.5) * float32(width),
		Y: (1 - (ndc.Y*0.5 + 0.5)) * float32(height),
		Z: ndc.Z,
	}
}

func edge(a, b, p math.Vec3) float32 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

func rasterize(img *image.RGBA, depth []float32, v0, v1, v2, c0, c1, c2 math.Vec3) {
	width := img.Rect.Dx()
	height := img.Rect.Dy()

	area := edge(v0, v1, v2)
	if area == 0 {
		return
	}

	minX := clampInt(int(gomath.Floor(float64(min3(v0.X, v1.X, v2.X)))), 0, width-1)
	maxX := clampInt(int(gomath.Ceil(float64(max3(v0.X, v1.X, v2.X)))), 0, width-1)
	minY := clampInt(int(gomath.Floor(float64(min3(v0.Y, v1.Y, v2.Y)))), 0, height-1)
	maxY := clampInt(int(gomath.Ceil(float64(max3(v0.Y, v1.Y, v2.Y)))), 0, height-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := math.Vec3{X: float32(x) + 0.5, Y: float32(y) + 0.5}

			w0 := edge(v1, v2, p) / area
			w1 := edge(v2, v0, p) / area
			w2 := edge(v0, v1, p) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*v0.Z + w1*v1.Z + w2*v2.Z
			if z < -1 || z > 1 {
				continue
			}
			idx := y*width + x
			if z >= depth[idx] {
				continue
			}
			depth[idx] = z

			col := math.Vec3{
				X: w0*c0.X + w1*c1.X + w2*c2.X,
				Y: w0*c0.Y + w1*c1.Y + w2*c2.Y,
				Z: w0*c0.Z + w1*c1.Z + w2*c2.Z,
			}
			img.SetRGBA(x, y, toRGBA(col, 255))
		}
	}
}

func toRGBA(c math.Vec3, a uint8) color.RGBA {
	return color.RGBA{
		R: clampByte(c.X),
		G: clampByte(c.Y),
		B: clampByte(c.Z),
		A: a,
	}
}

func clampByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min3(a, b, c float32) float32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func max3(a, b, c float32) float32 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
