package mesh

import (
	"bytes"
	"encoding/binary"
	gomath "math"
	"strings"
	"testing"
)

// buildBinarySTL encodes triangles as a binary STL blob.
func buildBinarySTL(t *testing.T, tris [][9]float32) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(tris))); err != nil {
		t.Fatal(err)
	}
	for _, tri := range tris {
		// Normal (unused by the decoder).
		for i := 0; i < 3; i++ {
			binary.Write(&buf, binary.LittleEndian, float32(0))
		}
		for _, v := range tri {
			binary.Write(&buf, binary.LittleEndian, v)
		}
		buf.Write([]byte{0, 0})
	}
	return buf.Bytes()
}

func TestDecodeSTLBinary(t *testing.T) {
	data := buildBinarySTL(t, [][9]float32{
		{0, 0, 0, 1, 0, 0, 0, 1, 0},
		{0, 0, 0, 1, 0, 0, 0, 0, 1},
	})

	m, err := DecodeSTL(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeSTL: %v", err)
	}
	if got := m.TriangleCount(); got != 2 {
		t.Errorf("TriangleCount = %d, want 2", got)
	}
	// Shared vertices must be welded: 4 unique positions, not 6.
	if got := len(m.Positions); got != 4 {
		t.Errorf("len(Positions) = %d, want 4", got)
	}
	if m.Up != UpZ {
		t.Errorf("Up = %v, want UpZ", m.Up)
	}
}

func TestDecodeSTLBinaryTruncated(t *testing.T) {
	data := buildBinarySTL(t, [][9]float32{{0, 0, 0, 1, 0, 0, 0, 1, 0}})
	if _, err := DecodeSTL(bytes.NewReader(data[:len(data)-8])); err == nil {
		t.Error("expected error for truncated binary STL")
	}
}

func TestDecodeSTLASCII(t *testing.T) {
	src := `solid tri
facet normal 0 0 1
  outer loop
    vertex 0 0 0
    vertex 1 0 0
    vertex 0 1 0
  endloop
endfacet
endsolid tri
`
	m, err := DecodeSTL(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeSTL: %v", err)
	}
	if got := m.TriangleCount(); got != 1 {
		t.Fatalf("TriangleCount = %d, want 1", got)
	}
	p := m.Positions[m.Triangles[0][1]]
	if p.X != 1 || p.Y != 0 || p.Z != 0 {
		t.Errorf("second vertex = %v, want (1,0,0)", p)
	}
}

// A binary STL whose header happens to start with "solid" must still be
// decoded as binary.
func TestDecodeSTLBinaryWithSolidHeader(t *testing.T) {
	data := buildBinarySTL(t, [][9]float32{{0, 0, 0, 1, 0, 0, 0, 1, 0}})
	copy(data[:5], "solid")

	m, err := DecodeSTL(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeSTL: %v", err)
	}
	if got := m.TriangleCount(); got != 1 {
		t.Errorf("TriangleCount = %d, want 1", got)
	}
}

func TestDecodeSTLASCIIBadVertex(t *testing.T) {
	src := "solid bad\nfacet\nouter loop\nvertex 0 0 x\nendloop\nendfacet\nendsolid\n"
	if _, err := DecodeSTL(strings.NewReader(src)); err == nil {
		t.Error("expected parse error for non-numeric coordinate")
	}
}

func TestDecodeSTLASCIINegativeExponent(t *testing.T) {
	src := `solid e
facet normal 0 0 1
outer loop
vertex 1.5e-2 0 0
vertex 1 0 0
vertex 0 1 0
endloop
endfacet
endsolid e
`
	m, err := DecodeSTL(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeSTL: %v", err)
	}
	if got := m.Positions[m.Triangles[0][0]].X; gomath.Abs(float64(got)-0.015) > 1e-7 {
		t.Errorf("X = %v, want 0.015", got)
	}
}
