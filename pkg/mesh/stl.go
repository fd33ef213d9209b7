package mesh

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	gomath "math"
	"strconv"
	"strings"

	"github.com/kvistgaard/meshpreview/pkg/math"
)

// stlBinaryHeaderSize is the fixed binary STL prelude: 80-byte header plus
// the uint32 triangle count.
const stlBinaryHeaderSize = 84

// stlTriangleRecordSize is one binary triangle: normal + 3 vertices
// (4 floats * 4 bytes each) + attribute byte count.
const stlTriangleRecordSize = 4*3*4 + 2

// DecodeSTL reads an STL mesh, auto-detecting the binary and ASCII
// encodings. STL files are Z-up by convention.
func DecodeSTL(r io.Reader) (*Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if isASCIISTL(data) {
		return decodeSTLASCII(data)
	}
	return decodeSTLBinary(data)
}

// isASCIISTL reports whether data looks like an ASCII STL. Binary files may
// also begin with "solid", so the declared binary triangle count is checked
// against the actual length before trusting the prefix.
func isASCIISTL(data []byte) bool {
	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return false
	}
	if len(data) >= stlBinaryHeaderSize {
		n := binary.LittleEndian.Uint32(data[80:84])
		if len(data) == stlBinaryHeaderSize+int(n)*stlTriangleRecordSize {
			return false
		}
	}
	return true
}

func decodeSTLBinary(data []byte) (*Mesh, error) {
	if len(data) < stlBinaryHeaderSize {
		return nil, fmt.Errorf("binary STL truncated: %d bytes", len(data))
	}
	n := int(binary.LittleEndian.Uint32(data[80:84]))
	if len(data) < stlBinaryHeaderSize+n*stlTriangleRecordSize {
		return nil, fmt.Errorf("binary STL truncated: header declares %d triangles", n)
	}

	m := &Mesh{Up: UpZ}
	// Shared vertices are welded so normalization sees each position once.
	vertIndex := make(map[math.Vec3]int)

	rec := data[stlBinaryHeaderSize:]
	for i := 0; i < n; i++ {
		var tri [3]int
		for v := 0; v < 3; v++ {
			const normalSkip = 3 * 4
			off := i*stlTriangleRecordSize + normalSkip + v*12
			p := math.Vec3{
				X: gomath.Float32frombits(binary.LittleEndian.Uint32(rec[off:])),
				Y: gomath.Float32frombits(binary.LittleEndian.Uint32(rec[off+4:])),
				Z: gomath.Float32frombits(binary.LittleEndian.Uint32(rec[off+8:])),
			}
			idx, ok := vertIndex[p]
			if !ok {
				idx = len(m.Positions)
				m.Positions = append(m.Positions, p)
				vertIndex[p] = idx
			}
			tri[v] = idx
		}
		m.Triangles = append(m.Triangles, tri)
	}
	return m, nil
}

func decodeSTLASCII(data []byte) (*Mesh, error) {
	m := &Mesh{Up: UpZ}
	vertIndex := make(map[math.Vec3]int)

	var tri []int
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || fields[0] != "vertex" {
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", line)
		}
		var p math.Vec3
		for c := 0; c < 3; c++ {
			f, err := strconv.ParseFloat(fields[c+1], 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			switch c {
			case 0:
				p.X = float32(f)
			case 1:
				p.Y = float32(f)
			case 2:
				p.Z = float32(f)
			}
		}
		idx, ok := vertIndex[p]
		if !ok {
			idx = len(m.Positions)
			m.Positions = append(m.Positions, p)
			vertIndex[p] = idx
		}
		tri = append(tri, idx)
		if len(tri) == 3 {
			m.Triangles = append(m.Triangles, [3]int{tri[0], tri[1], tri[2]})
			tri = tri[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(tri) != 0 {
		return nil, fmt.Errorf("dangling vertices: facet with %d of 3", len(tri))
	}
	return m, nil
}
