package mesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kvistgaard/meshpreview/pkg/math"
)

// DecodeOBJ reads a Wavefront OBJ mesh. Only geometry is consumed: "v"
// records (with the common 6-component vertex-color extension) and "f"
// records, polygons fan-triangulated. Texture coordinates, normals, groups
// and materials are skipped. OBJ files are Y-up.
func DecodeOBJ(r io.Reader) (*Mesh, error) {
	m := &Mesh{Up: UpY}
	hasColor := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", line)
			}
			vals := make([]float32, 0, 6)
			for _, f := range fields[1:] {
				v, err := strconv.ParseFloat(f, 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				vals = append(vals, float32(v))
			}
			m.Positions = append(m.Positions, math.Vec3{X: vals[0], Y: vals[1], Z: vals[2]})
			if len(vals) >= 6 {
				hasColor = true
				m.Colors = append(m.Colors, math.Vec3{X: vals[3], Y: vals[4], Z: vals[5]})
			} else {
				m.Colors = append(m.Colors, math.Vec3{X: 1, Y: 1, Z: 1})
			}
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", line)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, f := range fields[1:] {
				i, err := parseOBJIndex(f, len(m.Positions))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				idx = append(idx, i)
			}
			for i := 1; i+1 < len(idx); i++ {
				m.Triangles = append(m.Triangles, [3]int{idx[0], idx[i], idx[i+1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !hasColor {
		m.Colors = nil
	}
	return m, nil
}

// parseOBJIndex resolves a face vertex reference ("7", "7/1", "7/1/3",
// "7//3" or a negative relative index) to a zero-based position index.
func parseOBJIndex(ref string, numVerts int) (int, error) {
	if i := strings.IndexByte(ref, '/'); i >= 0 {
		ref = ref[:i]
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		n = numVerts + n + 1
	}
	if n < 1 || n > numVerts {
		return 0, fmt.Errorf("vertex index %d out of range [1,%d]", n, numVerts)
	}
	return n - 1, nil
}
