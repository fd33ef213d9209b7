package mesh

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads a mesh file, dispatching on the file extension. Parse and I/O
// failures come back as *LoadError; a file that parses to zero triangles
// comes back as a *LoadError wrapping ErrEmptyMesh, so meshes returned from
// Load are always renderable.
func Load(path string) (*Mesh, error) {
	m, err := decode(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if m.TriangleCount() == 0 {
		return nil, &LoadError{Path: path, Err: ErrEmptyMesh}
	}
	return m, nil
}

func decode(path string) (*Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return DecodeSTL(f)
	case ".obj":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return DecodeOBJ(f)
	case ".gltf", ".glb":
		return DecodeGLTF(path)
	default:
		return nil, fmt.Errorf("unsupported mesh format %q", filepath.Ext(path))
	}
}
