// Package render provides the offscreen render backends: an OpenGL path
// for hosts with a GPU and a pure-Go rasterizer fallback. Backends are
// selected explicitly; the quality controller owns the Primary -> Fallback
// retry policy.
package render

import (
	"fmt"
	"image"

	"github.com/kvistgaard/meshpreview/internal/scene"
)

// Backend identifies a render backend.
type Backend string

const (
	// BackendGL renders through an offscreen OpenGL framebuffer.
	BackendGL Backend = "gl"
	// BackendSoftware is the pure-Go rasterizer, available everywhere.
	BackendSoftware Backend = "software"
)

// Fallback returns the backend to switch to after this one fails, or ""
// when no further fallback exists.
func (b Backend) Fallback() Backend {
	if b == BackendGL {
		return BackendSoftware
	}
	return ""
}

// Valid reports whether b names a known backend.
func (b Backend) Valid() bool {
	return b == BackendGL || b == BackendSoftware
}

// Renderer rasterizes a scene into an RGBA pixel buffer. Render blocks for
// the duration of the rasterization; callers on cooperative schedulers
// should run it on a dedicated worker.
type Renderer interface {
	// Render draws the scene at the given viewport size. The returned
	// image is always width x height.
	Render(s *scene.Scene, width, height int) (*image.RGBA, error)
	// Close releases backend resources (GL context, buffers).
	Close()
}

// BackendInitError reports that a backend could not be brought up, e.g. no
// GL context on a headless host. The controller recovers by switching to
// the fallback backend.
type BackendInitError struct {
	Backend Backend
	Err     error
}

func (e *BackendInitError) Error() string {
	return fmt.Sprintf("initializing %s backend: %v", e.Backend, e.Err)
}

func (e *BackendInitError) Unwrap() error { return e.Err }

// New creates a renderer for the given backend.
func New(b Backend) (Renderer, error) {
	switch b {
	case BackendGL:
		return NewGL()
	case BackendSoftware:
		return NewSoftware(), nil
	default:
		return nil, fmt.Errorf("unknown render backend %q", b)
	}
}
