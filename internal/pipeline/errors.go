package pipeline

import "errors"

// Failure reasons recorded on placeholder results so callers and logs can
// tell why a thumbnail fell back.
const (
	ReasonLoadFailed   = "load_failed"
	ReasonEmptyMesh    = "empty_mesh"
	ReasonRenderFailed = "render_failed"
)

var (
	// ErrNoAttempt is returned when the controller produced no accepted
	// attempt at all (every backend failed).
	ErrNoAttempt = errors.New("no render attempt succeeded")

	// ErrBadArtifact is returned when an encoded thumbnail fails
	// verification before publish (empty file or missing PNG signature).
	ErrBadArtifact = errors.New("artifact failed verification")
)
