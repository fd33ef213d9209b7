package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kvistgaard/meshpreview/internal/logger"
)

// pngMagic is the 8-byte PNG file signature.
var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Publisher writes thumbnail artifacts through a temp-file-then-rename
// protocol: a reader polling the artifact path never observes a partial
// file. Failures here indicate an environment problem and are fatal.
type Publisher struct {
	artifactRoot string
	scratchRoot  string
}

// NewPublisher creates a publisher rooted at artifactRoot. scratchRoot
// must live on the same filesystem for the rename to be atomic; when
// empty, a scratch directory inside artifactRoot is used.
func NewPublisher(artifactRoot, scratchRoot string) (*Publisher, error) {
	if scratchRoot == "" {
		scratchRoot = filepath.Join(artifactRoot, ".scratch")
	}
	if err := os.MkdirAll(artifactRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact root: %w", err)
	}
	if err := os.MkdirAll(scratchRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch root: %w", err)
	}
	return &Publisher{artifactRoot: artifactRoot, scratchRoot: scratchRoot}, nil
}

// ArtifactPath returns the final path for an artifact identifier.
func (p *Publisher) ArtifactPath(id string) string {
	return filepath.Join(p.artifactRoot, id+".png")
}

// Publish writes encoded through the atomic protocol and returns the final
// artifact path. If two publishers race on the same identifier, the last
// rename wins; each individual write is still all-or-nothing.
func (p *Publisher) Publish(id string, encoded []byte) (string, error) {
	if err := verifyPNG(encoded); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(p.scratchRoot, id+"-*.png.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	// Re-verify on disk: a full scratch volume can truncate the write.
	onDisk, err := os.ReadFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("reading back temp file: %w", err)
	}
	if err := verifyPNG(onDisk); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if len(onDisk) != len(encoded) {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: temp file short write (%d of %d bytes)", ErrBadArtifact, len(onDisk), len(encoded))
	}

	final := p.ArtifactPath(id)
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("publishing artifact: %w", err)
	}

	logger.Debug("artifact published",
		zap.String("id", id),
		zap.String("path", final),
		zap.Int("bytes", len(encoded)),
	)
	return final, nil
}

// verifyPNG checks the format signature of an encoded artifact.
func verifyPNG(encoded []byte) error {
	if len(encoded) == 0 {
		return fmt.Errorf("%w: empty encoding", ErrBadArtifact)
	}
	if len(encoded) < len(pngMagic) || !bytes.Equal(encoded[:len(pngMagic)], pngMagic) {
		return fmt.Errorf("%w: missing PNG signature", ErrBadArtifact)
	}
	return nil
}
