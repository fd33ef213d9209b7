// Package pipeline turns an uploaded triangle mesh into a deterministic,
// correctly framed, size-budgeted preview image. The stages are pure
// (normalize, frame, assemble, render, measure) except the final publish,
// which is the sole filesystem side effect. A failed render never leaves a
// missing thumbnail: the pipeline publishes a recognizable placeholder
// instead, and only filesystem errors surface to the caller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kvistgaard/meshpreview/internal/config"
	"github.com/kvistgaard/meshpreview/internal/framing"
	"github.com/kvistgaard/meshpreview/internal/logger"
	"github.com/kvistgaard/meshpreview/internal/render"
	"github.com/kvistgaard/meshpreview/internal/scene"
	"github.com/kvistgaard/meshpreview/pkg/math"
	"github.com/kvistgaard/meshpreview/pkg/mesh"
)

// Request identifies one render job.
type Request struct {
	// SourcePath is the mesh file, absolute or relative to the configured
	// source root.
	SourcePath string
	// ArtifactID keys the published thumbnail ({id}.png).
	ArtifactID string
	// Size overrides the configured starting resolution when > 0.
	Size int
	// Backend overrides the configured primary backend when set.
	Backend render.Backend
	// AzimuthDeg and ElevationDeg override the configured viewpoint when
	// non-nil.
	AzimuthDeg   *float32
	ElevationDeg *float32
}

// Result describes a published artifact.
type Result struct {
	ArtifactPath string
	Resolution   int
	Bytes        int
	Backend      render.Backend
	FallbackUsed bool
	// Placeholder is set when the pipeline recovered from a failure by
	// publishing the fallback image; Reason carries the failure code.
	Placeholder bool
	Reason      string
}

// Generator is the assembled pipeline. Independent requests may run
// concurrently on separate Generators or the same one; requests for the
// same artifact identifier are not serialized here (last publisher wins),
// callers needing exclusivity must serialize above.
type Generator struct {
	cfg        *config.Config
	publisher  *Publisher
	controller *Controller
}

// New assembles a pipeline from configuration.
func New(cfg *config.Config) (*Generator, error) {
	pub, err := NewPublisher(cfg.Paths.ArtifactRoot, cfg.Paths.ScratchRoot)
	if err != nil {
		return nil, err
	}
	return &Generator{
		cfg:        cfg,
		publisher:  pub,
		controller: NewController(cfg.Budget.MaxRatio, cfg.Budget.MinSize),
	}, nil
}

// ArtifactPath returns the path a request's artifact will be published to.
func (g *Generator) ArtifactPath(id string) string {
	return g.publisher.ArtifactPath(id)
}

// Render executes the full pipeline for one request. The returned error is
// non-nil only for filesystem failures and canceled contexts; every other
// failure is recovered into a placeholder artifact and reported through
// the Result. A canceled request publishes nothing: any previously
// published artifact for the identifier stays in place.
func (g *Generator) Render(ctx context.Context, req Request) (*Result, error) {
	attempt, reason, err := g.renderAttempt(ctx, req)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return g.publishPlaceholder(req.ArtifactID, reason)
	}

	path, err := g.publisher.Publish(req.ArtifactID, attempt.Data)
	if err != nil {
		if errors.Is(err, ErrBadArtifact) {
			// A bad encoding is a pipeline bug, not an environment
			// problem; fall back to the placeholder like any render
			// failure.
			return g.publishPlaceholder(req.ArtifactID, ReasonRenderFailed)
		}
		return nil, err
	}

	logger.Info("thumbnail published",
		zap.String("artifact", req.ArtifactID),
		zap.Int("resolution", attempt.Resolution),
		zap.String("backend", string(attempt.Backend)),
		zap.Bool("fallback_used", attempt.FallbackUsed),
	)
	return &Result{
		ArtifactPath: path,
		Resolution:   attempt.Resolution,
		Bytes:        len(attempt.Data),
		Backend:      attempt.Backend,
		FallbackUsed: attempt.FallbackUsed,
	}, nil
}

// renderAttempt runs load → normalize → frame → assemble → quality loop.
// On recoverable failure it returns the reason code for the placeholder
// path; a canceled context comes back as an error so the request is
// abandoned without touching the artifact.
func (g *Generator) renderAttempt(ctx context.Context, req Request) (*Attempt, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	sourcePath := req.SourcePath
	if !filepath.IsAbs(sourcePath) {
		sourcePath = filepath.Join(g.cfg.Paths.SourceRoot, sourcePath)
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		logger.Warn("source mesh unavailable", zap.String("path", sourcePath), zap.Error(err))
		return nil, ReasonLoadFailed, nil
	}

	loaded, err := mesh.Load(sourcePath)
	if err != nil {
		reason := ReasonLoadFailed
		if errors.Is(err, mesh.ErrEmptyMesh) {
			reason = ReasonEmptyMesh
		}
		logger.Warn("mesh load failed", zap.String("path", sourcePath), zap.Error(err))
		return nil, reason, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	normalized, _ := mesh.Normalize(loaded)

	params := framing.Params{
		AzimuthDeg:   g.cfg.Render.AzimuthDeg,
		ElevationDeg: g.cfg.Render.ElevationDeg,
		Margin:       g.cfg.Render.Margin,
		Up:           math.Vec3{Y: 1},
	}
	if req.AzimuthDeg != nil {
		params.AzimuthDeg = *req.AzimuthDeg
	}
	if req.ElevationDeg != nil {
		params.ElevationDeg = *req.ElevationDeg
	}
	cam := framing.Frame(normalized, params)

	bg := vec3(g.cfg.Render.Background)
	albedo := vec3(g.cfg.Render.Albedo)
	s := scene.Assemble(normalized, cam, scene.Options{Background: &bg, Albedo: &albedo})

	size := req.Size
	if size <= 0 {
		size = g.cfg.Render.Size
	}
	backend := req.Backend
	if backend == "" {
		backend = render.Backend(g.cfg.Render.Backend)
	}

	attempt, err := g.controller.Run(s, size, info.Size(), backend)
	if err != nil {
		logger.Error("all render attempts failed",
			zap.String("artifact", req.ArtifactID),
			zap.Error(err),
		)
		return nil, ReasonRenderFailed, nil
	}
	return attempt, "", nil
}

// publishPlaceholder writes the fixed fallback artifact for the id.
func (g *Generator) publishPlaceholder(id, reason string) (*Result, error) {
	encoded, err := placeholderPNG()
	if err != nil {
		return nil, fmt.Errorf("building placeholder: %w", err)
	}
	path, err := g.publisher.Publish(id, encoded)
	if err != nil {
		return nil, err
	}
	logger.Warn("placeholder published",
		zap.String("artifact", id),
		zap.String("reason", reason),
	)
	return &Result{
		ArtifactPath: path,
		Resolution:   placeholderSize,
		Bytes:        len(encoded),
		Placeholder:  true,
		Reason:       reason,
	}, nil
}

// RenderTurntable renders frames evenly spaced azimuth views and publishes
// them as {id}_turn_NN. Each frame goes through the same framing, quality
// and publish path as a single render.
func (g *Generator) RenderTurntable(ctx context.Context, req Request, frames int) ([]*Result, error) {
	if frames < 1 {
		return nil, fmt.Errorf("turntable needs at least 1 frame, got %d", frames)
	}
	results := make([]*Result, 0, frames)
	for i := 0; i < frames; i++ {
		azimuth := float32(i) * 360 / float32(frames)
		frameReq := req
		frameReq.ArtifactID = fmt.Sprintf("%s_turn_%02d", req.ArtifactID, i)
		frameReq.AzimuthDeg = &azimuth

		res, err := g.Render(ctx, frameReq)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func vec3(c [3]float32) math.Vec3 {
	return math.Vec3{X: c[0], Y: c[1], Z: c[2]}
}
