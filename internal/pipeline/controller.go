package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/kvistgaard/meshpreview/internal/logger"
	"github.com/kvistgaard/meshpreview/internal/render"
	"github.com/kvistgaard/meshpreview/internal/scene"
)

// Attempt is an accepted render: the encoded thumbnail plus how it was
// produced.
type Attempt struct {
	Resolution   int
	Data         []byte
	Backend      render.Backend
	FallbackUsed bool
	Iterations   int
}

// Controller runs the adaptive quality loop: render, flatten, encode,
// measure, and halve the resolution until the encoding fits the size
// budget or the resolution floor is reached. The floor-resolution result
// is accepted unconditionally, so the loop always terminates with an
// attempt when rendering itself succeeds.
type Controller struct {
	maxRatio float64
	minSize  int

	// newRenderer is the backend factory; tests substitute stubs here.
	newRenderer func(render.Backend) (render.Renderer, error)
}

// NewController creates a controller with the given budget.
func NewController(maxRatio float64, minSize int) *Controller {
	if minSize < 1 {
		minSize = 1
	}
	return &Controller{
		maxRatio:    maxRatio,
		minSize:     minSize,
		newRenderer: render.New,
	}
}

// Run executes the loop for one scene. sourceBytes is the size of the
// source mesh file; the budget is sourceBytes*maxRatio. A backend failure
// switches to the fallback backend and retries once at the same
// resolution before giving up.
func (c *Controller) Run(s *scene.Scene, startSize int, sourceBytes int64, backend render.Backend) (*Attempt, error) {
	if startSize < c.minSize {
		startSize = c.minSize
	}

	r, fallbackUsed, err := c.acquire(backend, false)
	if err != nil {
		return nil, err
	}
	if fallbackUsed {
		backend = backend.Fallback()
	}
	// r goes nil when a mid-run fallback acquire fails.
	defer func() {
		if r != nil {
			r.Close()
		}
	}()

	budget := int64(float64(sourceBytes) * c.maxRatio)
	size := startSize
	iterations := 0

	for {
		iterations++

		img, err := r.Render(s, size, size)
		if err != nil {
			logger.Warn("render failed",
				zap.String("backend", string(backend)),
				zap.Int("resolution", size),
				zap.Error(err),
			)
			fb := backend.Fallback()
			if fallbackUsed || fb == "" {
				return nil, fmt.Errorf("%w: %v", ErrNoAttempt, err)
			}
			r.Close()
			r, _, err = c.acquire(fb, true)
			if err != nil {
				return nil, err
			}
			backend = fb
			fallbackUsed = true

			img, err = r.Render(s, size, size)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrNoAttempt, err)
			}
		}

		// Flatten onto an opaque background so no unintended transparency
		// ever reaches the published file.
		bg := imaging.New(size, size, color.NRGBA{
			R: channelByte(s.Background.X),
			G: channelByte(s.Background.Y),
			B: channelByte(s.Background.Z),
			A: 255,
		})
		flat := imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, flat, imaging.PNG); err != nil {
			return nil, fmt.Errorf("encoding thumbnail: %w", err)
		}
		encoded := int64(buf.Len())

		if encoded <= budget || size <= c.minSize {
			logger.Info("render attempt accepted",
				zap.Int("resolution", size),
				zap.Int64("bytes", encoded),
				zap.Int64("budget", budget),
				zap.Int("iterations", iterations),
				zap.String("backend", string(backend)),
			)
			return &Attempt{
				Resolution:   size,
				Data:         buf.Bytes(),
				Backend:      backend,
				FallbackUsed: fallbackUsed,
				Iterations:   iterations,
			}, nil
		}

		logger.Debug("render attempt over budget, shrinking",
			zap.Int("resolution", size),
			zap.Int64("bytes", encoded),
			zap.Int64("budget", budget),
		)
		size /= 2
		if size < c.minSize {
			size = c.minSize
		}
	}
}

// acquire creates a renderer, falling back once when the primary backend
// cannot initialize. isFallback suppresses the second fallback.
func (c *Controller) acquire(backend render.Backend, isFallback bool) (render.Renderer, bool, error) {
	r, err := c.newRenderer(backend)
	if err == nil {
		return r, false, nil
	}
	fb := backend.Fallback()
	if isFallback || fb == "" {
		return nil, false, err
	}
	logger.Warn("backend unavailable, switching to fallback",
		zap.String("backend", string(backend)),
		zap.String("fallback", string(fb)),
		zap.Error(err),
	)
	r, err = c.newRenderer(fb)
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func channelByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
