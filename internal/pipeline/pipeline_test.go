package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kvistgaard/meshpreview/internal/config"
)

// writeBinarySTL writes a minimal binary STL with the given triangles.
func writeBinarySTL(t *testing.T, path string, tris [][3][3]float32) {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(tris))); err != nil {
		t.Fatal(err)
	}
	for _, tri := range tris {
		binary.Write(&buf, binary.LittleEndian, [3]float32{})
		for _, v := range tri {
			binary.Write(&buf, binary.LittleEndian, v)
		}
		binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func pyramidTriangles() [][3][3]float32 {
	apex := [3]float32{0, 1, 0}
	base := [4][3]float32{
		{-1, 0, -1},
		{1, 0, -1},
		{1, 0, 1},
		{-1, 0, 1},
	}
	return [][3][3]float32{
		{base[0], base[1], apex},
		{base[1], base[2], apex},
		{base[2], base[3], apex},
		{base[3], base[0], apex},
		{base[0], base[2], base[1]},
		{base[0], base[3], base[2]},
	}
}

func newTestGenerator(t *testing.T) (*Generator, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Render.Backend = "software"
	cfg.Render.Size = 64
	cfg.Budget.MinSize = 32
	cfg.Paths.SourceRoot = t.TempDir()
	cfg.Paths.ArtifactRoot = t.TempDir()
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g, cfg
}

func TestRenderPublishesThumbnail(t *testing.T) {
	g, cfg := newTestGenerator(t)
	src := filepath.Join(cfg.Paths.SourceRoot, "pyramid.stl")
	writeBinarySTL(t, src, pyramidTriangles())

	res, err := g.Render(context.Background(), Request{SourcePath: src, ArtifactID: "pyramid"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if res.Placeholder {
		t.Fatalf("Render() produced placeholder, reason %q", res.Reason)
	}
	if res.Resolution > cfg.Render.Size || res.Resolution < cfg.Budget.MinSize {
		t.Errorf("Resolution = %d, want within [%d, %d]", res.Resolution, cfg.Budget.MinSize, cfg.Render.Size)
	}

	got, err := os.ReadFile(res.ArtifactPath)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if len(got) != res.Bytes {
		t.Errorf("artifact is %d bytes, result says %d", len(got), res.Bytes)
	}
	if !bytes.HasPrefix(got, pngMagic) {
		t.Error("artifact is not a PNG")
	}
}

func TestRenderResolvesRelativeSource(t *testing.T) {
	g, cfg := newTestGenerator(t)
	writeBinarySTL(t, filepath.Join(cfg.Paths.SourceRoot, "rel.stl"), pyramidTriangles())

	res, err := g.Render(context.Background(), Request{SourcePath: "rel.stl", ArtifactID: "rel"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if res.Placeholder {
		t.Errorf("relative source not resolved, placeholder reason %q", res.Reason)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	g, cfg := newTestGenerator(t)
	src := filepath.Join(cfg.Paths.SourceRoot, "pyramid.stl")
	writeBinarySTL(t, src, pyramidTriangles())

	var outputs [2][]byte
	for i := range outputs {
		res, err := g.Render(context.Background(), Request{SourcePath: src, ArtifactID: fmt.Sprintf("det-%d", i)})
		if err != nil {
			t.Fatalf("Render() #%d error = %v", i, err)
		}
		data, err := os.ReadFile(res.ArtifactPath)
		if err != nil {
			t.Fatal(err)
		}
		outputs[i] = data
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Error("identical inputs produced different artifacts")
	}
}

func TestRenderMissingSourcePublishesPlaceholder(t *testing.T) {
	g, _ := newTestGenerator(t)

	res, err := g.Render(context.Background(), Request{SourcePath: "no-such.stl", ArtifactID: "missing"})
	if err != nil {
		t.Fatalf("Render() error = %v, placeholder path must not fail", err)
	}
	if !res.Placeholder {
		t.Fatal("Placeholder = false, want true")
	}
	if res.Reason != ReasonLoadFailed {
		t.Errorf("Reason = %q, want %q", res.Reason, ReasonLoadFailed)
	}
	if _, err := os.Stat(res.ArtifactPath); err != nil {
		t.Errorf("placeholder artifact missing: %v", err)
	}
}

func TestRenderEmptyMeshPublishesPlaceholder(t *testing.T) {
	g, cfg := newTestGenerator(t)
	src := filepath.Join(cfg.Paths.SourceRoot, "empty.stl")
	writeBinarySTL(t, src, nil)

	res, err := g.Render(context.Background(), Request{SourcePath: src, ArtifactID: "empty"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !res.Placeholder || res.Reason != ReasonEmptyMesh {
		t.Errorf("got placeholder=%v reason=%q, want placeholder for %q", res.Placeholder, res.Reason, ReasonEmptyMesh)
	}
}

func TestPlaceholderIsByteIdentical(t *testing.T) {
	g, _ := newTestGenerator(t)

	var outputs [2][]byte
	for i := range outputs {
		res, err := g.Render(context.Background(), Request{SourcePath: "gone.stl", ArtifactID: fmt.Sprintf("ph-%d", i)})
		if err != nil {
			t.Fatalf("Render() #%d error = %v", i, err)
		}
		data, err := os.ReadFile(res.ArtifactPath)
		if err != nil {
			t.Fatal(err)
		}
		outputs[i] = data
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Error("placeholder artifacts differ between runs")
	}
}

func TestRenderCanceledPreservesArtifact(t *testing.T) {
	g, cfg := newTestGenerator(t)
	src := filepath.Join(cfg.Paths.SourceRoot, "pyramid.stl")
	writeBinarySTL(t, src, pyramidTriangles())

	req := Request{SourcePath: src, ArtifactID: "keep"}
	res, err := g.Render(context.Background(), req)
	if err != nil || res.Placeholder {
		t.Fatalf("initial Render() = %+v, %v", res, err)
	}
	before, err := os.ReadFile(res.ArtifactPath)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Render(ctx, req); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled Render() error = %v, want context.Canceled", err)
	}

	after, err := os.ReadFile(res.ArtifactPath)
	if err != nil {
		t.Fatalf("artifact gone after canceled render: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Errorf("canceled render rewrote the artifact (%d -> %d bytes)", len(before), len(after))
	}
}

func TestRenderTurntable(t *testing.T) {
	g, cfg := newTestGenerator(t)
	src := filepath.Join(cfg.Paths.SourceRoot, "pyramid.stl")
	writeBinarySTL(t, src, pyramidTriangles())

	results, err := g.RenderTurntable(context.Background(), Request{SourcePath: src, ArtifactID: "spin"}, 4)
	if err != nil {
		t.Fatalf("RenderTurntable() error = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for i, res := range results {
		want := g.ArtifactPath(fmt.Sprintf("spin_turn_%02d", i))
		if res.ArtifactPath != want {
			t.Errorf("frame %d path = %q, want %q", i, res.ArtifactPath, want)
		}
		if _, err := os.Stat(res.ArtifactPath); err != nil {
			t.Errorf("frame %d artifact missing: %v", i, err)
		}
	}
}

func TestRenderTurntableRejectsZeroFrames(t *testing.T) {
	g, _ := newTestGenerator(t)
	if _, err := g.RenderTurntable(context.Background(), Request{SourcePath: "x.stl", ArtifactID: "x"}, 0); err == nil {
		t.Error("RenderTurntable(0 frames) succeeded, want error")
	}
}
