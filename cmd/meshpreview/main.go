// meshpreview renders a thumbnail for a single 3D model file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kvistgaard/meshpreview/internal/config"
	"github.com/kvistgaard/meshpreview/internal/framing"
	"github.com/kvistgaard/meshpreview/internal/logger"
	"github.com/kvistgaard/meshpreview/internal/pipeline"
	"github.com/kvistgaard/meshpreview/internal/render"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		size       = flag.Int("size", 0, "starting thumbnail resolution (square)")
		margin     = flag.Float64("margin", -1, "relative framing padding (0.06 = 6%)")
		azimuth    = flag.Float64("azimuth", framing.DefaultAzimuthDeg, "camera azimuth in degrees")
		elevation  = flag.Float64("elevation", framing.DefaultElevationDeg, "camera elevation in degrees")
		background = flag.String("background", "", "background color as R,G,B in [0,1]")
		albedo     = flag.String("albedo", "", "surface color as R,G,B in [0,1]")
		backend    = flag.String("backend", "", "render backend: gl or software")
		ratio      = flag.Float64("ratio", 0, "maximum thumbnail/source size ratio")
		minSize    = flag.Int("min-size", 0, "resolution floor for the size budget")
		turntable  = flag.Int("turntable", 0, "render N evenly spaced azimuth frames instead of one view")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 2 {
		printUsage()
		os.Exit(1)
	}
	input := flag.Arg(0)
	output := flag.Arg(1)

	// Optional .env for local runs; absence is not an error.
	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, flags{
		size:    *size,
		margin:  *margin,
		backend: *backend,
		ratio:   *ratio,
		minSize: *minSize,
		debug:   *debug,
	})
	// Viewpoint flags only win over the config file when explicitly set;
	// their defaults would otherwise mask a configured viewpoint.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "azimuth":
			cfg.Render.AzimuthDeg = float32(*azimuth)
		case "elevation":
			cfg.Render.ElevationDeg = float32(*elevation)
		}
	})
	if *background != "" {
		rgb, err := parseRGB(*background)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -background: %v\n", err)
			os.Exit(1)
		}
		cfg.Render.Background = rgb
	}
	if *albedo != "" {
		rgb, err := parseRGB(*albedo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -albedo: %v\n", err)
			os.Exit(1)
		}
		cfg.Render.Albedo = rgb
	}
	if !render.Backend(cfg.Render.Backend).Valid() {
		fmt.Fprintf(os.Stderr, "Unknown backend %q (want gl or software)\n", cfg.Render.Backend)
		os.Exit(1)
	}

	// The output path determines the artifact root and identifier.
	id, err := artifactIDFromOutput(output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg.Paths.ArtifactRoot = filepath.Dir(output)

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	gen, err := pipeline.New(cfg)
	if err != nil {
		logger.Error("pipeline setup failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	req := pipeline.Request{
		SourcePath: input,
		ArtifactID: id,
	}

	if *turntable > 0 {
		results, err := gen.RenderTurntable(context.Background(), req, *turntable)
		if err != nil {
			logger.Error("turntable failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, res := range results {
			report(res)
		}
		return
	}

	res, err := gen.Render(context.Background(), req)
	if err != nil {
		logger.Error("render failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	report(res)
}

type flags struct {
	size    int
	margin  float64
	backend string
	ratio   float64
	minSize int
	debug   bool
}

// applyFlags overlays explicit command-line values onto the config.
func applyFlags(cfg *config.Config, f flags) {
	if f.size > 0 {
		cfg.Render.Size = f.size
	}
	if f.margin >= 0 {
		cfg.Render.Margin = float32(f.margin)
	}
	if f.backend != "" {
		cfg.Render.Backend = f.backend
	}
	if f.ratio > 0 {
		cfg.Budget.MaxRatio = f.ratio
	}
	if f.minSize > 0 {
		cfg.Budget.MinSize = f.minSize
	}
	if f.debug {
		cfg.Logging.Level = "debug"
	}
}

// artifactIDFromOutput derives the artifact identifier from the output
// path. Thumbnails are always PNG, so any other extension is rejected up
// front rather than silently publishing to a different name.
func artifactIDFromOutput(output string) (string, error) {
	base := filepath.Base(output)
	ext := filepath.Ext(base)
	if strings.ToLower(ext) != ".png" {
		return "", fmt.Errorf("output must be a .png path, got %q", base)
	}
	return strings.TrimSuffix(base, ext), nil
}

// parseRGB parses "R,G,B" with components in [0,1].
func parseRGB(s string) ([3]float32, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]float32{}, fmt.Errorf("want 3 comma-separated components, got %d", len(parts))
	}
	var rgb [3]float32
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return [3]float32{}, fmt.Errorf("component %d: %v", i, err)
		}
		if v < 0 || v > 1 {
			return [3]float32{}, fmt.Errorf("component %d out of range [0,1]: %g", i, v)
		}
		rgb[i] = float32(v)
	}
	return rgb, nil
}

func report(res *pipeline.Result) {
	if res.Placeholder {
		fmt.Printf("%s  placeholder (%s)\n", res.ArtifactPath, res.Reason)
		return
	}
	fmt.Printf("%s  %dpx  %d bytes  backend=%s\n", res.ArtifactPath, res.Resolution, res.Bytes, res.Backend)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `meshpreview - render a thumbnail for a 3D model

Usage:
  meshpreview [options] <input> <output.png>

Supported inputs: .stl (binary and ASCII), .obj, .gltf, .glb

Options:`)
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, `
Examples:
  meshpreview model.stl thumbs/model.png
  meshpreview -size 512 -backend software scan.glb out/scan.png
  meshpreview -turntable 12 part.obj previews/part.png`)
}
