package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < environment.
// An empty path falls back to ./meshpreview.yaml when that file exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("meshpreview.yaml"); err == nil {
			path = "meshpreview.yaml"
		}
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnv applies MESHPREVIEW_* environment overrides. Deployment hosts
// differ in GPU availability, so the backend in particular must be
// switchable without editing files.
func applyEnv(cfg *Config) {
	if v := os.Getenv("MESHPREVIEW_BACKEND"); v != "" {
		cfg.Render.Backend = v
	}
	if v := os.Getenv("MESHPREVIEW_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Render.Size = n
		}
	}
	if v := os.Getenv("MESHPREVIEW_MAX_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Budget.MaxRatio = f
		}
	}
	if v := os.Getenv("MESHPREVIEW_MIN_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Budget.MinSize = n
		}
	}
	if v := os.Getenv("MESHPREVIEW_SOURCE_ROOT"); v != "" {
		cfg.Paths.SourceRoot = v
	}
	if v := os.Getenv("MESHPREVIEW_ARTIFACT_ROOT"); v != "" {
		cfg.Paths.ArtifactRoot = v
	}
	if v := os.Getenv("MESHPREVIEW_SCRATCH_ROOT"); v != "" {
		cfg.Paths.ScratchRoot = v
	}
	if v := os.Getenv("MESHPREVIEW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
