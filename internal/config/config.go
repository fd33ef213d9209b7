// Package config handles pipeline configuration loading and management.
// Precedence is defaults < YAML file < environment; command-line flags are
// applied on top by the binaries themselves.
package config

// Config holds all pipeline settings.
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	Budget  BudgetConfig  `yaml:"budget"`
	Paths   PathsConfig   `yaml:"paths"`
	Logging LoggingConfig `yaml:"logging"`
}

// RenderConfig holds framing and rasterization settings.
type RenderConfig struct {
	// Backend selects the primary renderer: "gl" or "software".
	Backend string `yaml:"backend"`
	// Size is the starting thumbnail resolution (square).
	Size int `yaml:"size"`
	// Margin is the relative framing padding (0.06 = 6%).
	Margin       float32 `yaml:"margin"`
	AzimuthDeg   float32 `yaml:"azimuth_deg"`
	ElevationDeg float32 `yaml:"elevation_deg"`
	// Background and Albedo are RGB triples in [0,1]. Albedo is the flat
	// surface color for meshes without vertex colors.
	Background [3]float32 `yaml:"background"`
	Albedo     [3]float32 `yaml:"albedo"`
}

// BudgetConfig holds the adaptive size-budget settings.
type BudgetConfig struct {
	// MaxRatio is the maximum thumbnail-to-source file size ratio.
	MaxRatio float64 `yaml:"max_ratio"`
	// MinSize is the resolution floor; the floor-resolution render is
	// accepted unconditionally.
	MinSize int `yaml:"min_size"`
}

// PathsConfig holds filesystem roots. ScratchRoot must be on the same
// filesystem as ArtifactRoot for the atomic rename to hold; when empty, a
// scratch directory inside ArtifactRoot is used.
type PathsConfig struct {
	SourceRoot   string `yaml:"source_root"`
	ArtifactRoot string `yaml:"artifact_root"`
	ScratchRoot  string `yaml:"scratch_root"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Backend:      "gl",
			Size:         1024,
			Margin:       0.06,
			AzimuthDeg:   45,
			ElevationDeg: 25,
			Background:   [3]float32{0.93, 0.93, 0.95},
			Albedo:       [3]float32{0.72, 0.72, 0.72},
		},
		Budget: BudgetConfig{
			MaxRatio: 0.5,
			MinSize:  64,
		},
		Paths: PathsConfig{
			SourceRoot:   ".",
			ArtifactRoot: ".",
			ScratchRoot:  "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
