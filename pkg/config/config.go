// Package config handles threedframe configuration loading and the
// physical scaling law every fixture dimension is derived from.
package config

import (
	"time"

	"github.com/chazu/threedframe/pkg/geom"
)

// Config holds all generator settings.
type Config struct {
	Frame    FrameConfig    `yaml:"frame"`
	Conflict ConflictConfig `yaml:"conflict"`
	Kernel   KernelConfig   `yaml:"kernel"`
	Render   RenderConfig   `yaml:"render"`
	Director DirectorConfig `yaml:"director"`
	Build    BuildConfig    `yaml:"build"`
	Blender  BlenderConfig  `yaml:"blender"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// FrameConfig holds the support scale and the multipliers applied to the
// support size.
type FrameConfig struct {
	SupportScale float64 `yaml:"support_scale"` // support beam size in inches
	Gap          float64 `yaml:"gap"`           // printing fudge factor, mm

	CoreSizeMultiplier       float64 `yaml:"core_size_multiplier"`
	ShellThicknessMultiplier float64 `yaml:"shell_thickness_multiplier"`
	FixtureLengthMultiplier  float64 `yaml:"fixture_length_multiplier"`
	LabelSizeMultiplier      float64 `yaml:"label_size_multiplier"`
	LabelWidthMultiplier     float64 `yaml:"label_width_multiplier"`

	EdgeBuffer  float64 `yaml:"edge_buffer"`  // mm kept free between facing fixtures
	LabelDepth  float64 `yaml:"label_depth"`  // mm engraving depth
	FilletRatio float64 `yaml:"fillet_ratio"` // fillet leg as a fraction of fixture size
}

// ConflictConfig tunes the fixture conflict resolver.
type ConflictConfig struct {
	Step           float64 `yaml:"step"`            // mm added per extension
	MaxIterations  int     `yaml:"max_iterations"`  // hard stop for the relaxation loop
	Prefilter      bool    `yaml:"prefilter"`       // only mesh-test pairs within AngleThreshold
	AngleThreshold float64 `yaml:"angle_threshold"` // degrees
}

// KernelConfig selects and tunes the solid-geometry kernel.
type KernelConfig struct {
	Name      string        `yaml:"name"`       // "sdfx" or "scad"
	MeshCells int           `yaml:"mesh_cells"` // marching-cubes cells along the longest axis
	OpenSCAD  string        `yaml:"openscad"`   // renderer binary
	Segments  int           `yaml:"segments"`   // OpenSCAD $fn
	FontPath  string        `yaml:"font_path"`  // TrueType font for labels (sdfx)
	Timeout   time.Duration `yaml:"timeout"`    // per renderer invocation
}

// RenderConfig controls joint output.
type RenderConfig struct {
	Dir     string `yaml:"dir"`
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // "stl" or "png"
	NoCache bool   `yaml:"no_cache"`
	Width   int    `yaml:"width"`  // preview size in pixels
	Height  int    `yaml:"height"` // preview size in pixels
	Flatten bool   `yaml:"flatten"`
}

// DirectorConfig controls how joints are scheduled.
type DirectorConfig struct {
	Parallel bool `yaml:"parallel"`
	Workers  int  `yaml:"workers"` // 0 means runtime.NumCPU
}

// BuildConfig selects the assembly strategy and the parts it emits.
type BuildConfig struct {
	Strategy      string `yaml:"strategy"`
	Fixtures      bool   `yaml:"fixtures"`
	Core          bool   `yaml:"core"`
	CoreLabel     bool   `yaml:"core_label"`
	FixtureLabel  bool   `yaml:"fixture_label"`
	SingleFixture string `yaml:"single_fixture"` // fixture name for the single-fixture strategy
	Script        string `yaml:"script"`         // optional build-plan script
}

// BlenderConfig configures the compute step.
type BlenderConfig struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the production multipliers.
func Default() *Config {
	return &Config{
		Frame: FrameConfig{
			SupportScale:             1.0,
			Gap:                      0.02,
			CoreSizeMultiplier:       2.03,
			ShellThicknessMultiplier: 0.1712,
			FixtureLengthMultiplier:  2.1739,
			LabelSizeMultiplier:      0.3424,
			LabelWidthMultiplier:     0.5135,
			EdgeBuffer:               1.5,
			LabelDepth:               1.5,
			FilletRatio:              0.25,
		},
		Conflict: ConflictConfig{
			Step:           1.0,
			MaxIterations:  1000,
			Prefilter:      false,
			AngleThreshold: 30,
		},
		Kernel: KernelConfig{
			Name:      "sdfx",
			MeshCells: 120,
			OpenSCAD:  "openscad",
			Segments:  48,
			Timeout:   5 * time.Minute,
		},
		Render: RenderConfig{
			Dir:    "renders",
			Format: "stl",
			Width:  800,
			Height: 800,
		},
		Director: DirectorConfig{},
		Build: BuildConfig{
			Strategy:     "standard",
			Fixtures:     true,
			Core:         true,
			CoreLabel:    true,
			FixtureLabel: true,
		},
		Blender: BlenderConfig{
			Path:    "blender",
			Timeout: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SupportSize is the physical beam size in mm.
func (c *Config) SupportSize() float64 {
	return c.Frame.SupportScale * geom.MillimetresPerInch
}

// CoreSize is the nominal core diameter.
func (c *Config) CoreSize() float64 {
	return c.SupportSize() * c.Frame.CoreSizeMultiplier
}

// FixtureShellThickness is the wall thickness around the beam channel.
func (c *Config) FixtureShellThickness() float64 {
	return c.SupportSize() * c.Frame.ShellThicknessMultiplier
}

// FixtureLength is the nominal extrusion height of a fixture.
func (c *Config) FixtureLength() float64 {
	return c.SupportSize() * c.Frame.FixtureLengthMultiplier
}

// FixtureHoleSize is the beam channel side: support plus printing gap.
func (c *Config) FixtureHoleSize() float64 {
	return c.SupportSize() + c.Frame.Gap
}

// FixtureSize is the outer side of a fixture.
func (c *Config) FixtureSize() float64 {
	return c.FixtureHoleSize() + c.FixtureShellThickness()
}

func (c *Config) LabelSize() float64 {
	return c.SupportSize() * c.Frame.LabelSizeMultiplier
}

func (c *Config) LabelWidth() float64 {
	return c.SupportSize() * c.Frame.LabelWidthMultiplier
}

func (c *Config) LabelCharWidth() float64 {
	return c.LabelWidth() / 2
}

func (c *Config) LabelLineHeight() float64 {
	return c.FixtureLength() / 3.5
}

// ComputedValues returns the derived dimensions by name, for reports.
func (c *Config) ComputedValues() map[string]float64 {
	return map[string]float64{
		"support_size":            c.SupportSize(),
		"core_size":               c.CoreSize(),
		"fixture_shell_thickness": c.FixtureShellThickness(),
		"fixture_length":          c.FixtureLength(),
		"fixture_size":            c.FixtureSize(),
		"fixture_hole_size":       c.FixtureHoleSize(),
		"label_size":              c.LabelSize(),
		"label_width":             c.LabelWidth(),
	}
}
