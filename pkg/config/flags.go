package config

import "flag"

// Flags holds the generate command's configuration overrides. Only flags
// explicitly set on the command line are applied.
type Flags struct {
	fs *flag.FlagSet

	Path         *string
	Debug        *bool
	Scale        *float64
	Render       *bool
	RenderFormat *string
	RendersDir   *string
	Parallel     *bool
	Workers      *int
	Kernel       *string
	Strategy     *string
	Fixture      *string
	Fixtures     *bool
	Core         *bool
	Labels       *bool
	NoCache      *bool
	Script       *string
	MeshCells    *int
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	f.Path = fs.String("config", "", "Path to config file")
	f.Debug = fs.Bool("debug", false, "Enable debug logging")
	f.Scale = fs.Float64("s", 0, "Support scale in inches")
	f.Render = fs.Bool("r", false, "Render joints after writing them")
	f.RenderFormat = fs.String("render-format", "", "Render format: stl or png")
	f.RendersDir = fs.String("renders-dir", "", "Output directory")
	f.Parallel = fs.Bool("p", false, "Build joints in parallel")
	f.Workers = fs.Int("w", 0, "Parallel workers (default NumCPU)")
	f.Kernel = fs.String("kernel", "", "Geometry kernel: sdfx or scad")
	f.Strategy = fs.String("strategy", "", "Assembly strategy")
	f.Fixture = fs.String("fixture", "", "Fixture name for the single-fixture strategy")
	f.Fixtures = fs.Bool("fixtures", true, "Include fixtures")
	f.Core = fs.Bool("core", true, "Include the core")
	f.Labels = fs.Bool("labels", true, "Engrave labels")
	f.NoCache = fs.Bool("no-cache", false, "Rebuild joints whose outputs already exist")
	f.Script = fs.String("script", "", "Build-plan script")
	f.MeshCells = fs.Int("mesh-cells", 0, "Marching-cubes resolution (sdfx kernel)")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	return *f.Path
}

// Apply applies the flags that were set on the command line to cfg.
func (f *Flags) Apply(cfg *Config) {
	set := make(map[string]bool)
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["debug"] && *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if set["s"] && *f.Scale > 0 {
		cfg.Frame.SupportScale = *f.Scale
	}
	if set["r"] {
		cfg.Render.Enabled = *f.Render
	}
	if set["render-format"] {
		cfg.Render.Format = *f.RenderFormat
	}
	if set["renders-dir"] {
		cfg.Render.Dir = *f.RendersDir
	}
	if set["p"] {
		cfg.Director.Parallel = *f.Parallel
	}
	if set["w"] && *f.Workers > 0 {
		cfg.Director.Workers = *f.Workers
	}
	if set["kernel"] {
		cfg.Kernel.Name = *f.Kernel
	}
	if set["strategy"] {
		cfg.Build.Strategy = *f.Strategy
	}
	if set["fixture"] {
		cfg.Build.SingleFixture = *f.Fixture
	}
	if set["fixtures"] {
		cfg.Build.Fixtures = *f.Fixtures
	}
	if set["core"] {
		cfg.Build.Core = *f.Core
	}
	if set["labels"] {
		cfg.Build.CoreLabel = *f.Labels
		cfg.Build.FixtureLabel = *f.Labels
	}
	if set["no-cache"] {
		cfg.Render.NoCache = *f.NoCache
	}
	if set["script"] {
		cfg.Build.Script = *f.Script
	}
	if set["mesh-cells"] && *f.MeshCells > 0 {
		cfg.Kernel.MeshCells = *f.MeshCells
	}
}
