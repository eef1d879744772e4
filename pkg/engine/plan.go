package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/joint"
)

// Kernel names a plan may select.
var kernelNames = map[string]bool{"sdfx": true, "scad": true}

// Part names accepted by (parts ...).
var partNames = []string{"core", "fixtures", "core-label", "fixture-label", "labels", "joint"}

// Plan is what a build-plan script asks for. Unset fields leave the
// configuration alone.
type Plan struct {
	Scale    *float64
	Kernel   string
	Strategy string
	Render   *string // render format; "" renders with the configured one
	Parallel *bool
	Workers  int
	NoCache  bool
	Parts    []string // nil keeps the configured parts
	Jobs     []Job
}

// Job is one batch of joints, optionally with its own strategy.
type Job struct {
	Vertices []string
	Strategy string
	Fixture  string // fixture name or target label for single-fixture
}

// Apply writes the plan's settings into cfg.
func (p *Plan) Apply(cfg *config.Config) error {
	if p.Scale != nil {
		cfg.Frame.SupportScale = *p.Scale
	}
	if p.Kernel != "" {
		cfg.Kernel.Name = p.Kernel
	}
	if p.Strategy != "" {
		cfg.Build.Strategy = p.Strategy
	}
	if p.Render != nil {
		cfg.Render.Enabled = true
		if *p.Render != "" {
			cfg.Render.Format = *p.Render
		}
	}
	if p.Parallel != nil {
		cfg.Director.Parallel = *p.Parallel
	}
	if p.Workers > 0 {
		cfg.Director.Workers = p.Workers
	}
	if p.NoCache {
		cfg.Render.NoCache = true
	}
	if p.Parts != nil {
		b, err := partsToBuild(cfg.Build, p.Parts)
		if err != nil {
			return err
		}
		cfg.Build = b
	}
	return nil
}

// Config returns a copy of cfg with the job's overrides.
func (j Job) Config(cfg *config.Config) *config.Config {
	c := *cfg
	if j.Strategy != "" {
		c.Build.Strategy = j.Strategy
	}
	if j.Fixture != "" {
		c.Build.SingleFixture = j.Fixture
	}
	return &c
}

func partsToBuild(b config.BuildConfig, parts []string) (config.BuildConfig, error) {
	b.Core, b.Fixtures, b.CoreLabel, b.FixtureLabel = false, false, false, false
	for _, p := range parts {
		switch p {
		case "core":
			b.Core = true
		case "fixtures":
			b.Fixtures = true
		case "core-label":
			b.CoreLabel = true
		case "fixture-label":
			b.FixtureLabel = true
		case "labels":
			b.CoreLabel, b.FixtureLabel = true, true
		case "joint":
			b.Core, b.Fixtures, b.CoreLabel, b.FixtureLabel = true, true, true, true
		default:
			return b, fmt.Errorf("engine: unknown part %q (want one of %s)", p, strings.Join(partNames, ", "))
		}
	}
	return b, nil
}

func checkKernel(name string) error {
	if !kernelNames[name] {
		return fmt.Errorf("unknown kernel %q (want sdfx or scad)", name)
	}
	return nil
}

func checkStrategy(name string) error {
	_, err := joint.ParseStrategy(name)
	return err
}

func checkFormat(name string) error {
	switch name {
	case "stl", "png":
		return nil
	}
	return fmt.Errorf("unknown render format %q (want stl or png)", name)
}
