package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalingLaw(t *testing.T) {
	cfg := Default()
	cfg.Frame.SupportScale = 0.69

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"support_size", cfg.SupportSize(), 17.53},
		{"core_size", cfg.CoreSize(), 35.56},
		{"fixture_shell_thickness", cfg.FixtureShellThickness(), 3.0},
		{"fixture_length", cfg.FixtureLength(), 38.1},
		{"fixture_size", cfg.FixtureSize(), 20.54},
		{"fixture_hole_size", cfg.FixtureHoleSize(), 17.55},
		{"label_size", cfg.LabelSize(), 6.0},
		{"label_width", cfg.LabelWidth(), 9.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InEpsilon(t, tt.want, tt.got, 0.01)
		})
	}

	assert.InDelta(t, cfg.LabelWidth()/2, cfg.LabelCharWidth(), 1e-12)
	assert.InDelta(t, cfg.FixtureLength()/3.5, cfg.LabelLineHeight(), 1e-12)
	assert.Len(t, cfg.ComputedValues(), 8)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1.0, cfg.Conflict.Step)
	assert.Equal(t, 30.0, cfg.Conflict.AngleThreshold)
	assert.Equal(t, "sdfx", cfg.Kernel.Name)
	assert.Equal(t, 48, cfg.Kernel.Segments)
	assert.Equal(t, "renders", cfg.Render.Dir)
	assert.Equal(t, "standard", cfg.Build.Strategy)
	assert.True(t, cfg.Build.Core)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
frame:
  support_scale: 0.5
conflict:
  max_iterations: 20
kernel:
  name: scad
  timeout: 30s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Frame.SupportScale)
	assert.Equal(t, 20, cfg.Conflict.MaxIterations)
	assert.Equal(t, "scad", cfg.Kernel.Name)
	assert.Equal(t, 30*time.Second, cfg.Kernel.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Values absent from the file keep their defaults.
	assert.Equal(t, 2.03, cfg.Frame.CoreSizeMultiplier)
	assert.Equal(t, "renders", cfg.Render.Dir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"THREEDFRAME_SUPPORT_SCALE":  "0.75",
		"THREEDFRAME_KERNEL":         "scad",
		"THREEDFRAME_WORKERS":        "3",
		"THREEDFRAME_KERNEL_TIMEOUT": "1m",
		"THREEDFRAME_CI":             "true",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := Default()
	require.NoError(t, applyEnv(cfg, lookup))
	assert.Equal(t, 0.75, cfg.Frame.SupportScale)
	assert.Equal(t, "scad", cfg.Kernel.Name)
	assert.Equal(t, 3, cfg.Director.Workers)
	assert.Equal(t, time.Minute, cfg.Kernel.Timeout)
	assert.True(t, cfg.Render.NoCache)

	env["THREEDFRAME_WORKERS"] = "many"
	assert.Error(t, applyEnv(Default(), lookup))
}

func TestFlagsApplyOnlySetFlags(t *testing.T) {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	f := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-s", "0.69", "-p", "-w", "4", "-core=false", "-render-format", "png"}))

	cfg := Default()
	cfg.Build.Fixtures = false // not on the command line, must survive
	f.Apply(cfg)

	assert.Equal(t, 0.69, cfg.Frame.SupportScale)
	assert.True(t, cfg.Director.Parallel)
	assert.Equal(t, 4, cfg.Director.Workers)
	assert.False(t, cfg.Build.Core)
	assert.False(t, cfg.Build.Fixtures)
	assert.Equal(t, "png", cfg.Render.Format)
	assert.Equal(t, "sdfx", cfg.Kernel.Name)
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Frame.SupportScale = 0.69
	cfg.Build.Strategy = "core-only"
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Frame, loaded.Frame)
	assert.Equal(t, cfg.Build, loaded.Build)
	assert.Equal(t, cfg.Kernel.Timeout, loaded.Kernel.Timeout)
}
