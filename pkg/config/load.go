package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "THREEDFRAME_"

// Load loads configuration with priority: defaults < file < environment.
// CLI flags are applied on top by the caller through Flags.Apply. An empty
// path searches the standard locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./threedframe.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "threedframe")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "threedframe")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "threedframe")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "threedframe")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

type lookupFunc func(string) (string, bool)

// applyEnv applies THREEDFRAME_* overrides.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	floats := map[string]*float64{
		"SUPPORT_SCALE":   &cfg.Frame.SupportScale,
		"GAP":             &cfg.Frame.Gap,
		"CONFLICT_STEP":   &cfg.Conflict.Step,
		"ANGLE_THRESHOLD": &cfg.Conflict.AngleThreshold,
	}
	ints := map[string]*int{
		"MESH_CELLS":     &cfg.Kernel.MeshCells,
		"SEGMENTS":       &cfg.Kernel.Segments,
		"WORKERS":        &cfg.Director.Workers,
		"MAX_ITERATIONS": &cfg.Conflict.MaxIterations,
	}
	strs := map[string]*string{
		"RENDERS_DIR": &cfg.Render.Dir,
		"KERNEL":      &cfg.Kernel.Name,
		"OPENSCAD":    &cfg.Kernel.OpenSCAD,
		"FONT":        &cfg.Kernel.FontPath,
		"BLENDER":     &cfg.Blender.Path,
		"LOG_LEVEL":   &cfg.Logging.Level,
		"LOG_FILE":    &cfg.Logging.LogFile,
		"STRATEGY":    &cfg.Build.Strategy,
	}
	durations := map[string]*time.Duration{
		"KERNEL_TIMEOUT":  &cfg.Kernel.Timeout,
		"BLENDER_TIMEOUT": &cfg.Blender.Timeout,
	}

	for key, dst := range floats {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = f
		}
	}
	for key, dst := range ints {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	for key, dst := range durations {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = d
		}
	}
	// CI disables the render cache, as the render output is never reused
	// there.
	if v, ok := lookup(EnvPrefix + "CI"); ok {
		ci, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sCI: %w", EnvPrefix, err)
		}
		if ci {
			cfg.Render.NoCache = true
		}
	}
	return nil
}
