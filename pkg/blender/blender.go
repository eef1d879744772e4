// Package blender runs Blender headless to export a frame model's vertex
// and edge graph as model JSON.
package blender

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/model"
	"go.uber.org/zap"
)

//go:embed export.py
var exportScript []byte

// InchesToMM converts Blender scenes modelled in inches.
const InchesToMM = 25.4

// Exporter drives the Blender binary.
type Exporter struct {
	bin       string
	timeout   time.Duration
	unitScale float64
	log       *zap.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Exporter) { e.log = l }
}

// WithUnitScale sets the factor from scene units to millimetres applied to
// edge lengths.
func WithUnitScale(s float64) Option {
	return func(e *Exporter) { e.unitScale = s }
}

// New returns an Exporter for the configured binary.
func New(cfg config.BlenderConfig, opts ...Option) *Exporter {
	e := &Exporter{
		bin:       cfg.Path,
		timeout:   cfg.Timeout,
		unitScale: InchesToMM,
		log:       zap.NewNop(),
	}
	if e.bin == "" {
		e.bin = "blender"
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// OutputPath is where Compute writes the JSON for a .blend file.
func OutputPath(blend string) string {
	return strings.TrimSuffix(blend, filepath.Ext(blend)) + ".json"
}

// Compute exports the active object of the .blend file at blend to out and
// loads the result, so a model that cannot be decoded is reported here
// rather than on the first generate.
func (e *Exporter) Compute(ctx context.Context, blend, out string) (*model.ModelData, error) {
	if _, err := os.Stat(blend); err != nil {
		return nil, fmt.Errorf("blender: %w", err)
	}
	bin, err := exec.LookPath(e.bin)
	if err != nil {
		return nil, fmt.Errorf("blender: binary %q: %w", e.bin, err)
	}
	absBlend, err := filepath.Abs(blend)
	if err != nil {
		return nil, fmt.Errorf("blender: %w", err)
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return nil, fmt.Errorf("blender: %w", err)
	}

	dir, err := os.MkdirTemp("", "threedframe-blender-")
	if err != nil {
		return nil, fmt.Errorf("blender: workspace: %w", err)
	}
	defer os.RemoveAll(dir)
	script := filepath.Join(dir, "export.py")
	if err := os.WriteFile(script, exportScript, 0o644); err != nil {
		return nil, fmt.Errorf("blender: write script: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, absBlend, "--background", "--python-use-system-env", "--python", script)
	cmd.Env = append(os.Environ(),
		"THREEDFRAME_OUT="+absOut,
		"THREEDFRAME_UNIT_SCALE="+strconv.FormatFloat(e.unitScale, 'g', -1, 64))
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = time.Second

	start := time.Now()
	err = cmd.Run()
	e.log.Info("blender finished",
		zap.String("model", filepath.Base(blend)),
		zap.String("out", absOut),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("blender: export %s: %w", filepath.Base(blend), ctxErr)
		}
		return nil, fmt.Errorf("blender: export %s: %w: %s", filepath.Base(blend), err, tail(output.String(), 5))
	}

	m, err := model.Load(absOut)
	if err != nil {
		return nil, fmt.Errorf("blender: export %s: %w", filepath.Base(blend), err)
	}
	e.log.Debug("model exported",
		zap.Int("vertices", m.NumVertices),
		zap.Int("edges", m.NumEdges))
	return m, nil
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
