package scad

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/mesh"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// workspace is a private directory for one renderer invocation.
type workspace struct {
	dir string
}

func (k *ScadKernel) newWorkspace() (*workspace, error) {
	parent := k.tmpDir
	if parent == "" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, "threedframe-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("scad: workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

func (ws *workspace) path(name string) string { return filepath.Join(ws.dir, name) }

func (ws *workspace) Close() error { return os.RemoveAll(ws.dir) }

// ToMesh renders s to STL with openscad and reads the result back.
func (k *ScadKernel) ToMesh(ctx context.Context, s kernel.Solid) (*mesh.Mesh, error) {
	ws, err := k.newWorkspace()
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	in, out := ws.path("mesh.scad"), ws.path("mesh.stl")
	if err := k.writeScriptFile(in, s); err != nil {
		return nil, err
	}
	if err := k.Render(ctx, in, out); err != nil {
		return nil, err
	}
	m, err := mesh.ReadSTL(out)
	if err != nil {
		return nil, fmt.Errorf("scad: %w", err)
	}
	if m.IsEmpty() {
		return nil, fmt.Errorf("scad: renderer produced an empty mesh")
	}
	return m, nil
}

func (k *ScadKernel) writeScriptFile(path string, s kernel.Solid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("scad: create %s: %w", path, err)
	}
	if err := k.WriteScript(f, s); err != nil {
		f.Close()
		return fmt.Errorf("scad: write %s: %w", path, err)
	}
	return f.Close()
}

// Render runs openscad on the script in, writing a binary STL or PNG to
// out depending on its extension.
func (k *ScadKernel) Render(ctx context.Context, in, out string) error {
	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}

	args := []string{"-o", out, in}
	if strings.EqualFold(filepath.Ext(out), ".stl") {
		args = append([]string{"--export-format", "binstl"}, args...)
	}
	cmd := exec.CommandContext(ctx, k.bin, args...)
	var stderr bytes.Buffer
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	k.log.Debug("openscad finished",
		zap.String("in", filepath.Base(in)),
		zap.String("out", filepath.Base(out)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("scad: render %s: %w", filepath.Base(in), ctxErr)
		}
		return fmt.Errorf("scad: render %s: %w: %s", filepath.Base(in), err, lastLines(stderr.String(), 5))
	}
	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("scad: render %s produced no output: %w", filepath.Base(in), err)
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
