// Package director drives joint generation over a selection of vertices:
// it builds each joint, writes its construction script and optionally
// renders a mesh or preview image into the renders directory.
package director

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/joint"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/mesh"
	"github.com/chazu/threedframe/pkg/metrics"
	"github.com/chazu/threedframe/pkg/model"
	"github.com/chazu/threedframe/pkg/preview"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Render formats.
const (
	FormatSTL = "stl"
	FormatPNG = "png"
)

// ErrFormat is returned for an unknown render format.
var ErrFormat = errors.New("director: unsupported render format")

// Result describes the outputs of one joint.
type Result struct {
	Label  string
	Vidx   int
	Joint  *joint.Joint // nil when cached
	Script string       // empty when the kernel cannot script
	Render string       // empty when rendering is off
	Cached bool
}

// Director builds joints for a model. A Director may be reused across
// runs but not concurrently.
type Director struct {
	Kernel kernel.Kernel
	Config *config.Config
	Logger *zap.Logger
	Timer  *metrics.Timer

	flags    *joint.BuildFlags
	strategy joint.Strategy
}

// Option configures a Director.
type Option func(*Director)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Director) {
		if log != nil {
			d.Logger = log
		}
	}
}

// WithTimer sets the timer; joint timings go under "build".
func WithTimer(t *metrics.Timer) Option {
	return func(d *Director) { d.Timer = t }
}

// WithFlags overrides the build flags from the configuration.
func WithFlags(f joint.BuildFlags) Option {
	return func(d *Director) { d.flags = &f }
}

// WithStrategy overrides the strategy named in the configuration.
func WithStrategy(s joint.Strategy) Option {
	return func(d *Director) { d.strategy = s }
}

// New returns a director over k.
func New(k kernel.Kernel, cfg *config.Config, opts ...Option) *Director {
	d := &Director{Kernel: k, Config: cfg, Logger: zap.NewNop()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run decodes the model in data and builds the joints named by selection
// (every vertex when empty), sequentially or in parallel depending on the
// configuration. Results are in selection order.
func (d *Director) Run(ctx context.Context, data []byte, selection []string) ([]*Result, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	m, err := model.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("director: %w", err)
	}
	verts, err := model.ParseVertexSelection(m, selection)
	if err != nil {
		return nil, fmt.Errorf("director: %w", err)
	}
	if err := os.MkdirAll(d.Config.Render.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("director: renders dir: %w", err)
	}
	if !d.scripting() && !d.Config.Render.Enabled {
		d.Logger.Warn("kernel writes no scripts and rendering is off; joints are built but not saved",
			zap.String("kernel", d.Kernel.Name()))
	}

	vidxs := make([]int, len(verts))
	for i, v := range verts {
		vidxs[i] = v.Vidx
	}

	defer d.Timer.Start("build")()
	d.Logger.Info("constructing joints",
		zap.Int("vertices", len(vidxs)),
		zap.Bool("parallel", d.Config.Director.Parallel),
		zap.String("kernel", d.Kernel.Name()))
	if d.Config.Director.Parallel {
		return d.Parallel(ctx, data, vidxs)
	}
	return d.Sequential(ctx, m, vidxs)
}

func (d *Director) validate() error {
	switch d.Config.Render.Format {
	case FormatSTL, FormatPNG:
	default:
		return fmt.Errorf("%w: %q", ErrFormat, d.Config.Render.Format)
	}
	if d.strategy == nil {
		if _, err := joint.ParseStrategy(d.Config.Build.Strategy); err != nil {
			return fmt.Errorf("director: %w", err)
		}
	}
	return nil
}

// Sequential builds the joints of vidxs one after the other on m.
func (d *Director) Sequential(ctx context.Context, m *model.ModelData, vidxs []int) ([]*Result, error) {
	verts := make([]*model.ModelVertex, 0, len(vidxs))
	for _, idx := range vidxs {
		v, err := m.Vertex(idx)
		if err != nil {
			return nil, fmt.Errorf("director: %w", err)
		}
		verts = append(verts, v)
	}
	if err := model.ResolveEdgeRelations(m, verts); err != nil {
		return nil, fmt.Errorf("director: %w", err)
	}

	results := make([]*Result, 0, len(verts))
	for _, v := range verts {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r, err := d.BuildJoint(ctx, m, v)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// Parallel splits vidxs into chunks and builds each chunk on its own
// goroutine against its own copy of the model decoded from data. The first
// failure cancels the remaining chunks.
func (d *Director) Parallel(ctx context.Context, data []byte, vidxs []int) ([]*Result, error) {
	workers := d.workers()
	chunks := Chunks(vidxs, workers)
	d.Logger.Info("parallel chunk size",
		zap.Int("vertices", len(vidxs)),
		zap.Int("workers", workers),
		zap.Int("chunks", len(chunks)))

	out := make([][]*Result, len(chunks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			m, err := model.Decode(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("director: chunk %d: %w", i, err)
			}
			rs, err := d.Sequential(ctx, m, chunk)
			out[i] = rs
			return err
		})
	}
	err := g.Wait()

	var results []*Result
	for _, rs := range out {
		results = append(results, rs...)
	}
	return results, err
}

func (d *Director) workers() int {
	if n := d.Config.Director.Workers; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Chunks splits items into consecutive chunks of len(items)/workers items,
// at least one per chunk. The last chunk holds the remainder.
func Chunks[T any](items []T, workers int) [][]T {
	if len(items) == 0 {
		return nil
	}
	size := 1
	if workers > 0 && len(items) > workers {
		size = len(items) / workers
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out
}

// BuildJoint builds, writes and optionally renders the joint of v. Edge
// relations of v must already be resolved.
func (d *Director) BuildJoint(ctx context.Context, m *model.ModelData, v *model.ModelVertex) (*Result, error) {
	log := d.Logger.With(zap.String("joint", v.Label), zap.Int("vidx", v.Vidx))
	r := &Result{Label: v.Label, Vidx: v.Vidx}
	r.Script, r.Render = d.outputPaths(v)

	if d.Config.Render.NoCache {
		if err := removeOutputs(r.Script, r.Render); err != nil {
			return nil, fmt.Errorf("director: joint %s: %w", v.Label, err)
		}
	} else if d.cached(r) {
		log.Info("joint outputs exist, skipping")
		r.Cached = true
		return r, nil
	}

	timer := d.Timer.Scope("build")
	err := timer.Time("joint", func() error {
		a, err := d.assembler(m, v, log, timer.Scope("joint"))
		if err != nil {
			return err
		}
		if r.Joint, err = a.BuildJoint(ctx); err != nil {
			return err
		}
		if err := timer.Time("write joint", func() error { return d.writeScript(r) }); err != nil {
			return err
		}
		if !d.Config.Render.Enabled {
			return nil
		}
		return timer.Time("render joint", func() error { return d.render(ctx, r) })
	})
	if err != nil {
		log.Error("joint failed", zap.Error(err))
		return nil, fmt.Errorf("director: joint %s: %w", v.Label, err)
	}
	log.Info("joint written", zap.String("script", r.Script), zap.String("render", r.Render))
	return r, nil
}

func (d *Director) assembler(m *model.ModelData, v *model.ModelVertex, log *zap.Logger, timer *metrics.Timer) (*joint.Assembler, error) {
	opts := []joint.Option{joint.WithLogger(log), joint.WithTimer(timer)}
	if d.flags != nil {
		opts = append(opts, joint.WithFlags(*d.flags))
	}
	if d.strategy != nil {
		opts = append(opts, joint.WithStrategy(d.strategy))
	}
	return joint.NewAssembler(d.Kernel, d.Config, m, v, opts...)
}

func (d *Director) scripting() bool {
	_, ok := d.Kernel.(kernel.Scripter)
	return ok
}

// outputPaths returns the script and render paths of v; a path is empty
// when that output is not produced.
func (d *Director) outputPaths(v *model.ModelVertex) (script, render string) {
	stem := filepath.Join(d.Config.Render.Dir, joint.FileName(v))
	if s, ok := d.Kernel.(kernel.Scripter); ok {
		script = stem + s.ScriptExt()
	}
	if d.Config.Render.Enabled {
		render = stem + "." + d.Config.Render.Format
	}
	return script, render
}

// cached reports whether every output of r already exists. A joint with
// no outputs is never cached.
func (d *Director) cached(r *Result) bool {
	paths := nonEmpty(r.Script, r.Render)
	if len(paths) == 0 {
		return false
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

func removeOutputs(paths ...string) error {
	for _, p := range nonEmpty(paths...) {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func nonEmpty(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (d *Director) writeScript(r *Result) error {
	s, ok := d.Kernel.(kernel.Scripter)
	if !ok {
		return nil
	}
	f, err := os.Create(r.Script)
	if err != nil {
		return err
	}
	if err := s.WriteScript(f, r.Joint.Solid); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", r.Script, err)
	}
	return f.Close()
}

func (d *Director) render(ctx context.Context, r *Result) error {
	m, err := d.Kernel.ToMesh(ctx, r.Joint.Solid)
	if err != nil {
		return err
	}
	p := mesh.NewPipeline(d.Logger, mesh.Repair{})
	if d.Config.Render.Flatten {
		p.Add(mesh.Flatten{})
	}
	if m, err = p.Apply(m); err != nil {
		return err
	}
	m.Name = r.Joint.FileName()

	switch d.Config.Render.Format {
	case FormatPNG:
		return preview.WritePNG(r.Render, m, preview.Options{
			Width:       d.Config.Render.Width,
			Height:      d.Config.Render.Height,
			Supersample: 2,
		})
	default:
		return mesh.WriteSTL(r.Render, m)
	}
}
