// Package joint assembles the printable joint for one frame vertex: one
// fixture per incident edge, conflict resolution between fixtures, and the
// convex core that ties them together.
package joint

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/fixture"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/metrics"
	"github.com/chazu/threedframe/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Assembler builds the joint of a single vertex. An Assembler owns all of
// its state; run one per goroutine.
type Assembler struct {
	Model    *model.ModelData
	Vertex   *model.ModelVertex
	Kernel   kernel.Kernel
	Config   *config.Config
	Logger   *zap.Logger
	Timer    *metrics.Timer
	Strategy Strategy
	Flags    BuildFlags

	fixtures []*fixture.Fixture
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Assembler) {
		if log != nil {
			a.Logger = log
		}
	}
}

// WithTimer sets the timer joint timings are recorded in.
func WithTimer(t *metrics.Timer) Option {
	return func(a *Assembler) { a.Timer = t }
}

// WithStrategy overrides the strategy named in the configuration.
func WithStrategy(s Strategy) Option {
	return func(a *Assembler) {
		if s != nil {
			a.Strategy = s
		}
	}
}

// WithFlags overrides the build flags derived from the configuration.
func WithFlags(f BuildFlags) Option {
	return func(a *Assembler) { a.Flags = f }
}

// NewAssembler returns an assembler for vertex v of m. The strategy and
// flags default to the ones named in cfg.Build.
func NewAssembler(k kernel.Kernel, cfg *config.Config, m *model.ModelData, v *model.ModelVertex, opts ...Option) (*Assembler, error) {
	strategy, err := ParseStrategy(cfg.Build.Strategy)
	if err != nil {
		return nil, err
	}
	a := &Assembler{
		Model:    m,
		Vertex:   v,
		Kernel:   k,
		Config:   cfg,
		Logger:   zap.NewNop(),
		Strategy: strategy,
		Flags:    FlagsFromConfig(cfg.Build),
	}
	for _, o := range opts {
		o(a)
	}
	a.Logger = a.Logger.With(zap.String("joint", v.Label), zap.String("strategy", a.Strategy.Name()))
	return a, nil
}

// BuildFixtureParams returns one Params per edge the vertex is the joint
// side of, ordered by edge index.
func (a *Assembler) BuildFixtureParams() ([]*fixture.Params, error) {
	var out []*fixture.Params
	for _, e := range a.Vertex.JointEdges() {
		p, err := fixture.NewParams(a.Config, a.Vertex, e, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("joint %s: %w", a.Vertex.Label, err)
		}
		out = append(out, p)
	}
	if sel, ok := a.Strategy.(paramsSelector); ok {
		return sel.selectParams(a, out)
	}
	return out, nil
}

// NewFixtures returns unresolved fixtures at their parameter heights.
func (a *Assembler) NewFixtures() ([]*fixture.Fixture, error) {
	params, err := a.BuildFixtureParams()
	if err != nil {
		return nil, err
	}
	fixtures := make([]*fixture.Fixture, len(params))
	for i, p := range params {
		fixtures[i] = fixture.New(p)
	}
	return fixtures, nil
}

// ConstructFixtures builds the fixtures, computes their meshes and
// resolves conflicts between them.
func (a *Assembler) ConstructFixtures(ctx context.Context) ([]*fixture.Fixture, error) {
	fixtures, err := a.NewFixtures()
	if err != nil {
		return nil, err
	}
	if len(fixtures) == 0 {
		return nil, fmt.Errorf("joint %s: vertex has no edges", a.Vertex.Label)
	}
	err = a.Timer.Time("meshes", func() error {
		return a.ComputeMeshes(ctx, fixtures, fixture.MeshTypes()...)
	})
	if err != nil {
		return nil, err
	}
	err = a.Timer.Time("conflicts", func() error {
		return a.ResolveConflicts(ctx, fixtures)
	})
	if err != nil {
		return nil, err
	}
	a.fixtures = fixtures
	return fixtures, nil
}

// Fixtures returns the fixtures of the last ConstructFixtures call.
func (a *Assembler) Fixtures() []*fixture.Fixture { return a.fixtures }

// ComputeMeshes meshes every fixture for every type on a bounded pool.
// The first failure cancels the remaining work.
func (a *Assembler) ComputeMeshes(ctx context.Context, fixtures []*fixture.Fixture, types ...fixture.MeshType) error {
	workers := min(2*len(fixtures), runtime.NumCPU())
	a.Logger.Debug("computing fixture meshes",
		zap.Int("fixtures", len(fixtures)),
		zap.Int("types", len(types)),
		zap.Int("workers", workers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, f := range fixtures {
		for _, t := range types {
			g.Go(func() error {
				m, err := f.ComputeMesh(ctx, a.Kernel, t)
				if err != nil {
					return fmt.Errorf("joint %s: %w", a.Vertex.Label, err)
				}
				a.Logger.Debug("fixture mesh ready",
					zap.String("fixture", f.Name()),
					zap.Stringer("type", t),
					zap.Int("triangles", m.TriangleCount()))
				return nil
			})
		}
	}
	return g.Wait()
}

// GetSiblingFixtures returns every fixture of the joint except f.
func (a *Assembler) GetSiblingFixtures(f *fixture.Fixture) []*fixture.Fixture {
	return siblings(a.fixtures, f)
}

func siblings(all []*fixture.Fixture, f *fixture.Fixture) []*fixture.Fixture {
	out := make([]*fixture.Fixture, 0, len(all))
	for _, o := range all {
		if o != f {
			out = append(out, o)
		}
	}
	return out
}

func fixtureNames(fixtures []*fixture.Fixture) []string {
	names := make([]string, len(fixtures))
	for i, f := range fixtures {
		names[i] = f.Name()
	}
	sort.Strings(names)
	return names
}
