package joint

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/fixture"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/kernel/sdfx"
	"github.com/chazu/threedframe/pkg/mesh"
	"github.com/chazu/threedframe/pkg/model"
	"github.com/chazu/threedframe/pkg/model/modeltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/spatial/r3"
)

const testCells = 36

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Frame.SupportScale = 0.69
	cfg.Kernel.MeshCells = testCells
	return cfg
}

func testKernel(t *testing.T) *sdfx.SdfxKernel {
	t.Helper()
	font, err := sdfx.LoadFont("")
	require.NoError(t, err)
	return sdfx.New(sdfx.WithMeshCells(testCells), sdfx.WithFont(font))
}

// newAssembler resolves vertex 0 of m and returns its assembler.
func newAssembler(t *testing.T, cfg *config.Config, m *model.ModelData, opts ...Option) *Assembler {
	t.Helper()
	v := m.Vertices[0]
	require.NoError(t, model.ResolveEdgeRelations(m, []*model.ModelVertex{v}))
	a, err := NewAssembler(testKernel(t), cfg, m, v, opts...)
	require.NoError(t, err)
	return a
}

func orthogonal() []r3.Vec {
	return []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
}

func tenDegrees() []r3.Vec {
	a := 10 * math.Pi / 180
	return []r3.Vec{{X: 1}, {X: math.Cos(a), Y: math.Sin(a)}}
}

func TestBuildFixtureParams(t *testing.T) {
	a := newAssembler(t, testConfig(), modeltest.Star(500, orthogonal()...))
	params, err := a.BuildFixtureParams()
	require.NoError(t, err)

	var names []string
	for _, p := range params {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"AA@AB", "AA@AC", "AA@AD"}, names)
}

func TestParseStrategy(t *testing.T) {
	for _, name := range StrategyNames() {
		s, err := ParseStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name())
	}
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyStandard, s.Name())

	_, err = ParseStrategy("exploded")
	assert.Error(t, err)
}

func TestBuildFlags(t *testing.T) {
	assert.Equal(t, "CORE|FIXTURES|CORE_LABEL|FIXTURE_LABEL", BuildJoint.String())
	assert.Equal(t, "NONE", BuildFlags(0).String())
	assert.True(t, BuildJoint.Has(BuildLabels))
	assert.False(t, BuildCore.Has(BuildCore|BuildFixtures))

	b := config.Default().Build
	assert.Equal(t, BuildJoint, FlagsFromConfig(b))
	b.CoreLabel = false
	assert.Equal(t, BuildCore|BuildFixtures|BuildFixtureLabel, FlagsFromConfig(b))
}

func TestPalette(t *testing.T) {
	colors := Palette(6)
	assert.Equal(t, colors, Palette(6))
	seen := map[string]bool{}
	for _, c := range colors {
		assert.Len(t, c, 7)
		assert.False(t, seen[c], "duplicate colour %s", c)
		seen[c] = true
	}
}

func TestSingleFixtureSelection(t *testing.T) {
	cfg := testConfig()
	cfg.Build.Strategy = StrategySingleFixture
	cfg.Build.SingleFixture = "ac"
	a := newAssembler(t, cfg, modeltest.Star(500, orthogonal()...))

	params, err := a.BuildFixtureParams()
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "AA@AC", params[0].Name())

	cfg.Build.SingleFixture = "zz"
	_, err = a.BuildFixtureParams()
	assert.Error(t, err)
}

func TestResolveConflictsConverges(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := testConfig()
	a := newAssembler(t, cfg, modeltest.Star(500, tenDegrees()...), WithLogger(zap.New(core)))

	fixtures, err := a.ConstructFixtures(context.Background())
	require.NoError(t, err)
	require.Len(t, fixtures, 2)
	assert.InDelta(t, 10, fixtures[0].AngleBetween(fixtures[1]), 1e-9)

	extended := false
	for _, f := range fixtures {
		assert.Less(t, 2*f.ExtrusionHeight, f.Params.AdjustedEdgeLength, f.Name())
		extended = extended || f.Offset() > 0
	}
	assert.True(t, extended, "close fixtures must be pushed apart")
	assert.Greater(t, logs.FilterMessage("fixture intersected, extending").Len(), 0)

	hits, err := a.FindIntersections(fixtures)
	require.NoError(t, err)
	assert.Empty(t, hits.Intersected())
	assert.Len(t, a.GetSiblingFixtures(fixtures[0]), 1)
	assert.Same(t, fixtures[1], a.GetSiblingFixtures(fixtures[0])[0])
}

func TestResolveConflictsGuards(t *testing.T) {
	t.Run("iteration limit", func(t *testing.T) {
		cfg := testConfig()
		cfg.Conflict.MaxIterations = 1
		a := newAssembler(t, cfg, modeltest.Star(500, tenDegrees()...))

		_, err := a.ConstructFixtures(context.Background())
		var cre *ConflictResolutionError
		require.True(t, errors.As(err, &cre), "got %v", err)
		assert.Equal(t, "AA", cre.Vertex)
		assert.Equal(t, 1, cre.Iterations)
		assert.True(t, errors.Is(err, ErrMaxIterations))
	})
	t.Run("edge too short to separate", func(t *testing.T) {
		a := newAssembler(t, testConfig(), modeltest.Star(100, tenDegrees()...))

		_, err := a.ConstructFixtures(context.Background())
		var cre *ConflictResolutionError
		require.True(t, errors.As(err, &cre), "got %v", err)
		assert.True(t, errors.Is(err, fixture.ErrHeightExceeded))
		assert.NotEmpty(t, cre.Fixtures)
	})
}

func TestPrefilterSkipsWidePairs(t *testing.T) {
	cfg := testConfig()
	cfg.Conflict.Prefilter = true
	cfg.Conflict.AngleThreshold = 5
	a := newAssembler(t, cfg, modeltest.Star(500, tenDegrees()...))

	fixtures, err := a.NewFixtures()
	require.NoError(t, err)
	// No meshes: a mesh test would fail, so passing proves the pair was skipped.
	hits, err := a.FindIntersections(fixtures)
	require.NoError(t, err)
	assert.Empty(t, hits)

	cfg.Conflict.Prefilter = false
	_, err = a.FindIntersections(fixtures)
	assert.Error(t, err)
}

func TestBuildCore(t *testing.T) {
	cfg := testConfig()
	cfg.Build.CoreLabel = false
	a := newAssembler(t, cfg, modeltest.Star(500, orthogonal()...))
	ctx := context.Background()

	fixtures, err := a.NewFixtures()
	require.NoError(t, err)

	// The core spans the full fixture cross-section, independent of the
	// meshing resolution.
	core, err := a.BuildCore(ctx, fixtures)
	require.NoError(t, err)
	assert.Len(t, core.Points, 12)

	b := kernel.Bounds(core.Solid)
	half := cfg.FixtureSize() / 2
	assert.InDelta(t, 12.7, b.Max.X, 1e-6)
	assert.InDelta(t, 12.7, b.Max.Y, 1e-6)
	assert.InDelta(t, 12.7, b.Max.Z, 1e-6)
	assert.InDelta(t, -half, b.Min.X, 1e-6)
	assert.InDelta(t, -half, b.Min.Y, 1e-6)
	assert.InDelta(t, -half, b.Min.Z, 1e-6)
	for _, f := range fixtures {
		for _, c := range f.InnerCorners() {
			assert.Contains(t, core.Points, c, f.Name())
		}
	}

	// One fixture alone is closed with the joint origin.
	single, err := a.BuildCore(ctx, fixtures[:1])
	require.NoError(t, err)
	assert.Len(t, single.Points, 5)
	assert.InDelta(t, 0, kernel.Bounds(single.Solid).Min.X, 1e-9)
}

func TestFixtureLabelsNeedFaces(t *testing.T) {
	a := newAssembler(t, testConfig(), modeltest.Star(500, orthogonal()...))
	fixtures, err := a.NewFixtures()
	require.NoError(t, err)

	f := fixtures[0]
	_, err = a.FixtureLabels(f, fixtures[1:])
	assert.Error(t, err, "no BASE mesh")

	f.SetMesh(fixture.Base, mesh.FromTriangles(nil))
	_, err = a.FixtureLabels(f, fixtures[1:])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no faces")
}

func TestBuildJoint(t *testing.T) {
	cfg := testConfig()
	a := newAssembler(t, cfg, modeltest.Star(500, orthogonal()...))

	j, err := a.BuildJoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Joint[AA]", j.Name())
	assert.Equal(t, "joint-AA", j.FileName())
	require.Len(t, j.Fixtures, 3)
	require.NotNil(t, j.Core)
	for _, f := range j.Fixtures {
		assert.NotNil(t, f.Solid, f.Name())
		assert.InDelta(t, 0, f.Offset(), 1e-12, "orthogonal fixtures do not conflict")
	}
	b := kernel.Bounds(j.Solid)
	assert.InDelta(t, 12.7+38.1, b.Max.X, 0.1)
	assert.InDelta(t, 12.7+38.1, b.Max.Z, 0.1)
}

func TestStrategies(t *testing.T) {
	tests := []struct {
		strategy string
		check    func(t *testing.T, j *Joint)
	}{
		{StrategyCoreOnly, func(t *testing.T, j *Joint) {
			require.NotNil(t, j.Core)
			assert.Less(t, kernel.Bounds(j.Solid).Max.X, 20.0)
		}},
		{StrategyLabelDebug, func(t *testing.T, j *Joint) {
			assert.Nil(t, j.Core)
			assert.InDelta(t, 12.7+38.1, kernel.Bounds(j.Solid).Max.X, 0.1)
		}},
		{StrategyFixturesOnly, func(t *testing.T, j *Joint) {
			assert.Nil(t, j.Core)
			assert.Len(t, j.Fixtures, 3)
		}},
		{StrategySingleFixture, func(t *testing.T, j *Joint) {
			require.Len(t, j.Fixtures, 1)
			require.NotNil(t, j.Core)
			assert.InDelta(t, 0, kernel.Bounds(j.Core.Solid).Min.X, 0.5)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			cfg := testConfig()
			cfg.Build.Strategy = tt.strategy
			cfg.Build.CoreLabel = false
			cfg.Build.FixtureLabel = false
			a := newAssembler(t, cfg, modeltest.Star(500, orthogonal()...))

			j, err := a.BuildJoint(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, j.Strategy.Name())
			tt.check(t, j)
		})
	}
}

func TestAssembleNothingSelected(t *testing.T) {
	cfg := testConfig()
	a := newAssembler(t, cfg, modeltest.Star(500, orthogonal()...), WithFlags(0))
	_, err := a.BuildJoint(context.Background())
	assert.Error(t, err)
}
