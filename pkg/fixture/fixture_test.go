package fixture

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/geom"
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

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Frame.SupportScale = 0.69
	return cfg
}

// starParams resolves a star model and returns params for every edge of
// the centre vertex.
func starParams(t *testing.T, cfg *config.Config, length float64, log *zap.Logger, dirs ...r3.Vec) []*Params {
	t.Helper()
	m := modeltest.Star(length, dirs...)
	centre := m.Vertices[0]
	require.NoError(t, model.ResolveEdgeRelations(m, []*model.ModelVertex{centre}))
	var out []*Params
	for _, e := range centre.JointEdges() {
		p, err := NewParams(cfg, centre, e, log)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestNewParams(t *testing.T) {
	cfg := testConfig()
	p := starParams(t, cfg, 500, nil, r3.Vec{X: 2})[0]

	assert.Equal(t, "AA@AB", p.Name())
	assert.Equal(t, "aa-ab", p.FileName())
	assert.Equal(t, "AB", p.Label())
	assert.True(t, geom.ApproxEqual(p.DirectionToOrigin, r3.Vec{X: 1}, 1e-12))
	assert.False(t, p.Clamped)
	assert.InDelta(t, 38.1, p.ExtrusionHeight, 0.01)
	assert.InDelta(t, 12.7, p.Midpoint.X, 0.01)
	assert.InDelta(t, 474.6, p.AdjustedEdgeLength, 0.02)
	assert.InDelta(t, p.AdjustedEdgeLength/2, p.MaxAvailExtrusionHeight, 1e-12)
}

func TestNewParamsClampsShortEdge(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := testConfig()
	p := starParams(t, cfg, 100, zap.New(core), r3.Vec{Y: 1})[0]

	require.True(t, p.Clamped)
	adjustedNominal := 100 - 2*cfg.FixtureLength()/3
	assert.InDelta(t, adjustedNominal/2-cfg.Frame.EdgeBuffer, p.ExtrusionHeight, 1e-9)
	assert.Less(t, 2*p.ExtrusionHeight, p.AdjustedEdgeLength)
	assert.Equal(t, 1, logs.FilterMessage("fixture length clamped to fit edge").Len())
}

func TestNewParamsErrors(t *testing.T) {
	cfg := testConfig()
	m := modeltest.Star(3, r3.Vec{X: 1})
	centre := m.Vertices[0]

	_, err := NewParams(cfg, centre, centre.Edges[0], nil)
	assert.True(t, errors.Is(err, ErrUnresolvedEdge), "got %v", err)

	require.NoError(t, model.ResolveEdgeRelations(m, []*model.ModelVertex{centre}))
	_, err = NewParams(cfg, centre, centre.Edges[0], nil)
	assert.True(t, errors.Is(err, ErrEdgeTooShort), "got %v", err)
}

func TestQueries(t *testing.T) {
	cfg := testConfig()
	ps := starParams(t, cfg, 500, nil, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{X: -1})
	a, b, c := New(ps[0]), New(ps[1]), New(ps[2])

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"perpendicular", a.AngleBetween(b), 90},
		{"opposite", a.AngleBetween(c), 180},
		{"same", a.AngleBetween(a), 0},
		{"distance at own height", a.DistanceTo(b, nil), 50.8 * 1.41421356},
		{"shell offset", a.FinalEdgeOffset(), cfg.FixtureShellThickness()},
		{"cut length", a.FinalEdgeLength(), a.Params.AdjustedEdgeLength - cfg.FixtureShellThickness()},
		{"cut inches", a.CutLengthInches(), 18.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.got, 0.01)
		})
	}

	at := 10.0
	assert.InDelta(t, 22.7*1.41421356, a.DistanceTo(b, &at), 0.01)
	assert.Equal(t, "18.6", a.CutLengthLabel())

	// Capped at half the adjusted edge: the middle of the beam.
	assert.InDelta(t, 250, a.PointAtDistance(1000).X, 0.01)
	assert.InDelta(t, 12.7+38.1, a.TargetFaceEndpoint().X, 0.01)
	assert.InDelta(t, 12.7+cfg.FixtureShellThickness(), a.SupportEndpoint().X, 0.01)
}

func TestExtend(t *testing.T) {
	cfg := testConfig()
	f := New(starParams(t, cfg, 100, nil, r3.Vec{Z: 1})[0])
	box := mesh.FromTriangles(mesh.BoxTriangles(r3.Box{Min: r3.Vec{X: -1, Y: -1}, Max: r3.Vec{X: 1, Y: 1, Z: 1}}))
	f.SetMesh(Hole, box)
	start := f.ExtrusionHeight
	base := f.BasePoint()

	require.NoError(t, f.Extend(1))
	assert.InDelta(t, start+1, f.ExtrusionHeight, 1e-12)
	assert.InDelta(t, 1, f.Offset(), 1e-12)
	assert.InDelta(t, base.Z+1, f.BasePoint().Z, 1e-12)
	moved, ok := f.Mesh(Hole)
	require.True(t, ok)
	assert.InDelta(t, 1, moved.Bounds().Min.Z, 1e-9)
	assert.True(t, f.Fits())

	// The next two steps would meet the facing fixture.
	err := f.Extend(2)
	assert.True(t, errors.Is(err, ErrHeightExceeded), "got %v", err)
	assert.InDelta(t, start+1, f.ExtrusionHeight, 1e-12, "failed extension must not change the fixture")
	assert.True(t, f.Fits())
}

func TestInnerCorners(t *testing.T) {
	cfg := testConfig()
	f := New(starParams(t, cfg, 500, nil, r3.Vec{X: 1})[0])
	half := cfg.FixtureSize() / 2

	corners := f.InnerCorners()
	require.Len(t, corners, 4)
	for _, c := range corners {
		assert.InDelta(t, 12.7, c.X, 1e-9)
		assert.InDelta(t, half, math.Abs(c.Y), 1e-9)
		assert.InDelta(t, half, math.Abs(c.Z), 1e-9)
	}

	// The corners follow the base when the fixture is extended.
	require.NoError(t, f.Extend(2))
	for _, c := range f.InnerCorners() {
		assert.InDelta(t, 14.7, c.X, 1e-9)
	}
}

func TestMeshTypeString(t *testing.T) {
	var names []string
	for _, mt := range MeshTypes() {
		names = append(names, mt.String())
	}
	assert.Equal(t, []string{"BASE", "HOLE", "SHELL"}, names)
	assert.Equal(t, "MeshType(7)", MeshType(7).String())
}

func TestPlacedSolids(t *testing.T) {
	cfg := testConfig()
	f := New(starParams(t, cfg, 500, nil, r3.Vec{X: 1})[0])
	k := sdfx.New(sdfx.WithMeshCells(30))
	half := cfg.FixtureSize() / 2

	base, err := f.PlacedSolid(k, Base)
	require.NoError(t, err)
	b := kernel.Bounds(base)
	assert.InDelta(t, 12.7, b.Min.X, 0.01)
	assert.InDelta(t, 12.7+38.1, b.Max.X, 0.01)
	assert.InDelta(t, half, b.Max.Y, 0.01)
	assert.InDelta(t, -half, b.Min.Z, 0.01)

	hole, err := f.PlacedSolid(k, Hole)
	require.NoError(t, err)
	h := kernel.Bounds(hole)
	assert.InDelta(t, 12.7+cfg.FixtureShellThickness(), h.Min.X, 0.01)
	assert.Greater(t, h.Max.X, b.Max.X, "channel must be open at the outer end")
	assert.InDelta(t, cfg.FixtureHoleSize()/2, h.Max.Y, 0.01)

	shell, err := f.PlacedSolid(k, Shell)
	require.NoError(t, err)
	s := kernel.Bounds(shell)
	leg := cfg.FixtureSize() * cfg.Frame.FilletRatio
	assert.InDelta(t, b.Min.X, s.Min.X, 0.01)
	// Fillets widen two adjoining sides.
	width := (s.Max.Y - s.Min.Y) + (s.Max.Z - s.Min.Z)
	assert.InDelta(t, 4*half+2*leg, width, 0.01)

	_, err = f.LocalSolid(k, MeshType(9))
	assert.Error(t, err)
}

func TestComputeMeshes(t *testing.T) {
	cfg := testConfig()
	f := New(starParams(t, cfg, 500, nil, r3.Vec{X: 1, Y: 1})[0])
	k := sdfx.New(sdfx.WithMeshCells(30))

	require.NoError(t, f.ComputeMeshes(context.Background(), k, Base, Hole))
	m, ok := f.Mesh(Base)
	require.True(t, ok)
	assert.Equal(t, "aa-ab-base", m.Name)
	_, ok = f.Mesh(Shell)
	assert.False(t, ok)

	// The face nearest the joint is the core-side cap.
	face, ok := m.NearestFace(r3.Vec{})
	require.True(t, ok)
	assert.InDelta(t, -1, r3.Dot(face.Normal, f.Direction()), 0.01)
	assert.InDelta(t, f.Params.DistanceToOrigin(), geom.Distance(face.Center(), r3.Vec{}), 0.5)
}
