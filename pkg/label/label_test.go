package label

import (
	"errors"
	"testing"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/kernel/sdfx"
	"github.com/chazu/threedframe/pkg/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const half = 10.273

// fixtureBox is a fixture-sized prism along +X, like a BASE mesh.
func fixtureBox() *mesh.Mesh {
	return mesh.FromTriangles(mesh.BoxTriangles(r3.Box{
		Min: r3.Vec{X: 12.7, Y: -half, Z: -half},
		Max: r3.Vec{X: 50.8, Y: half, Z: half},
	}))
}

func faceWithNormal(t *testing.T, m *mesh.Mesh, n r3.Vec) mesh.Face {
	t.Helper()
	for _, f := range m.Faces() {
		if r3.Dot(f.Normal, n) > 0.99 {
			return f
		}
	}
	t.Fatalf("no face with normal %v", n)
	return mesh.Face{}
}

func TestFindClearFace(t *testing.T) {
	m := fixtureBox()
	clearance := 2 * half

	tests := []struct {
		name     string
		siblings []r3.Vec
		check    func(t *testing.T, f mesh.Face)
	}{
		{
			name:     "no siblings picks a side",
			siblings: nil,
			check: func(t *testing.T, f mesh.Face) {
				assert.InDelta(t, 0, f.Normal.X, 1e-9)
				assert.InDelta(t, 38.1*2*half, f.Area, 1e-6)
			},
		},
		{
			name:     "sibling below skips the near side",
			siblings: []r3.Vec{{X: 31.75, Y: -30}},
			check: func(t *testing.T, f mesh.Face) {
				assert.InDelta(t, 0, f.Normal.X, 1e-9)
				assert.Greater(t, f.Normal.Y, -0.5)
			},
		},
		{
			name:     "crowded falls back to the core side cap",
			siblings: []r3.Vec{{X: 31.75}},
			check: func(t *testing.T, f mesh.Face) {
				assert.InDelta(t, -1, f.Normal.X, 1e-9)
				assert.InDelta(t, 12.7, f.Centroid.X, 1e-9)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := FindClearFace(m, tt.siblings, clearance)
			require.True(t, ok)
			tt.check(t, f)
		})
	}

	_, ok := FindClearFace(&mesh.Mesh{}, nil, clearance)
	assert.False(t, ok)
}

func TestOppositeFace(t *testing.T) {
	m := fixtureBox()
	top := faceWithNormal(t, m, r3.Vec{Y: 1})
	opp, ok := OppositeFace(m, top)
	require.True(t, ok)
	assert.InDelta(t, -1, opp.Normal.Y, 1e-9)
}

func TestLargestClearFace(t *testing.T) {
	m := fixtureBox()
	f, ok := LargestClearFace(m, nil, 1)
	require.True(t, ok)
	assert.InDelta(t, 0, f.Normal.X, 1e-9)

	var sides []r3.Vec
	for _, n := range []r3.Vec{{Y: 1}, {Y: -1}, {Z: 1}, {Z: -1}} {
		sides = append(sides, faceWithNormal(t, m, n).Center())
	}
	f, ok = LargestClearFace(m, sides, 1)
	require.True(t, ok)
	assert.InDelta(t, 1, f.Normal.X*f.Normal.X, 1e-9, "only the caps are clear")
}

func TestParams(t *testing.T) {
	cfg := config.Default()
	cfg.Frame.SupportScale = 0.69

	p := DefaultParams(cfg, "AB", "18.6")
	assert.Equal(t, "AB\n18.6", p.Text())
	assert.InEpsilon(t, 6.0, p.Size, 0.01)
	assert.InEpsilon(t, 9.0, p.Width, 0.01)
	assert.Equal(t, cfg.Frame.LabelDepth, p.Depth)

	fp := FixtureParams(cfg, "AB")
	assert.InDelta(t, 0.75, fp.Depth, 0.01)
}

func TestBuild(t *testing.T) {
	font, err := sdfx.LoadFont("")
	require.NoError(t, err)
	k := sdfx.New(sdfx.WithFont(font), sdfx.WithMeshCells(40))
	m := fixtureBox()
	face := faceWithNormal(t, m, r3.Vec{Y: 1})

	p := Params{Content: []string{"AB"}, Size: 6, Width: 9, Depth: 0.75, Center: true}
	s, err := Build(k, p, face, r3.Vec{X: 1})
	require.NoError(t, err)

	b := kernel.Bounds(s)
	assert.InDelta(t, half-0.75, b.Min.Y, 0.05)
	assert.InDelta(t, half+overcut, b.Max.Y, 0.05)
	// Text stays on the face.
	assert.Greater(t, b.Min.X, 12.7)
	assert.Less(t, b.Max.X, 50.8)

	_, err = Build(sdfx.New(), p, face, r3.Vec{X: 1})
	assert.True(t, errors.Is(err, kernel.ErrNoFont), "got %v", err)
}
