package joint

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/threedframe/pkg/fixture"
	"github.com/chazu/threedframe/pkg/geom"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/label"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Core is the convex hull joining the core-side faces of all fixtures.
type Core struct {
	Points []r3.Vec
	Solid  kernel.Solid
}

// BuildCore hulls the inner corners of every fixture. A point set without
// volume, as with a single fixture, is closed with the joint origin.
func (a *Assembler) BuildCore(ctx context.Context, fixtures []*fixture.Fixture) (*Core, error) {
	defer a.Timer.Start("core")()
	var points []r3.Vec
	for _, f := range fixtures {
		points = append(points, f.InnerCorners()...)
	}
	if len(fixtures) == 1 {
		points = append(points, geom.Origin)
	}

	s, err := a.Kernel.Hull(points)
	if errors.Is(err, geom.ErrDegenerateHull) {
		a.Logger.Debug("core points are flat, adding origin", zap.Int("points", len(points)))
		points = append(points, geom.Origin)
		s, err = a.Kernel.Hull(points)
	}
	if err != nil {
		return nil, fmt.Errorf("joint %s: core: %w", a.Vertex.Label, err)
	}
	core := &Core{Points: points, Solid: s}

	if a.Flags.Has(BuildCoreLabel) {
		if err := a.labelCore(ctx, core, fixtures); err != nil {
			return nil, err
		}
	}
	return core, nil
}

// labelCore engraves the vertex label on the largest core face away from
// the fixtures.
func (a *Assembler) labelCore(ctx context.Context, core *Core, fixtures []*fixture.Fixture) error {
	m, err := a.Kernel.ToMesh(ctx, core.Solid)
	if err != nil {
		return fmt.Errorf("joint %s: core mesh: %w", a.Vertex.Label, err)
	}
	avoid := make([]r3.Vec, len(fixtures))
	for i, f := range fixtures {
		avoid[i] = f.BasePoint()
	}
	face, ok := label.LargestClearFace(m, avoid, a.Config.FixtureSize()/2)
	if !ok {
		return fmt.Errorf("joint %s: core mesh has no faces", a.Vertex.Label)
	}
	up := a.Vertex.PointNormal
	if r3.Norm2(up) == 0 {
		up = r3.Vec{Z: 1}
	}
	text, err := label.Build(a.Kernel, label.DefaultParams(a.Config, a.Vertex.Label), face, up)
	if err != nil {
		return fmt.Errorf("joint %s: core label: %w", a.Vertex.Label, err)
	}
	core.Solid = a.Kernel.Difference(core.Solid, text)
	return nil
}
