package fixture

import (
	"fmt"

	"github.com/chazu/threedframe/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// LocalSolid builds the solid of type t in the fixture's local frame:
// axis along +Z, core-side face centred on the origin at z = 0.
func (f *Fixture) LocalSolid(k kernel.Kernel, t MeshType) (kernel.Solid, error) {
	switch t {
	case Base:
		return f.base(k), nil
	case Hole:
		return f.hole(k), nil
	case Shell:
		body := k.Difference(f.base(k), f.hole(k))
		fillets, err := f.Fillets(k)
		if err != nil {
			return nil, err
		}
		return k.Union(append([]kernel.Solid{body}, fillets...)...), nil
	default:
		return nil, fmt.Errorf("fixture: unknown mesh type %d", int(t))
	}
}

// PlacedSolid is LocalSolid mapped into the fixture frame.
func (f *Fixture) PlacedSolid(k kernel.Kernel, t MeshType) (kernel.Solid, error) {
	s, err := f.LocalSolid(k, t)
	if err != nil {
		return nil, err
	}
	return k.Place(s, f.Frame()), nil
}

// Place maps a local solid into the fixture frame.
func (f *Fixture) Place(k kernel.Kernel, s kernel.Solid) kernel.Solid {
	return k.Place(s, f.Frame())
}

func (f *Fixture) base(k kernel.Kernel) kernel.Solid {
	size := f.Params.cfg.FixtureSize()
	return k.Translate(k.Box(size, size, f.Length()), -size/2, -size/2, 0)
}

// hole runs from the stop wall past the open end.
func (f *Fixture) hole(k kernel.Kernel) kernel.Solid {
	size := f.Params.cfg.FixtureHoleSize()
	shell := f.Params.cfg.FixtureShellThickness()
	overshoot := shell
	return k.Translate(k.Box(size, size, f.Length()-shell+overshoot), -size/2, -size/2, shell)
}

// Fillets returns the two wedges that widen the core contact on the +X
// and +Y faces at the base edge.
func (f *Fixture) Fillets(k kernel.Kernel) ([]kernel.Solid, error) {
	half := f.Params.cfg.FixtureSize() / 2
	leg := f.Params.cfg.FixtureSize() * f.Params.cfg.Frame.FilletRatio
	if leg <= 0 {
		return nil, nil
	}
	wedges := [][]r3.Vec{
		{
			{X: half, Y: -half}, {X: half + leg, Y: -half}, {X: half, Y: -half, Z: leg},
			{X: half, Y: half}, {X: half + leg, Y: half}, {X: half, Y: half, Z: leg},
		},
		{
			{X: -half, Y: half}, {X: -half, Y: half + leg}, {X: -half, Y: half, Z: leg},
			{X: half, Y: half}, {X: half, Y: half + leg}, {X: half, Y: half, Z: leg},
		},
	}
	out := make([]kernel.Solid, 0, len(wedges))
	for _, pts := range wedges {
		s, err := k.Hull(pts)
		if err != nil {
			return nil, fmt.Errorf("fixture: %s fillet: %w", f.Name(), err)
		}
		out = append(out, s)
	}
	return out, nil
}
