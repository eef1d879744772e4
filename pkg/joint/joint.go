package joint

import (
	"context"
	"fmt"
	"strings"

	"github.com/chazu/threedframe/pkg/fixture"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/label"
	"github.com/chazu/threedframe/pkg/mesh"
	"github.com/chazu/threedframe/pkg/model"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Joint is the assembled output for one vertex.
type Joint struct {
	Vertex   *model.ModelVertex
	Fixtures []*fixture.Fixture
	Core     *Core
	Solid    kernel.Solid
	Strategy Strategy
}

// Name is "Joint[<label>]".
func (j *Joint) Name() string { return "Joint[" + j.Vertex.Label + "]" }

// FileName is the output file stem, "joint-<label>".
func (j *Joint) FileName() string { return "joint-" + j.Vertex.Label }

// FileName returns the output file stem for a vertex.
func FileName(v *model.ModelVertex) string { return "joint-" + v.Label }

// BuildJoint constructs the fixtures, resolves their conflicts, builds the
// core and assembles the joint solid with the configured strategy.
func (a *Assembler) BuildJoint(ctx context.Context) (*Joint, error) {
	defer a.Timer.Start("total")()
	a.Logger.Info("building joint", zap.Int("vidx", a.Vertex.Vidx), zap.Stringer("flags", a.Flags))

	fixtures, err := a.ConstructFixtures(ctx)
	if err != nil {
		return nil, err
	}
	j := &Joint{Vertex: a.Vertex, Fixtures: fixtures, Strategy: a.Strategy}

	err = a.Timer.Time("fixtures", func() error {
		for _, f := range fixtures {
			s, err := a.buildFixtureSolid(f, siblings(fixtures, f))
			if err != nil {
				return err
			}
			f.Solid = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if a.needsCore() {
		if j.Core, err = a.BuildCore(ctx, fixtures); err != nil {
			return nil, err
		}
	}

	err = a.Timer.Time("assemble", func() error {
		s, err := a.Strategy.Assemble(a, j)
		j.Solid = s
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("joint %s: assemble: %w", a.Vertex.Label, err)
	}
	a.Logger.Info("joint assembled", zap.Int("fixtures", len(fixtures)))
	return j, nil
}

func (a *Assembler) needsCore() bool {
	switch a.Strategy.(type) {
	case CoreOnly:
		return true
	case LabelDebug, FixturesOnly:
		return false
	}
	return a.Flags.Has(BuildCore)
}

// buildFixtureSolid runs the strategy steps and engraves labels.
func (a *Assembler) buildFixtureSolid(f *fixture.Fixture, sibs []*fixture.Fixture) (kernel.Solid, error) {
	base, err := a.Strategy.CreateBase(a, f)
	if err != nil {
		return nil, err
	}
	body, err := a.Strategy.Extrude(a, f, base)
	if err != nil {
		return nil, err
	}
	placed, err := a.Strategy.Transform(a, f, body)
	if err != nil {
		return nil, err
	}
	if !a.Flags.Has(BuildFixtureLabel) {
		return placed, nil
	}
	labels, err := a.FixtureLabels(f, sibs)
	if err != nil {
		return nil, err
	}
	return a.Kernel.Difference(placed, labels...), nil
}

// FixtureLabels builds the target label on the clearest side face and the
// cut length on the opposite face.
func (a *Assembler) FixtureLabels(f *fixture.Fixture, sibs []*fixture.Fixture) ([]kernel.Solid, error) {
	m, ok := f.Mesh(fixture.Base)
	if !ok {
		return nil, fmt.Errorf("joint: %s has no %s mesh", f.Name(), fixture.Base)
	}
	mids := make([]r3.Vec, 0, len(sibs))
	for _, s := range sibs {
		if sm, ok := s.Mesh(fixture.Base); ok {
			mids = append(mids, sm.AbsoluteMidpoint())
		}
	}

	face, ok := label.FindClearFace(m, mids, a.Config.FixtureSize())
	if !ok {
		return nil, fmt.Errorf("joint: %s %s mesh has no faces", f.Name(), fixture.Base)
	}
	if nearest, ok := m.NearestFace(r3.Vec{}); ok && nearest.Index == face.Index {
		a.Logger.Info("no clear label face, using core side", zap.String("fixture", f.Name()))
	}
	target, err := a.engrave(f, face, f.Params.Label())
	if err != nil {
		return nil, err
	}
	out := []kernel.Solid{target}

	if opp, ok := label.OppositeFace(m, face); ok {
		cut, err := a.engrave(f, opp, f.CutLengthLabel())
		if err != nil {
			return nil, err
		}
		out = append(out, cut)
	}
	return out, nil
}

func (a *Assembler) engrave(f *fixture.Fixture, face mesh.Face, text string) (kernel.Solid, error) {
	p := label.FixtureParams(a.Config, strings.Split(text, "\n")...)
	s, err := label.Build(a.Kernel, p, face, f.Direction())
	if err != nil {
		return nil, fmt.Errorf("joint: %s label %q: %w", f.Name(), text, err)
	}
	return s, nil
}
