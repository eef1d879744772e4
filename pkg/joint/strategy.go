package joint

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/threedframe/pkg/fixture"
	"github.com/chazu/threedframe/pkg/kernel"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Strategy decides how fixture solids are made and how the joint's parts
// are combined.
type Strategy interface {
	Name() string
	// CreateBase returns the fixture body in its local frame.
	CreateBase(a *Assembler, f *fixture.Fixture) (kernel.Solid, error)
	// Extrude turns the body into the finished local fixture.
	Extrude(a *Assembler, f *fixture.Fixture, base kernel.Solid) (kernel.Solid, error)
	// Transform places the local fixture at the joint.
	Transform(a *Assembler, f *fixture.Fixture, s kernel.Solid) (kernel.Solid, error)
	// Assemble combines core and fixture solids into the joint solid.
	Assemble(a *Assembler, j *Joint) (kernel.Solid, error)
}

// paramsSelector is implemented by strategies that build a subset of the
// vertex's fixtures.
type paramsSelector interface {
	selectParams(a *Assembler, all []*fixture.Params) ([]*fixture.Params, error)
}

// Strategy names.
const (
	StrategyStandard      = "standard"
	StrategyCoreOnly      = "core-only"
	StrategyLabelDebug    = "label-debug"
	StrategySingleFixture = "single-fixture"
	StrategyFixturesOnly  = "fixtures-only"
)

// StrategyNames lists every strategy ParseStrategy accepts.
func StrategyNames() []string {
	return []string{StrategyStandard, StrategyCoreOnly, StrategyLabelDebug, StrategySingleFixture, StrategyFixturesOnly}
}

// ParseStrategy returns the strategy with the given name. The empty name
// is the standard strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyStandard:
		return Standard{}, nil
	case StrategyCoreOnly:
		return CoreOnly{}, nil
	case StrategyLabelDebug:
		return LabelDebug{}, nil
	case StrategySingleFixture:
		return SingleFixture{}, nil
	case StrategyFixturesOnly:
		return FixturesOnly{}, nil
	default:
		return nil, fmt.Errorf("joint: unknown strategy %q (want one of %s)", name, strings.Join(StrategyNames(), ", "))
	}
}

// Standard builds the printable joint: hollow filleted fixtures with their
// channels cut through the core.
type Standard struct{}

func (Standard) Name() string { return StrategyStandard }

func (Standard) CreateBase(a *Assembler, f *fixture.Fixture) (kernel.Solid, error) {
	return f.LocalSolid(a.Kernel, fixture.Base)
}

func (Standard) Extrude(a *Assembler, f *fixture.Fixture, base kernel.Solid) (kernel.Solid, error) {
	hole, err := f.LocalSolid(a.Kernel, fixture.Hole)
	if err != nil {
		return nil, err
	}
	fillets, err := f.Fillets(a.Kernel)
	if err != nil {
		return nil, err
	}
	body := a.Kernel.Difference(base, hole)
	return a.Kernel.Union(append([]kernel.Solid{body}, fillets...)...), nil
}

func (Standard) Transform(a *Assembler, f *fixture.Fixture, s kernel.Solid) (kernel.Solid, error) {
	return f.Place(a.Kernel, s), nil
}

func (Standard) Assemble(a *Assembler, j *Joint) (kernel.Solid, error) {
	var parts []kernel.Solid
	if a.Flags.Has(BuildCore) && j.Core != nil {
		parts = append(parts, j.Core.Solid)
	}
	if a.Flags.Has(BuildFixtures) {
		for _, f := range j.Fixtures {
			parts = append(parts, f.Solid)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("joint %s: build flags %s select nothing", j.Vertex.Label, a.Flags)
	}
	out := a.Kernel.Union(parts...)
	if !a.Flags.Has(BuildFixtures) {
		return out, nil
	}
	// Keep every channel open into the core.
	holes := make([]kernel.Solid, 0, len(j.Fixtures))
	for _, f := range j.Fixtures {
		h, err := f.PlacedSolid(a.Kernel, fixture.Hole)
		if err != nil {
			return nil, err
		}
		holes = append(holes, h)
	}
	return a.Kernel.Difference(out, holes...), nil
}

// CoreOnly outputs the labelled core alone.
type CoreOnly struct{ Standard }

func (CoreOnly) Name() string { return StrategyCoreOnly }

func (CoreOnly) Assemble(a *Assembler, j *Joint) (kernel.Solid, error) {
	if j.Core == nil {
		return nil, fmt.Errorf("joint %s: core-only strategy without a core", j.Vertex.Label)
	}
	return j.Core.Solid, nil
}

// LabelDebug outputs solid fixture bodies with their labels, so label
// placement can be checked without the channels.
type LabelDebug struct{ Standard }

func (LabelDebug) Name() string { return StrategyLabelDebug }

func (LabelDebug) Extrude(_ *Assembler, _ *fixture.Fixture, base kernel.Solid) (kernel.Solid, error) {
	return base, nil
}

func (LabelDebug) Assemble(a *Assembler, j *Joint) (kernel.Solid, error) {
	parts := make([]kernel.Solid, len(j.Fixtures))
	for i, f := range j.Fixtures {
		parts[i] = f.Solid
	}
	return a.Kernel.Union(parts...), nil
}

// SingleFixture builds one fixture, named by cfg.Build.SingleFixture, with
// the core.
type SingleFixture struct{ Standard }

func (SingleFixture) Name() string { return StrategySingleFixture }

func (SingleFixture) selectParams(a *Assembler, all []*fixture.Params) ([]*fixture.Params, error) {
	if len(all) == 0 {
		return nil, nil
	}
	want := strings.ToUpper(strings.TrimSpace(a.Config.Build.SingleFixture))
	if want == "" {
		return all[:1], nil
	}
	for _, p := range all {
		if strings.ToUpper(p.Name()) == want || p.TargetLabel() == want {
			return []*fixture.Params{p}, nil
		}
	}
	return nil, fmt.Errorf("joint %s: no fixture named %q", a.Vertex.Label, a.Config.Build.SingleFixture)
}

// FixturesOnly outputs the fixtures in distinct colours, without the core.
type FixturesOnly struct{ Standard }

func (FixturesOnly) Name() string { return StrategyFixturesOnly }

func (FixturesOnly) Assemble(a *Assembler, j *Joint) (kernel.Solid, error) {
	colors := Palette(len(j.Fixtures))
	parts := make([]kernel.Solid, len(j.Fixtures))
	for i, f := range j.Fixtures {
		parts[i] = a.Kernel.Color(f.Solid, colors[i])
	}
	return a.Kernel.Union(parts...), nil
}

// goldenAngle spreads consecutive hues as far apart as possible.
const goldenAngle = 137.50776405003785

// Palette returns n distinct, deterministic hex colours.
func Palette(n int) []string {
	out := make([]string, n)
	for i := range out {
		hue := math.Mod(float64(i)*goldenAngle, 360)
		out[i] = colorful.Hsv(hue, 0.65, 0.9).Hex()
	}
	return out
}
