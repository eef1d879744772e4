// Package report produces the diagnostic views of a frame model: the
// per-joint fixture tree of inspect and the acute sibling-angle table and
// histogram of analyze.
package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/fixture"
	"github.com/chazu/threedframe/pkg/joint"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/model"
	"go.uber.org/zap"
)

// DefaultAcuteAngle is the sibling angle, in degrees, at or below which
// fixtures are flagged.
const DefaultAcuteAngle = 30.0

// FixtureSummary is the printable state of one fixture.
type FixtureSummary struct {
	Name               string
	Source, Target     string
	ExtrusionHeight    float64
	AdjustedEdgeLength float64
	CutLength          float64 // mm
	CutLabel           string  // inches
}

// SiblingAngle is the angle between a fixture and one of its siblings.
type SiblingAngle struct {
	Target string
	Angle  float64
	Acute  bool
}

// FixtureReport pairs a fixture with the fixture at the far end of its
// edge and the angles to its siblings.
type FixtureReport struct {
	FixtureSummary
	Counterpart *FixtureSummary // nil when the far joint has no fixture back
	Siblings    []SiblingAngle
}

// JointReport is the inspect view of one joint.
type JointReport struct {
	Label    string
	Vidx     int
	Resolved bool // heights are after conflict resolution
	Fixtures []FixtureReport
}

// Inspector builds joint reports. With a nil Kernel the fixtures keep
// their nominal heights; otherwise conflicts are resolved first.
type Inspector struct {
	Kernel     kernel.Kernel
	Config     *config.Config
	Logger     *zap.Logger
	AcuteAngle float64
}

func (in *Inspector) logger() *zap.Logger {
	if in.Logger == nil {
		return zap.NewNop()
	}
	return in.Logger
}

func (in *Inspector) acute() float64 {
	if in.AcuteAngle > 0 {
		return in.AcuteAngle
	}
	return DefaultAcuteAngle
}

func (in *Inspector) fixtures(ctx context.Context, m *model.ModelData, v *model.ModelVertex) ([]*fixture.Fixture, error) {
	a, err := joint.NewAssembler(in.Kernel, in.Config, m, v,
		joint.WithLogger(in.logger()),
		joint.WithStrategy(joint.Standard{}))
	if err != nil {
		return nil, err
	}
	if in.Kernel == nil {
		return a.NewFixtures()
	}
	return a.ConstructFixtures(ctx)
}

// Inspect reports the joint named by vertex (a label or index) together
// with the matching fixtures of its neighbouring joints.
func (in *Inspector) Inspect(ctx context.Context, m *model.ModelData, vertex string) (*JointReport, error) {
	verts, err := model.ParseVertexSelection(m, []string{vertex})
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	if len(verts) != 1 {
		return nil, fmt.Errorf("report: %q selects %d vertices, want one", vertex, len(verts))
	}
	root := verts[0]

	family := []*model.ModelVertex{root}
	for _, e := range root.JointEdges() {
		t, err := m.EdgeTarget(e)
		if err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
		family = append(family, t)
	}
	if err := model.ResolveEdgeRelations(m, family); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	built := make(map[string][]*fixture.Fixture, len(family))
	for _, v := range family {
		if _, ok := built[v.Label]; ok {
			continue
		}
		fs, err := in.fixtures(ctx, m, v)
		if err != nil {
			return nil, fmt.Errorf("report: joint %s: %w", v.Label, err)
		}
		built[v.Label] = fs
	}

	r := &JointReport{Label: root.Label, Vidx: root.Vidx, Resolved: in.Kernel != nil}
	rootFixtures := built[root.Label]
	for _, f := range rootFixtures {
		fr := FixtureReport{FixtureSummary: summarize(f)}
		for _, back := range built[f.Params.TargetLabel()] {
			if back.Params.TargetLabel() == root.Label {
				s := summarize(back)
				fr.Counterpart = &s
				break
			}
		}
		for _, sib := range rootFixtures {
			if sib == f {
				continue
			}
			angle := round2(f.AngleBetween(sib))
			fr.Siblings = append(fr.Siblings, SiblingAngle{
				Target: sib.Params.TargetLabel(),
				Angle:  angle,
				Acute:  angle <= in.acute(),
			})
		}
		r.Fixtures = append(r.Fixtures, fr)
	}
	return r, nil
}

func summarize(f *fixture.Fixture) FixtureSummary {
	return FixtureSummary{
		Name:               f.Name(),
		Source:             f.Params.SourceLabel(),
		Target:             f.Params.TargetLabel(),
		ExtrusionHeight:    f.ExtrusionHeight,
		AdjustedEdgeLength: f.Params.AdjustedEdgeLength,
		CutLength:          f.FinalEdgeLength(),
		CutLabel:           f.CutLengthLabel(),
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (s FixtureSummary) line() string {
	return fmt.Sprintf("%s  ext. height %.2f  cut length %s (%.2f)", s.Name, s.ExtrusionHeight, s.CutLabel, s.CutLength)
}

// WriteTree prints r as an indented tree.
func WriteTree(w io.Writer, r *JointReport) error {
	root := &treeNode{text: "Joint " + r.Label}
	fixtures := root.add("Fixtures")
	for _, f := range r.Fixtures {
		fn := fixtures.add(f.Name)
		edge := fn.add(fmt.Sprintf("From %s -> %s", f.Source, f.Target))
		edge.add(f.line())
		if f.Counterpart != nil {
			edge.add(f.Counterpart.line())
		}
		sibs := fn.add("Fixture Siblings")
		for _, s := range f.Siblings {
			text := fmt.Sprintf("%s  %.2f", s.Target, s.Angle)
			if s.Acute {
				text += "  (!) acute"
			}
			sibs.add(text)
		}
	}
	var b strings.Builder
	root.write(&b, "", "")
	_, err := io.WriteString(w, b.String())
	return err
}

type treeNode struct {
	text     string
	children []*treeNode
}

func (n *treeNode) add(text string) *treeNode {
	c := &treeNode{text: text}
	n.children = append(n.children, c)
	return c
}

func (n *treeNode) write(b *strings.Builder, lead, indent string) {
	b.WriteString(lead + n.text + "\n")
	for i, c := range n.children {
		if i == len(n.children)-1 {
			c.write(b, indent+"└── ", indent+"    ")
		} else {
			c.write(b, indent+"├── ", indent+"│   ")
		}
	}
}
