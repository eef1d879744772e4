package report

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/fixture"
	"github.com/chazu/threedframe/pkg/joint"
	"github.com/chazu/threedframe/pkg/model"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AngleRow is one sibling pair at or below the acute threshold.
type AngleRow struct {
	Joint   string
	Source  string
	Sibling string
	Angle   float64
}

// Analysis is the acute-angle survey of a whole model.
type Analysis struct {
	Threshold float64
	Joints    int
	Rows      []AngleRow
	Angles    []float64 // every sibling pair, once
	Skipped   []string  // joints whose fixtures could not be derived
}

// Summary holds statistics over every sibling angle.
type Summary struct {
	Count        int
	Mean, StdDev float64
	Min, Max     float64
}

// Analyze derives the nominal fixtures of every joint and collects the
// angle of each sibling pair. Joints whose edges are too short for a
// fixture are skipped with a warning.
func Analyze(cfg *config.Config, m *model.ModelData, threshold float64, log *zap.Logger) (*Analysis, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = DefaultAcuteAngle
	}
	verts := m.SortedVertices()
	if err := model.ResolveEdgeRelations(m, verts); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	an := &Analysis{Threshold: threshold}
	for _, v := range verts {
		a, err := joint.NewAssembler(nil, cfg, m, v, joint.WithLogger(log), joint.WithStrategy(joint.Standard{}))
		if err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
		fixtures, err := a.NewFixtures()
		if errors.Is(err, fixture.ErrEdgeTooShort) {
			log.Warn("skipping joint", zap.String("joint", v.Label), zap.Error(err))
			an.Skipped = append(an.Skipped, v.Label)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("report: joint %s: %w", v.Label, err)
		}
		an.Joints++
		for i, f := range fixtures {
			for _, sib := range fixtures[i+1:] {
				angle := round2(f.AngleBetween(sib))
				an.Angles = append(an.Angles, angle)
				if angle <= threshold {
					an.Rows = append(an.Rows, AngleRow{
						Joint:   v.Label,
						Source:  f.Params.TargetLabel(),
						Sibling: sib.Params.TargetLabel(),
						Angle:   angle,
					})
				}
			}
		}
	}
	return an, nil
}

// Summary returns statistics over every sibling angle.
func (an *Analysis) Summary() Summary {
	if len(an.Angles) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(an.Angles, nil)
	return Summary{
		Count:  len(an.Angles),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(an.Angles),
		Max:    floats.Max(an.Angles),
	}
}

// WriteTable prints the acute pairs followed by the angle summary.
func (an *Analysis) WriteTable(w io.Writer) error {
	if len(an.Rows) == 0 {
		fmt.Fprintf(w, "No sibling angles at or below %.0f° in %d joints.\n", an.Threshold, an.Joints)
	} else {
		fmt.Fprintf(w, "Invalid Joints (sibling angle <= %.0f°)\n", an.Threshold)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Joint\tSource Fix.\tSibling Fix.\tAngle Bet.\t")
		for _, r := range an.Rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t\n", r.Joint, r.Source, r.Sibling, r.Angle)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(an.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped joints: %v\n", an.Skipped)
	}
	s := an.Summary()
	_, err := fmt.Fprintf(w, "Sibling angles: n=%d mean=%.2f stddev=%.2f min=%.2f max=%.2f\n",
		s.Count, s.Mean, s.StdDev, s.Min, s.Max)
	return err
}
