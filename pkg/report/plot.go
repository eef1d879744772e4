package report

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// angleBins splits 0-180° into 5° buckets.
const angleBins = 36

// PlotAngles saves a histogram of the sibling angles to path. The image
// format follows the file extension (png, svg, pdf, ...).
func (an *Analysis) PlotAngles(path string) error {
	if len(an.Angles) == 0 {
		return errors.New("report: no sibling angles to plot")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Sibling angles (%d joints)", an.Joints)
	p.X.Label.Text = "angle (degrees)"
	p.Y.Label.Text = "pairs"
	p.X.Min, p.X.Max = 0, 180

	h, err := plotter.NewHist(plotter.Values(an.Angles), angleBins)
	if err != nil {
		return fmt.Errorf("report: histogram: %w", err)
	}
	p.Add(h)

	// Mark the acute threshold.
	limit, err := plotter.NewLine(plotter.XYs{{X: an.Threshold, Y: 0}, {X: an.Threshold, Y: float64(len(an.Angles))}})
	if err != nil {
		return fmt.Errorf("report: threshold line: %w", err)
	}
	limit.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(limit)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}
