// Package label chooses faces for engraved labels and builds the label
// solids.
package label

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/geom"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Params describes one label.
type Params struct {
	Content []string
	Halign  string
	Valign  string
	Depth   float64
	Size    float64
	Width   float64
	Center  bool
}

// DefaultParams returns centred label params sized from cfg.
func DefaultParams(cfg *config.Config, content ...string) Params {
	return Params{
		Content: content,
		Halign:  "center",
		Valign:  "center",
		Depth:   cfg.Frame.LabelDepth,
		Size:    cfg.LabelSize(),
		Width:   cfg.LabelWidth(),
		Center:  true,
	}
}

// FixtureParams returns label params for a fixture wall. The engraving is
// kept to half the side wall so it never breaks into the channel.
func FixtureParams(cfg *config.Config, content ...string) Params {
	p := DefaultParams(cfg, content...)
	wall := (cfg.FixtureSize() - cfg.FixtureHoleSize()) / 2
	p.Depth = math.Min(p.Depth, wall/2)
	return p
}

// Text returns the content joined by newlines.
func (p Params) Text() string { return strings.Join(p.Content, "\n") }

// FindClearFace picks the face of target to engrave. The candidate starts
// as the face nearest the joint origin; the first face that is larger than
// both the candidate and the smallest face (rounded up), and whose
// centroid is farther than clearance in taxicab distance from every
// sibling midpoint, replaces it. The fallback is the face nearest the
// origin.
func FindClearFace(target *mesh.Mesh, siblings []r3.Vec, clearance float64) (mesh.Face, bool) {
	best, ok := target.NearestFace(geom.Origin)
	if !ok {
		return mesh.Face{}, false
	}
	faces := target.Faces()
	smallest := math.Inf(1)
	for _, f := range faces {
		smallest = math.Min(smallest, f.Area)
	}
	minArea := math.Ceil(smallest)

	for _, f := range faces {
		if f.Area <= best.Area || f.Area <= minArea {
			continue
		}
		if clear(f.Centroid, siblings, clearance) {
			return f, true
		}
	}
	return best, true
}

func clear(p r3.Vec, siblings []r3.Vec, clearance float64) bool {
	for _, s := range siblings {
		if geom.Taxicab(p, s) <= clearance {
			return false
		}
	}
	return true
}

// OppositeFace returns the face whose normal is most anti-parallel to f.
func OppositeFace(m *mesh.Mesh, f mesh.Face) (mesh.Face, bool) {
	var out mesh.Face
	found := false
	best := math.Inf(1)
	for _, g := range m.Faces() {
		if g.Index == f.Index {
			continue
		}
		d := r3.Dot(g.Normal, f.Normal)
		// Prefer the larger face among equally opposed ones.
		if d < best-1e-9 || (math.Abs(d-best) <= 1e-9 && g.Area > out.Area) {
			out, best, found = g, d, true
		}
	}
	if !found || best >= 0 {
		return mesh.Face{}, false
	}
	return out, true
}

// LargestClearFace returns the largest face whose centre is farther than
// clearance from every point in avoid, or the largest face when none is.
func LargestClearFace(m *mesh.Mesh, avoid []r3.Vec, clearance float64) (mesh.Face, bool) {
	faces := append([]mesh.Face(nil), m.Faces()...)
	if len(faces) == 0 {
		return mesh.Face{}, false
	}
	sort.SliceStable(faces, func(i, j int) bool { return faces[i].Area > faces[j].Area })
	for _, f := range faces {
		c := f.Center()
		ok := true
		for _, p := range avoid {
			if geom.Distance(c, p) <= clearance {
				ok = false
				break
			}
		}
		if ok {
			return f, true
		}
	}
	return faces[0], true
}

// overcut lifts the engraving slightly above the face for a clean cut.
const overcut = 0.1

// Frame returns the placement frame for a label engraved depth deep into
// face. +Z is the face normal so text reads correctly from outside; the
// origin sits depth below the face centre.
func Frame(face mesh.Face, up r3.Vec, depth float64) geom.Frame {
	origin := r3.Sub(face.Center(), r3.Scale(depth, face.Normal))
	return geom.NewFrame(origin, face.Normal, up)
}

// Build returns the label solid placed on face, ready to be subtracted.
func Build(k kernel.Kernel, p Params, face mesh.Face, up r3.Vec) (kernel.Solid, error) {
	text, err := k.Text(kernel.TextSpec{
		Lines: p.Content,
		Size:  p.Size,
		Width: p.Width,
		Depth: p.Depth + overcut,
	})
	if err != nil {
		return nil, fmt.Errorf("label: %q: %w", p.Text(), err)
	}
	if !p.Center {
		// Text sits on the face instead of straddling its centre line.
		text = k.Translate(text, 0, p.Size/2, 0)
	}
	return k.Place(text, Frame(face, up, p.Depth)), nil
}
