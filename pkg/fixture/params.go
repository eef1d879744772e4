// Package fixture computes the geometry of one fixture: the hollow square
// prism that holds a beam end at a joint.
package fixture

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/geom"
	"github.com/chazu/threedframe/pkg/model"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrEdgeTooShort is returned when an edge has no room for a fixture
	// even after clamping.
	ErrEdgeTooShort = errors.New("fixture: edge too short")
	// ErrHeightExceeded is returned by Extend when two facing fixtures on
	// the same edge would meet.
	ErrHeightExceeded = errors.New("fixture: extrusion height exceeds available edge")
	// ErrUnresolvedEdge is returned for edges whose vertex references have
	// not been resolved.
	ErrUnresolvedEdge = errors.New("fixture: edge relations not resolved")
)

// Params is the computed view of one (vertex, edge) pair.
type Params struct {
	Edge   *model.ModelEdge
	Vertex *model.ModelVertex
	Target *model.ModelVertex

	// DirectionToOrigin points from the joint toward the edge target.
	DirectionToOrigin r3.Vec
	// Midpoint is the centre of the core-side face, ExtrusionHeight/3 out
	// from the joint.
	Midpoint                r3.Vec
	AdjustedEdgeLength      float64
	ExtrusionHeight         float64
	MaxAvailExtrusionHeight float64
	// Clamped is set when the nominal length did not fit the edge.
	Clamped bool

	cfg *config.Config
}

// NewParams derives fixture parameters for edge e of vertex v. The edge
// must have been resolved with model.ResolveEdgeRelations.
func NewParams(cfg *config.Config, v *model.ModelVertex, e *model.ModelEdge, log *zap.Logger) (*Params, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if e.JointVertex == nil || e.TargetVertex == nil {
		return nil, fmt.Errorf("%w: edge %d of vertex %d", ErrUnresolvedEdge, e.Eidx, v.Vidx)
	}
	source := r3.Scale(geom.MillimetresPerInch, e.VectorIngress)
	if r3.Norm(source) == 0 {
		return nil, fmt.Errorf("fixture: edge %d of vertex %s has a zero ingress vector", e.Eidx, v.Label)
	}
	p := &Params{
		Edge:              e,
		Vertex:            v,
		Target:            e.TargetVertex,
		DirectionToOrigin: r3.Unit(source),
		cfg:               cfg,
	}

	nominal := cfg.FixtureLength()
	height := nominal
	adjustedNominal := e.Length - 2*nominal/3
	if 2*nominal >= adjustedNominal {
		height = adjustedNominal/2 - cfg.Frame.EdgeBuffer
		p.Clamped = true
		log.Warn("fixture length clamped to fit edge",
			zap.String("fixture", p.Name()),
			zap.Float64("edge_mm", e.Length),
			zap.Float64("nominal_mm", nominal),
			zap.Float64("clamped_mm", height))
	}
	if height <= 0 {
		return nil, fmt.Errorf("%w: %s is %.2fmm long", ErrEdgeTooShort, p.Name(), e.Length)
	}

	p.ExtrusionHeight = height
	p.Midpoint = r3.Scale(height/3, p.DirectionToOrigin)
	p.AdjustedEdgeLength = e.Length - 2*r3.Norm(p.Midpoint)
	p.MaxAvailExtrusionHeight = p.AdjustedEdgeLength / 2
	return p, nil
}

// Config returns the configuration the params were derived from.
func (p *Params) Config() *config.Config { return p.cfg }

// SourceLabel is the label of the joint vertex.
func (p *Params) SourceLabel() string { return p.Vertex.Label }

// TargetLabel is the label of the vertex at the other end of the edge.
func (p *Params) TargetLabel() string { return p.Target.Label }

// Name is "<source>@<target>", unique within a joint.
func (p *Params) Name() string {
	return p.SourceLabel() + "@" + p.TargetLabel()
}

// FileName is "<source>-<target>" in lower case.
func (p *Params) FileName() string {
	return strings.ToLower(p.SourceLabel() + "-" + p.TargetLabel())
}

// Label is the text engraved on the fixture: the vertex the beam leads to.
func (p *Params) Label() string { return p.TargetLabel() }

// DistanceToOrigin is the distance from the joint to the core-side face.
func (p *Params) DistanceToOrigin() float64 { return r3.Norm(p.Midpoint) }

// Fits reports whether a fixture of the given height leaves room for the
// fixture at the other end of the edge.
func (p *Params) Fits(height float64) bool {
	return 2*height < p.AdjustedEdgeLength && !math.IsNaN(height)
}
