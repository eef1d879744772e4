package fixture

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/threedframe/pkg/geom"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// MeshType names one of the solids a fixture is analysed as.
type MeshType int

const (
	// Base is the solid outer prism with no channel.
	Base MeshType = iota
	// Hole is the channel the beam slides into.
	Hole
	// Shell is Base minus Hole, with fillets.
	Shell
)

func (t MeshType) String() string {
	switch t {
	case Base:
		return "BASE"
	case Hole:
		return "HOLE"
	case Shell:
		return "SHELL"
	default:
		return "MeshType(" + strconv.Itoa(int(t)) + ")"
	}
}

// MeshTypes returns every mesh type in declaration order.
func MeshTypes() []MeshType { return []MeshType{Base, Hole, Shell} }

// up orients fixture frames around their axis.
var up = r3.Vec{Z: 1}

// Fixture is one fixture of a joint. ExtrusionHeight grows during conflict
// resolution; the prism keeps its nominal length and slides outward.
type Fixture struct {
	Params          *Params
	ExtrusionHeight float64
	// Solid is the final, labelled solid set by the assembler.
	Solid kernel.Solid

	mu     sync.Mutex
	meshes map[MeshType]*mesh.Mesh
}

// New returns a fixture at its parameter height.
func New(p *Params) *Fixture {
	return &Fixture{
		Params:          p,
		ExtrusionHeight: p.ExtrusionHeight,
		meshes:          make(map[MeshType]*mesh.Mesh),
	}
}

// Name is the params name.
func (f *Fixture) Name() string { return f.Params.Name() }

func (f *Fixture) String() string {
	return fmt.Sprintf("Fixture(%s, h=%.2f)", f.Name(), f.ExtrusionHeight)
}

// Direction is the fixture axis, pointing away from the joint.
func (f *Fixture) Direction() r3.Vec { return f.Params.DirectionToOrigin }

// Offset is how far the fixture has been extended.
func (f *Fixture) Offset() float64 { return f.ExtrusionHeight - f.Params.ExtrusionHeight }

// Length is the prism length along the axis.
func (f *Fixture) Length() float64 { return f.Params.ExtrusionHeight }

// BasePoint is the centre of the core-side face.
func (f *Fixture) BasePoint() r3.Vec {
	return r3.Add(f.Params.Midpoint, r3.Scale(f.Offset(), f.Direction()))
}

// Frame is the placement frame: +Z along the axis, origin at BasePoint.
func (f *Fixture) Frame() geom.Frame {
	return geom.NewFrame(f.BasePoint(), f.Direction(), up)
}

// InnerCorners returns the four corners of the base end face, the square
// of side FixtureSize at BasePoint. They are taken from the frame so they
// do not depend on how finely a kernel meshes the box.
func (f *Fixture) InnerCorners() []r3.Vec {
	fr := f.Frame()
	h := f.Params.cfg.FixtureSize() / 2
	return []r3.Vec{
		fr.ToWorld(r3.Vec{X: -h, Y: -h}),
		fr.ToWorld(r3.Vec{X: h, Y: -h}),
		fr.ToWorld(r3.Vec{X: h, Y: h}),
		fr.ToWorld(r3.Vec{X: -h, Y: h}),
	}
}

// HoleLength is the depth of the beam channel.
func (f *Fixture) HoleLength() float64 {
	return f.Params.ExtrusionHeight - f.Params.cfg.FixtureShellThickness()
}

// PointAtDistance returns the point d along the axis from the midpoint,
// capped at the maximum available extrusion height.
func (f *Fixture) PointAtDistance(d float64) r3.Vec {
	d = math.Min(d, f.Params.MaxAvailExtrusionHeight)
	return r3.Add(f.Params.Midpoint, r3.Scale(d, f.Direction()))
}

// DistanceTo returns the distance between the two fixtures' points at
// height at, or at their own extrusion heights when at is nil.
func (f *Fixture) DistanceTo(other *Fixture, at *float64) float64 {
	h, oh := f.ExtrusionHeight, other.ExtrusionHeight
	if at != nil {
		h, oh = *at, *at
	}
	return geom.Distance(f.PointAtDistance(h), other.PointAtDistance(oh))
}

// AngleBetween is the angle between the two fixture axes in degrees.
func (f *Fixture) AngleBetween(other *Fixture) float64 {
	return geom.AngleBetween(f.Direction(), other.Direction())
}

// SupportEndpoint is where the beam end meets the stop wall.
func (f *Fixture) SupportEndpoint() r3.Vec {
	return f.PointAtDistance(f.ExtrusionHeight - f.HoleLength())
}

// TargetFaceEndpoint is the centre of the open outer end.
func (f *Fixture) TargetFaceEndpoint() r3.Vec {
	return f.PointAtDistance(f.ExtrusionHeight)
}

// FinalEdgeOffset is the distance from the midpoint to the stop wall.
func (f *Fixture) FinalEdgeOffset() float64 {
	return geom.Distance(f.Params.Midpoint, f.SupportEndpoint())
}

// FinalEdgeLength is the beam cut length in mm.
func (f *Fixture) FinalEdgeLength() float64 {
	return f.Params.AdjustedEdgeLength - f.FinalEdgeOffset()
}

// CutLengthInches is FinalEdgeLength in inches, rounded to 0.1.
func (f *Fixture) CutLengthInches() float64 {
	return math.Round(f.FinalEdgeLength()/geom.MillimetresPerInch*10) / 10
}

// CutLengthLabel formats CutLengthInches without a trailing ".0".
func (f *Fixture) CutLengthLabel() string {
	return strings.TrimSuffix(strconv.FormatFloat(f.CutLengthInches(), 'f', 1, 64), ".0")
}

// Fits reports whether the current height leaves room on the edge.
func (f *Fixture) Fits() bool { return f.Params.Fits(f.ExtrusionHeight) }

// Extend raises the extrusion height by delta and moves cached meshes with
// it. The fixture is unchanged when the new height would not fit.
func (f *Fixture) Extend(delta float64) error {
	next := f.ExtrusionHeight + delta
	if !f.Params.Fits(next) {
		return fmt.Errorf("%w: %s at %.2fmm (adjusted edge %.2fmm)",
			ErrHeightExceeded, f.Name(), next, f.Params.AdjustedEdgeLength)
	}
	f.ExtrusionHeight = next
	move := r3.Scale(delta, f.Direction())

	f.mu.Lock()
	for t, m := range f.meshes {
		f.meshes[t] = m.Translate(move)
	}
	f.mu.Unlock()
	f.Solid = nil
	return nil
}

// Mesh returns the cached mesh of type t.
func (f *Fixture) Mesh(t MeshType) (*mesh.Mesh, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meshes[t]
	return m, ok
}

// SetMesh stores a mesh computed at the current height.
func (f *Fixture) SetMesh(t MeshType, m *mesh.Mesh) {
	f.mu.Lock()
	f.meshes[t] = m
	f.mu.Unlock()
}

// ComputeMesh builds the placed solid of type t, meshes it and caches it.
// It is safe to call for different types concurrently.
func (f *Fixture) ComputeMesh(ctx context.Context, k kernel.Kernel, t MeshType) (*mesh.Mesh, error) {
	s, err := f.PlacedSolid(k, t)
	if err != nil {
		return nil, err
	}
	m, err := k.ToMesh(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("fixture: %s %s mesh: %w", f.Name(), t, err)
	}
	m.Name = f.Params.FileName() + "-" + strings.ToLower(t.String())
	f.SetMesh(t, m)
	return m, nil
}

// ComputeMeshes computes every requested mesh type in turn.
func (f *Fixture) ComputeMeshes(ctx context.Context, k kernel.Kernel, types ...MeshType) error {
	for _, t := range types {
		if _, err := f.ComputeMesh(ctx, k, t); err != nil {
			return err
		}
	}
	return nil
}
