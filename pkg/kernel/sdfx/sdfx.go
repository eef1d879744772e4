// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. Meshing runs in process
// with marching cubes, so no external renderer is needed.
package sdfx

import (
	"context"
	"fmt"
	"math"

	"github.com/chazu/threedframe/pkg/geom"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/mesh"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 120

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
	font  *truetype.Font
	log   *zap.Logger
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution along the longest axis.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.cells = n
		}
	}
}

// WithFont sets the label font.
func WithFont(f *truetype.Font) Option {
	return func(k *SdfxKernel) { k.font = f }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(k *SdfxKernel) {
		if log != nil {
			k.log = log
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{cells: DefaultMeshCells, log: zap.NewNop()}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Name returns "sdfx".
func (k *SdfxKernel) Name() string { return "sdfx" }

// MeshCells returns the marching cubes resolution.
func (k *SdfxKernel) MeshCells() int { return k.cells }

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

func vec(v r3.Vec) v3.Vec { return v3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// Box creates a box with the given dimensions. The resulting solid has its
// minimum corner at the origin (0,0,0).
// sdf.Box3D centers the box at the origin, so we translate by half-dimensions.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	// Shift from center-origin to min-corner-origin.
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return wrap(sdf.Transform3D(s, m))
}

// Hull creates the convex hull of points.
func (k *SdfxKernel) Hull(points []r3.Vec) (kernel.Solid, error) {
	h, err := geom.ConvexHull(points)
	if err != nil {
		return nil, fmt.Errorf("sdfx: hull: %w", err)
	}
	return wrap(newHull(h)), nil
}

// Union returns the union of the solids.
func (k *SdfxKernel) Union(solids ...kernel.Solid) kernel.Solid {
	parts := make([]sdf.SDF3, len(solids))
	for i, s := range solids {
		parts[i] = unwrap(s)
	}
	if len(parts) == 1 {
		return wrap(parts[0])
	}
	return wrap(sdf.Union3D(parts...))
}

// Difference returns a minus every solid in b.
func (k *SdfxKernel) Difference(a kernel.Solid, b ...kernel.Solid) kernel.Solid {
	if len(b) == 0 {
		return a
	}
	cut := k.Union(b...)
	return wrap(sdf.Difference3D(unwrap(a), unwrap(cut)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.RotateZ(geom.DegToRad(z)).Mul(sdf.RotateY(geom.DegToRad(y))).Mul(sdf.RotateX(geom.DegToRad(x)))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Place maps the solid's local axes onto f.
func (k *SdfxKernel) Place(s kernel.Solid, f geom.Frame) kernel.Solid {
	alpha, beta, gamma := f.EulerZYZ()
	m := sdf.Translate3d(vec(f.Origin)).
		Mul(sdf.RotateZ(alpha)).
		Mul(sdf.RotateY(beta)).
		Mul(sdf.RotateZ(gamma))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Color is a no-op: signed distance fields carry no appearance.
func (k *SdfxKernel) Color(s kernel.Solid, hex string) kernel.Solid {
	return s
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(ctx context.Context, s kernel.Solid) (*mesh.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(sdf3, renderer)

	tris := make([]r3.Triangle, 0, len(triangles))
	for _, tri := range triangles {
		var t r3.Triangle
		for j := 0; j < 3; j++ {
			v := tri[j]
			t[j] = r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
		}
		tris = append(tris, t)
	}
	m := mesh.FromTriangles(tris)
	if m.IsEmpty() {
		return nil, fmt.Errorf("sdfx: marching cubes produced no triangles (%d cells)", k.cells)
	}
	k.log.Debug("meshed solid", zap.Int("cells", k.cells), zap.Int("triangles", m.TriangleCount()))
	return m, nil
}

// hullSDF is the signed distance of a convex polytope: the largest plane
// distance over its faces. It is exact inside and near faces and a lower
// bound elsewhere, which is enough for marching cubes.
type hullSDF struct {
	hull *geom.Hull
	bb   sdf.Box3
}

func newHull(h *geom.Hull) *hullSDF {
	verts, _ := h.Vertices()
	b := geom.BoundsOf(verts)
	return &hullSDF{hull: h, bb: sdf.Box3{Min: vec(b.Min), Max: vec(b.Max)}}
}

func (h *hullSDF) Evaluate(p v3.Vec) float64 {
	d := h.hull.SignedDistance(r3.Vec{X: p.X, Y: p.Y, Z: p.Z})
	if math.IsInf(d, 0) {
		return math.MaxFloat64
	}
	return d
}

func (h *hullSDF) BoundingBox() sdf.Box3 {
	return h.bb
}
