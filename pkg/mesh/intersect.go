package mesh

import (
	"math"

	"github.com/chazu/threedframe/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// maxGridCells bounds the broad-phase grid along each axis.
const maxGridCells = 64

// Intersects reports whether any triangle of m crosses any triangle of
// other. Only surfaces are tested: a mesh wholly inside the other does not
// intersect it. Coplanar touching triangles are not reported.
func (m *Mesh) Intersects(other *Mesh) bool {
	if m.IsEmpty() || other.IsEmpty() {
		return false
	}
	const slack = 1e-9
	if !geom.BoxesOverlap(m.bounds, other.bounds, slack) {
		return false
	}
	region := r3.Box{
		Min: r3.Vec{
			X: math.Max(m.bounds.Min.X, other.bounds.Min.X) - slack,
			Y: math.Max(m.bounds.Min.Y, other.bounds.Min.Y) - slack,
			Z: math.Max(m.bounds.Min.Z, other.bounds.Min.Z) - slack,
		},
		Max: r3.Vec{
			X: math.Min(m.bounds.Max.X, other.bounds.Max.X) + slack,
			Y: math.Min(m.bounds.Max.Y, other.bounds.Max.Y) + slack,
			Z: math.Min(m.bounds.Max.Z, other.bounds.Max.Z) + slack,
		},
	}

	g := newGrid(region, other)
	stamp := make([]int, other.TriangleCount())
	for i := 0; i < m.TriangleCount(); i++ {
		a := m.Triangle(i)
		box := triBounds(a)
		if !geom.BoxesOverlap(box, region, 0) {
			continue
		}
		hit := false
		g.visit(box, func(j int) bool {
			if stamp[j] == i+1 {
				return true
			}
			stamp[j] = i + 1
			if trianglesIntersect(a, other.Triangle(j)) {
				hit = true
				return false
			}
			return true
		})
		if hit {
			return true
		}
	}
	return false
}

// grid is a uniform spatial hash of triangle indices.
type grid struct {
	origin r3.Vec
	cell   float64
	dims   [3]int
	cells  map[[3]int][]int
}

func newGrid(region r3.Box, m *Mesh) *grid {
	size := r3.Sub(region.Max, region.Min)
	longest := math.Max(size.X, math.Max(size.Y, size.Z))

	// Cells roughly the size of an average triangle, capped in count.
	var extent float64
	for i := 0; i < m.TriangleCount(); i++ {
		b := triBounds(m.Triangle(i))
		d := r3.Sub(b.Max, b.Min)
		extent += math.Max(d.X, math.Max(d.Y, d.Z))
	}
	extent /= float64(m.TriangleCount())
	cell := math.Max(extent, longest/maxGridCells)
	if cell <= 0 {
		cell = 1
	}

	g := &grid{origin: region.Min, cell: cell, cells: make(map[[3]int][]int)}
	for k, v := range []float64{size.X, size.Y, size.Z} {
		g.dims[k] = int(math.Floor(v/cell)) + 1
	}
	for i := 0; i < m.TriangleCount(); i++ {
		b := triBounds(m.Triangle(i))
		if !geom.BoxesOverlap(b, region, 0) {
			continue
		}
		lo, hi := g.span(b)
		for x := lo[0]; x <= hi[0]; x++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for z := lo[2]; z <= hi[2]; z++ {
					k := [3]int{x, y, z}
					g.cells[k] = append(g.cells[k], i)
				}
			}
		}
	}
	return g
}

func (g *grid) span(b r3.Box) (lo, hi [3]int) {
	from := r3.Sub(b.Min, g.origin)
	to := r3.Sub(b.Max, g.origin)
	clamp := func(v float64, axis int) int {
		c := int(math.Floor(v / g.cell))
		if c < 0 {
			return 0
		}
		if c >= g.dims[axis] {
			return g.dims[axis] - 1
		}
		return c
	}
	lo = [3]int{clamp(from.X, 0), clamp(from.Y, 1), clamp(from.Z, 2)}
	hi = [3]int{clamp(to.X, 0), clamp(to.Y, 1), clamp(to.Z, 2)}
	return lo, hi
}

// visit calls fn for every triangle binned in a cell overlapping b until
// fn returns false.
func (g *grid) visit(b r3.Box, fn func(int) bool) {
	lo, hi := g.span(b)
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				for _, j := range g.cells[[3]int{x, y, z}] {
					if !fn(j) {
						return
					}
				}
			}
		}
	}
}

func triBounds(t r3.Triangle) r3.Box {
	return geom.BoundsOf(t[:])
}

// trianglesIntersect reports whether two triangles cross: an edge of one
// pierces the other.
func trianglesIntersect(a, b r3.Triangle) bool {
	for k := 0; k < 3; k++ {
		if segmentHitsTriangle(a[k], a[(k+1)%3], b) || segmentHitsTriangle(b[k], b[(k+1)%3], a) {
			return true
		}
	}
	return false
}

// segmentHitsTriangle is Möller–Trumbore restricted to the segment pq.
func segmentHitsTriangle(p, q r3.Vec, t r3.Triangle) bool {
	d := r3.Sub(q, p)
	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	h := r3.Cross(d, e2)
	a := r3.Dot(e1, h)
	if math.Abs(a) < 1e-14*r3.Norm(d)*r3.Norm(e1)*r3.Norm(e2) {
		return false
	}
	f := 1 / a
	s := r3.Sub(p, t[0])
	u := f * r3.Dot(s, h)
	if u < 0 || u > 1 {
		return false
	}
	qv := r3.Cross(s, e1)
	v := f * r3.Dot(d, qv)
	if v < 0 || u+v > 1 {
		return false
	}
	w := f * r3.Dot(e2, qv)
	return w >= 0 && w <= 1
}
