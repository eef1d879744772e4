package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerateHull is returned when the input points span no volume.
var ErrDegenerateHull = errors.New("geom: degenerate hull (points are coplanar or collinear)")

// HullFace is a triangular hull facet. Indices are counter-clockwise seen
// from outside; Normal points outward and Offset is Normal·p for any point
// p on the facet plane.
type HullFace struct {
	Indices [3]int
	Normal  r3.Vec
	Offset  float64
}

// Hull is a closed convex polytope over a set of points.
type Hull struct {
	Points []r3.Vec
	Faces  []HullFace
}

type hullEdge struct{ a, b int }

// ConvexHull computes the 3D convex hull of points with an incremental
// algorithm: start from a tetrahedron, then for every outside point drop
// the faces it can see and stitch the horizon to it.
func ConvexHull(points []r3.Vec) (*Hull, error) {
	pts := dedupePoints(points)
	if len(pts) < 4 {
		return nil, fmt.Errorf("%w: %d distinct points", ErrDegenerateHull, len(pts))
	}
	eps := hullEpsilon(pts)

	seed, err := initialSimplex(pts, eps)
	if err != nil {
		return nil, err
	}
	interior := Barycenter(pts[seed[0]], pts[seed[1]], pts[seed[2]], pts[seed[3]])

	h := &Hull{Points: pts}
	tri := [4][3]int{
		{seed[0], seed[1], seed[2]},
		{seed[0], seed[2], seed[3]},
		{seed[0], seed[3], seed[1]},
		{seed[1], seed[3], seed[2]},
	}
	for _, t := range tri {
		h.Faces = append(h.Faces, orientedFace(pts, t, interior))
	}

	used := map[int]bool{seed[0]: true, seed[1]: true, seed[2]: true, seed[3]: true}
	for i, p := range pts {
		if used[i] {
			continue
		}
		var visible []int
		for fi, f := range h.Faces {
			if r3.Dot(f.Normal, p)-f.Offset > eps {
				visible = append(visible, fi)
			}
		}
		if len(visible) == 0 {
			continue
		}

		// Directed edges of visible faces; a horizon edge has no reverse
		// twin among them.
		directed := make(map[hullEdge]bool)
		for _, fi := range visible {
			ix := h.Faces[fi].Indices
			for k := 0; k < 3; k++ {
				directed[hullEdge{ix[k], ix[(k+1)%3]}] = true
			}
		}
		var horizon []hullEdge
		for _, fi := range visible {
			ix := h.Faces[fi].Indices
			for k := 0; k < 3; k++ {
				e := hullEdge{ix[k], ix[(k+1)%3]}
				if !directed[hullEdge{e.b, e.a}] {
					horizon = append(horizon, e)
				}
			}
		}

		drop := make(map[int]bool, len(visible))
		for _, fi := range visible {
			drop[fi] = true
		}
		kept := h.Faces[:0:0]
		for fi, f := range h.Faces {
			if !drop[fi] {
				kept = append(kept, f)
			}
		}
		for _, e := range horizon {
			kept = append(kept, newFace(pts, [3]int{e.a, e.b, i}))
		}
		h.Faces = kept
		used[i] = true
	}
	return h, nil
}

// Contains reports whether p lies inside or on the hull within tol.
func (h *Hull) Contains(p r3.Vec, tol float64) bool {
	for _, f := range h.Faces {
		if r3.Dot(f.Normal, p)-f.Offset > tol {
			return false
		}
	}
	return true
}

// SignedDistance returns the maximum plane distance of p over all faces.
// It is negative inside the hull and a lower bound of the true distance
// outside it.
func (h *Hull) SignedDistance(p r3.Vec) float64 {
	d := math.Inf(-1)
	for _, f := range h.Faces {
		d = math.Max(d, r3.Dot(f.Normal, p)-f.Offset)
	}
	return d
}

// Vertices returns the points referenced by at least one face, in input
// order, together with a remapping from input index to output index.
func (h *Hull) Vertices() ([]r3.Vec, map[int]int) {
	ref := make(map[int]bool)
	for _, f := range h.Faces {
		for _, ix := range f.Indices {
			ref[ix] = true
		}
	}
	var out []r3.Vec
	remap := make(map[int]int, len(ref))
	for i, p := range h.Points {
		if ref[i] {
			remap[i] = len(out)
			out = append(out, p)
		}
	}
	return out, remap
}

func newFace(pts []r3.Vec, ix [3]int) HullFace {
	n := r3.Unit(r3.Cross(r3.Sub(pts[ix[1]], pts[ix[0]]), r3.Sub(pts[ix[2]], pts[ix[0]])))
	return HullFace{Indices: ix, Normal: n, Offset: r3.Dot(n, pts[ix[0]])}
}

// orientedFace builds a face whose normal points away from interior.
func orientedFace(pts []r3.Vec, ix [3]int, interior r3.Vec) HullFace {
	f := newFace(pts, ix)
	if r3.Dot(f.Normal, interior)-f.Offset > 0 {
		ix[1], ix[2] = ix[2], ix[1]
		f = newFace(pts, ix)
	}
	return f
}

func initialSimplex(pts []r3.Vec, eps float64) ([4]int, error) {
	var s [4]int
	far := func(score func(r3.Vec) float64) (int, float64) {
		best, bestD := -1, -1.0
		for i, p := range pts {
			if d := score(p); d > bestD {
				best, bestD = i, d
			}
		}
		return best, bestD
	}

	s[0] = 0
	var d float64
	s[1], d = far(func(p r3.Vec) float64 { return Distance(p, pts[s[0]]) })
	if d <= eps {
		return s, fmt.Errorf("%w: all points coincide", ErrDegenerateHull)
	}
	axis := r3.Unit(r3.Sub(pts[s[1]], pts[s[0]]))
	s[2], d = far(func(p r3.Vec) float64 {
		v := r3.Sub(p, pts[s[0]])
		return r3.Norm(r3.Sub(v, r3.Scale(r3.Dot(v, axis), axis)))
	})
	if d <= eps {
		return s, fmt.Errorf("%w: points are collinear", ErrDegenerateHull)
	}
	n := r3.Unit(r3.Cross(r3.Sub(pts[s[1]], pts[s[0]]), r3.Sub(pts[s[2]], pts[s[0]])))
	s[3], d = far(func(p r3.Vec) float64 { return math.Abs(r3.Dot(r3.Sub(p, pts[s[0]]), n)) })
	if d <= eps {
		return s, fmt.Errorf("%w: points are coplanar", ErrDegenerateHull)
	}
	return s, nil
}

func hullEpsilon(pts []r3.Vec) float64 {
	b := BoundsOf(pts)
	size := r3.Sub(b.Max, b.Min)
	scale := math.Max(size.X, math.Max(size.Y, size.Z))
	return math.Max(scale*1e-9, 1e-12)
}

// dedupePoints removes exact and near-exact duplicates while keeping the
// first occurrence order.
func dedupePoints(points []r3.Vec) []r3.Vec {
	const q = 1e-9
	seen := make(map[[3]int64]bool, len(points))
	out := make([]r3.Vec, 0, len(points))
	for _, p := range points {
		k := [3]int64{int64(math.Round(p.X / q)), int64(math.Round(p.Y / q)), int64(math.Round(p.Z / q))}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}
