package mesh

import (
	"math"
	"sort"

	"github.com/chazu/threedframe/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Coplanarity tolerances for grouping triangles into faces.
const (
	faceCosTolerance  = 0.9995
	facePlaneRelative = 1e-4
)

// Face is a planar, edge-connected group of triangles.
type Face struct {
	Index     int
	Triangles []int
	Vertices  []r3.Vec // distinct vertex positions
	Normal    r3.Vec
	Area      float64
	Centroid  r3.Vec // area weighted
}

// Center returns the face centre. A face made of a single triangle is
// treated as half of a rectangle and the centre of that rectangle is
// returned.
func (f Face) Center() r3.Vec {
	if len(f.Triangles) == 1 && len(f.Vertices) == 3 {
		a, b, c := f.Vertices[0], f.Vertices[1], f.Vertices[2]
		return geom.Barycenter(a, b, c, geom.FindMissingRectVertex(a, b, c))
	}
	return f.Centroid
}

// Corners returns the four corners of the smallest rectangle in the face
// plane enclosing every face vertex, in counter-clockwise order around
// Normal. It returns nil for a face with no area.
func (f Face) Corners() []r3.Vec {
	if len(f.Vertices) < 3 {
		return nil
	}
	frame := geom.NewFrame(f.Centroid, f.Normal, r3.Vec{})
	pts := make([]pt2, len(f.Vertices))
	for i, v := range f.Vertices {
		d := r3.Sub(v, f.Centroid)
		pts[i] = pt2{r3.Dot(d, frame.X), r3.Dot(d, frame.Y)}
	}
	hull := hull2(pts)
	if len(hull) < 3 {
		return nil
	}
	rect := minAreaRect(hull)
	out := make([]r3.Vec, 4)
	for i, p := range rect {
		out[i] = frame.ToWorld(r3.Vec{X: p.x, Y: p.y})
	}
	return out
}

func (f Face) translate(d r3.Vec) Face {
	out := f
	out.Vertices = make([]r3.Vec, len(f.Vertices))
	for i, v := range f.Vertices {
		out.Vertices[i] = r3.Add(v, d)
	}
	out.Centroid = r3.Add(f.Centroid, d)
	return out
}

// buildFaces groups coplanar triangles that share an edge.
func buildFaces(m *Mesh) []Face {
	n := m.TriangleCount()
	if n == 0 {
		return nil
	}
	size := r3.Norm(r3.Sub(m.bounds.Max, m.bounds.Min))
	planeTol := math.Max(size*facePlaneRelative, 1e-9)

	centroids := make([]r3.Vec, n)
	for i := range centroids {
		centroids[i] = m.Triangle(i).Centroid()
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	type edgeKey struct{ a, b uint32 }
	edges := make(map[edgeKey][]int, n*3/2)
	for t := 0; t < n; t++ {
		ix := m.Indices[3*t : 3*t+3]
		for k := 0; k < 3; k++ {
			a, b := ix[k], ix[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[edgeKey{a, b}] = append(edges[edgeKey{a, b}], t)
		}
	}
	coplanar := func(i, j int) bool {
		if r3.Dot(m.TriNormals[i], m.TriNormals[j]) < faceCosTolerance {
			return false
		}
		return math.Abs(r3.Dot(m.TriNormals[i], r3.Sub(centroids[j], centroids[i]))) <= planeTol
	}
	for _, tris := range edges {
		for x := 0; x < len(tris); x++ {
			for y := x + 1; y < len(tris); y++ {
				if coplanar(tris[x], tris[y]) {
					union(tris[x], tris[y])
				}
			}
		}
	}

	groups := make(map[int][]int)
	var roots []int
	for t := 0; t < n; t++ {
		r := find(t)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], t)
	}
	sort.Ints(roots)

	faces := make([]Face, 0, len(roots))
	for _, r := range roots {
		tris := groups[r]
		f := Face{Index: len(faces), Triangles: tris}
		var normal, weighted r3.Vec
		seen := make(map[uint32]bool)
		for _, t := range tris {
			a := m.Areas[t]
			f.Area += a
			normal = r3.Add(normal, r3.Scale(a, m.TriNormals[t]))
			weighted = r3.Add(weighted, r3.Scale(a, centroids[t]))
			for _, vi := range m.Indices[3*t : 3*t+3] {
				if !seen[vi] {
					seen[vi] = true
					f.Vertices = append(f.Vertices, m.Vertices[vi])
				}
			}
		}
		f.Normal = r3.Unit(normal)
		f.Centroid = r3.Scale(1/f.Area, weighted)
		faces = append(faces, f)
	}
	return faces
}

type pt2 struct{ x, y float64 }

func cross2(o, a, b pt2) float64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

// hull2 is Andrew's monotone chain; the result is counter-clockwise.
func hull2(pts []pt2) []pt2 {
	ps := append([]pt2(nil), pts...)
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].x != ps[j].x {
			return ps[i].x < ps[j].x
		}
		return ps[i].y < ps[j].y
	})
	if len(ps) < 3 {
		return ps
	}
	h := make([]pt2, 0, 2*len(ps))
	for _, p := range ps {
		for len(h) >= 2 && cross2(h[len(h)-2], h[len(h)-1], p) <= 1e-12 {
			h = h[:len(h)-1]
		}
		h = append(h, p)
	}
	lower := len(h) + 1
	for i := len(ps) - 2; i >= 0; i-- {
		p := ps[i]
		for len(h) >= lower && cross2(h[len(h)-2], h[len(h)-1], p) <= 1e-12 {
			h = h[:len(h)-1]
		}
		h = append(h, p)
	}
	return h[:len(h)-1]
}

// minAreaRect returns the minimum-area rectangle enclosing a convex
// polygon. One side of the optimum is collinear with a hull edge.
func minAreaRect(hull []pt2) [4]pt2 {
	var best [4]pt2
	bestArea := math.Inf(1)
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		ex, ey := b.x-a.x, b.y-a.y
		l := math.Hypot(ex, ey)
		if l == 0 {
			continue
		}
		ux, uy := ex/l, ey/l // along the edge
		vx, vy := -uy, ux    // inward normal for a ccw hull
		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			pu := p.x*ux + p.y*uy
			pv := p.x*vx + p.y*vy
			minU, maxU = math.Min(minU, pu), math.Max(maxU, pu)
			minV, maxV = math.Min(minV, pv), math.Max(maxV, pv)
		}
		if area := (maxU - minU) * (maxV - minV); area < bestArea {
			bestArea = area
			at := func(u, v float64) pt2 { return pt2{u*ux + v*vx, u*uy + v*vy} }
			best = [4]pt2{at(minU, minV), at(maxU, minV), at(maxU, maxV), at(minU, maxV)}
		}
	}
	return best
}
