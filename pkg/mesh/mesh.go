// Package mesh holds concrete triangle meshes produced by a geometry
// kernel and the queries the joint assembler runs on them: planar faces,
// bounds, translation and mesh-mesh intersection.
package mesh

import (
	"math"

	"github.com/chazu/threedframe/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// weldTolerance is the grid used to merge coincident vertices, in mm.
const weldTolerance = 1e-5

// Mesh is an indexed triangle mesh. A Mesh is immutable once built and safe
// for concurrent reads; Translate returns a new mesh.
type Mesh struct {
	Name     string
	Vertices []r3.Vec
	Normals  []r3.Vec // per vertex, area weighted
	Indices  []uint32 // 3 per triangle

	TriNormals []r3.Vec // unit normal per triangle
	Areas      []float64

	faces  []Face
	bounds r3.Box
}

// FromTriangles builds a mesh from a triangle soup. Vertices closer than
// weldTolerance are merged and triangles that collapse are dropped.
func FromTriangles(tris []r3.Triangle) *Mesh {
	m := &Mesh{}
	index := make(map[[3]int64]uint32, len(tris))
	weld := func(p r3.Vec) uint32 {
		k := [3]int64{
			int64(math.Round(p.X / weldTolerance)),
			int64(math.Round(p.Y / weldTolerance)),
			int64(math.Round(p.Z / weldTolerance)),
		}
		if i, ok := index[k]; ok {
			return i
		}
		i := uint32(len(m.Vertices))
		index[k] = i
		m.Vertices = append(m.Vertices, p)
		return i
	}

	for _, t := range tris {
		a, b, c := weld(t[0]), weld(t[1]), weld(t[2])
		if a == b || b == c || a == c {
			continue
		}
		tri := r3.Triangle{m.Vertices[a], m.Vertices[b], m.Vertices[c]}
		area := tri.Area()
		if area <= 1e-12 {
			continue
		}
		m.Indices = append(m.Indices, a, b, c)
		m.TriNormals = append(m.TriNormals, r3.Unit(tri.Normal()))
		m.Areas = append(m.Areas, area)
	}

	m.Normals = make([]r3.Vec, len(m.Vertices))
	for i := 0; i < m.TriangleCount(); i++ {
		w := r3.Scale(m.Areas[i], m.TriNormals[i])
		for _, vi := range m.Indices[3*i : 3*i+3] {
			m.Normals[vi] = r3.Add(m.Normals[vi], w)
		}
	}
	for i, n := range m.Normals {
		if r3.Norm2(n) > 0 {
			m.Normals[i] = r3.Unit(n)
		}
	}

	m.bounds = geom.BoundsOf(m.Vertices)
	m.faces = buildFaces(m)
	return m
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Indices) == 0
}

// Triangle returns triangle i.
func (m *Mesh) Triangle(i int) r3.Triangle {
	return r3.Triangle{
		m.Vertices[m.Indices[3*i]],
		m.Vertices[m.Indices[3*i+1]],
		m.Vertices[m.Indices[3*i+2]],
	}
}

// Triangles returns the mesh as a triangle soup.
func (m *Mesh) Triangles() []r3.Triangle {
	out := make([]r3.Triangle, m.TriangleCount())
	for i := range out {
		out[i] = m.Triangle(i)
	}
	return out
}

// Bounds returns the axis-aligned bounding box.
func (m *Mesh) Bounds() r3.Box {
	return m.bounds
}

// Area returns the total surface area.
func (m *Mesh) Area() float64 {
	var a float64
	for _, x := range m.Areas {
		a += x
	}
	return a
}

// Faces returns the planar faces of the mesh ordered by their first
// triangle.
func (m *Mesh) Faces() []Face {
	return m.faces
}

// AbsoluteMidpoint returns the barycenter of the face centres.
func (m *Mesh) AbsoluteMidpoint() r3.Vec {
	centres := make([]r3.Vec, len(m.faces))
	for i, f := range m.faces {
		centres[i] = f.Center()
	}
	return geom.Barycenter(centres...)
}

// NearestFace returns the face whose centre is closest to p. ok is false
// for an empty mesh.
func (m *Mesh) NearestFace(p r3.Vec) (f Face, ok bool) {
	best := math.Inf(1)
	for _, face := range m.faces {
		if d := geom.Distance(face.Center(), p); d < best {
			best, f, ok = d, face, true
		}
	}
	return f, ok
}

// Translate returns a copy of m moved by d. Topology, normals and areas
// are shared with m.
func (m *Mesh) Translate(d r3.Vec) *Mesh {
	out := &Mesh{
		Name:       m.Name,
		Vertices:   make([]r3.Vec, len(m.Vertices)),
		Normals:    m.Normals,
		Indices:    m.Indices,
		TriNormals: m.TriNormals,
		Areas:      m.Areas,
		bounds:     r3.Box{Min: r3.Add(m.bounds.Min, d), Max: r3.Add(m.bounds.Max, d)},
		faces:      make([]Face, len(m.faces)),
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = r3.Add(v, d)
	}
	for i, f := range m.faces {
		out.faces[i] = f.translate(d)
	}
	return out
}
