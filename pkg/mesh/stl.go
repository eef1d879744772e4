package mesh

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/hschendel/stl"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidSTL is returned for STL data holding NaN or infinite values.
var ErrInvalidSTL = errors.New("mesh: invalid STL data")

// ReadSTL loads an ASCII or binary STL file.
func ReadSTL(path string) (*Mesh, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: read %s: %w", path, err)
	}
	m, err := FromSolid(solid)
	if err != nil {
		return nil, fmt.Errorf("mesh: %s: %w", path, err)
	}
	return m, nil
}

// WriteSTL writes m as a binary STL file.
func WriteSTL(path string, m *Mesh) error {
	if err := ToSolid(m).WriteFile(path); err != nil {
		return fmt.Errorf("mesh: write %s: %w", path, err)
	}
	return nil
}

// FromSolid converts a decoded STL solid into a mesh.
func FromSolid(s *stl.Solid) (*Mesh, error) {
	tris := make([]r3.Triangle, 0, len(s.Triangles))
	for i, t := range s.Triangles {
		var tri r3.Triangle
		for k, v := range t.Vertices {
			if badVec3(v) {
				return nil, fmt.Errorf("%w: triangle %d vertex %d", ErrInvalidSTL, i, k)
			}
			tri[k] = r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
		}
		tris = append(tris, tri)
	}
	m := FromTriangles(tris)
	m.Name = s.Name
	return m, nil
}

// ToSolid converts m into an STL solid with recomputed facet normals.
func ToSolid(m *Mesh) *stl.Solid {
	name := m.Name
	if name == "" {
		name = "threedframe"
	}
	s := &stl.Solid{Name: name, Triangles: make([]stl.Triangle, m.TriangleCount())}
	for i := range s.Triangles {
		t := m.Triangle(i)
		s.Triangles[i] = stl.Triangle{
			Normal:   toVec3(m.TriNormals[i]),
			Vertices: [3]stl.Vec3{toVec3(t[0]), toVec3(t[1]), toVec3(t[2])},
		}
	}
	return s
}

func toVec3(v r3.Vec) stl.Vec3 {
	return stl.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

func badVec3(v stl.Vec3) bool {
	for _, f := range v {
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			return true
		}
	}
	return false
}
