// Package modeltest builds small frame models for tests.
package modeltest

import (
	"bytes"
	"math"

	"github.com/chazu/threedframe/pkg/geom"
	"github.com/chazu/threedframe/pkg/model"
	"gonum.org/v1/gonum/spatial/r3"
)

// Star returns a model with vertex 0 at the origin joined to one vertex per
// direction, each edge lengthMM long. Labels are assigned by the generator
// so vertex 0 is "AA".
func Star(lengthMM float64, dirs ...r3.Vec) *model.ModelData {
	m := &model.ModelData{
		NumVertices: len(dirs) + 1,
		NumEdges:    len(dirs),
		Vertices:    map[int]*model.ModelVertex{},
	}
	centre := &model.ModelVertex{Vidx: 0, PointNormal: r3.Vec{Z: 1}}
	m.Vertices[0] = centre
	for i, d := range dirs {
		u := r3.Unit(d)
		ingress := r3.Scale(lengthMM/geom.MillimetresPerInch, u)
		tip := &model.ModelVertex{
			Vidx:        i + 1,
			Point:       ingress,
			PointNormal: u,
		}
		centre.Edges = append(centre.Edges, &model.ModelEdge{
			Eidx: i, Length: lengthMM, JointVidx: 0, TargetVidx: i + 1, VectorIngress: ingress,
		})
		tip.Edges = append(tip.Edges, &model.ModelEdge{
			Eidx: i, Length: lengthMM, JointVidx: i + 1, TargetVidx: 0, VectorIngress: r3.Scale(-1, ingress),
		})
		m.Vertices[i+1] = tip
	}
	return roundTrip(m)
}

// Tetrahedron returns a regular tetrahedron frame with the given edge
// length in mm.
func Tetrahedron(edgeMM float64) *model.ModelData {
	s := edgeMM / (2 * math.Sqrt2) / geom.MillimetresPerInch
	pts := []r3.Vec{
		{X: s, Y: s, Z: s},
		{X: s, Y: -s, Z: -s},
		{X: -s, Y: s, Z: -s},
		{X: -s, Y: -s, Z: s},
	}
	m := &model.ModelData{NumVertices: 4, NumEdges: 6, Vertices: map[int]*model.ModelVertex{}}
	for i, p := range pts {
		m.Vertices[i] = &model.ModelVertex{Vidx: i, Point: p, PointNormal: r3.Unit(p)}
	}
	eidx := 0
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			ij := r3.Sub(pts[j], pts[i])
			length := r3.Norm(ij) * geom.MillimetresPerInch
			m.Vertices[i].Edges = append(m.Vertices[i].Edges, &model.ModelEdge{
				Eidx: eidx, Length: length, JointVidx: i, TargetVidx: j, VectorIngress: ij,
			})
			m.Vertices[j].Edges = append(m.Vertices[j].Edges, &model.ModelEdge{
				Eidx: eidx, Length: length, JointVidx: j, TargetVidx: i, VectorIngress: r3.Scale(-1, ij),
			})
			eidx++
		}
	}
	return roundTrip(m)
}

// JSON returns the serialised form of m.
func JSON(m *model.ModelData) []byte {
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func roundTrip(m *model.ModelData) *model.ModelData {
	out, err := model.Decode(bytes.NewReader(JSON(m)))
	if err != nil {
		panic(err)
	}
	return out
}
