// Package model defines the structural frame graph: vertices, directed
// edges and the whole model loaded from the upstream computation step.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chazu/threedframe/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNotFound is returned when a vertex or edge target does not exist.
var ErrNotFound = errors.New("model: not found")

// ModelEdge is one directed record of a physical edge. Every physical edge
// yields two records sharing Eidx, one per endpoint.
type ModelEdge struct {
	Eidx          int
	Length        float64 // mm of remaining material
	JointVidx     int
	TargetVidx    int
	VectorIngress r3.Vec // from joint vertex toward target, in inches

	JointVertex  *ModelVertex
	TargetVertex *ModelVertex
}

// LengthIn returns the edge length in inches.
func (e *ModelEdge) LengthIn() float64 {
	return e.Length / geom.MillimetresPerInch
}

// Resolved reports whether both vertex references have been attached.
func (e *ModelEdge) Resolved() bool {
	return e.JointVertex != nil && e.TargetVertex != nil
}

func (e *ModelEdge) String() string {
	return fmt.Sprintf("ModelEdge(%d: %d->%d, %.2fmm)", e.Eidx, e.JointVidx, e.TargetVidx, e.Length)
}

// ModelVertex is a structural joint point.
type ModelVertex struct {
	Vidx        int
	Point       r3.Vec
	PointNormal r3.Vec
	Edges       []*ModelEdge
	Label       string
}

func (v *ModelVertex) String() string {
	return fmt.Sprintf("ModelVertex(%s/%d, %d edges)", v.Label, v.Vidx, len(v.Edges))
}

// JointEdges returns the edges for which v is the joint side, ordered by
// edge index.
func (v *ModelVertex) JointEdges() []*ModelEdge {
	var out []*ModelEdge
	for _, e := range v.Edges {
		if e.JointVidx == v.Vidx {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Eidx < out[j].Eidx })
	return out
}

// ModelData is the complete frame graph.
type ModelData struct {
	NumVertices int
	NumEdges    int
	Vertices    map[int]*ModelVertex

	labels map[string]int
}

// Vertex returns the vertex with the given index.
func (m *ModelData) Vertex(vidx int) (*ModelVertex, error) {
	v, ok := m.Vertices[vidx]
	if !ok {
		return nil, fmt.Errorf("%w: vertex %d", ErrNotFound, vidx)
	}
	return v, nil
}

// VidxByLabel looks up a vertex index by label, ignoring case. The second
// result is false when no vertex carries the label.
func (m *ModelData) VidxByLabel(label string) (int, bool) {
	idx, ok := m.labels[strings.ToUpper(strings.TrimSpace(label))]
	return idx, ok
}

// EdgeTarget returns the vertex the edge points to.
func (m *ModelData) EdgeTarget(e *ModelEdge) (*ModelVertex, error) {
	if e.TargetVertex != nil {
		return e.TargetVertex, nil
	}
	return m.Vertex(e.TargetVidx)
}

// SortedVertices returns every vertex ordered by index.
func (m *ModelData) SortedVertices() []*ModelVertex {
	out := make([]*ModelVertex, 0, len(m.Vertices))
	for _, v := range m.Vertices {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vidx < out[j].Vidx })
	return out
}

// --- serialised form ---

type jsonEdge struct {
	Eidx          int        `json:"eidx"`
	Length        float64    `json:"length"`
	JointVidx     int        `json:"joint_vidx"`
	TargetVidx    int        `json:"target_vidx"`
	VectorIngress [3]float64 `json:"vector_ingress"`
}

type jsonVertex struct {
	Vidx        int        `json:"vidx"`
	Point       [3]float64 `json:"point"`
	PointNormal [3]float64 `json:"point_normal"`
	Label       string     `json:"label,omitempty"`
	Edges       []jsonEdge `json:"edges"`
}

type jsonModel struct {
	NumVertices int                `json:"num_vertices"`
	NumEdges    int                `json:"num_edges"`
	Vertices    map[int]jsonVertex `json:"vertices"`
}

func toVec(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }
func fromVec(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// Load reads a model JSON file.
func Load(path string) (*ModelData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("model: open %s: %w", path, err)
	}
	defer f.Close()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("model: %s: %w", path, err)
	}
	return m, nil
}

// Decode parses a model from r. Vertices without a label are labelled in
// ascending index order, skipping labels already present in the input.
func Decode(r io.Reader) (*ModelData, error) {
	var raw jsonModel
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	m := &ModelData{
		NumVertices: raw.NumVertices,
		NumEdges:    raw.NumEdges,
		Vertices:    make(map[int]*ModelVertex, len(raw.Vertices)),
		labels:      make(map[string]int, len(raw.Vertices)),
	}
	for key, jv := range raw.Vertices {
		v := &ModelVertex{
			Vidx:        jv.Vidx,
			Point:       toVec(jv.Point),
			PointNormal: toVec(jv.PointNormal),
			Label:       strings.ToUpper(jv.Label),
		}
		if v.Vidx != key {
			// The key is authoritative; older exports omit vidx.
			v.Vidx = key
		}
		for _, je := range jv.Edges {
			v.Edges = append(v.Edges, &ModelEdge{
				Eidx:          je.Eidx,
				Length:        je.Length,
				JointVidx:     je.JointVidx,
				TargetVidx:    je.TargetVidx,
				VectorIngress: toVec(je.VectorIngress),
			})
		}
		m.Vertices[v.Vidx] = v
	}
	if err := m.assignLabels(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ModelData) assignLabels() error {
	for _, v := range m.SortedVertices() {
		if v.Label == "" {
			continue
		}
		if other, dup := m.labels[v.Label]; dup {
			return fmt.Errorf("duplicate label %q on vertices %d and %d", v.Label, other, v.Vidx)
		}
		m.labels[v.Label] = v.Vidx
	}
	gen := NewLabelGenerator()
	for _, v := range m.SortedVertices() {
		if v.Label != "" {
			continue
		}
		for {
			label, ok := gen.Next()
			if !ok {
				return fmt.Errorf("label space exhausted at vertex %d (max %d labels)", v.Vidx, MaxLabels)
			}
			if _, taken := m.labels[label]; taken {
				continue
			}
			v.Label = label
			m.labels[label] = v.Vidx
			break
		}
	}
	return nil
}

// Encode writes m in the same JSON layout Decode accepts.
func (m *ModelData) Encode(w io.Writer) error {
	raw := jsonModel{
		NumVertices: m.NumVertices,
		NumEdges:    m.NumEdges,
		Vertices:    make(map[int]jsonVertex, len(m.Vertices)),
	}
	for idx, v := range m.Vertices {
		jv := jsonVertex{
			Vidx:        v.Vidx,
			Point:       fromVec(v.Point),
			PointNormal: fromVec(v.PointNormal),
			Label:       v.Label,
		}
		for _, e := range v.Edges {
			jv.Edges = append(jv.Edges, jsonEdge{
				Eidx:          e.Eidx,
				Length:        e.Length,
				JointVidx:     e.JointVidx,
				TargetVidx:    e.TargetVidx,
				VectorIngress: fromVec(e.VectorIngress),
			})
		}
		raw.Vertices[idx] = jv
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(raw)
}
