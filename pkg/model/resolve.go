package model

import "fmt"

// ResolveEdgeRelations attaches JointVertex and TargetVertex references to
// every edge of the given vertices where that vertex is the joint side.
// Running it again on the same model yields the same references.
func ResolveEdgeRelations(m *ModelData, vertices []*ModelVertex) error {
	for _, v := range vertices {
		for _, e := range v.Edges {
			if e.JointVidx != v.Vidx {
				continue
			}
			target, err := m.Vertex(e.TargetVidx)
			if err != nil {
				return fmt.Errorf("model: resolve edge %d of vertex %s: %w", e.Eidx, v.Label, err)
			}
			e.JointVertex = v
			e.TargetVertex = target
		}
	}
	return nil
}
