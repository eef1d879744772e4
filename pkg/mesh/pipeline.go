package mesh

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Operation transforms a mesh into a new one.
type Operation interface {
	Name() string
	Operate(m *Mesh) (*Mesh, error)
}

// Pipeline applies operations in order.
type Pipeline struct {
	Ops []Operation
	Log *zap.Logger
}

// NewPipeline returns a pipeline over ops.
func NewPipeline(log *zap.Logger, ops ...Operation) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{Ops: ops, Log: log}
}

// Add appends operations and returns the pipeline.
func (p *Pipeline) Add(ops ...Operation) *Pipeline {
	p.Ops = append(p.Ops, ops...)
	return p
}

// Apply runs every operation, stopping at the first error.
func (p *Pipeline) Apply(m *Mesh) (*Mesh, error) {
	out := m
	for _, op := range p.Ops {
		p.Log.Debug("applying mesh operation", zap.String("op", op.Name()), zap.Int("triangles", out.TriangleCount()))
		next, err := op.Operate(out)
		if err != nil {
			return nil, fmt.Errorf("mesh: %s: %w", op.Name(), err)
		}
		out = next
	}
	return out, nil
}

// Repair drops duplicated and degenerate triangles.
type Repair struct{}

func (Repair) Name() string { return "repair" }

func (Repair) Operate(m *Mesh) (*Mesh, error) {
	seen := make(map[[3]uint32]bool, m.TriangleCount())
	tris := make([]r3.Triangle, 0, m.TriangleCount())
	for i := 0; i < m.TriangleCount(); i++ {
		ix := m.Indices[3*i : 3*i+3]
		// The same three vertices in any winding are the same facet.
		k := sort3(ix[0], ix[1], ix[2])
		if seen[k] {
			continue
		}
		seen[k] = true
		tris = append(tris, m.Triangle(i))
	}
	out := FromTriangles(tris)
	out.Name = m.Name
	return out, nil
}

func sort3(a, b, c uint32) [3]uint32 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]uint32{a, b, c}
}

// Flatten moves the mesh so that its minimum bound sits at the origin,
// putting the part on the print bed.
type Flatten struct{}

func (Flatten) Name() string { return "flatten" }

func (Flatten) Operate(m *Mesh) (*Mesh, error) {
	return m.Translate(r3.Scale(-1, m.Bounds().Min)), nil
}
