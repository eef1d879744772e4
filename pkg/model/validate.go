package model

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ValidationSeverity indicates whether a finding blocks joint generation.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks generation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Vidx     int // -1 for model-level findings
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Vidx < 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] vertex %d: %s", e.Severity, e.Vidx, e.Message)
}

// Validate checks the model for inconsistencies that would break fixture
// geometry. Count mismatches are warnings; dangling or degenerate edges are
// errors.
func Validate(m *ModelData) []ValidationError {
	var errs []ValidationError

	if m.NumVertices != len(m.Vertices) {
		errs = append(errs, ValidationError{
			Vidx:     -1,
			Message:  fmt.Sprintf("num_vertices is %d but %d vertices are present", m.NumVertices, len(m.Vertices)),
			Severity: SeverityWarning,
		})
	}

	edgeIDs := make(map[int]bool)
	for _, v := range m.SortedVertices() {
		for _, e := range v.Edges {
			edgeIDs[e.Eidx] = true
			if _, ok := m.Vertices[e.TargetVidx]; !ok {
				errs = append(errs, ValidationError{
					Vidx:     v.Vidx,
					Message:  fmt.Sprintf("edge %d targets unknown vertex %d", e.Eidx, e.TargetVidx),
					Severity: SeverityError,
				})
			}
			if e.JointVidx == v.Vidx && r3.Norm2(e.VectorIngress) == 0 {
				errs = append(errs, ValidationError{
					Vidx:     v.Vidx,
					Message:  fmt.Sprintf("edge %d has a zero-length ingress vector", e.Eidx),
					Severity: SeverityError,
				})
			}
			if e.Length <= 0 {
				errs = append(errs, ValidationError{
					Vidx:     v.Vidx,
					Message:  fmt.Sprintf("edge %d has non-positive length %.3f", e.Eidx, e.Length),
					Severity: SeverityError,
				})
			}
		}
	}

	if m.NumEdges != len(edgeIDs) {
		errs = append(errs, ValidationError{
			Vidx:     -1,
			Message:  fmt.Sprintf("num_edges is %d but %d distinct edges are present", m.NumEdges, len(edgeIDs)),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// HasErrors reports whether any finding is blocking.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
