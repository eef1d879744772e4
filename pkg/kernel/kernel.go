// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx, scad) provide solid modeling, boolean operations
// and meshing behind this interface. The kernel abstraction allows
// swapping backends without changing the joint assembler.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/threedframe/pkg/geom"
	"github.com/chazu/threedframe/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrUnavailable is returned when a backend cannot run, for example
	// because its renderer binary is missing.
	ErrUnavailable = errors.New("kernel: backend unavailable")
	// ErrNoFont is returned by Text when no font is configured.
	ErrNoFont = errors.New("kernel: no font available")
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// TextSpec describes engraved label text. The text is centred on the
// origin in the XY plane, lines stacked downward, and extruded along +Z
// from 0 to Depth.
type TextSpec struct {
	Lines      []string
	Size       float64 // glyph height
	Width      float64 // maximum line width, 0 for the natural width
	LineHeight float64 // baseline spacing, 0 for 1.5·Size
	Depth      float64
}

// Validate checks that the spec can produce a solid.
func (t TextSpec) Validate() error {
	if len(t.Lines) == 0 || strings.TrimSpace(strings.Join(t.Lines, "")) == "" {
		return errors.New("kernel: empty text")
	}
	if t.Size <= 0 || t.Depth <= 0 {
		return fmt.Errorf("kernel: text size %.3f and depth %.3f must be positive", t.Size, t.Depth)
	}
	return nil
}

// Leading returns the distance between consecutive baselines.
func (t TextSpec) Leading() float64 {
	if t.LineHeight > 0 {
		return t.LineHeight
	}
	return 1.5 * t.Size
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	Name() string

	// Primitives
	Box(x, y, z float64) Solid // minimum corner at the origin
	Hull(points []r3.Vec) (Solid, error)
	Text(spec TextSpec) (Solid, error)

	// Boolean operations
	Union(solids ...Solid) Solid
	Difference(a Solid, b ...Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees
	Place(s Solid, f geom.Frame) Solid     // map local axes onto f
	Color(s Solid, hex string) Solid

	// Mesh output. ToMesh never modifies s.
	ToMesh(ctx context.Context, s Solid) (*mesh.Mesh, error)
}

// Scripter is implemented by kernels that can serialise a solid as a
// construction script.
type Scripter interface {
	ScriptExt() string
	WriteScript(w io.Writer, s Solid) error
}

// Bounds returns the bounding box of s as an r3.Box.
func Bounds(s Solid) r3.Box {
	lo, hi := s.BoundingBox()
	return r3.Box{
		Min: r3.Vec{X: lo[0], Y: lo[1], Z: lo[2]},
		Max: r3.Vec{X: hi[0], Y: hi[1], Z: hi[2]},
	}
}
