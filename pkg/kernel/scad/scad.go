// Package scad implements kernel.Kernel by building an OpenSCAD node tree.
// Solids serialise to .scad scripts; meshes come from running the openscad
// binary on a script in a private temporary workspace.
package scad

import (
	"fmt"
	"math"
	"os/exec"
	"strings"
	"time"

	"github.com/chazu/threedframe/pkg/geom"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel   = (*ScadKernel)(nil)
	_ kernel.Scripter = (*ScadKernel)(nil)
)

// node is one OpenSCAD statement. Leaf nodes carry their full call in op;
// operator nodes apply op to their children.
type node struct {
	op       string
	children []*node
}

// scadSolid is a node plus a conservative bounding box.
type scadSolid struct {
	n  *node
	bb r3.Box
}

// BoundingBox returns the axis-aligned bounding box.
func (s *scadSolid) BoundingBox() (min, max [3]float64) {
	return [3]float64{s.bb.Min.X, s.bb.Min.Y, s.bb.Min.Z}, [3]float64{s.bb.Max.X, s.bb.Max.Y, s.bb.Max.Z}
}

// ScadKernel implements kernel.Kernel on OpenSCAD.
type ScadKernel struct {
	bin      string
	segments int
	font     string
	timeout  time.Duration
	tmpDir   string
	log      *zap.Logger
}

// Option configures a ScadKernel.
type Option func(*ScadKernel)

// WithBinary sets the openscad executable.
func WithBinary(path string) Option {
	return func(k *ScadKernel) {
		if path != "" {
			k.bin = path
		}
	}
}

// WithSegments sets $fn for curved primitives.
func WithSegments(n int) Option {
	return func(k *ScadKernel) {
		if n > 0 {
			k.segments = n
		}
	}
}

// WithFont sets the OpenSCAD font name used for labels.
func WithFont(name string) Option {
	return func(k *ScadKernel) { k.font = name }
}

// WithTimeout bounds each renderer invocation.
func WithTimeout(d time.Duration) Option {
	return func(k *ScadKernel) { k.timeout = d }
}

// WithTempDir sets the parent of the per-mesh workspaces.
func WithTempDir(dir string) Option {
	return func(k *ScadKernel) { k.tmpDir = dir }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(k *ScadKernel) {
		if log != nil {
			k.log = log
		}
	}
}

// New returns a ScadKernel. It fails with kernel.ErrUnavailable when the
// openscad binary cannot be found.
func New(opts ...Option) (*ScadKernel, error) {
	k := &ScadKernel{bin: "openscad", segments: 48, log: zap.NewNop()}
	for _, o := range opts {
		o(k)
	}
	path, err := exec.LookPath(k.bin)
	if err != nil {
		return nil, fmt.Errorf("%w: openscad binary %q: %v", kernel.ErrUnavailable, k.bin, err)
	}
	k.bin = path
	return k, nil
}

// Name returns "scad".
func (k *ScadKernel) Name() string { return "scad" }

func unwrap(s kernel.Solid) *scadSolid {
	return s.(*scadSolid)
}

func num(f float64) string {
	if math.Abs(f) < 1e-12 {
		return "0"
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", f), "0"), ".")
}

func vec3(v r3.Vec) string {
	return fmt.Sprintf("[%s, %s, %s]", num(v.X), num(v.Y), num(v.Z))
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// Box creates a cube with its minimum corner at the origin.
func (k *ScadKernel) Box(x, y, z float64) kernel.Solid {
	if x <= 0 || y <= 0 || z <= 0 {
		panic(fmt.Sprintf("scad.Box: non-positive size %gx%gx%g", x, y, z))
	}
	size := r3.Vec{X: x, Y: y, Z: z}
	return &scadSolid{
		n:  &node{op: fmt.Sprintf("cube(%s);", vec3(size))},
		bb: r3.Box{Max: size},
	}
}

// Hull creates the convex hull of points as a polyhedron.
func (k *ScadKernel) Hull(points []r3.Vec) (kernel.Solid, error) {
	h, err := geom.ConvexHull(points)
	if err != nil {
		return nil, fmt.Errorf("scad: hull: %w", err)
	}
	verts, remap := h.Vertices()
	pts := make([]string, len(verts))
	for i, v := range verts {
		pts[i] = vec3(v)
	}
	faces := make([]string, len(h.Faces))
	for i, f := range h.Faces {
		// OpenSCAD wants faces clockwise seen from outside.
		faces[i] = fmt.Sprintf("[%d, %d, %d]", remap[f.Indices[0]], remap[f.Indices[2]], remap[f.Indices[1]])
	}
	op := fmt.Sprintf("polyhedron(points = [%s], faces = [%s]);", strings.Join(pts, ", "), strings.Join(faces, ", "))
	return &scadSolid{n: &node{op: op}, bb: geom.BoundsOf(verts)}, nil
}

// Text creates linear-extruded label text centred on the origin.
func (k *ScadKernel) Text(spec kernel.TextSpec) (kernel.Solid, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	leading := spec.Leading()
	top := leading * float64(len(spec.Lines)-1) / 2
	font := ""
	if k.font != "" {
		font = ", font = " + quote(k.font)
	}

	var lines []*node
	maxWidth := 0.0
	for i, line := range spec.Lines {
		if line == "" {
			continue
		}
		glyphs := fmt.Sprintf("text(%s, size = %s, halign = \"center\", valign = \"center\"%s);",
			quote(line), num(spec.Size), font)
		// OpenSCAD cannot measure text, so estimate the advance width.
		width := 0.72 * spec.Size * float64(len([]rune(line)))
		n := &node{op: glyphs}
		if spec.Width > 0 && width > spec.Width {
			n = &node{op: fmt.Sprintf("resize([%s, 0], auto = [true, true])", num(spec.Width)), children: []*node{n}}
			width = spec.Width
		}
		maxWidth = math.Max(maxWidth, width)
		y := top - float64(i)*leading
		lines = append(lines, &node{op: fmt.Sprintf("translate([0, %s])", num(y)), children: []*node{n}})
	}
	extrude := &node{op: fmt.Sprintf("linear_extrude(height = %s)", num(spec.Depth)), children: lines}
	half := r3.Vec{X: maxWidth / 2, Y: top + spec.Size/2}
	return &scadSolid{
		n:  extrude,
		bb: r3.Box{Min: r3.Vec{X: -half.X, Y: -half.Y}, Max: r3.Vec{X: half.X, Y: half.Y, Z: spec.Depth}},
	}, nil
}

func (k *ScadKernel) group(op string, solids []kernel.Solid) *node {
	n := &node{op: op}
	for _, s := range solids {
		n.children = append(n.children, unwrap(s).n)
	}
	return n
}

// Union returns the union of the solids.
func (k *ScadKernel) Union(solids ...kernel.Solid) kernel.Solid {
	if len(solids) == 1 {
		return solids[0]
	}
	var corners []r3.Vec
	for _, s := range solids {
		corners = append(corners, unwrap(s).bb.Min, unwrap(s).bb.Max)
	}
	return &scadSolid{n: k.group("union()", solids), bb: geom.BoundsOf(corners)}
}

// Difference returns a minus every solid in b.
func (k *ScadKernel) Difference(a kernel.Solid, b ...kernel.Solid) kernel.Solid {
	if len(b) == 0 {
		return a
	}
	return &scadSolid{n: k.group("difference()", append([]kernel.Solid{a}, b...)), bb: unwrap(a).bb}
}

// Intersection returns the intersection of two solids.
func (k *ScadKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	ab, bb := unwrap(a).bb, unwrap(b).bb
	box := r3.Box{
		Min: r3.Vec{X: math.Max(ab.Min.X, bb.Min.X), Y: math.Max(ab.Min.Y, bb.Min.Y), Z: math.Max(ab.Min.Z, bb.Min.Z)},
		Max: r3.Vec{X: math.Min(ab.Max.X, bb.Max.X), Y: math.Min(ab.Max.Y, bb.Max.Y), Z: math.Min(ab.Max.Z, bb.Max.Z)},
	}
	return &scadSolid{n: k.group("intersection()", []kernel.Solid{a, b}), bb: box}
}

// Translate moves a solid by (x, y, z).
func (k *ScadKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	d := r3.Vec{X: x, Y: y, Z: z}
	return k.transform(s, fmt.Sprintf("translate(%s)", vec3(d)), mgl64.Translate3D(x, y, z))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes,
// applied in that order.
func (k *ScadKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := mgl64.HomogRotate3DZ(geom.DegToRad(z)).
		Mul4(mgl64.HomogRotate3DY(geom.DegToRad(y))).
		Mul4(mgl64.HomogRotate3DX(geom.DegToRad(x)))
	return k.transform(s, fmt.Sprintf("rotate([%s, %s, %s])", num(x), num(y), num(z)), m)
}

// Place maps the solid's local axes onto f with a multmatrix.
func (k *ScadKernel) Place(s kernel.Solid, f geom.Frame) kernel.Solid {
	m := FrameMatrix(f)
	rows := make([]string, 4)
	for i := range rows {
		r := m.Row(i)
		rows[i] = fmt.Sprintf("[%s, %s, %s, %s]", num(r[0]), num(r[1]), num(r[2]), num(r[3]))
	}
	return k.transform(s, fmt.Sprintf("multmatrix([%s])", strings.Join(rows, ", ")), m)
}

// Color tints the solid in previews and coloured exports.
func (k *ScadKernel) Color(s kernel.Solid, hex string) kernel.Solid {
	return &scadSolid{
		n:  &node{op: fmt.Sprintf("color(%s)", quote(hex)), children: []*node{unwrap(s).n}},
		bb: unwrap(s).bb,
	}
}

func (k *ScadKernel) transform(s kernel.Solid, op string, m mgl64.Mat4) kernel.Solid {
	inner := unwrap(s)
	return &scadSolid{
		n:  &node{op: op, children: []*node{inner.n}},
		bb: transformBox(inner.bb, m),
	}
}

// FrameMatrix returns the homogeneous matrix whose columns are the frame
// axes and origin.
func FrameMatrix(f geom.Frame) mgl64.Mat4 {
	return mgl64.Mat4FromCols(
		mgl64.Vec4{f.X.X, f.X.Y, f.X.Z, 0},
		mgl64.Vec4{f.Y.X, f.Y.Y, f.Y.Z, 0},
		mgl64.Vec4{f.Z.X, f.Z.Y, f.Z.Z, 0},
		mgl64.Vec4{f.Origin.X, f.Origin.Y, f.Origin.Z, 1},
	)
}

func transformBox(b r3.Box, m mgl64.Mat4) r3.Box {
	var pts []r3.Vec
	for _, x := range []float64{b.Min.X, b.Max.X} {
		for _, y := range []float64{b.Min.Y, b.Max.Y} {
			for _, z := range []float64{b.Min.Z, b.Max.Z} {
				p := m.Mul4x1(mgl64.Vec4{x, y, z, 1})
				pts = append(pts, r3.Vec{X: p[0], Y: p[1], Z: p[2]})
			}
		}
	}
	return geom.BoundsOf(pts)
}
