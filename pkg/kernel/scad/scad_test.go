package scad

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/chazu/threedframe/pkg/geom"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// fakeRenderer writes a shell script that mimics openscad by copying a
// prepared STL to the -o argument.
func fakeRenderer(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake renderer needs a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "openscad")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func copyingRenderer(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "box.stl")
	require.NoError(t, mesh.WriteSTL(src, mesh.FromTriangles(mesh.BoxTriangles(r3.Box{Max: r3.Vec{X: 2, Y: 3, Z: 4}}))))
	return fakeRenderer(t, `out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2;;
    *) shift;;
  esac
done
cp "`+src+`" "$out"`)
}

func newTestKernel(t *testing.T, bin string) *ScadKernel {
	t.Helper()
	k, err := New(WithBinary(bin), WithTempDir(t.TempDir()))
	require.NoError(t, err)
	return k
}

func script(t *testing.T, k *ScadKernel, s kernel.Solid) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, k.WriteScript(&buf, s))
	return buf.String()
}

func TestNewMissingBinary(t *testing.T) {
	_, err := New(WithBinary(filepath.Join(t.TempDir(), "no-such-openscad")))
	assert.True(t, errors.Is(err, kernel.ErrUnavailable), "got %v", err)
}

func TestWriteScript(t *testing.T) {
	k := newTestKernel(t, copyingRenderer(t))

	base := k.Box(10, 10, 10)
	hole := k.Translate(k.Box(2, 2, 20), 4, 4, -5)
	s := k.Color(k.Difference(base, hole), "#ff8800")

	out := script(t, k, s)
	assert.True(t, strings.HasPrefix(out, "// threedframe\n$fn = 48;\n"))
	assert.Contains(t, out, "color(\"#ff8800\") {")
	assert.Contains(t, out, "difference() {")
	assert.Contains(t, out, "cube([10, 10, 10]);")
	assert.Contains(t, out, "translate([4, 4, -5]) {")
	assert.Equal(t, ".scad", k.ScriptExt())
}

func TestBoundingBoxes(t *testing.T) {
	k := newTestKernel(t, copyingRenderer(t))

	b := kernel.Bounds(k.Translate(k.Box(1, 2, 3), 1, 1, 1))
	assert.True(t, geom.ApproxEqual(b.Min, r3.Vec{X: 1, Y: 1, Z: 1}, 1e-9))
	assert.True(t, geom.ApproxEqual(b.Max, r3.Vec{X: 2, Y: 3, Z: 4}, 1e-9))

	u := kernel.Bounds(k.Union(k.Box(1, 1, 1), k.Translate(k.Box(1, 1, 1), 5, 0, 0)))
	assert.InDelta(t, 6, u.Max.X, 1e-9)

	i := kernel.Bounds(k.Intersection(k.Box(4, 4, 4), k.Translate(k.Box(4, 4, 4), 2, 2, 2)))
	assert.True(t, geom.ApproxEqual(i.Min, r3.Vec{X: 2, Y: 2, Z: 2}, 1e-9))
	assert.True(t, geom.ApproxEqual(i.Max, r3.Vec{X: 4, Y: 4, Z: 4}, 1e-9))

	r := kernel.Bounds(k.Rotate(k.Box(1, 2, 3), 0, 0, 90))
	assert.InDelta(t, -2, r.Min.X, 1e-9)
	assert.InDelta(t, 1, r.Max.Y, 1e-9)
}

func TestPlaceMultmatrix(t *testing.T) {
	k := newTestKernel(t, copyingRenderer(t))
	f := geom.NewFrame(r3.Vec{X: 5}, r3.Vec{X: 1}, r3.Vec{Z: 1})

	s := k.Place(k.Box(1, 1, 2), f)
	assert.Contains(t, script(t, k, s), "multmatrix([[")

	// Local +Z maps to world +X, so the box extends from x=5 to x=7.
	b := kernel.Bounds(s)
	assert.InDelta(t, 5, b.Min.X, 1e-9)
	assert.InDelta(t, 7, b.Max.X, 1e-9)

	m := FrameMatrix(f)
	p := m.Mul4x1([4]float64{0, 0, 2, 1})
	assert.InDelta(t, 7, p[0], 1e-9)
}

func TestHullPolyhedron(t *testing.T) {
	k := newTestKernel(t, copyingRenderer(t))
	s, err := k.Hull([]r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}, {X: 0.1, Y: 0.1, Z: 0.1}})
	require.NoError(t, err)
	out := script(t, k, s)
	assert.Contains(t, out, "polyhedron(points = [[0, 0, 0], [1, 0, 0], [0, 1, 0], [0, 0, 1]], faces = [")
	assert.NotContains(t, out, "0.1", "interior point must not be emitted")

	_, err = k.Hull([]r3.Vec{{}, {X: 1}, {X: 2}, {X: 3}})
	assert.True(t, errors.Is(err, geom.ErrDegenerateHull))
}

func TestText(t *testing.T) {
	k := newTestKernel(t, copyingRenderer(t))
	k.font = "Liberation Sans"

	s, err := k.Text(kernel.TextSpec{Lines: []string{"AA", "a \"quoted\" line"}, Size: 6, Width: 9, Depth: 1.5})
	require.NoError(t, err)
	out := script(t, k, s)
	assert.Contains(t, out, "linear_extrude(height = 1.5) {")
	assert.Contains(t, out, `text("AA", size = 6, halign = "center", valign = "center", font = "Liberation Sans");`)
	assert.Contains(t, out, `a \"quoted\" line`)
	assert.Contains(t, out, "resize([9, 0], auto = [true, true])")

	b := kernel.Bounds(s)
	assert.LessOrEqual(t, b.Max.X-b.Min.X, 9+1e-9)
	assert.InDelta(t, 1.5, b.Max.Z, 1e-9)

	_, err = k.Text(kernel.TextSpec{Lines: []string{" "}, Size: 6, Depth: 1})
	assert.Error(t, err)
}

func TestToMesh(t *testing.T) {
	k := newTestKernel(t, copyingRenderer(t))

	m, err := k.ToMesh(context.Background(), k.Box(2, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, 12, m.TriangleCount())
	assert.InDelta(t, 2*(6+8+12), m.Area(), 1e-4)

	entries, err := os.ReadDir(k.tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace must be removed")
}

func TestToMeshRendererFailure(t *testing.T) {
	bin := fakeRenderer(t, `echo "ERROR: Parser error in line 3" >&2
exit 1`)
	k := newTestKernel(t, bin)

	_, err := k.ToMesh(context.Background(), k.Box(1, 1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Parser error")
}

func TestToMeshCancelled(t *testing.T) {
	k := newTestKernel(t, copyingRenderer(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := k.ToMesh(ctx, k.Box(1, 1, 1))
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
