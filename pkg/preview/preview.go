// Package preview renders joint meshes to PNG images with a software
// rasteriser, so a build can be checked without a slicer or viewer.
package preview

import (
	"errors"
	"fmt"
	"image"

	"github.com/chazu/threedframe/pkg/mesh"
	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrEmptyMesh is returned when there is nothing to draw.
var ErrEmptyMesh = errors.New("preview: mesh has no triangles")

const (
	fovy = 30 // vertical field of view in degrees
	near = 1
	far  = 10
)

// View positions the camera. The mesh is first fitted into a bi-unit cube
// centred at the origin.
type View struct {
	Eye    r3.Vec
	LookAt r3.Vec
	Up     r3.Vec
}

// IsoView looks at the origin from the (+X, +Y, +Z) octant.
var IsoView = View{Eye: r3.Vec{X: 2.4, Y: 2.4, Z: 2.4}, Up: r3.Vec{Z: 1}}

// Options controls the output image.
type Options struct {
	Width, Height int
	Supersample   int // render at this multiple and downscale
	View          View
	Color         string
	Background    string
}

// DefaultOptions returns an isometric 800x800 preview.
func DefaultOptions() Options {
	return Options{
		Width:       800,
		Height:      800,
		Supersample: 2,
		View:        IsoView,
		Color:       "#468966",
		Background:  "#FFF8E3",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.Supersample <= 0 {
		o.Supersample = 1
	}
	if o.View == (View{}) {
		o.View = d.View
	}
	if o.Color == "" {
		o.Color = d.Color
	}
	if o.Background == "" {
		o.Background = d.Background
	}
	return o
}

// Render draws m with a Phong shader and returns the downscaled image.
func Render(m *mesh.Mesh, opts Options) (image.Image, error) {
	if m == nil || m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	opts = opts.withDefaults()

	fm := toFauxgl(m)
	fm.BiUnitCube()
	fm.SmoothNormalsThreshold(fauxgl.Radians(30))

	var (
		eye    = fv(opts.View.Eye)
		center = fv(opts.View.LookAt)
		up     = fv(opts.View.Up)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		scale  = opts.Supersample
	)

	ctx := fauxgl.NewContext(opts.Width*scale, opts.Height*scale)
	ctx.ClearColorBufferWith(fauxgl.HexColor(opts.Background))
	aspect := float64(opts.Width) / float64(opts.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, near, far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = fauxgl.HexColor(opts.Color)
	ctx.Shader = shader
	ctx.DrawMesh(fm)

	img := ctx.Image()
	if scale > 1 {
		img = resize.Resize(uint(opts.Width), uint(opts.Height), img, resize.Bilinear)
	}
	return img, nil
}

// WritePNG renders m and saves it to path.
func WritePNG(path string, m *mesh.Mesh, opts Options) error {
	img, err := Render(m, opts)
	if err != nil {
		return err
	}
	if err := fauxgl.SavePNG(path, img); err != nil {
		return fmt.Errorf("preview: write %s: %w", path, err)
	}
	return nil
}

// STLToPNG renders the STL file at stlPath into pngPath.
func STLToPNG(stlPath, pngPath string, opts Options) error {
	m, err := mesh.ReadSTL(stlPath)
	if err != nil {
		return err
	}
	return WritePNG(pngPath, m, opts)
}

func toFauxgl(m *mesh.Mesh) *fauxgl.Mesh {
	tris := make([]*fauxgl.Triangle, 0, m.TriangleCount())
	for _, t := range m.Triangles() {
		tris = append(tris, fauxgl.NewTriangleForPoints(fv(t[0]), fv(t[1]), fv(t[2])))
	}
	return fauxgl.NewTriangleMesh(tris)
}

func fv(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }
