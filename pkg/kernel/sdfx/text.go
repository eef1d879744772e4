package sdfx

import (
	"fmt"

	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// LoadFont loads a TrueType font from path, or the built-in Go Regular
// face when path is empty.
func LoadFont(path string) (*truetype.Font, error) {
	if path == "" {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("sdfx: parse built-in font: %w", err)
		}
		return f, nil
	}
	f, err := sdf.LoadFont(path)
	if err != nil {
		return nil, fmt.Errorf("sdfx: load font %s: %w", path, err)
	}
	return f, nil
}

// Text renders spec as an extruded solid. Each line is centred on X and
// the block is centred on Y.
func (k *SdfxKernel) Text(spec kernel.TextSpec) (kernel.Solid, error) {
	if k.font == nil {
		return nil, kernel.ErrNoFont
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	leading := spec.Leading()
	top := leading * float64(len(spec.Lines)-1) / 2
	var lines []sdf.SDF2
	for i, line := range spec.Lines {
		if line == "" {
			continue
		}
		s2, err := sdf.Text2D(k.font, sdf.NewText(line), spec.Size)
		if err != nil {
			return nil, fmt.Errorf("sdfx: text %q: %w", line, err)
		}
		if spec.Width > 0 {
			bb := s2.BoundingBox()
			if w := bb.Max.X - bb.Min.X; w > spec.Width {
				s2 = sdf.ScaleUniform2D(s2, spec.Width/w)
			}
		}
		// Centre the glyph box, then drop it onto its line.
		bb := s2.BoundingBox()
		c := v2.Vec{X: (bb.Min.X + bb.Max.X) / 2, Y: (bb.Min.Y + bb.Max.Y) / 2}
		y := top - float64(i)*leading
		s2 = sdf.Transform2D(s2, sdf.Translate2d(v2.Vec{X: -c.X, Y: y - c.Y}))
		lines = append(lines, s2)
	}

	block := lines[0]
	if len(lines) > 1 {
		block = sdf.Union2D(lines...)
	}
	s3 := sdf.Extrude3D(block, spec.Depth)
	// Extrude3D is symmetric about z=0.
	s3 = sdf.Transform3D(s3, sdf.Translate3d(v3.Vec{Z: spec.Depth / 2}))
	return wrap(s3), nil
}
