package mesh

import "gonum.org/v1/gonum/spatial/r3"

// BoxTriangles returns the 12 outward-wound triangles of an axis-aligned
// box.
func BoxTriangles(b r3.Box) []r3.Triangle {
	p := func(i, j, k int) r3.Vec {
		v := b.Min
		if i == 1 {
			v.X = b.Max.X
		}
		if j == 1 {
			v.Y = b.Max.Y
		}
		if k == 1 {
			v.Z = b.Max.Z
		}
		return v
	}
	quads := [6][4]r3.Vec{
		{p(0, 0, 0), p(0, 0, 1), p(0, 1, 1), p(0, 1, 0)}, // -X
		{p(1, 0, 0), p(1, 1, 0), p(1, 1, 1), p(1, 0, 1)}, // +X
		{p(0, 0, 0), p(1, 0, 0), p(1, 0, 1), p(0, 0, 1)}, // -Y
		{p(0, 1, 0), p(0, 1, 1), p(1, 1, 1), p(1, 1, 0)}, // +Y
		{p(0, 0, 0), p(0, 1, 0), p(1, 1, 0), p(1, 0, 0)}, // -Z
		{p(0, 0, 1), p(1, 0, 1), p(1, 1, 1), p(0, 1, 1)}, // +Z
	}
	out := make([]r3.Triangle, 0, 12)
	for _, q := range quads {
		out = append(out, r3.Triangle{q[0], q[1], q[2]}, r3.Triangle{q[0], q[2], q[3]})
	}
	return out
}
