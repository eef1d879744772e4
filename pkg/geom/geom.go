// Package geom provides the vector and point math used by the joint
// generator. All functions are pure and operate on gonum r3 vectors.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MillimetresPerInch converts the model's inch-based vectors into
// physical units.
const MillimetresPerInch = 25.4

// Origin is the local joint origin. Every joint is built around its
// vertex placed at (0,0,0).
var Origin = r3.Vec{}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b r3.Vec) r3.Vec {
	return r3.Scale(0.5, r3.Add(a, b))
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Taxicab returns |Δx|+|Δy| between a and b. Z is ignored.
func Taxicab(a, b r3.Vec) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
}

// Barycenter returns the centre of gravity of the given points.
// It returns the zero vector for an empty input.
func Barycenter(points ...r3.Vec) r3.Vec {
	if len(points) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, p := range points {
		sum = r3.Add(sum, p)
	}
	return r3.Scale(1/float64(len(points)), sum)
}

// FindMissingRectVertex returns the fourth corner of the rectangle that
// has a, b and c as three of its corners. The two points farthest apart
// form the diagonal; the remaining point is the corner opposite the
// missing one.
func FindMissingRectVertex(a, b, c r3.Vec) r3.Vec {
	pts := [3]r3.Vec{a, b, c}
	// pairs[i] is the pair that excludes point i.
	pairs := [3][2]int{{1, 2}, {0, 2}, {0, 1}}
	corner := 0
	longest := -1.0
	for i, p := range pairs {
		if d := Distance(pts[p[0]], pts[p[1]]); d > longest {
			longest = d
			corner = i
		}
	}
	t, v := pts[pairs[corner][0]], pts[pairs[corner][1]]
	u := pts[corner]
	return r3.Sub(r3.Add(t, v), u)
}

// AngleBetween returns the angle between a and b in degrees, in [0, 180].
// A zero-length vector yields 0.
func AngleBetween(a, b r3.Vec) float64 {
	if r3.Norm2(a) == 0 || r3.Norm2(b) == 0 {
		return 0
	}
	c := r3.Cos(a, b)
	c = math.Max(-1, math.Min(1, c))
	return RadToDeg(math.Acos(c))
}

// DegToRad converts degrees to radians.
func DegToRad(d float64) float64 { return d * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(r float64) float64 { return r * 180 / math.Pi }

// ApproxEqual reports whether a and b are within tol of each other on
// every axis.
func ApproxEqual(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// BoundsOf returns the axis-aligned bounding box of points.
func BoundsOf(points []r3.Vec) r3.Box {
	if len(points) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	return b
}

// BoxesOverlap reports whether two boxes intersect, allowing tol slack.
func BoxesOverlap(a, b r3.Box, tol float64) bool {
	return a.Min.X <= b.Max.X+tol && b.Min.X <= a.Max.X+tol &&
		a.Min.Y <= b.Max.Y+tol && b.Min.Y <= a.Max.Y+tol &&
		a.Min.Z <= b.Max.Z+tol && b.Min.Z <= a.Max.Z+tol
}
