package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is a right-handed orthonormal placement frame. Solids built in
// local coordinates are mapped into the frame with local +Z along Z.
type Frame struct {
	Origin  r3.Vec
	X, Y, Z r3.Vec
}

// Identity is the world frame.
var Identity = Frame{X: r3.Vec{X: 1}, Y: r3.Vec{Y: 1}, Z: r3.Vec{Z: 1}}

// NewFrame returns a frame at origin whose Z axis points along z and whose
// Y axis is as close to up as possible. When up is (nearly) parallel to z
// a world axis is substituted.
func NewFrame(origin, z, up r3.Vec) Frame {
	z = r3.Unit(z)
	if r3.Norm2(up) == 0 || math.Abs(r3.Cos(up, z)) > 0.999 {
		up = leastAligned(z)
	}
	y := r3.Unit(r3.Sub(up, r3.Scale(r3.Dot(up, z), z)))
	x := r3.Cross(y, z)
	return Frame{Origin: origin, X: x, Y: y, Z: z}
}

// leastAligned returns the world axis least parallel to v.
func leastAligned(v r3.Vec) r3.Vec {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	switch {
	case ax <= ay && ax <= az:
		return r3.Vec{X: 1}
	case ay <= az:
		return r3.Vec{Y: 1}
	default:
		return r3.Vec{Z: 1}
	}
}

// ToWorld maps a local point into world coordinates.
func (f Frame) ToWorld(p r3.Vec) r3.Vec {
	w := f.Origin
	w = r3.Add(w, r3.Scale(p.X, f.X))
	w = r3.Add(w, r3.Scale(p.Y, f.Y))
	w = r3.Add(w, r3.Scale(p.Z, f.Z))
	return w
}

// Translate returns the frame moved by d.
func (f Frame) Translate(d r3.Vec) Frame {
	f.Origin = r3.Add(f.Origin, d)
	return f
}

// EulerZYZ decomposes the frame rotation into intrinsic Z-Y-Z angles
// (radians) such that R = Rz(alpha)·Ry(beta)·Rz(gamma).
func (f Frame) EulerZYZ() (alpha, beta, gamma float64) {
	// Matrix columns are the frame axes.
	r02, r12, r22 := f.Z.X, f.Z.Y, f.Z.Z
	r20, r21 := f.X.Z, f.Y.Z
	r00, r10 := f.X.X, f.X.Y

	beta = math.Acos(math.Max(-1, math.Min(1, r22)))
	if math.Abs(math.Sin(beta)) > 1e-9 {
		alpha = math.Atan2(r12, r02)
		gamma = math.Atan2(r21, -r20)
		return alpha, beta, gamma
	}
	if r22 > 0 {
		return math.Atan2(r10, r00), 0, 0
	}
	return math.Atan2(-r10, -r00), math.Pi, 0
}
