// Package spatial provides the small set of rigid-motion primitives Rugged
// needs to carry spacecraft state between frames: 3-vectors, rotations,
// point/velocity pairs and time-parameterized rigid transforms. These are
// generic geometric building blocks, not astronomy: the actual frame
// definitions (EME2000, ITRF, ...) and time scales are the astronomy
// library's concern and are modelled only as opaque collaborator inputs
// (see internal/trajectory).
package spatial

import "math"

// Vector3 is a Cartesian 3-vector, used for both positions (meters) and
// directions (unit or otherwise).
type Vector3 struct {
	X, Y, Z float64
}

func NewVector3(x, y, z float64) Vector3 { return Vector3{X: x, Y: y, Z: z} }

func (v Vector3) Add(o Vector3) Vector3 { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector3) Sub(o Vector3) Vector3 { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector3) Scale(s float64) Vector3 { return Vector3{v.X * s, v.Y * s, v.Z * s} }
func (v Vector3) Negate() Vector3 { return Vector3{-v.X, -v.Y, -v.Z} }

func (v Vector3) Dot(o Vector3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vector3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// Normalized returns v scaled to unit length. Returns the zero vector if v is
// (numerically) zero.
func (v Vector3) Normalized() Vector3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// Lerp linearly interpolates between v and o at parameter t in [0, 1].
func (v Vector3) Lerp(o Vector3, t float64) Vector3 {
	return v.Scale(1 - t).Add(o.Scale(t))
}

// PV is a position/velocity pair, the natural sample for spacecraft
// ephemerides (spec.md §4.5's "PV sample").
type PV struct {
	Position Vector3
	Velocity Vector3
}

// ShiftedBy returns the PV extrapolated linearly by dt seconds, consistent
// with the rigid-motion time-shift semantics spec.md §4.5 asks the
// astronomy-library transforms to provide.
func (pv PV) ShiftedBy(dt float64) PV {
	return PV{
		Position: pv.Position.Add(pv.Velocity.Scale(dt)),
		Velocity: pv.Velocity,
	}
}
