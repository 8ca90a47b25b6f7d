package spatial

import "math"

// Rotation is a unit quaternion (w, x, y, z) applied as an active rotation:
// Rotation.Apply(v) rotates v by the rotation.
type Rotation struct {
	W, X, Y, Z float64
}

// Identity is the no-op rotation.
var Identity = Rotation{W: 1}

// NewRotation normalizes the given quaternion components.
func NewRotation(w, x, y, z float64) Rotation {
	n := math.Sqrt(w*w + x*x + y*y + z*z)
	if n == 0 {
		return Identity
	}
	return Rotation{W: w / n, X: x / n, Y: y / n, Z: z / n}
}

// Revert returns the inverse (conjugate, since unit) rotation — the
// "reverted" quaternion spec.md §4.5 uses to go from an attitude sample
// (body-to-inertial convention) to the orientation Rugged composes with PV.
func (r Rotation) Revert() Rotation {
	return Rotation{W: r.W, X: -r.X, Y: -r.Y, Z: -r.Z}
}

// Compose returns the rotation equivalent to applying r first, then o
// (o.Compose applied after r, i.e. o*r in quaternion multiplication order
// matching "apply r then o").
func (r Rotation) Compose(o Rotation) Rotation {
	return Rotation{
		W: o.W*r.W - o.X*r.X - o.Y*r.Y - o.Z*r.Z,
		X: o.W*r.X + o.X*r.W + o.Y*r.Z - o.Z*r.Y,
		Y: o.W*r.Y - o.X*r.Z + o.Y*r.W + o.Z*r.X,
		Z: o.W*r.Z + o.X*r.Y - o.Y*r.X + o.Z*r.W,
	}
}

// Apply rotates v by r.
func (r Rotation) Apply(v Vector3) Vector3 {
	// v' = q * v * q^-1, expanded via the standard quaternion-vector formula.
	qv := Vector3{r.X, r.Y, r.Z}
	t := qv.Cross(v).Scale(2)
	return v.Add(t.Scale(r.W)).Add(qv.Cross(t))
}

// Slerp performs spherical linear interpolation between r and o at
// parameter t in [0, 1], taking the short way around (negating o if the
// dot product is negative).
func (r Rotation) Slerp(o Rotation, t float64) Rotation {
	dot := r.W*o.W + r.X*o.X + r.Y*o.Y + r.Z*o.Z
	if dot < 0 {
		o = Rotation{W: -o.W, X: -o.X, Y: -o.Y, Z: -o.Z}
		dot = -dot
	}
	if dot > 0.9995 {
		// Nearly identical: fall back to a normalized lerp to avoid /0.
		return NewRotation(
			r.W+(o.W-r.W)*t,
			r.X+(o.X-r.X)*t,
			r.Y+(o.Y-r.Y)*t,
			r.Z+(o.Z-r.Z)*t,
		)
	}
	theta0 := math.Acos(dot)
	theta := theta0 * t
	sinTheta0 := math.Sin(theta0)
	s0 := math.Cos(theta) - dot*math.Sin(theta)/sinTheta0
	s1 := math.Sin(theta) / sinTheta0
	return NewRotation(
		s0*r.W+s1*o.W,
		s0*r.X+s1*o.X,
		s0*r.Y+s1*o.Y,
		s0*r.Z+s1*o.Z,
	)
}
