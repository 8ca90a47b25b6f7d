package spatial

// Transform is a rigid motion between two frames at a fixed instant: a
// translation (the origin of the departure frame expressed in the
// destination frame, as a PV so velocity composition is exact) composed with
// a rotation. No rotation rate (spin) is carried.
//
// This is the local stand-in for the astronomy library's frame-transform and
// composition primitives (spec.md §6.1): it applies the transform to points
// and vectors, shifts it by dt, inverts it and composes it, and nothing more.
type Transform struct {
	Translation PV
	Rotation    Rotation
}

// TransformPoint maps a position from the departure frame to the destination
// frame: rotate, then translate.
func (t Transform) TransformPoint(p Vector3) Vector3 {
	return t.Rotation.Apply(p).Add(t.Translation.Position)
}

// TransformVector maps a free vector (e.g. a line-of-sight direction): only
// the rotation applies, no translation.
func (t Transform) TransformVector(v Vector3) Vector3 {
	return t.Rotation.Apply(v)
}

// ShiftedBy extrapolates the transform by dt seconds using first-order
// rigid-motion kinematics: the translation advances linearly by its
// velocity, the rotation is left unchanged (no angular-velocity term is
// tracked — acceptable over the small dt used between trajectory cache
// samples, spec.md §4.5's "linearization error... within user tolerance").
func (t Transform) ShiftedBy(dt float64) Transform {
	return Transform{
		Translation: t.Translation.ShiftedBy(dt),
		Rotation:    t.Rotation,
	}
}

// Invert returns the transform mapping destination-frame points back to the
// departure frame.
func (t Transform) Invert() Transform {
	inv := t.Rotation.Revert()
	return Transform{
		Translation: PV{
			Position: inv.Apply(t.Translation.Position.Negate()),
			Velocity: inv.Apply(t.Translation.Velocity.Negate()),
		},
		Rotation: inv,
	}
}

// Compose returns the transform equivalent to applying t first, then o.
func (t Transform) Compose(o Transform) Transform {
	return Transform{
		Translation: PV{
			Position: o.TransformPoint(t.Translation.Position),
			Velocity: o.Rotation.Apply(t.Translation.Velocity).Add(o.Translation.Velocity),
		},
		Rotation: t.Rotation.Compose(o.Rotation),
	}
}
