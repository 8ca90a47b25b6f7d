// Package trajectory implements C5 of spec.md: a pre-sampled cache of
// rigid-body transforms built from a spacecraft's position/velocity and
// attitude history, interpolated on lookup by shifting the nearest sample.
package trajectory

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/CS-SI/rugged-go/internal/rerr"
	"github.com/CS-SI/rugged-go/internal/spatial"
)

// FrameProvider is the astronomy library's body-frame contract (spec.md
// §6.1): given a date, it returns the rigid transform from the body frame to
// the inertial frame. Rugged treats it as an opaque, already-validated
// primitive and never inspects its internals.
type FrameProvider interface {
	BodyToInertial(date float64) spatial.Transform
}

// sample is one precomputed instant of the cache.
type sample struct {
	date           float64
	scToInertial   spatial.Transform
	bodyToInertial spatial.Transform
	inertialToBody spatial.Transform
}

// Cache holds transforms sampled every tStep seconds over [minDate, maxDate].
type Cache struct {
	minDate, maxDate, tStep float64
	samples                 []sample
}

// NewCache builds the cache. pvSamples/attSamples must each span
// [minDate, maxDate] or construction fails with OUT_OF_TIME_RANGE.
// Construction fans the per-instant transform computation out across
// goroutines (there is no cross-sample dependency) and stops at the first
// error.
func NewCache(
	pvSamples []spatial.TimedPV, pvOrder int,
	attSamples []spatial.TimedRotation, attOrder int,
	minDate, maxDate, tStep float64,
	frames FrameProvider,
) (*Cache, error) {
	if tStep <= 0 {
		return nil, rerr.New(rerr.InvalidStep, "tStep must be positive, got %g", tStep)
	}
	if len(pvSamples) == 0 || pvSamples[0].Date > minDate || pvSamples[len(pvSamples)-1].Date < maxDate {
		return nil, rerr.New(rerr.OutOfTimeRange, "PV samples do not span [%g,%g]", minDate, maxDate)
	}
	if len(attSamples) == 0 || attSamples[0].Date > minDate || attSamples[len(attSamples)-1].Date < maxDate {
		return nil, rerr.New(rerr.OutOfTimeRange, "attitude samples do not span [%g,%g]", minDate, maxDate)
	}

	n := int(math.Ceil((maxDate-minDate)/tStep)) + 1
	samples := make([]sample, n)

	var g errgroup.Group
	for k := 0; k < n; k++ {
		k := k
		g.Go(func() error {
			date := minDate + float64(k)*tStep
			pv := spatial.HermitePV(pvSamples, pvOrder, date)
			rot := spatial.SlerpAttitude(attSamples, attOrder, date)

			bodyToInertial := frames.BodyToInertial(date)
			scToInertial := spatial.Transform{
				Translation: pv,
				Rotation:    rot.Revert(),
			}
			samples[k] = sample{
				date:           date,
				scToInertial:   scToInertial,
				bodyToInertial: bodyToInertial,
				inertialToBody: bodyToInertial.Invert(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Cache{minDate: minDate, maxDate: maxDate, tStep: tStep, samples: samples}, nil
}

func (c *Cache) nearest(date float64) int {
	idx := int(math.Round((date - c.minDate) / c.tStep))
	if idx < 0 {
		idx = 0
	}
	if idx > len(c.samples)-1 {
		idx = len(c.samples) - 1
	}
	return idx
}

// SpacecraftToInertial returns the spacecraft->inertial transform at date,
// extrapolated from the nearest precomputed sample.
func (c *Cache) SpacecraftToInertial(date float64) spatial.Transform {
	s := c.samples[c.nearest(date)]
	return s.scToInertial.ShiftedBy(date - s.date)
}

// BodyToInertial returns the body->inertial transform at date.
func (c *Cache) BodyToInertial(date float64) spatial.Transform {
	s := c.samples[c.nearest(date)]
	return s.bodyToInertial.ShiftedBy(date - s.date)
}

// InertialToBody returns the inertial->body transform at date.
func (c *Cache) InertialToBody(date float64) spatial.Transform {
	s := c.samples[c.nearest(date)]
	return s.inertialToBody.ShiftedBy(date - s.date)
}

// SpacecraftToBody composes spacecraft->inertial with inertial->body.
func (c *Cache) SpacecraftToBody(date float64) spatial.Transform {
	return c.SpacecraftToInertial(date).Compose(c.InertialToBody(date))
}

// MinDate / MaxDate / Step expose the cache's sampled time span.
func (c *Cache) MinDate() float64 { return c.minDate }
func (c *Cache) MaxDate() float64 { return c.maxDate }
func (c *Cache) Step() float64    { return c.tStep }
