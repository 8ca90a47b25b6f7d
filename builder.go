package rugged

import (
	"github.com/CS-SI/rugged-go/internal/demtile"
	"github.com/CS-SI/rugged-go/internal/democache"
	"github.com/CS-SI/rugged-go/internal/ellipsoid"
	"github.com/CS-SI/rugged-go/internal/intersect"
	"github.com/CS-SI/rugged-go/internal/rerr"
	"github.com/CS-SI/rugged-go/internal/sensor"
	"github.com/CS-SI/rugged-go/internal/spatial"
	"github.com/CS-SI/rugged-go/internal/trajectory"
)

// Datation maps an image line to its acquisition date and back (spec.md
// §6.2's line_sensor(...) option). Any type implementing these two methods
// works, including LinearDatation and PiecewiseDatation below.
type Datation = sensor.Datation

// LinearDatation is a constant-line-rate datation law.
type LinearDatation = sensor.LinearDatation

// PiecewiseDatation interpolates linearly between explicit (line, date) pairs.
type PiecewiseDatation = sensor.PiecewiseDatation

type lineSensorSpec struct {
	name     string
	los      []Vector3
	datation Datation
}

// RuggedBuilder assembles a Rugged instance option by option (spec.md
// §6.2). Create it with NewBuilder, which seeds the defaults (Duvenhage
// algorithm, 8 cached tiles, 5 entry retries, 50 max evaluations, 1e-6
// accuracy); the zero value has none of them set.
type RuggedBuilder struct {
	algorithm          AlgorithmID
	constantElevationH float64
	ellipsoid          ellipsoid.Ellipsoid
	centralLongitude   float64

	pvSamples  []spatial.TimedPV
	pvOrder    int
	attSamples []spatial.TimedRotation
	attOrder   int
	minDate    float64
	maxDate    float64
	tStep      float64
	frames     FrameProvider

	sensors []lineSensorSpec

	tileUpdater     TileUpdater
	maxCachedTiles  int
	maxEntryRetries int
	maxEval         int
	accuracy        float64

	err error
}

// NewBuilder returns a builder seeded with spec.md §6.2's defaults.
func NewBuilder() *RuggedBuilder {
	return &RuggedBuilder{
		algorithm:       Duvenhage,
		ellipsoid:       ellipsoid.WGS84,
		pvOrder:         4,
		attOrder:        4,
		maxCachedTiles:  8,
		maxEntryRetries: 5,
		maxEval:         50,
		accuracy:        1e-6,
	}
}

// WithAlgorithm selects the intersection algorithm. h is only meaningful
// for ConstantElevation.
func (b *RuggedBuilder) WithAlgorithm(id AlgorithmID, h float64) *RuggedBuilder {
	b.algorithm = id
	b.constantElevationH = h
	return b
}

// WithEllipsoid sets the reference ellipsoid and the central longitude of
// the normalization range (spec.md §3): longitudes are normalized into
// [centralLongitude-pi, centralLongitude+pi), so the seam lies opposite the
// central longitude; e.g. pi keeps a sensor crossing the antimeridian away
// from the seam.
func (b *RuggedBuilder) WithEllipsoid(e ellipsoid.Ellipsoid, centralLongitude float64) *RuggedBuilder {
	b.ellipsoid = e
	b.centralLongitude = centralLongitude
	return b
}

// WithTrajectory supplies the spacecraft's PV and attitude history, the
// validity span and sampling step of the trajectory cache, and the
// body/inertial frame transform provider (spec.md §6.2's trajectory and
// time_span options).
func (b *RuggedBuilder) WithTrajectory(
	pv []PVSample, pvOrder int,
	att []AttitudeSample, attOrder int,
	minDate, maxDate, tStep float64,
	frames FrameProvider,
) *RuggedBuilder {
	b.pvSamples = make([]spatial.TimedPV, len(pv))
	for i, s := range pv {
		b.pvSamples[i] = spatial.TimedPV{Date: s.Date, PV: spatial.PV{
			Position: toVector3(s.Position), Velocity: toVector3(s.Velocity),
		}}
	}
	b.attSamples = make([]spatial.TimedRotation, len(att))
	for i, s := range att {
		b.attSamples[i] = spatial.TimedRotation{Date: s.Date, Rotation: spatial.Rotation{
			W: s.Rotation.W, X: s.Rotation.X, Y: s.Rotation.Y, Z: s.Rotation.Z,
		}}
	}
	b.pvOrder, b.attOrder = pvOrder, attOrder
	b.minDate, b.maxDate, b.tStep = minDate, maxDate, tStep
	b.frames = frames
	return b
}

// WithLineSensor registers a pushbroom line sensor: name, its per-pixel
// lines of sight in the spacecraft frame, and its datation law.
func (b *RuggedBuilder) WithLineSensor(name string, los []Vector3, datation Datation) *RuggedBuilder {
	b.sensors = append(b.sensors, lineSensorSpec{name: name, los: los, datation: datation})
	return b
}

// WithDEM supplies the tile updater that populates DEM tiles on demand and
// the cache's maximum resident tile count (spec.md §6.1/§6.2).
func (b *RuggedBuilder) WithDEM(updater TileUpdater, maxCachedTiles int) *RuggedBuilder {
	b.tileUpdater = updater
	b.maxCachedTiles = maxCachedTiles
	return b
}

// WithMaxEntryRetries overrides the Duvenhage entry-point retry bound
// (default 5, spec.md §9).
func (b *RuggedBuilder) WithMaxEntryRetries(n int) *RuggedBuilder {
	b.maxEntryRetries = n
	return b
}

// WithInverseLocationTuning overrides the mean-plane/pixel-crossing search
// bounds (default maxEval=50, accuracy=1e-6, spec.md §6.2).
func (b *RuggedBuilder) WithInverseLocationTuning(maxEval int, accuracy float64) *RuggedBuilder {
	b.maxEval = maxEval
	b.accuracy = accuracy
	return b
}

// Build validates the accumulated options and constructs the Rugged
// instance, including its trajectory cache, DEM cache and intersection
// algorithm.
func (b *RuggedBuilder) Build() (*Rugged, error) {
	if len(b.sensors) == 0 {
		return nil, rerr.New(rerr.InternalError, "at least one line sensor is required")
	}

	r := &Rugged{
		ellipsoid:        b.ellipsoid,
		centralLongitude: b.centralLongitude,
		sensors:          make(map[string]*sensor.LineSensor, len(b.sensors)),
		maxEntryRetries:  b.maxEntryRetries,
		maxEval:          b.maxEval,
		accuracy:         b.accuracy,
		algorithm:        b.algorithm,
	}

	if b.frames != nil {
		traj, err := trajectory.NewCache(
			b.pvSamples, b.pvOrder,
			b.attSamples, b.attOrder,
			b.minDate, b.maxDate, b.tStep,
			frameProviderAdapter{p: b.frames},
		)
		if err != nil {
			return nil, err
		}
		r.traj = traj
	}

	for _, spec := range b.sensors {
		los := make([]spatial.Vector3, len(spec.los))
		for i, v := range spec.los {
			los[i] = toVector3(v)
		}
		s, err := sensor.NewLineSensor(spec.name, los, spec.datation)
		if err != nil {
			return nil, err
		}
		r.sensors[spec.name] = s
	}

	switch b.algorithm {
	case ConstantElevation:
		r.degraded = intersect.ConstantElevation{H: b.constantElevationH}
	case IgnoreDem:
		r.degraded = intersect.IgnoreDem{}
	case Duvenhage:
		if b.tileUpdater == nil {
			return nil, rerr.New(rerr.InternalError, "DUVENHAGE requires a tile updater")
		}
		cache := democache.NewCache[*demtile.MinMaxTile](b.maxCachedTiles, demtile.NewMinMaxTile, tileUpdaterAdapter{u: b.tileUpdater})
		r.duvenhage = &intersect.Duvenhage{
			Ellipsoid:        b.ellipsoid,
			Cache:            cache,
			CentralLongitude: b.centralLongitude,
			MaxEntryRetries:  b.maxEntryRetries,
		}
	case BasicScan:
		if b.tileUpdater == nil {
			return nil, rerr.New(rerr.InternalError, "BASIC_SCAN requires a tile updater")
		}
		cache := democache.NewCache[*demtile.Tile](b.maxCachedTiles, func() *demtile.Tile { return &demtile.Tile{} }, plainTileUpdaterAdapter{u: b.tileUpdater})
		r.basicScan = &intersect.BasicScan{
			Ellipsoid:        b.ellipsoid,
			Cache:            cache,
			CentralLongitude: b.centralLongitude,
		}
	default:
		return nil, rerr.New(rerr.InternalError, "unknown algorithm %q", b.algorithm)
	}

	return r, nil
}
