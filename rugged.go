// Package rugged is a geometric correction library for pushbroom optical
// satellite imagery: given a spacecraft trajectory, an instrument model and
// a Digital Elevation Model, it answers direct location ("what ground point
// does this pixel see?") and inverse location ("which pixel sees this
// ground point?").
package rugged

import (
	"github.com/CS-SI/rugged-go/internal/demtile"
	"github.com/CS-SI/rugged-go/internal/ellipsoid"
	"github.com/CS-SI/rugged-go/internal/intersect"
	"github.com/CS-SI/rugged-go/internal/inverse"
	"github.com/CS-SI/rugged-go/internal/rerr"
	"github.com/CS-SI/rugged-go/internal/sensor"
	"github.com/CS-SI/rugged-go/internal/spatial"
	"github.com/CS-SI/rugged-go/internal/trajectory"
)

// Rugged is one configured instance: its own trajectory cache and DEM
// cache, owned by a single logical worker (spec.md §5 — no internal
// locking; run independent instances for parallelism across images).
type Rugged struct {
	ellipsoid        ellipsoid.Ellipsoid
	centralLongitude float64
	traj             *trajectory.Cache
	sensors          map[string]*sensor.LineSensor
	maxEntryRetries  int
	maxEval          int
	accuracy         float64

	algorithm AlgorithmID
	duvenhage *intersect.Duvenhage
	basicScan *intersect.BasicScan
	degraded  intersect.Algorithm // set for CONSTANT_ELEVATION / IGNORE_DEM
}

// AlgorithmID selects which of the four intersection algorithms a Rugged
// instance uses (spec.md §6.2/§9).
type AlgorithmID = intersect.AlgorithmID

const (
	Duvenhage         = intersect.DuvenhageID
	BasicScan         = intersect.BasicScanID
	ConstantElevation = intersect.ConstantElevationID
	IgnoreDem         = intersect.IgnoreDemID
)

// DirectLocation returns the ground point seen by every pixel of sensor
// sensorName at the given image line.
func (r *Rugged) DirectLocation(sensorName string, line float64) ([]GeodeticPoint, error) {
	s, ok := r.sensors[sensorName]
	if !ok {
		return nil, rerr.New(rerr.InternalError, "unknown sensor %q", sensorName)
	}
	date := s.Datation.Date(line)
	scToBody := r.traj.SpacecraftToBody(date)
	position := scToBody.Translation.Position

	points := make([]GeodeticPoint, s.NbPixels())
	for i := 0; i < s.NbPixels(); i++ {
		los := scToBody.TransformVector(s.Los(i))
		gp, ok, err := r.intersectRay(position, los)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, rerr.New(rerr.LineOfSightDoesNotReachGround, "pixel %d of line %g never reaches the ground", i, line)
		}
		points[i] = fromGeodetic(gp)
	}
	return points, nil
}

// DirectLocationRay returns the ground point along a single ray: position
// and los are in the body frame at date (date is accepted for API symmetry
// with spec.md §6.2 but the ray is otherwise already body-frame resolved).
func (r *Rugged) DirectLocationRay(_ float64, position, los Vector3) (GeodeticPoint, error) {
	gp, ok, err := r.intersectRay(toVector3(position), toVector3(los))
	if err != nil {
		return GeodeticPoint{}, err
	}
	if !ok {
		return GeodeticPoint{}, rerr.New(rerr.LineOfSightDoesNotReachGround, "ray never reaches the ground")
	}
	return fromGeodetic(gp), nil
}

func (r *Rugged) intersectRay(p, l spatial.Vector3) (ellipsoid.NormalizedGeodeticPoint, bool, error) {
	switch r.algorithm {
	case Duvenhage:
		return r.duvenhage.Intersect(p, l)
	case BasicScan:
		return r.basicScan.Intersect(p, l)
	default:
		return r.degraded.Intersection(r.ellipsoid, p, l)
	}
}

// SensorPixel is a continuous (line, pixel) image coordinate.
type SensorPixel struct {
	Line, Pixel float64
}

// InverseLocation returns the (line, pixel) observing gp within
// [minLine, maxLine], or (nil, nil) if no pixel in that range sees it
// (spec.md §7: this is the normal "not seen" signal, not an error).
func (r *Rugged) InverseLocation(sensorName string, gp GeodeticPoint, minLine, maxLine float64) (*SensorPixel, error) {
	s, ok := r.sensors[sensorName]
	if !ok {
		return nil, rerr.New(rerr.InternalError, "unknown sensor %q", sensorName)
	}
	solver, err := inverse.NewMeanPlaneSolver(s, r.traj, minLine, maxLine, r.maxEval, r.accuracy)
	if err != nil {
		return nil, err
	}

	gpCart := r.ellipsoid.ToCartesian(toGeodetic(gp))
	line, pixel, err := solver.Locate(gpCart)
	if err != nil {
		if coreErr, ok := err.(*rerr.CoreError); ok &&
			(coreErr.Kind == rerr.SensorMeanPlaneNotFound || coreErr.Kind == rerr.PixelNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if pixel < 0 || pixel > float64(s.NbPixels()-1) {
		return nil, nil
	}
	return &SensorPixel{Line: line, Pixel: pixel}, nil
}

// DateLocation returns the absolute date at which sensorName observes gp
// within [minLine, maxLine], or nil if it is never observed there.
func (r *Rugged) DateLocation(sensorName string, gp GeodeticPoint, minLine, maxLine float64) (*float64, error) {
	s, ok := r.sensors[sensorName]
	if !ok {
		return nil, rerr.New(rerr.InternalError, "unknown sensor %q", sensorName)
	}
	pixel, err := r.InverseLocation(sensorName, gp, minLine, maxLine)
	if err != nil || pixel == nil {
		return nil, err
	}
	date := s.Datation.Date(pixel.Line)
	return &date, nil
}

// ---- value types at the public boundary ----

// Vector3 is a cartesian 3-vector (meters, body frame unless stated otherwise).
type Vector3 struct{ X, Y, Z float64 }

func toVector3(v Vector3) spatial.Vector3 { return spatial.Vector3{X: v.X, Y: v.Y, Z: v.Z} }

// GeodeticPoint is (latitude, longitude, altitude) in radians/meters.
type GeodeticPoint struct {
	Latitude, Longitude, Altitude float64
}

func toGeodetic(gp GeodeticPoint) ellipsoid.GeodeticPoint {
	return ellipsoid.GeodeticPoint{Latitude: gp.Latitude, Longitude: gp.Longitude, Altitude: gp.Altitude}
}

func fromGeodetic(gp ellipsoid.NormalizedGeodeticPoint) GeodeticPoint {
	return GeodeticPoint{Latitude: gp.Latitude, Longitude: gp.Longitude, Altitude: gp.Altitude}
}

// UpdatableTile is the write-only view of a DEM tile handed to a
// TileUpdater (spec.md §6.1): set_geometry, then set_elevation for every
// cell, then the cache publishes it automatically once UpdateTile returns.
type UpdatableTile struct {
	tile *demtile.MinMaxTile
}

func (u *UpdatableTile) SetGeometry(minLat, minLon, dLat, dLon float64, rows, cols int) error {
	return u.tile.SetGeometry(minLat, minLon, dLat, dLon, rows, cols)
}

func (u *UpdatableTile) SetElevation(i, j int, elevation float64) error {
	return u.tile.SetElevation(i, j, elevation)
}

// TileUpdater populates a tile covering (lat, lon) with geometry and
// elevations (spec.md §6.1).
type TileUpdater interface {
	UpdateTile(lat, lon float64, tile *UpdatableTile) error
}

type tileUpdaterAdapter struct{ u TileUpdater }

func (a tileUpdaterAdapter) UpdateTile(lat, lon float64, tile *demtile.MinMaxTile) error {
	if err := a.u.UpdateTile(lat, lon, &UpdatableTile{tile: tile}); err != nil {
		return err
	}
	tile.TileUpdateCompleted()
	return nil
}

// plainTileUpdaterAdapter feeds the same user TileUpdater into the plain
// (non-pyramided) tile cache BasicScan uses, by handing the updater a
// temporary MinMaxTile whose embedded Tile starts as a copy of the bare
// demtile.Tile and is copied back once filled. The pyramid is never built
// for it (BasicScan never reads the pyramid).
type plainTileUpdaterAdapter struct{ u TileUpdater }

func (a plainTileUpdaterAdapter) UpdateTile(lat, lon float64, tile *demtile.Tile) error {
	mm := demtile.NewMinMaxTile()
	mm.Tile = *tile
	if err := a.u.UpdateTile(lat, lon, &UpdatableTile{tile: mm}); err != nil {
		return err
	}
	*tile = mm.Tile
	tile.TileUpdateCompleted()
	return nil
}

// FrameProvider is the astronomy library's body-frame contract (spec.md
// §6.1): given a date, the rigid transform from the body frame to the
// inertial frame.
type FrameProvider interface {
	BodyToInertial(date float64) RigidTransform
}

// RigidTransform is a rotation plus a position/velocity pair, the public
// shape of a frame transform (spec.md §4.5's trajectory sample entries).
type RigidTransform struct {
	Rotation          Quaternion
	Position, Velocity Vector3
}

// Quaternion is a unit rotation (w, x, y, z).
type Quaternion struct{ W, X, Y, Z float64 }

type frameProviderAdapter struct{ p FrameProvider }

func (a frameProviderAdapter) BodyToInertial(date float64) spatial.Transform {
	rt := a.p.BodyToInertial(date)
	return spatial.Transform{
		Translation: spatial.PV{Position: toVector3(rt.Position), Velocity: toVector3(rt.Velocity)},
		Rotation:    spatial.Rotation{W: rt.Rotation.W, X: rt.Rotation.X, Y: rt.Rotation.Y, Z: rt.Rotation.Z},
	}
}

// PVSample and AttitudeSample are the trajectory/attitude construction
// inputs (spec.md §6.2's trajectory(...) option).
type PVSample struct {
	Date               float64
	Position, Velocity Vector3
}

type AttitudeSample struct {
	Date     float64
	Rotation Quaternion
}
