package intersect

import (
	"github.com/CS-SI/rugged-go/internal/ellipsoid"
	"github.com/CS-SI/rugged-go/internal/spatial"
)

// AlgorithmID names one of the four intersection algorithms (spec.md §9).
type AlgorithmID string

const (
	DuvenhageID         AlgorithmID = "DUVENHAGE"
	BasicScanID         AlgorithmID = "BASIC_SCAN"
	ConstantElevationID AlgorithmID = "CONSTANT_ELEVATION"
	IgnoreDemID         AlgorithmID = "IGNORE_DEM"
)

// Algorithm is the capability set spec.md §9 assigns every intersection
// variant. ConstantElevation and IgnoreDem implement it for calibration and
// degraded modes; Duvenhage (the hot path) and BasicScan do not, and are
// called directly through their own Intersect methods.
type Algorithm interface {
	Intersection(e ellipsoid.Ellipsoid, p, l spatial.Vector3) (ellipsoid.NormalizedGeodeticPoint, bool, error)
	RefineIntersection(e ellipsoid.Ellipsoid, p, l spatial.Vector3, guess ellipsoid.NormalizedGeodeticPoint) (ellipsoid.NormalizedGeodeticPoint, bool, error)
	Elevation(lat, lon float64) (float64, error)
	AlgorithmID() AlgorithmID
}

// ConstantElevation is a degraded-mode algorithm that intersects the ray
// with a single fixed-altitude ellipsoid surface, ignoring the DEM entirely.
// Useful for calibration against a flat reference and in tests that don't
// need real terrain.
type ConstantElevation struct {
	H float64
}

func (c ConstantElevation) Intersection(e ellipsoid.Ellipsoid, p, l spatial.Vector3) (ellipsoid.NormalizedGeodeticPoint, bool, error) {
	pt, err := e.PointAtAltitude(p, l, c.H)
	if err != nil {
		return ellipsoid.NormalizedGeodeticPoint{}, false, nil
	}
	return e.ToGeodetic(pt, 0), true, nil
}

func (c ConstantElevation) RefineIntersection(e ellipsoid.Ellipsoid, p, l spatial.Vector3, guess ellipsoid.NormalizedGeodeticPoint) (ellipsoid.NormalizedGeodeticPoint, bool, error) {
	return c.Intersection(e, p, l)
}

func (c ConstantElevation) Elevation(lat, lon float64) (float64, error) { return c.H, nil }

func (c ConstantElevation) AlgorithmID() AlgorithmID { return ConstantElevationID }

// IgnoreDem intersects the ray with the ellipsoid surface itself (altitude
// 0), for degraded modes where no DEM is available at all.
type IgnoreDem struct{}

func (IgnoreDem) Intersection(e ellipsoid.Ellipsoid, p, l spatial.Vector3) (ellipsoid.NormalizedGeodeticPoint, bool, error) {
	pt, err := e.PointAtAltitude(p, l, 0)
	if err != nil {
		return ellipsoid.NormalizedGeodeticPoint{}, false, nil
	}
	return e.ToGeodetic(pt, 0), true, nil
}

func (d IgnoreDem) RefineIntersection(e ellipsoid.Ellipsoid, p, l spatial.Vector3, guess ellipsoid.NormalizedGeodeticPoint) (ellipsoid.NormalizedGeodeticPoint, bool, error) {
	return d.Intersection(e, p, l)
}

func (IgnoreDem) Elevation(lat, lon float64) (float64, error) { return 0, nil }

func (IgnoreDem) AlgorithmID() AlgorithmID { return IgnoreDemID }
