// Package ellipsoid implements C1 of spec.md: cartesian/geodetic conversions
// and ray intersections with altitude, latitude and longitude surfaces of a
// reference ellipsoid.
package ellipsoid

import "math"

// GeodeticPoint is (latitude, longitude, altitude) in radians/meters.
type GeodeticPoint struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// NormalizedGeodeticPoint carries a centralLongitude so that longitude
// comparisons near the +/-pi seam stay monotone (spec.md §3's invariant:
// normalized.longitude in [centralLongitude-pi, centralLongitude+pi)).
type NormalizedGeodeticPoint struct {
	GeodeticPoint
	CentralLongitude float64
}

// Normalize shifts lon by a multiple of 2*pi so it falls within
// [central-pi, central+pi).
func Normalize(lon, central float64) float64 {
	twoPi := 2 * math.Pi
	shifted := lon - central + math.Pi
	shifted -= math.Floor(shifted/twoPi) * twoPi
	return shifted + central - math.Pi
}

// NewNormalizedGeodeticPoint builds a normalized point from raw lat/lon/alt.
func NewNormalizedGeodeticPoint(lat, lon, alt, central float64) NormalizedGeodeticPoint {
	return NormalizedGeodeticPoint{
		GeodeticPoint: GeodeticPoint{
			Latitude:  lat,
			Longitude: Normalize(lon, central),
			Altitude:  alt,
		},
		CentralLongitude: central,
	}
}
