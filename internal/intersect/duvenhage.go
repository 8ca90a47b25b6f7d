// Package intersect implements C7 (Duvenhage) and C9 (basic scan) of
// spec.md: ray/terrain intersection against a cached, pyramided DEM.
package intersect

import (
	"math"

	"github.com/CS-SI/rugged-go/internal/demtile"
	"github.com/CS-SI/rugged-go/internal/ellipsoid"
	"github.com/CS-SI/rugged-go/internal/rerr"
	"github.com/CS-SI/rugged-go/internal/spatial"
)

// stepMeters is the forward nudge used to cross from one tile to the next
// after a side exit (spec.md §4.7, step 2c).
const stepMeters = 0.01

// MinMaxCache is the subset of democache.Cache the Duvenhage algorithm needs.
type MinMaxCache interface {
	GetTile(lat, lon float64) (*demtile.MinMaxTile, error)
}

// Duvenhage is the main ray/terrain walker (C7), using the ellipsoid (C1),
// min/max pyramided tiles (C3) and the tile cache (C4).
type Duvenhage struct {
	Ellipsoid        ellipsoid.Ellipsoid
	Cache            MinMaxCache
	CentralLongitude float64
	// MaxEntryRetries bounds the entry-point altitude refinement loop
	// (spec.md §9's resolved open question: default 5).
	MaxEntryRetries int
}

// Intersect walks ray P + t*L (body frame, t>0) to its first ground impact.
// ok is false when the ray never reaches the ground below the DEM's known
// minimum elevation.
func (d *Duvenhage) Intersect(p, l spatial.Vector3) (point ellipsoid.NormalizedGeodeticPoint, ok bool, err error) {
	maxRetries := d.MaxEntryRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	hMax := 0.0
	var tile *demtile.MinMaxTile
	var current ellipsoid.NormalizedGeodeticPoint

	for i := 0; i < maxRetries; i++ {
		ep, perr := d.Ellipsoid.PointAtAltitude(p, l, math.Max(0, hMax))
		if perr != nil {
			return ellipsoid.NormalizedGeodeticPoint{}, false,
				rerr.Wrap(rerr.DemEntryPointIsBehindSpacecraft, perr, "no forward ray entry point at altitude %g", hMax)
		}
		current = d.Ellipsoid.ToGeodetic(ep, d.CentralLongitude)

		t, terr := d.Cache.GetTile(current.Latitude, current.Longitude)
		if terr != nil {
			return ellipsoid.NormalizedGeodeticPoint{}, false, terr
		}
		tile = t
		if tile.MaxElevation() <= hMax {
			break
		}
		hMax = tile.MaxElevation()
	}

	for {
		hit, exit, exitedBottom, werr := d.walkTile(tile, current, l)
		if werr != nil {
			return ellipsoid.NormalizedGeodeticPoint{}, false, werr
		}
		if hit != nil {
			return *hit, true, nil
		}
		if exitedBottom {
			return ellipsoid.NormalizedGeodeticPoint{}, false, nil
		}

		nudged, nerr := d.nudgeForward(exit, p, l)
		if nerr != nil {
			return ellipsoid.NormalizedGeodeticPoint{}, false, nil
		}
		nt, terr := d.Cache.GetTile(nudged.Latitude, nudged.Longitude)
		if terr != nil {
			return ellipsoid.NormalizedGeodeticPoint{}, false, terr
		}
		tile = nt
		current = nudged
	}
}

// walkTile advances current cell by cell across tile until it either hits
// terrain, exits the tile sideways, or drops below the tile's minimum
// elevation (exitedBottom). It uses the min/max pyramid to skip the
// per-corner test whenever the whole immediately-merged neighborhood is
// known to lie below the ray.
func (d *Duvenhage) walkTile(tile *demtile.MinMaxTile, entry ellipsoid.NormalizedGeodeticPoint, l spatial.Vector3) (*ellipsoid.NormalizedGeodeticPoint, ellipsoid.NormalizedGeodeticPoint, bool, error) {
	current := entry
	hMin := tile.MinElevation()

	for {
		dLat, dLon, dAlt := d.Ellipsoid.ConvertLOS(current, l)
		stepGLOS := demtile.GeodeticLOS{DLat: dLat, DLon: dLon, DAlt: dAlt}
		r, c := tile.CellIndices(current.Latitude, current.Longitude)

		if current.Altitude <= hMin {
			if hit, ok := tile.CellIntersection(current, stepGLOS, r, c); ok {
				return &hit, current, false, nil
			}
			return nil, current, true, nil
		}

		nr, nc, s, exits := nextCell(tile, r, c, current, stepGLOS)
		if exits {
			if hit, ok := tile.CellIntersection(current, stepGLOS, r, c); ok {
				return &hit, current, false, nil
			}
			exitPoint := ellipsoid.NewNormalizedGeodeticPoint(
				current.Latitude+dLat*s,
				current.Longitude+dLon*s,
				current.Altitude+dAlt*s,
				current.CentralLongitude,
			)
			return nil, exitPoint, false, nil
		}

		stepEntry := ellipsoid.NewNormalizedGeodeticPoint(
			current.Latitude+dLat*s,
			current.Longitude+dLon*s,
			current.Altitude+dAlt*s,
			current.CentralLongitude,
		)

		// Pyramid pruning: if the merged block one level up from (r,c) is
		// entirely below the ray's altitude at the far side of the step,
		// skip the exact per-cell test.
		if tile.Levels() > 1 {
			mergeLevel := tile.GetMergeLevel(r, c, nr, nc)
			if mergeLevel >= 0 && stepEntry.Altitude >= tile.GetMaxElevation(r, c, mergeLevel) {
				current = stepEntry
				continue
			}
		}

		if maxCorner(tile, r, c) >= stepEntry.Altitude {
			if hit, ok := tile.CellIntersection(current, stepGLOS, r, c); ok {
				return &hit, current, false, nil
			}
		}
		current = stepEntry
	}
}

func maxCorner(tile *demtile.MinMaxTile, r, c int) float64 {
	return max4(
		tile.Elevation(r, c),
		tile.Elevation(r, c+1),
		tile.Elevation(r+1, c),
		tile.Elevation(r+1, c+1),
	)
}

func max4(a, b, c, d float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	if d > m {
		m = d
	}
	return m
}

// nextCell finds the grid boundary the ray crosses next from within cell
// (r, c), given the entry point and local geodetic LOS rates. Returns the
// neighboring cell indices and the ray parameter s at that crossing; exits
// is true when that neighbor would fall outside the tile's valid cell range
// (i.e. the ray is leaving the tile, not just the cell).
func nextCell(tile *demtile.MinMaxTile, r, c int, entry ellipsoid.NormalizedGeodeticPoint, los demtile.GeodeticLOS) (int, int, float64, bool) {
	cellMinLat := tile.MinLat() + float64(r)*tile.DLat()
	cellMinLon := tile.MinLon() + float64(c)*tile.DLon()
	u := (entry.Longitude - cellMinLon) / tile.DLon()
	v := (entry.Latitude - cellMinLat) / tile.DLat()
	uSlope := los.DLon / tile.DLon()
	vSlope := los.DLat / tile.DLat()

	const inf = math.MaxFloat64
	sU, sV := inf, inf
	nr, nc := r, c

	switch {
	case uSlope > 1e-15:
		sU = (1 - u) / uSlope
		nc = c + 1
	case uSlope < -1e-15:
		sU = -u / uSlope
		nc = c - 1
	}
	switch {
	case vSlope > 1e-15:
		sV = (1 - v) / vSlope
		nr = r + 1
	case vSlope < -1e-15:
		sV = -v / vSlope
		nr = r - 1
	}
	if sU == inf && sV == inf {
		return r, c, 0, true
	}

	var s float64
	if sU <= sV {
		s = sU
		nr = r
	} else {
		s = sV
		nc = c
	}

	if nr < 0 || nr > tile.Rows()-2 || nc < 0 || nc > tile.Cols()-2 {
		return r, c, s, true
	}
	return nr, nc, s, false
}

// nudgeForward advances a tile-exit point by stepMeters along the true 3-D
// ray so it lands just inside the neighboring tile.
func (d *Duvenhage) nudgeForward(exit ellipsoid.NormalizedGeodeticPoint, p, l spatial.Vector3) (ellipsoid.NormalizedGeodeticPoint, error) {
	cart := d.Ellipsoid.ToCartesian(exit.GeodeticPoint)
	dir := l.Normalized()
	nudged := cart.Add(dir.Scale(stepMeters))
	return d.Ellipsoid.ToGeodetic(nudged, d.CentralLongitude), nil
}

// RefineIntersection projects guess back onto ray P+t*L, re-fetches the
// covering tile and runs one exact cell intersection — used both to finish
// the Duvenhage walk and by clients holding a prior estimate (spec.md §4.7,
// step 3).
func (d *Duvenhage) RefineIntersection(p, l spatial.Vector3, guess ellipsoid.NormalizedGeodeticPoint) (ellipsoid.NormalizedGeodeticPoint, bool, error) {
	gp := d.Ellipsoid.ToCartesian(guess.GeodeticPoint)
	denom := l.Dot(l)
	if denom == 0 {
		return ellipsoid.NormalizedGeodeticPoint{}, false, rerr.New(rerr.InternalError, "zero-length line of sight")
	}
	s := gp.Sub(p).Dot(l) / denom
	proj := p.Add(l.Scale(s))
	projGeo := d.Ellipsoid.ToGeodetic(proj, d.CentralLongitude)

	tile, err := d.Cache.GetTile(projGeo.Latitude, projGeo.Longitude)
	if err != nil {
		return ellipsoid.NormalizedGeodeticPoint{}, false, err
	}
	dLat, dLon, dAlt := d.Ellipsoid.ConvertLOS(projGeo, l)
	los := demtile.GeodeticLOS{DLat: dLat, DLon: dLon, DAlt: dAlt}
	r, c := tile.CellIndices(projGeo.Latitude, projGeo.Longitude)
	hit, ok := tile.CellIntersection(projGeo, los, r, c)
	return hit, ok, nil
}
