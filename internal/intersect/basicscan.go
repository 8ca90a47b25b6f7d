package intersect

import (
	"math"

	"github.com/CS-SI/rugged-go/internal/demtile"
	"github.com/CS-SI/rugged-go/internal/ellipsoid"
	"github.com/CS-SI/rugged-go/internal/spatial"
)

// PlainCache is the subset of democache.Cache[*demtile.Tile] BasicScan needs.
type PlainCache interface {
	GetTile(lat, lon float64) (*demtile.Tile, error)
}

// BasicScan is C9: an exhaustive reference intersector for tests, trading
// throughput for a straightforward implementation with no pyramid pruning.
// Not for production use.
type BasicScan struct {
	Ellipsoid        ellipsoid.Ellipsoid
	Cache            PlainCache
	CentralLongitude float64
}

// Intersect scans every cell of every tile touching the ray's bounding box
// between the ellipsoid's hMax and hMin altitude crossings, widening the
// envelope until a fixed point, and keeps the closest hit.
func (b *BasicScan) Intersect(p, l spatial.Vector3) (ellipsoid.NormalizedGeodeticPoint, bool, error) {
	hMax, hMin := 0.0, 0.0

	for {
		entryPt, err := b.Ellipsoid.PointAtAltitude(p, l, hMax)
		if err != nil {
			return ellipsoid.NormalizedGeodeticPoint{}, false, nil
		}
		entry := b.Ellipsoid.ToGeodetic(entryPt, b.CentralLongitude)

		exitPt, err := b.Ellipsoid.PointAtAltitude(p, l, hMin)
		if err != nil {
			return ellipsoid.NormalizedGeodeticPoint{}, false, nil
		}
		exit := b.Ellipsoid.ToGeodetic(exitPt, b.CentralLongitude)

		tiles, err := b.tilesTouching(entry, exit)
		if err != nil {
			return ellipsoid.NormalizedGeodeticPoint{}, false, err
		}

		newMin, newMax := hMin, hMax
		for _, t := range tiles {
			if t.MinElevation() < newMin {
				newMin = t.MinElevation()
			}
			if t.MaxElevation() > newMax {
				newMax = t.MaxElevation()
			}
		}
		if newMin == hMin && newMax == hMax {
			return b.scan(tiles, entry, l)
		}
		hMin, hMax = newMin, newMax
	}
}

// tilesTouching returns every distinct tile covering the lat/lon bounding
// box between entry and exit (listed by exitTile the second time, per the
// boundary-coverage fix called out in spec.md §9 — the naive version that
// lists entryTile twice misses the far corner's tile on a diagonal ray).
func (b *BasicScan) tilesTouching(entry, exit ellipsoid.NormalizedGeodeticPoint) ([]*demtile.Tile, error) {
	corners := [][2]float64{
		{entry.Latitude, entry.Longitude},
		{entry.Latitude, exit.Longitude},
		{exit.Latitude, entry.Longitude},
		{exit.Latitude, exit.Longitude},
	}

	seen := make(map[*demtile.Tile]bool)
	var tiles []*demtile.Tile
	for _, c := range corners {
		t, err := b.Cache.GetTile(c[0], c[1])
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			tiles = append(tiles, t)
		}
	}
	return tiles, nil
}

// scan brute-force tests every cell of every candidate tile, keeping the
// intersection closest to entry along the ray.
func (b *BasicScan) scan(tiles []*demtile.Tile, entry ellipsoid.NormalizedGeodeticPoint, l spatial.Vector3) (ellipsoid.NormalizedGeodeticPoint, bool, error) {
	best := math.Inf(1)
	var bestPoint ellipsoid.NormalizedGeodeticPoint
	found := false

	for _, tile := range tiles {
		dLat, dLon, dAlt := b.Ellipsoid.ConvertLOS(entry, l)
		los := demtile.GeodeticLOS{DLat: dLat, DLon: dLon, DAlt: dAlt}

		for i := 0; i < tile.Rows()-1; i++ {
			for j := 0; j < tile.Cols()-1; j++ {
				hit, ok := tile.CellIntersection(entry, los, i, j)
				if !ok {
					continue
				}
				// Distance proxy along the linearized ray: altitude drop
				// from entry is monotone with ray parameter for a forward
				// ray, so compare by |hit.Altitude - entry.Altitude| is not
				// reliable across tiles; instead reproject onto the 3-D ray.
				cart := b.Ellipsoid.ToCartesian(hit.GeodeticPoint)
				s := cart.Sub(b.Ellipsoid.ToCartesian(entry.GeodeticPoint)).Dot(l.Normalized())
				if s >= -1e-6 && s < best {
					best, bestPoint, found = s, hit, true
				}
			}
		}
	}
	return bestPoint, found, nil
}
