// Package demtile implements C2 (Tile) and C3 (min/max K-D tile) of
// spec.md: a rectangular lat/lon elevation raster with location
// classification, bilinear interpolation and bilinear-cell ray intersection,
// plus the min/max elevation pyramid the Duvenhage intersector prunes with.
package demtile

import (
	"math"

	"github.com/CS-SI/rugged-go/internal/ellipsoid"
	"github.com/CS-SI/rugged-go/internal/rerr"
)

// Location classifies a point relative to a tile's footprint (spec.md §3).
type Location int

const (
	InTile Location = iota
	North
	South
	East
	West
	NorthEast
	NorthWest
	SouthEast
	SouthWest
)

// Tile is a rectangular latitude/longitude elevation raster.
//
// set_geometry must be called exactly once, followed by set_elevation for
// every (i,j), followed by TileUpdateCompleted, which publishes the tile:
// reads that happen after TileUpdateCompleted returns are guaranteed a
// fully populated raster (spec.md §3's publication-barrier invariant).
type Tile struct {
	minLat, minLon float64
	dLat, dLon     float64
	rows, cols     int

	elevations []float64 // row-major, rows*cols
	minElev    float64
	maxElev    float64

	geometrySet bool
	published   bool

	// onUpdateCompleted lets an embedding type (MinMaxTile) hook the
	// publication barrier to build derived structures (the pyramid). It is
	// set once by the owner before any write, never mutated afterwards.
	onUpdateCompleted func()
}

// SetGeometry sets the tile's raster geometry. Must be called exactly once.
func (t *Tile) SetGeometry(minLat, minLon, dLat, dLon float64, rows, cols int) error {
	if rows < 1 || cols < 1 {
		return rerr.New(rerr.EmptyTile, "rows=%d cols=%d", rows, cols)
	}
	t.minLat, t.minLon = minLat, minLon
	t.dLat, t.dLon = dLat, dLon
	t.rows, t.cols = rows, cols
	t.elevations = make([]float64, rows*cols)
	t.geometrySet = true
	return nil
}

// SetElevation sets the elevation sample at raster index (i, j).
func (t *Tile) SetElevation(i, j int, e float64) error {
	if !t.geometrySet || i < 0 || i >= t.rows || j < 0 || j >= t.cols {
		return rerr.New(rerr.OutOfTileIndices, "(%d,%d) outside %dx%d", i, j, t.rows, t.cols)
	}
	t.elevations[i*t.cols+j] = e
	return nil
}

// Elevation returns the raw raster sample at (i, j).
func (t *Tile) Elevation(i, j int) float64 {
	return t.elevations[i*t.cols+j]
}

// TileUpdateCompleted publishes the tile: computes the min/max elevation
// over the whole grid and invokes the onUpdateCompleted hook, if any.
func (t *Tile) TileUpdateCompleted() {
	t.minElev = math.Inf(1)
	t.maxElev = math.Inf(-1)
	for _, e := range t.elevations {
		if e < t.minElev {
			t.minElev = e
		}
		if e > t.maxElev {
			t.maxElev = e
		}
	}
	t.published = true
	if t.onUpdateCompleted != nil {
		t.onUpdateCompleted()
	}
}

func (t *Tile) Published() bool { return t.published }

func (t *Tile) Rows() int { return t.rows }
func (t *Tile) Cols() int { return t.cols }
func (t *Tile) MinLat() float64 { return t.minLat }
func (t *Tile) MinLon() float64 { return t.minLon }
func (t *Tile) DLat() float64 { return t.dLat }
func (t *Tile) DLon() float64 { return t.dLon }
func (t *Tile) MinElevation() float64 { return t.minElev }
func (t *Tile) MaxElevation() float64 { return t.maxElev }

// MaxLat / MaxLon are the coordinates of the last sample row / column, the
// inclusive upper bounds of the tile's footprint.
func (t *Tile) MaxLat() float64 { return t.minLat + float64(t.rows-1)*t.dLat }
func (t *Tile) MaxLon() float64 { return t.minLon + float64(t.cols-1)*t.dLon }

// Location classifies (lat, lon) relative to the tile's footprint.
func (t *Tile) Location(lat, lon float64) Location {
	var vertical, horizontal int // -1 below/left (South/West), 0 in, +1 above/right (North/East)

	switch {
	case lat < t.minLat:
		vertical = -1
	case lat > t.MaxLat():
		vertical = 1
	default:
		vertical = 0
	}
	switch {
	case lon < t.minLon:
		horizontal = -1
	case lon > t.MaxLon():
		horizontal = 1
	default:
		horizontal = 0
	}

	switch {
	case vertical == 0 && horizontal == 0:
		return InTile
	case vertical == 1 && horizontal == 0:
		return North
	case vertical == -1 && horizontal == 0:
		return South
	case vertical == 0 && horizontal == 1:
		return East
	case vertical == 0 && horizontal == -1:
		return West
	case vertical == 1 && horizontal == 1:
		return NorthEast
	case vertical == 1 && horizontal == -1:
		return NorthWest
	case vertical == -1 && horizontal == 1:
		return SouthEast
	default:
		return SouthWest
	}
}

// CellIndices returns the (i, j) of the cell containing (lat, lon), clamped
// to the valid [0, rows-2] x [0, cols-2] range of cell origins.
func (t *Tile) CellIndices(lat, lon float64) (int, int) { return t.cellIndices(lat, lon) }

// cellIndices returns the (i, j) of the cell containing (lat, lon), clamped
// to the valid [0, rows-2] x [0, cols-2] range of cell origins.
func (t *Tile) cellIndices(lat, lon float64) (int, int) {
	i := int(math.Floor((lat - t.minLat) / t.dLat))
	j := int(math.Floor((lon - t.minLon) / t.dLon))
	if i < 0 {
		i = 0
	}
	if i > t.rows-2 {
		i = t.rows - 2
	}
	if j < 0 {
		j = 0
	}
	if j > t.cols-2 {
		j = t.cols - 2
	}
	return i, j
}

// InterpolateElevation bilinearly interpolates elevation at (lat, lon).
// Points up to 1/8 of a cell outside the raster are accepted (the index is
// clamped); further out fails OUT_OF_TILE_ANGLES.
func (t *Tile) InterpolateElevation(lat, lon float64) (float64, error) {
	margin := 0.125
	if lat < t.minLat-margin*t.dLat || lat > t.MaxLat()+margin*t.dLat ||
		lon < t.minLon-margin*t.dLon || lon > t.MaxLon()+margin*t.dLon {
		return 0, rerr.New(rerr.OutOfTileAngles, "(%g,%g) outside tile bounds", lat, lon)
	}

	i, j := t.cellIndices(lat, lon)
	u := (lon - (t.minLon + float64(j)*t.dLon)) / t.dLon
	v := (lat - (t.minLat + float64(i)*t.dLat)) / t.dLat
	u = clamp01(u)
	v = clamp01(v)

	e00 := t.Elevation(i, j)
	e10 := t.Elevation(i, j+1)
	e01 := t.Elevation(i+1, j)
	e11 := t.Elevation(i+1, j+1)

	return (1-u)*(1-v)*e00 + u*(1-v)*e10 + (1-u)*v*e01 + u*v*e11, nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// GeodeticLOS is a locally linearized ray, expressed as geodetic coordinate
// derivatives (spec.md §4.1's convert_los output): lat(s) = Lat + s*DLat, etc.
type GeodeticLOS struct {
	DLat, DLon, DAlt float64
}

// CellIntersection intersects the ray (entry, los) with DEM cell (i, j)
// modelled as a bilinear surface over its four corner elevations (spec.md
// §4.2). Returns (point, true) on the first forward root landing inside the
// cell's unit square, or (zero, false) if there is none.
func (t *Tile) CellIntersection(entry ellipsoid.NormalizedGeodeticPoint, los GeodeticLOS, i, j int) (ellipsoid.NormalizedGeodeticPoint, bool) {
	cellMinLat := t.minLat + float64(i)*t.dLat
	cellMinLon := t.minLon + float64(j)*t.dLon

	u0 := (entry.Longitude - cellMinLon) / t.dLon
	v0 := (entry.Latitude - cellMinLat) / t.dLat
	uSlope := los.DLon / t.dLon
	vSlope := los.DLat / t.dLat

	e00 := t.Elevation(i, j)
	e10 := t.Elevation(i, j+1)
	e01 := t.Elevation(i+1, j)
	e11 := t.Elevation(i+1, j+1)

	a0 := e00
	b0 := e10 - e00
	c0 := e01 - e00
	d0 := e11 - e10 - e01 + e00

	// f(s) = alt(s) - z(u(s), v(s)) = a*s^2 + b*s + c
	a := -d0 * uSlope * vSlope
	b := los.DAlt - (b0*uSlope + c0*vSlope + d0*(u0*vSlope+v0*uSlope))
	c := entry.Altitude - (a0 + b0*u0 + c0*v0 + d0*u0*v0)

	best := math.Inf(1)
	found := false
	for _, s := range quadraticRoots(a, b, c) {
		if s < -1e-9 {
			continue
		}
		u := u0 + uSlope*s
		v := v0 + vSlope*s
		if u < -1e-9 || u > 1+1e-9 || v < -1e-9 || v > 1+1e-9 {
			continue
		}
		if s < best {
			best, found = s, true
		}
	}
	if !found {
		return ellipsoid.NormalizedGeodeticPoint{}, false
	}

	lat := entry.Latitude + los.DLat*best
	lon := entry.Longitude + los.DLon*best
	alt := entry.Altitude + los.DAlt*best
	return ellipsoid.NewNormalizedGeodeticPoint(lat, lon, alt, entry.CentralLongitude), true
}

func quadraticRoots(a, b, c float64) []float64 {
	if math.Abs(a) < 1e-15 {
		if math.Abs(b) < 1e-15 {
			return nil
		}
		return []float64{-c / b}
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	return []float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)}
}
