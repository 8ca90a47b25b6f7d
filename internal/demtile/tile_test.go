package demtile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CS-SI/rugged-go/internal/ellipsoid"
)

func flatTile(rows, cols int, minLat, minLon, dLat, dLon, elevation float64) *Tile {
	t := &Tile{}
	if err := t.SetGeometry(minLat, minLon, dLat, dLon, rows, cols); err != nil {
		panic(err)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			_ = t.SetElevation(i, j, elevation)
		}
	}
	t.TileUpdateCompleted()
	return t
}

func TestTile_PublicationBarrier(t *testing.T) {
	tile := &Tile{}
	if tile.Published() {
		t.Fatal("a fresh tile must not be published")
	}
	if err := tile.SetGeometry(0, 0, 1, 1, 4, 4); err != nil {
		t.Fatalf("SetGeometry: %v", err)
	}
	if tile.Published() {
		t.Fatal("must not be published before TileUpdateCompleted")
	}
	tile.TileUpdateCompleted()
	if !tile.Published() {
		t.Fatal("must be published after TileUpdateCompleted")
	}
}

func TestTile_SetGeometry_RejectsEmpty(t *testing.T) {
	tile := &Tile{}
	if err := tile.SetGeometry(0, 0, 1, 1, 0, 4); err == nil {
		t.Fatal("expected an error for zero rows")
	}
}

func TestTile_SetElevation_RejectsOutOfRange(t *testing.T) {
	tile := &Tile{}
	_ = tile.SetGeometry(0, 0, 1, 1, 3, 3)
	if err := tile.SetElevation(3, 0, 10); err == nil {
		t.Fatal("expected an error for an out-of-range row")
	}
}

func TestTile_MinMaxElevation(t *testing.T) {
	tile := &Tile{}
	_ = tile.SetGeometry(0, 0, 1, 1, 2, 2)
	_ = tile.SetElevation(0, 0, 10)
	_ = tile.SetElevation(0, 1, -5)
	_ = tile.SetElevation(1, 0, 100)
	_ = tile.SetElevation(1, 1, 30)
	tile.TileUpdateCompleted()

	assert.Equal(t, -5.0, tile.MinElevation())
	assert.Equal(t, 100.0, tile.MaxElevation())
}

func TestTile_Location(t *testing.T) {
	tile := flatTile(4, 4, 0, 0, 1, 1, 0)

	tests := []struct {
		lat, lon float64
		want     Location
	}{
		{1.5, 1.5, InTile},
		{10, 1.5, North},
		{-10, 1.5, South},
		{1.5, 10, East},
		{1.5, -10, West},
		{10, 10, NorthEast},
		{10, -10, NorthWest},
		{-10, 10, SouthEast},
		{-10, -10, SouthWest},
	}
	for _, tt := range tests {
		if got := tile.Location(tt.lat, tt.lon); got != tt.want {
			t.Errorf("Location(%g,%g) = %v, want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestTile_InterpolateElevation_FlatTileIsConstant(t *testing.T) {
	tile := flatTile(5, 5, 0, 0, 1, 1, 42)

	for lat := 0.2; lat < 3.8; lat += 0.5 {
		for lon := 0.2; lon < 3.8; lon += 0.5 {
			got, err := tile.InterpolateElevation(lat, lon)
			if err != nil {
				t.Fatalf("InterpolateElevation(%g,%g): %v", lat, lon, err)
			}
			assert.InDelta(t, 42.0, got, 1e-9)
		}
	}
}

func TestTile_InterpolateElevation_BilinearCorners(t *testing.T) {
	tile := &Tile{}
	_ = tile.SetGeometry(0, 0, 1, 1, 2, 2)
	_ = tile.SetElevation(0, 0, 0)  // (lat 0, lon 0)
	_ = tile.SetElevation(0, 1, 10) // (lat 0, lon 1)
	_ = tile.SetElevation(1, 0, 20) // (lat 1, lon 0)
	_ = tile.SetElevation(1, 1, 30) // (lat 1, lon 1)
	tile.TileUpdateCompleted()

	got, err := tile.InterpolateElevation(0.5, 0.5)
	if err != nil {
		t.Fatalf("InterpolateElevation: %v", err)
	}
	assert.InDelta(t, 15.0, got, 1e-9)

	corner, err := tile.InterpolateElevation(1, 1)
	if err != nil {
		t.Fatalf("InterpolateElevation: %v", err)
	}
	assert.InDelta(t, 30.0, corner, 1e-9)
}

func TestTile_InterpolateElevation_OutOfBounds(t *testing.T) {
	tile := flatTile(3, 3, 0, 0, 1, 1, 0)
	if _, err := tile.InterpolateElevation(100, 100); err == nil {
		t.Fatal("expected an out-of-bounds error")
	}
}

func TestTile_CellIndices_Clamped(t *testing.T) {
	tile := flatTile(4, 4, 0, 0, 1, 1, 0)
	i, j := tile.CellIndices(-5, -5)
	assert.Equal(t, 0, i)
	assert.Equal(t, 0, j)

	i, j = tile.CellIndices(100, 100)
	assert.Equal(t, 2, i)
	assert.Equal(t, 2, j)
}

func TestTile_CellIntersection_FlatCellHitsAtKnownAltitude(t *testing.T) {
	tile := flatTile(2, 2, 0, 0, 1, 1, 100)

	entry := ellipsoid.NewNormalizedGeodeticPoint(0.5, 0.5, 1000, 0)
	los := GeodeticLOS{DLat: 0, DLon: 0, DAlt: -1}

	hit, ok := tile.CellIntersection(entry, los, 0, 0)
	if !ok {
		t.Fatal("expected a hit on a flat cell straight down")
	}
	assert.InDelta(t, 100.0, hit.Altitude, 1e-9)
	assert.InDelta(t, 0.5, hit.Latitude, 1e-9)
	assert.InDelta(t, 0.5, hit.Longitude, 1e-9)
}

func TestTile_CellIntersection_MissesOutsideCell(t *testing.T) {
	tile := flatTile(2, 2, 0, 0, 1, 1, 100)

	// Straight down but the horizontal slope walks the hit point out of the
	// unit square before it reaches the surface.
	entry := ellipsoid.NewNormalizedGeodeticPoint(0.5, 0.5, 1000, 0)
	los := GeodeticLOS{DLat: 0, DLon: 100, DAlt: -1}

	_, ok := tile.CellIntersection(entry, los, 0, 0)
	if ok {
		t.Fatal("expected no hit: ray exits the cell horizontally long before reaching the surface")
	}
}

func TestTile_MaxLatMaxLon(t *testing.T) {
	tile := flatTile(4, 7, 10, 20, 0.5, 0.25, 0)
	assert.InDelta(t, 10+3*0.5, tile.MaxLat(), 1e-12)
	assert.InDelta(t, 20+6*0.25, tile.MaxLon(), 1e-12)
}

func TestQuadraticRoots(t *testing.T) {
	roots := quadraticRoots(1, 0, -4)
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	sum := roots[0] + roots[1]
	if math.Abs(sum) > 1e-9 {
		t.Errorf("roots should be symmetric around 0, sum=%g", sum)
	}
}
