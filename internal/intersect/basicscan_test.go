package intersect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CS-SI/rugged-go/internal/demtile"
	"github.com/CS-SI/rugged-go/internal/ellipsoid"
)

type fixedPlainCache struct{ tile *demtile.Tile }

func (c fixedPlainCache) GetTile(lat, lon float64) (*demtile.Tile, error) {
	return c.tile, nil
}

func flatPlainTile(minLat, minLon, dLat, dLon float64, rows, cols int, elevation float64) *demtile.Tile {
	tile := &demtile.Tile{}
	if err := tile.SetGeometry(minLat, minLon, dLat, dLon, rows, cols); err != nil {
		panic(err)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			_ = tile.SetElevation(i, j, elevation)
		}
	}
	tile.TileUpdateCompleted()
	return tile
}

func TestBasicScan_Intersect_FlatTerrain_VerticalRay(t *testing.T) {
	lat, lon, terrain := 0.5, 0.5, 150.0
	tile := flatPlainTile(-1, -1, 0.1, 0.1, 21, 21, terrain)
	b := &BasicScan{Ellipsoid: ellipsoid.WGS84, Cache: fixedPlainCache{tile}}

	top := ellipsoid.WGS84.ToCartesian(ellipsoid.GeodeticPoint{Latitude: lat, Longitude: lon, Altitude: 10000})
	ground := ellipsoid.WGS84.ToCartesian(ellipsoid.GeodeticPoint{Latitude: lat, Longitude: lon, Altitude: 0})
	l := ground.Sub(top)

	hit, ok, err := b.Intersect(top, l)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if !ok {
		t.Fatal("expected the vertical ray to hit the flat terrain")
	}
	assert.InDelta(t, lat, hit.Latitude, 1e-6)
	assert.InDelta(t, lon, hit.Longitude, 1e-6)
	assert.InDelta(t, terrain, hit.Altitude, 1e-3)
}

func TestBasicScan_TilesTouching_DedupesSameTile(t *testing.T) {
	tile := flatPlainTile(-1, -1, 0.1, 0.1, 21, 21, 0)
	b := &BasicScan{Ellipsoid: ellipsoid.WGS84, Cache: fixedPlainCache{tile}}

	entry := ellipsoid.NewNormalizedGeodeticPoint(0.1, 0.1, 1000, 0)
	exit := ellipsoid.NewNormalizedGeodeticPoint(0.2, 0.2, 0, 0)

	tiles, err := b.tilesTouching(entry, exit)
	if err != nil {
		t.Fatalf("tilesTouching: %v", err)
	}
	if len(tiles) != 1 {
		t.Fatalf("expected the four corners to dedup to 1 tile, got %d", len(tiles))
	}
}

func TestBasicScan_Scan_PicksClosestHit(t *testing.T) {
	lat, lon := 0.5, 0.5
	near := flatPlainTile(-1, -1, 0.1, 0.1, 21, 21, 500)
	far := flatPlainTile(-1, -1, 0.1, 0.1, 21, 21, 100)
	b := &BasicScan{Ellipsoid: ellipsoid.WGS84, Cache: fixedPlainCache{near}}

	top := ellipsoid.WGS84.ToCartesian(ellipsoid.GeodeticPoint{Latitude: lat, Longitude: lon, Altitude: 10000})
	ground := ellipsoid.WGS84.ToCartesian(ellipsoid.GeodeticPoint{Latitude: lat, Longitude: lon, Altitude: 0})
	l := ground.Sub(top)
	entry := ellipsoid.WGS84.ToGeodetic(top, 0)

	hit, ok, err := b.scan([]*demtile.Tile{far, near}, entry, l)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	assert.InDelta(t, 500, hit.Altitude, 1e-3)
}
