package rugged

import (
	"fmt"

	"github.com/CS-SI/rugged-go/internal/cog"
)

// GeoTIFFDEM is a TileUpdater backed by a float-elevation GeoTIFF/COG raster
// in geographic (EPSG:4326) coordinates, the format SRTM, Copernicus GLO-30
// and most other public DEM products ship in. It reads one raster tile per
// GetTile miss and hands its native tiling straight to the cache, so the
// cache's tile footprint tracks whatever the file was tiled at.
type GeoTIFFDEM struct {
	reader *cog.Reader
}

// OpenGeoTIFFDEM opens path as a DEM source. It fails fast if the raster
// isn't a float elevation band or isn't in geographic coordinates, since
// neither can be turned into a lat/lon-indexed Tile.
func OpenGeoTIFFDEM(path string) (*GeoTIFFDEM, error) {
	r, err := cog.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geotiff dem: %w", err)
	}
	if !r.IsFloat() {
		r.Close()
		return nil, fmt.Errorf("geotiff dem: %s has no float elevation band", path)
	}
	if epsg := r.EPSG(); epsg != 0 && epsg != 4326 {
		r.Close()
		return nil, fmt.Errorf("geotiff dem: %s is in EPSG:%d, only geographic EPSG:4326 rasters are supported", path, epsg)
	}
	return &GeoTIFFDEM{reader: r}, nil
}

// Close releases the underlying file contents.
func (d *GeoTIFFDEM) Close() error { return d.reader.Close() }

// Describe summarizes the raster's suitability as a DEM source: whether it
// carries a float elevation band, its coordinate reference system, and its
// footprint. Intended for command-line diagnostics rather than the
// location pipeline itself.
func (d *GeoTIFFDEM) Describe() string {
	minLon, minLat, maxLon, maxLat := d.reader.BoundsInCRS()
	return fmt.Sprintf("float band: %t, EPSG: %d, size: %dx%d, bounds: [%g,%g]x[%g,%g]",
		d.reader.IsFloat(), d.reader.EPSG(), d.reader.Width(), d.reader.Height(), minLon, minLat, maxLon, maxLat)
}

// UpdateTile implements TileUpdater by reading whichever raster tile of the
// full-resolution image (level 0) covers (lat, lon) and copying it into the
// cache's tile, flipping row order since the raster's row 0 is its
// northernmost row while a Tile's row 0 is its southernmost.
func (d *GeoTIFFDEM) UpdateTile(lat, lon float64, tile *UpdatableTile) error {
	minLon, minLat, maxLon, maxLat := d.reader.BoundsInCRS()
	width, height := d.reader.Width(), d.reader.Height()
	if width == 0 || height == 0 {
		return fmt.Errorf("geotiff dem: empty raster")
	}
	if lat < minLat || lat > maxLat || lon < minLon || lon > maxLon {
		return fmt.Errorf("geotiff dem: (%g, %g) is outside raster bounds [%g,%g]x[%g,%g]", lat, lon, minLat, maxLat, minLon, maxLon)
	}
	pixelSizeX := (maxLon - minLon) / float64(width)
	pixelSizeY := (maxLat - minLat) / float64(height)

	tileW, tileH := d.reader.TileSize()
	if tileW <= 0 || tileH <= 0 {
		return fmt.Errorf("geotiff dem: invalid tile size (%d,%d)", tileW, tileH)
	}
	px := int((lon - minLon) / pixelSizeX)
	py := int((maxLat - lat) / pixelSizeY)
	col := px / tileW
	row := py / tileH

	data, w, h, err := d.reader.ReadFloatTile(col, row)
	if err != nil {
		return fmt.Errorf("geotiff dem: reading tile (%d,%d): %w", col, row, err)
	}

	tileMinLon := minLon + float64(col*tileW)*pixelSizeX
	tileMaxLat := maxLat - float64(row*tileH)*pixelSizeY
	tileMinLat := tileMaxLat - float64(h)*pixelSizeY

	if err := tile.SetGeometry(tileMinLat, tileMinLon, pixelSizeY, pixelSizeX, h, w); err != nil {
		return err
	}
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			var e float32
			if data != nil {
				// data is nil for a sparse tile the encoder never wrote
				// (uniformly zero), which callers report as 0.
				e = data[(h-1-i)*w+j]
			}
			if err := tile.SetElevation(i, j, float64(e)); err != nil {
				return err
			}
		}
	}
	return nil
}
