package cog

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Reader gives read-only access to the single float elevation band of a
// tiled, classic GeoTIFF/COG file: the minimal surface a TileUpdater backed
// by a real DEM raster needs, nothing more.
type Reader struct {
	data []byte
	bo   binary.ByteOrder
	b    *band
	path string
}

// Open reads path whole and parses its first image file directory. It
// rejects files that fail to parse and unsupported compression codes; the
// single-band and floating-point checks are made by ReadFloatTile.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cog: opening %s: %w", path, err)
	}
	b, bo, err := parseBand(data)
	if err != nil {
		return nil, fmt.Errorf("cog: %s: %w", path, err)
	}
	switch b.compression {
	case 1, 8, 32946: // none, Deflate (Adobe), Deflate
	default:
		return nil, fmt.Errorf("cog: %s: unsupported compression %d (only uncompressed or Deflate tiles are read)", path, b.compression)
	}
	return &Reader{data: data, bo: bo, b: b, path: path}, nil
}

// Close drops the reader's reference to the file contents.
func (r *Reader) Close() error {
	r.data = nil
	return nil
}

func (r *Reader) Path() string { return r.path }

func (r *Reader) Width() int  { return int(r.b.width) }
func (r *Reader) Height() int { return int(r.b.height) }

// IsFloat reports whether the band holds IEEE floating-point samples, the
// only sample format this package turns into elevations.
func (r *Reader) IsFloat() bool { return r.b.isFloat }

// EPSG returns the raster's coordinate reference system code, or 0 if the
// file carries no recognizable GeoKey.
func (r *Reader) EPSG() int { return r.b.epsg }

// TileSize returns the raster's native tile dimensions.
func (r *Reader) TileSize() (width, height int) {
	return int(r.b.tileWidth), int(r.b.tileHeight)
}

// BoundsInCRS returns the raster's footprint in its own coordinate
// reference system, derived from the GeoTIFF tiepoint and pixel scale.
func (r *Reader) BoundsInCRS() (minX, minY, maxX, maxY float64) {
	minX = r.b.originX
	maxY = r.b.originY
	maxX = minX + float64(r.b.width)*r.b.pixelSizeX
	minY = maxY - float64(r.b.height)*r.b.pixelSizeY
	return
}

// ReadFloatTile decodes the raster tile at (col, row), in raster tile
// coordinates (column first, row second, both zero-based from the
// top-left), returning its samples in row-major order along with its
// actual width and height (which may be smaller than the raster's nominal
// tile size at the right/bottom edge). A nil slice with no error means the
// tile was never written by the encoder and reads as all zero.
func (r *Reader) ReadFloatTile(col, row int) ([]float32, int, int, error) {
	b := r.b
	across, down := b.tilesAcross(), b.tilesDown()
	if col < 0 || col >= across || row < 0 || row >= down {
		return nil, 0, 0, fmt.Errorf("cog: tile (%d,%d) out of range (%dx%d tiles)", col, row, across, down)
	}
	if b.samplesPerPixel != 1 {
		return nil, 0, 0, fmt.Errorf("cog: only single-band rasters are supported, got %d bands", b.samplesPerPixel)
	}
	if !b.isFloat {
		return nil, 0, 0, fmt.Errorf("cog: band is not floating point")
	}

	idx := row*across + col
	if idx >= len(b.tileOffsets) || idx >= len(b.tileByteCounts) {
		return nil, 0, 0, fmt.Errorf("cog: tile index %d out of range", idx)
	}

	w, h := int(b.tileWidth), int(b.tileHeight)
	if right := (col + 1) * w; right > int(b.width) {
		w = int(b.width) - col*w
	}
	if bottom := (row + 1) * h; bottom > int(b.height) {
		h = int(b.height) - row*h
	}

	size := b.tileByteCounts[idx]
	if size == 0 {
		return nil, w, h, nil
	}
	offset := b.tileOffsets[idx]
	end := offset + size
	if end > uint64(len(r.data)) {
		return nil, 0, 0, fmt.Errorf("cog: tile data [%d:%d] exceeds file size %d", offset, end, len(r.data))
	}
	raw := r.data[offset:end]

	var plain []byte
	switch b.compression {
	case 1:
		plain = raw
	case 8, 32946:
		dec, err := inflate(raw)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("cog: decompressing tile (%d,%d): %w", col, row, err)
		}
		plain = dec
	}

	samples, err := decodeFloat32Tile(plain, int(b.tileWidth), int(b.tileHeight), int(b.bitsPerSample), r.bo)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("cog: tile (%d,%d): %w", col, row, err)
	}
	if w != int(b.tileWidth) || h != int(b.tileHeight) {
		samples = cropTile(samples, int(b.tileWidth), w, h)
	}
	return samples, w, h, nil
}

// cropTile extracts the top-left w×h corner of a nominalW-wide tile buffer,
// used at the raster's right/bottom edge where the last tile overhangs the
// image and only its covered corner holds real data.
func cropTile(samples []float32, nominalW, w, h int) []float32 {
	out := make([]float32, w*h)
	for row := 0; row < h; row++ {
		copy(out[row*w:(row+1)*w], samples[row*nominalW:row*nominalW+w])
	}
	return out
}

// inflate decompresses a Deflate tile. TIFF's two Deflate compression codes
// (8, Adobe Deflate, and 32946, the older private Deflate code) both use
// zlib framing in practice; a handful of encoders emit raw deflate instead,
// so that's tried as a fallback.
func inflate(data []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
		defer zr.Close()
		if out, err := io.ReadAll(zr); err == nil {
			return out, nil
		}
	}
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	return io.ReadAll(fr)
}

func decodeFloat32Tile(data []byte, nominalW, nominalH, bitsPerSample int, bo binary.ByteOrder) ([]float32, error) {
	bytesPerSample := bitsPerSample / 8
	n := nominalW * nominalH
	if len(data) < n*bytesPerSample {
		return nil, fmt.Errorf("tile data too short: got %d bytes, need %d", len(data), n*bytesPerSample)
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		off := i * bytesPerSample
		switch bitsPerSample {
		case 32:
			out[i] = math.Float32frombits(bo.Uint32(data[off : off+4]))
		case 64:
			out[i] = float32(math.Float64frombits(bo.Uint64(data[off : off+8])))
		default:
			return nil, fmt.Errorf("unsupported float bits-per-sample %d", bitsPerSample)
		}
	}
	return out, nil
}
