package cog

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Tag IDs this package consults. A DEM elevation band is a single-band,
// tiled, classic (non-Big) TIFF, so only the tags that describe that shape
// and its georeferencing are read; anything else in the file is ignored.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagSamplesPerPixel = 277
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
)

const (
	dtByte     = 1
	dtASCII    = 2
	dtShort    = 3
	dtLong     = 4
	dtRational = 5
	dtFloat    = 11
	dtDouble   = 12
)

// band is the one raster band this package can read: a tiled classic TIFF
// image file directory plus the GeoTIFF tags needed to place it in a CRS.
type band struct {
	width, height          uint32
	tileWidth, tileHeight  uint32
	samplesPerPixel        uint16
	compression            uint16
	bitsPerSample          uint16
	isFloat                bool
	tileOffsets            []uint64
	tileByteCounts         []uint64
	originX, originY       float64
	pixelSizeX, pixelSizeY float64
	epsg                   int
}

func (b *band) tilesAcross() int { return int((b.width + b.tileWidth - 1) / b.tileWidth) }
func (b *band) tilesDown() int   { return int((b.height + b.tileHeight - 1) / b.tileHeight) }

type tiffEntry struct {
	tag, dataType uint16
	count         uint64
	value         []byte
}

// parseBand reads the first image file directory of a classic TIFF and
// returns its shape and georeferencing. BigTIFF and strip-organized images
// are rejected rather than supported, since the only consumer is a DEM
// tile reader that needs one band of one tiling scheme.
func parseBand(data []byte) (*band, binary.ByteOrder, error) {
	if len(data) < 8 {
		return nil, nil, fmt.Errorf("file too small to be a TIFF")
	}

	var bo binary.ByteOrder
	switch string(data[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("not a TIFF (bad byte-order marker)")
	}
	if magic := bo.Uint16(data[2:4]); magic != 42 {
		return nil, nil, fmt.Errorf("not a classic TIFF (magic=%d); BigTIFF is not supported", magic)
	}

	offset := uint64(bo.Uint32(data[4:8]))
	if offset == 0 || offset+2 > uint64(len(data)) {
		return nil, nil, fmt.Errorf("no image file directory found")
	}

	numEntries := uint64(bo.Uint16(data[offset : offset+2]))
	const entrySize = 12
	entriesStart := offset + 2

	entries := make([]tiffEntry, numEntries)
	for i := uint64(0); i < numEntries; i++ {
		base := entriesStart + i*entrySize
		if base+entrySize > uint64(len(data)) {
			return nil, nil, fmt.Errorf("truncated image file directory")
		}
		entries[i] = parseEntry(data[base:base+entrySize], bo)
	}
	for i := range entries {
		if err := resolveEntry(data, bo, &entries[i]); err != nil {
			return nil, nil, fmt.Errorf("resolving tag %d: %w", entries[i].tag, err)
		}
	}

	b := buildBand(entries, bo)
	if b.tileWidth == 0 || b.tileHeight == 0 {
		return nil, nil, fmt.Errorf("strip-organized TIFFs are not supported, only tiled rasters")
	}
	return b, bo, nil
}

func parseEntry(buf []byte, bo binary.ByteOrder) tiffEntry {
	value := make([]byte, 4)
	copy(value, buf[8:12])
	return tiffEntry{
		tag:      bo.Uint16(buf[0:2]),
		dataType: bo.Uint16(buf[2:4]),
		count:    uint64(bo.Uint32(buf[4:8])),
		value:    value,
	}
}

func dataTypeSize(dt uint16) int {
	switch dt {
	case dtByte, dtASCII:
		return 1
	case dtShort:
		return 2
	case dtLong, dtFloat:
		return 4
	case dtRational, dtDouble:
		return 8
	default:
		return 1
	}
}

// resolveEntry replaces an entry's inline value field with its actual data
// when that data doesn't fit in the 4 bytes the directory entry carries.
func resolveEntry(data []byte, bo binary.ByteOrder, e *tiffEntry) error {
	size := int(e.count) * dataTypeSize(e.dataType)
	if size <= 4 {
		return nil
	}
	off := uint64(bo.Uint32(e.value))
	if off+uint64(size) > uint64(len(data)) {
		return fmt.Errorf("value at offset %d exceeds file size", off)
	}
	e.value = data[off : off+uint64(size)]
	return nil
}

func buildBand(entries []tiffEntry, bo binary.ByteOrder) *band {
	b := &band{samplesPerPixel: 1, bitsPerSample: 8}
	var geoKeys []uint16
	var pixelScale, tiepoint []float64

	for _, e := range entries {
		switch e.tag {
		case tagImageWidth:
			b.width = uint32(uintValue(e, bo))
		case tagImageLength:
			b.height = uint32(uintValue(e, bo))
		case tagTileWidth:
			b.tileWidth = uint32(uintValue(e, bo))
		case tagTileLength:
			b.tileHeight = uint32(uintValue(e, bo))
		case tagBitsPerSample:
			b.bitsPerSample = uint16(uintValue(e, bo))
		case tagSamplesPerPixel:
			b.samplesPerPixel = uint16(uintValue(e, bo))
		case tagCompression:
			b.compression = uint16(uintValue(e, bo))
		case tagSampleFormat:
			b.isFloat = uintValue(e, bo) == 3 // IEEE floating point
		case tagTileOffsets:
			b.tileOffsets = uintSlice(e, bo)
		case tagTileByteCounts:
			b.tileByteCounts = uintSlice(e, bo)
		case tagModelPixelScale:
			pixelScale = floatSlice(e, bo)
		case tagModelTiepoint:
			tiepoint = floatSlice(e, bo)
		case tagGeoKeyDirectory:
			geoKeys = shortSlice(e, bo)
		}
	}

	if len(pixelScale) >= 2 {
		b.pixelSizeX, b.pixelSizeY = pixelScale[0], pixelScale[1]
	}
	if len(tiepoint) >= 6 {
		// Tiepoint maps raster pixel (I,J) to CRS coordinate (X,Y); the
		// origin is the CRS coordinate of pixel (0,0).
		b.originX = tiepoint[3] - tiepoint[0]*b.pixelSizeX
		b.originY = tiepoint[4] + tiepoint[1]*b.pixelSizeY
	}
	b.epsg = geoKeyEPSG(geoKeys)
	return b
}

// The value decoders below take the file's byte order explicitly: inline
// values are encoded in it just like out-of-line ones, and nothing in this
// package may assume the host's native order.

func uintValue(e tiffEntry, bo binary.ByteOrder) uint64 {
	switch e.dataType {
	case dtShort:
		return uint64(bo.Uint16(e.value))
	case dtLong:
		return uint64(bo.Uint32(e.value))
	default:
		return uint64(e.value[0])
	}
}

func uintSlice(e tiffEntry, bo binary.ByteOrder) []uint64 {
	n := int(e.count)
	out := make([]uint64, n)
	switch e.dataType {
	case dtShort:
		for i := 0; i < n; i++ {
			out[i] = uint64(bo.Uint16(e.value[i*2 : i*2+2]))
		}
	case dtLong:
		for i := 0; i < n; i++ {
			out[i] = uint64(bo.Uint32(e.value[i*4 : i*4+4]))
		}
	}
	return out
}

func shortSlice(e tiffEntry, bo binary.ByteOrder) []uint16 {
	n := int(e.count)
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = bo.Uint16(e.value[i*2 : i*2+2])
	}
	return out
}

func floatSlice(e tiffEntry, bo binary.ByteOrder) []float64 {
	n := int(e.count)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		switch e.dataType {
		case dtDouble:
			out[i] = math.Float64frombits(bo.Uint64(e.value[i*8 : i*8+8]))
		case dtFloat:
			out[i] = float64(math.Float32frombits(bo.Uint32(e.value[i*4 : i*4+4])))
		}
	}
	return out
}

// geoKeyEPSG scans a parsed GeoKeyDirectory for the geographic or projected
// coordinate system EPSG code (GeoTIFF spec keys 2048 and 3072), both of
// which the spec stores inline as a SHORT rather than pointing elsewhere.
func geoKeyEPSG(keys []uint16) int {
	if len(keys) < 4 {
		return 0
	}
	numKeys := int(keys[3])
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+3 >= len(keys) {
			break
		}
		keyID, location, value := keys[base], keys[base+1], keys[base+3]
		if location != 0 {
			continue // value stored elsewhere; not needed for these two keys
		}
		switch keyID {
		case 2048, 3072: // GeographicTypeGeoKey, ProjectedCSTypeGeoKey
			if value > 0 {
				return int(value)
			}
		}
	}
	return 0
}
