package gemgis

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"golang.org/x/image/tiff/lzw"
)

// TIFF compression schemes.
const (
	compressionNone = 1
	compressionLZW  = 5
)

var (
	errShortRead = errors.New("short read")
	errEmptyTile = errors.New("empty tile")
)

// A TileCoord is a tile coordinate.
type TileCoord struct {
	C int // Column.
	R int // Row.
}

// A pixelCoord is a pixel coordinate within a single image.
type pixelCoord struct {
	X int
	Y int
}

// A GeoTIFFTile is an open, tiled, single band, 32-bit floating point
// GeoTIFF file. It implements RasterReader.
type GeoTIFFTile struct {
	file                      *os.File
	crs                       string
	imageWidth                int
	imageLength               int
	tileWidth                 int
	tileLength                int
	tilesAcross               int
	tilesDown                 int
	compression               int
	tileOffsets               []uint64
	tileByteCounts            []uint64
	smallestTileByteCount     uint64
	tileSampleCount           int
	tileByteCountUncompressed int
	tileCacheSizeBytes        int
	tileSamplesCache          *lru.Cache[TileCoord, []float32]
	emptyTileBytes            []byte
	hasNoData                 bool
	noData                    float32
	scaleX                    float64
	scaleY                    float64
	translateX                float64
	translateY                float64
}

// A GeoTIFFTileOption sets an option on a GeoTIFFTile.
type GeoTIFFTileOption func(*GeoTIFFTile)

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal an
// IFD.
type geoTIFFIFD struct {
	ImageWidth                uint16    `tiff:"field,tag=256"`
	ImageLength               uint16    `tiff:"field,tag=257"`
	BitsPerSample             uint16    `tiff:"field,tag=258"`
	Compression               uint16    `tiff:"field,tag=259"`
	PhotometricInterpretation uint16    `tiff:"field,tag=262"`
	SamplesPerPixel           uint16    `tiff:"field,tag=277"`
	PlanarConfiguration       uint16    `tiff:"field,tag=284"`
	Predictor                 uint16    `tiff:"field,tag=317"`
	TileWidth                 uint16    `tiff:"field,tag=322"`
	TileLength                uint16    `tiff:"field,tag=323"`
	TileOffsets               []uint64  `tiff:"field,tag=324"`
	TileByteCounts            []uint64  `tiff:"field,tag=325"`
	SampleFormat              uint16    `tiff:"field,tag=339"`
	ModelPixelScaleTag        []float64 `tiff:"field,tag=33550"`
	ModelTiepointTag          []float64 `tiff:"field,tag=33922"`
	GeoKeyDirectoryTag        []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParamsTag        []float64 `tiff:"field,tag=34736"`
	GeoASCIIParamsTag         string    `tiff:"field,tag=34737"`
	GDALMetadata              string    `tiff:"field,tag=42112"`
	GDALNoData                string    `tiff:"field,tag=42113"`
}

// NewGeoTIFFTile opens filename in fsys.
func NewGeoTIFFTile(fsys fs.FS, filename string, options ...GeoTIFFTileOption) (*GeoTIFFTile, error) {
	var err error
	ok := false

	f := &GeoTIFFTile{
		tileCacheSizeBytes: 128 << 20, // 128MB.
	}
	for _, option := range options {
		option(f)
	}

	file, err := fsys.Open(filename)
	if err != nil {
		return nil, err
	}
	if _, ok := file.(*os.File); !ok {
		_ = file.Close()
		return nil, errors.ErrUnsupported
	}
	f.file = file.(*os.File)
	defer func() {
		if !ok {
			_ = f.file.Close()
		}
	}()

	tiffTIFF, err := tiff.Parse(f.file, tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, err
	}

	if len(tiffTIFF.IFDs()) != 1 {
		return nil, fmt.Errorf("found %d IFDs, expected 1", len(tiffTIFF.IFDs()))
	}

	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, err
	}

	if ifd.BitsPerSample != 32 ||
		(ifd.Compression != compressionNone && ifd.Compression != compressionLZW) ||
		ifd.PhotometricInterpretation != 1 ||
		ifd.SamplesPerPixel != 1 ||
		ifd.PlanarConfiguration != 1 ||
		ifd.Predictor > 1 ||
		ifd.SampleFormat != 3 ||
		ifd.TileWidth == 0 || ifd.TileLength == 0 ||
		len(ifd.ModelPixelScaleTag) != 3 ||
		len(ifd.ModelTiepointTag) != 6 || ifd.ModelTiepointTag[0] != 0 || ifd.ModelTiepointTag[1] != 0 {
		return nil, errors.ErrUnsupported
	}

	if noData := strings.TrimSpace(strings.TrimRight(ifd.GDALNoData, "\x00")); noData != "" {
		value, err := strconv.ParseFloat(noData, 64)
		if err != nil {
			return nil, fmt.Errorf("GDAL_NODATA: %w", err)
		}
		f.hasNoData = true
		f.noData = float32(value)
	}

	if f.crs == "" && len(ifd.GeoKeyDirectoryTag) != 0 {
		geoKeys, err := ParseGeoKeys(ifd.GeoKeyDirectoryTag, ifd.GeoDoubleParamsTag, []byte(ifd.GeoASCIIParamsTag))
		if err != nil {
			return nil, err
		}
		if crs, ok := geoKeys.CRS(); ok {
			f.crs = crs
		}
	}

	f.compression = int(ifd.Compression)
	f.imageWidth = int(ifd.ImageWidth)
	f.imageLength = int(ifd.ImageLength)
	f.tileWidth = int(ifd.TileWidth)
	f.tileLength = int(ifd.TileLength)
	f.tilesAcross = (f.imageWidth + f.tileWidth - 1) / f.tileWidth
	f.tilesDown = (f.imageLength + f.tileLength - 1) / f.tileLength
	tilesPerImage := f.tilesAcross * f.tilesDown
	if len(ifd.TileByteCounts) != tilesPerImage || len(ifd.TileOffsets) != tilesPerImage {
		return nil, errors.New("incorrect number of tile byte counts or offsets")
	}
	f.tileOffsets = ifd.TileOffsets
	f.tileByteCounts = ifd.TileByteCounts
	f.smallestTileByteCount = slices.Min(ifd.TileByteCounts)
	f.tileSampleCount = f.tileWidth * f.tileLength
	f.tileByteCountUncompressed = f.tileSampleCount * int(ifd.BitsPerSample) / 8

	tileCacheCount := max(f.tileCacheSizeBytes/f.tileByteCountUncompressed, 1)
	f.tileSamplesCache, err = lru.New[TileCoord, []float32](tileCacheCount)
	if err != nil {
		return nil, err
	}

	f.scaleX, f.scaleY = ifd.ModelPixelScaleTag[0], ifd.ModelPixelScaleTag[1]
	if f.scaleX <= 0 || f.scaleY <= 0 {
		return nil, errors.ErrUnsupported
	}
	f.translateX, f.translateY = ifd.ModelTiepointTag[3], ifd.ModelTiepointTag[4]

	ok = true
	return f, nil
}

// WithTileCacheSize sets the size of the decoded tile cache in bytes.
func WithTileCacheSize(tileCacheSize int) GeoTIFFTileOption {
	return func(f *GeoTIFFTile) {
		f.tileCacheSizeBytes = tileCacheSize
	}
}

// WithCRS sets the CRS of the tile, overriding its GeoKeys.
func WithCRS(crs string) GeoTIFFTileOption {
	return func(f *GeoTIFFTile) {
		f.crs = crs
	}
}

func (f *GeoTIFFTile) Close() error {
	return f.file.Close()
}

// CRS returns f's CRS, or the empty string if it is unknown.
func (f *GeoTIFFTile) CRS() string {
	return f.crs
}

// Bounds returns the bounds of f's image.
func (f *GeoTIFFTile) Bounds() orb.Bound {
	return orb.Bound{
		Min: orb.Point{f.translateX, f.translateY - float64(f.imageLength)*f.scaleY},
		Max: orb.Point{f.translateX + float64(f.imageWidth)*f.scaleX, f.translateY},
	}
}

// Sample returns a single sample from f.
func (f *GeoTIFFTile) Sample(ctx context.Context, x, y float64) (float64, error) {
	localCoord := f.localCoord(x, y)
	localTileCoord, ok := f.localTileCoord(localCoord)
	if !ok {
		return math.NaN(), nil
	}
	switch tileSamples, err := f.getTileSamplesCached(ctx, localTileCoord); {
	case errors.Is(err, errEmptyTile):
		return math.NaN(), nil
	case err != nil:
		return 0, err
	default:
		return f.tileSample(tileSamples, localCoord), nil
	}
}

// Samples returns multiple samples from f. It is significantly faster than
// calling [Sample] for each coordinate.
func (f *GeoTIFFTile) Samples(ctx context.Context, coords [][]float64) ([]float64, error) {
	localCoords := make([]pixelCoord, len(coords))
	for i, coord := range coords {
		localCoords[i] = f.localCoord(coord[0], coord[1])
	}

	samples := make([]float64, len(localCoords))

	// Group indexes by local tile coord.
	indexesByLocalTileCoord := make(map[TileCoord][]int)
	for index, localCoord := range localCoords {
		localTileCoord, ok := f.localTileCoord(localCoord)
		if !ok {
			samples[index] = math.NaN()
			continue
		}
		indexesByLocalTileCoord[localTileCoord] = append(indexesByLocalTileCoord[localTileCoord], index)
	}

	// Populate samples one local tile at a time.
	for localTileCoord, indexes := range indexesByLocalTileCoord {
		switch tileSamples, err := f.getTileSamplesCached(ctx, localTileCoord); {
		case errors.Is(err, errEmptyTile):
			for _, index := range indexes {
				samples[index] = math.NaN()
			}
		case err != nil:
			return nil, err
		default:
			for _, index := range indexes {
				samples[index] = f.tileSample(tileSamples, localCoords[index])
			}
		}
	}

	return samples, nil
}

// getCompressedTileData returns the compressed tile data for the data at
// localTileCoord. If the tile is known to be empty, it returns errEmptyTile.
func (f *GeoTIFFTile) getCompressedTileData(localTileCoord TileCoord) ([]byte, error) {
	tileIndex := localTileCoord.C + f.tilesAcross*localTileCoord.R
	tileByteCount := f.tileByteCounts[tileIndex]
	tileOffset := f.tileOffsets[tileIndex]
	compressedData := make([]byte, tileByteCount)
	switch n, err := f.file.ReadAt(compressedData, int64(tileOffset)); {
	case err != nil:
		return nil, err
	case n != int(tileByteCount):
		return nil, errShortRead
	case f.emptyTileBytes != nil && bytes.Equal(compressedData, f.emptyTileBytes):
		return nil, errEmptyTile
	default:
		return compressedData, nil
	}
}

// decompressTileData decompresses the tile data in compressedData.
func (f *GeoTIFFTile) decompressTileData(compressedData []byte) ([]byte, error) {
	if f.compression == compressionNone {
		if len(compressedData) < f.tileByteCountUncompressed {
			return nil, errShortRead
		}
		return compressedData, nil
	}
	tileData := make([]byte, f.tileByteCountUncompressed)
	r := lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
	defer r.Close()
	for bytesRead := 0; bytesRead < f.tileByteCountUncompressed; {
		n, err := r.Read(tileData[bytesRead:])
		if err != nil {
			return nil, err
		}
		bytesRead += n
	}
	return tileData, nil
}

// decodeTileData decodes tileData.
func (f *GeoTIFFTile) decodeTileData(tileData []byte) []float32 {
	tileSamples := make([]float32, f.tileSampleCount)
	for i := range f.tileSampleCount {
		b := binary.LittleEndian.Uint32(tileData[i*4 : (i+1)*4])
		tileSamples[i] = math.Float32frombits(b)
	}
	return tileSamples
}

// localCoord returns the pixel containing x, y.
func (f *GeoTIFFTile) localCoord(x, y float64) pixelCoord {
	return pixelCoord{
		X: int(math.Floor((x - f.translateX) / f.scaleX)),
		Y: int(math.Floor((f.translateY - y) / f.scaleY)),
	}
}

// getTileSamples returns the tile samples at localTileCoord.
func (f *GeoTIFFTile) getTileSamples(localTileCoord TileCoord) ([]float32, error) {
	// Retrieve the compressed tile data.
	compressedTileData, err := f.getCompressedTileData(localTileCoord)
	if err != nil {
		return nil, err
	}

	// Decompress the tile data and decode it.
	tileData, err := f.decompressTileData(compressedTileData)
	if err != nil {
		return nil, err
	}
	tileSamples := f.decodeTileData(tileData)

	// If we do not know what an empty tile looks like compressed, check to see
	// if this is an empty tile, and, if so, use its bytes to detect empty tiles
	// before they are decompressed. We assume that the empty tile is the
	// smallest tile.
	if f.hasNoData && f.emptyTileBytes == nil && len(compressedTileData) == int(f.smallestTileByteCount) {
		isEmptyTile := true
		for _, sample := range tileSamples {
			if sample != f.noData {
				isEmptyTile = false
				break
			}
		}
		if isEmptyTile {
			f.emptyTileBytes = compressedTileData
			return nil, errEmptyTile
		}
	}

	return tileSamples, nil
}

// getTileSamplesCached returns the tile at localTileCoord using f's cache.
// Empty tiles are cached as nil.
func (f *GeoTIFFTile) getTileSamplesCached(ctx context.Context, localTileCoord TileCoord) ([]float32, error) {
	if tileSamples, ok := f.tileSamplesCache.Get(localTileCoord); ok {
		if tileSamples == nil {
			return nil, errEmptyTile
		}
		return tileSamples, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tileSamples, err := f.getTileSamples(localTileCoord)
	switch {
	case errors.Is(err, errEmptyTile):
		f.tileSamplesCache.Add(localTileCoord, nil)
		return nil, err
	case err != nil:
		return nil, err
	default:
		f.tileSamplesCache.Add(localTileCoord, tileSamples)
		return tileSamples, nil
	}
}

// localTileCoord returns the local tile coord for a given coordinate.
func (f *GeoTIFFTile) localTileCoord(localCoord pixelCoord) (TileCoord, bool) {
	if localCoord.X < 0 || f.imageWidth <= localCoord.X || localCoord.Y < 0 || f.imageLength <= localCoord.Y {
		return TileCoord{}, false
	}
	return TileCoord{
		C: localCoord.X / f.tileWidth,
		R: localCoord.Y / f.tileLength,
	}, true
}

// tileSample returns the sample from tileSamples at localCoord.
func (f *GeoTIFFTile) tileSample(tileSamples []float32, localCoord pixelCoord) float64 {
	sample := tileSamples[localCoord.X%f.tileWidth+(localCoord.Y%f.tileLength)*f.tileWidth]
	if f.hasNoData && sample == f.noData {
		return math.NaN()
	}
	return float64(sample)
}
