package gemgis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	missingTileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemgis_missing_tile_cache_hits_total",
		Help: "The total number of hits on the missing tile cache",
	})
	missingTileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemgis_missing_tile_cache_misses_total",
		Help: "The total number of misses on the missing tile cache",
	})
	globalTileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemgis_global_tile_cache_hits_total",
		Help: "The total number of hits on the global tile cache",
	})
	globalTileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemgis_global_tile_cache_misses_total",
		Help: "The total number of misses on the global tile cache",
	})
	globalTileCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemgis_global_tile_cache_evictions_total",
		Help: "The total number of evictions from the global tile cache",
	})
)

// A TileCoordFunc returns the tile coordinate containing x, y.
type TileCoordFunc func(x, y float64) (TileCoord, bool)

// A TileFilenameFunc returns the tile filename for a tile coordinate.
type TileFilenameFunc func(TileCoord) string

// A GeoTIFFTileSet is a set of GeoTIFF tiles sharing a CRS. It implements
// RasterReader, so it can be used as a DEM with Handle.
type GeoTIFFTileSet struct {
	mutex              sync.Mutex
	fsys               fs.FS
	crs                string
	bounds             orb.Bound
	tileCoordFunc      TileCoordFunc
	tileFilenameFunc   TileFilenameFunc
	missingTiles       sync.Map
	geoTIFFTileOptions []GeoTIFFTileOption
	cacheSize          int
	geoTIFFTileCache   *lru.Cache[TileCoord, *GeoTIFFTile]
}

// A GeoTIFFTileSetOption sets an option on a GeoTIFFTileSet.
type GeoTIFFTileSetOption func(*GeoTIFFTileSet)

// NewGeoTIFFTileSet returns a new GeoTIFFTileSet with the given options.
func NewGeoTIFFTileSet(options ...GeoTIFFTileSetOption) (*GeoTIFFTileSet, error) {
	s := &GeoTIFFTileSet{
		cacheSize: 32,
	}
	for _, option := range options {
		option(s)
	}
	if s.fsys == nil || s.tileCoordFunc == nil || s.tileFilenameFunc == nil {
		return nil, fmt.Errorf("%w: tile set needs a filesystem, tile coord func, and tile filename func", ErrInvalidParameter)
	}

	var err error
	s.geoTIFFTileCache, err = lru.NewWithEvict(s.cacheSize, func(key TileCoord, value *GeoTIFFTile) {
		if value != nil {
			_ = value.Close()
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func WithCacheSize(cacheSize int) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.cacheSize = cacheSize
	}
}

func WithFS(fsys fs.FS) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.fsys = fsys
	}
}

func WithGeoTIFFTileOptions(geoTIFFTileOptions ...GeoTIFFTileOption) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.geoTIFFTileOptions = geoTIFFTileOptions
	}
}

func WithTileCoordFunc(tileCoordFunc TileCoordFunc) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.tileCoordFunc = tileCoordFunc
	}
}

// WithSRID sets the CRS of the tile set to EPSG:srid.
func WithSRID(srid int) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.crs = fmt.Sprintf("EPSG:%d", srid)
	}
}

// WithTileSetCRS sets the CRS of the tile set, overriding any CRS found in
// the tiles' GeoKeys.
func WithTileSetCRS(crs string) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.crs = crs
	}
}

// WithBounds sets the bounds of the tile set.
func WithBounds(bounds orb.Bound) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.bounds = bounds
	}
}

func WithTileFilenameFunc(tileFilenameFunc TileFilenameFunc) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.tileFilenameFunc = tileFilenameFunc
	}
}

// Samples returns the samples at coords. Missing samples are represented by
// NaNs.
func (s *GeoTIFFTileSet) Samples(ctx context.Context, coords [][]float64) ([]float64, error) {
	samples := make([]float64, len(coords))

	// Group indexes by tile coord.
	type groupStruct struct {
		coords  [][]float64
		indexes []int
	}
	groupsByTileCoord := make(map[TileCoord]groupStruct)
	for index, coord := range coords {
		tileCoord, ok := s.tileCoordFunc(coord[0], coord[1])
		if !ok {
			samples[index] = math.NaN()
			continue
		}
		group := groupsByTileCoord[tileCoord]
		group.coords = append(group.coords, coord)
		group.indexes = append(group.indexes, index)
		groupsByTileCoord[tileCoord] = group
	}

	// Populate samples one tile at a time.
	for tileCoord, group := range groupsByTileCoord {
		tile, err := s.getTileCached(tileCoord)
		if err != nil {
			return nil, err
		}
		if tile == nil {
			for _, index := range group.indexes {
				samples[index] = math.NaN()
			}
			continue
		}
		localSamples, err := tile.Samples(ctx, group.coords)
		if err != nil {
			return nil, err
		}
		for localIndex, index := range group.indexes {
			samples[index] = localSamples[localIndex]
		}
	}

	return samples, nil
}

// CRS returns s's CRS.
func (s *GeoTIFFTileSet) CRS() string {
	return s.crs
}

// Bounds returns s's bounds.
func (s *GeoTIFFTileSet) Bounds() orb.Bound {
	return s.bounds
}

// Close closes all open tiles.
func (s *GeoTIFFTileSet) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.geoTIFFTileCache.Purge()
	return nil
}

// getTile returns the tile at the given tile coordinate.
func (s *GeoTIFFTileSet) getTile(tileCoord TileCoord) (*GeoTIFFTile, error) {
	filename := s.tileFilenameFunc(tileCoord)
	geoTIFFTileOptions := s.geoTIFFTileOptions
	if s.crs != "" {
		geoTIFFTileOptions = append([]GeoTIFFTileOption{WithCRS(s.crs)}, geoTIFFTileOptions...)
	}
	switch geoTIFFTile, err := NewGeoTIFFTile(s.fsys, filename, geoTIFFTileOptions...); {
	case errors.Is(err, fs.ErrNotExist):
		s.missingTiles.Store(tileCoord, struct{}{})
		missingTileCacheMisses.Inc()
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%s: %w", filename, err)
	default:
		return geoTIFFTile, nil
	}
}

// getTileCached returns the tile at the give tile coordinate, using the cache
// if possible.
func (s *GeoTIFFTileSet) getTileCached(tileCoord TileCoord) (*GeoTIFFTile, error) {
	if _, ok := s.missingTiles.Load(tileCoord); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	if tile, ok := s.geoTIFFTileCache.Get(tileCoord); ok {
		globalTileCacheHits.Inc()
		return tile, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.missingTiles.Load(tileCoord); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	if tile, ok := s.geoTIFFTileCache.Get(tileCoord); ok {
		globalTileCacheHits.Inc()
		return tile, nil
	}

	globalTileCacheMisses.Inc()

	tile, err := s.getTile(tileCoord)
	if err != nil {
		return nil, err
	}
	if tile == nil {
		return nil, nil
	}

	if eviction := s.geoTIFFTileCache.Add(tileCoord, tile); eviction {
		globalTileCacheEvictions.Inc()
	}

	return tile, nil
}
