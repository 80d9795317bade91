package gemgis

import (
	"context"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/twpayne/go-proj/v10"
)

// A Transformer transforms coordinates in place from one CRS to another.
// Coordinates are in x, y (easting, northing or longitude, latitude) order.
type Transformer interface {
	Transform(ctx context.Context, sourceCRS, targetCRS string, coords [][]float64) error
}

type crsPair struct {
	source string
	target string
}

// A ProjTransformer is a Transformer backed by PROJ. It caches the
// transformations it creates and is safe for concurrent use. Transformations
// evicted from the cache are destroyed only once no transform is using them.
type ProjTransformer struct {
	mutex     sync.RWMutex
	cacheSize int
	pjCache   *lru.Cache[crsPair, *proj.PJ]
}

// A ProjTransformerOption sets an option on a ProjTransformer.
type ProjTransformerOption func(*ProjTransformer)

// WithTransformationCacheSize sets the number of cached transformations.
func WithTransformationCacheSize(cacheSize int) ProjTransformerOption {
	return func(t *ProjTransformer) {
		t.cacheSize = cacheSize
	}
}

// NewProjTransformer returns a new ProjTransformer.
func NewProjTransformer(options ...ProjTransformerOption) (*ProjTransformer, error) {
	t := &ProjTransformer{
		cacheSize: 16,
	}
	for _, option := range options {
		option(t)
	}

	var err error
	t.pjCache, err = lru.NewWithEvict(t.cacheSize, func(key crsPair, value *proj.PJ) {
		value.Destroy()
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Close destroys all cached transformations.
func (t *ProjTransformer) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.pjCache.Purge()
	return nil
}

// Transform implements Transformer.
func (t *ProjTransformer) Transform(ctx context.Context, sourceCRS, targetCRS string, coords [][]float64) error {
	if len(coords) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := crsPair{
		source: strings.ToUpper(strings.TrimSpace(sourceCRS)),
		target: strings.ToUpper(strings.TrimSpace(targetCRS)),
	}

	// Cache entries are only added, and so evicted, with the write lock held,
	// so a cached transformation stays valid while the read lock is held.
	t.mutex.RLock()
	if pj, ok := t.pjCache.Get(key); ok {
		defer t.mutex.RUnlock()
		return pj.ForwardFloat64Slices(coords)
	}
	t.mutex.RUnlock()

	t.mutex.Lock()
	defer t.mutex.Unlock()
	pj, err := t.getPJLocked(key)
	if err != nil {
		return err
	}
	return pj.ForwardFloat64Slices(coords)
}

// getPJLocked returns the transformation for key, creating it if needed. The
// write lock must be held.
func (t *ProjTransformer) getPJLocked(key crsPair) (*proj.PJ, error) {
	if pj, ok := t.pjCache.Get(key); ok {
		return pj, nil
	}

	pj, err := proj.NewCRSToCRS(key.source, key.target, nil)
	if err != nil {
		return nil, err
	}
	// Use x, y axis order regardless of the axis order of the CRS definitions.
	normalizedPJ, err := pj.NormalizeForVisualization()
	pj.Destroy()
	if err != nil {
		return nil, err
	}

	t.pjCache.Add(key, normalizedPJ)
	return normalizedPJ, nil
}

// cloneCoords returns a deep copy of the first two ordinates of coords.
func cloneCoords(coords [][]float64) [][]float64 {
	clonedCoordsFlat := make([]float64, 2*len(coords))
	clonedCoords := make([][]float64, len(coords))
	for i, coord := range coords {
		copy(clonedCoordsFlat[2*i:2*i+2], coord)
		clonedCoords[i] = clonedCoordsFlat[2*i : 2*i+2]
	}
	return clonedCoords
}
