package gemgis

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/paulmach/orb"
)

// A shiftTransformer adds dx to every X and records the CRSs it was asked to
// transform between.
type shiftTransformer struct {
	dx    float64
	calls [][2]string
}

func (t *shiftTransformer) Transform(ctx context.Context, sourceCRS, targetCRS string, coords [][]float64) error {
	t.calls = append(t.calls, [2]string{sourceCRS, targetCRS})
	for _, coord := range coords {
		coord[0] += t.dx
	}
	return nil
}

var errUnexpectedTransform = errors.New("unexpected transform")

type failingTransformer struct{}

func (failingTransformer) Transform(ctx context.Context, sourceCRS, targetCRS string, coords [][]float64) error {
	return errUnexpectedTransform
}

// A sumRaster samples x + y inside a fixed bound.
type sumRaster struct {
	bound orb.Bound
	crs   string
}

func (r *sumRaster) Samples(ctx context.Context, coords [][]float64) ([]float64, error) {
	samples := make([]float64, len(coords))
	for i, coord := range coords {
		samples[i] = coord[0] + coord[1]
	}
	return samples, nil
}

func (r *sumRaster) Bounds() orb.Bound { return r.bound }
func (r *sumRaster) CRS() string      { return r.crs }

func newTestGrid(crs string) *Grid {
	return &Grid{
		Values: [][]float64{
			{0, 1, 2},
			{2, 3, 4},
			{4, 5, 6},
		},
		Extent: Extent{0, 30, 0, 30},
		CRS:    crs,
	}
}

func TestExtractZ(t *testing.T) {
	for _, tc := range []struct {
		name        string
		crs         string
		coords      [][2]float64
		dem         DEM
		options     []Option
		expectedZ   []float64
		expectedErr error
	}{
		{
			name:      "grid",
			crs:       "EPSG:3035",
			coords:    [][2]float64{{5, 25}, {10, 20}},
			dem:       newTestGrid("EPSG:3035"),
			options:   []Option{WithTransformer(failingTransformer{})},
			expectedZ: []float64{0, 1.5},
		},
		{
			name:      "grid_crs_case_insensitive",
			crs:       "epsg:3035",
			coords:    [][2]float64{{15, 25}},
			dem:       newTestGrid("EPSG:3035"),
			options:   []Option{WithTransformer(failingTransformer{})},
			expectedZ: []float64{1},
		},
		{
			name:      "grid_without_crs",
			crs:       "EPSG:4326",
			coords:    [][2]float64{{15, 25}},
			dem:       newTestGrid(""),
			options:   []Option{WithTransformer(failingTransformer{})},
			expectedZ: []float64{1},
		},
		{
			name:        "grid_out_of_bounds",
			crs:         "EPSG:3035",
			coords:      [][2]float64{{5, 25}, {35, 25}},
			dem:         newTestGrid("EPSG:3035"),
			expectedErr: ErrOutOfBounds,
		},
		{
			name:   "grid_without_extent",
			crs:    "EPSG:3035",
			coords: [][2]float64{{5, 25}},
			dem: &Grid{
				Values: [][]float64{{1}},
			},
			expectedErr: ErrMissingData,
		},
		{
			name:      "handle",
			crs:       "EPSG:3035",
			coords:    [][2]float64{{1, 2}, {3, 4}},
			dem:       Handle{&sumRaster{bound: orb.Bound{Max: orb.Point{10, 10}}, crs: "EPSG:3035"}},
			options:   []Option{WithTransformer(failingTransformer{})},
			expectedZ: []float64{3, 7},
		},
		{
			name:        "handle_out_of_bounds",
			crs:         "EPSG:3035",
			coords:      [][2]float64{{1, 2}, {11, 4}},
			dem:         Handle{&sumRaster{bound: orb.Bound{Max: orb.Point{10, 10}}, crs: "EPSG:3035"}},
			expectedErr: ErrOutOfBounds,
		},
		{
			name:        "nil_dem",
			crs:         "EPSG:3035",
			coords:      [][2]float64{{1, 2}},
			expectedErr: ErrTypeMismatch,
		},
		{
			name:        "nil_grid",
			crs:         "EPSG:3035",
			coords:      [][2]float64{{1, 2}},
			dem:         (*Grid)(nil),
			expectedErr: ErrTypeMismatch,
		},
		{
			name:        "nil_raster_reader",
			crs:         "EPSG:3035",
			coords:      [][2]float64{{1, 2}},
			dem:         Handle{},
			expectedErr: ErrTypeMismatch,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ExtractXY(newPointCollection(tc.crs, tc.coords...))
			assert.NoError(t, err)
			actual, err := ExtractZ(t.Context(), c, tc.dem, tc.options...)
			if tc.expectedErr != nil {
				assert.IsError(t, err, tc.expectedErr)
				assert.False(t, c.HasZ())
				return
			}
			assert.NoError(t, err)
			assertInDelta(t, tc.expectedZ, actual.Z, 1e-12)
			assert.Equal(t, c.X, actual.X)
			assert.Equal(t, c.Y, actual.Y)
			assert.False(t, c.HasZ())
		})
	}
}

func TestExtractZReprojection(t *testing.T) {
	c, err := ExtractXY(newPointCollection("EPSG:1", [2]float64{-95, 25}, [2]float64{-90, 20}))
	assert.NoError(t, err)
	x := append([]float64(nil), c.X...)

	grid := newTestGrid("EPSG:2")
	grid.Extent = Extent{100, 130, 0, 30}
	transformer := &shiftTransformer{dx: 200}

	assert.NoError(t, ExtractZInto(t.Context(), c, grid, WithTransformer(transformer)))
	assertInDelta(t, []float64{0, 1.5}, c.Z, 1e-12)
	assert.Equal(t, x, c.X)
	assert.Equal(t, [][2]string{{"EPSG:1", "EPSG:2"}}, transformer.calls)

	assert.IsError(t, ExtractZInto(t.Context(), c, grid, WithTransformer(transformer)), ErrDuplicateZ)
	assert.IsError(t, ExtractZInto(t.Context(), c, grid, WithTransformer(transformer)), ErrMissingData)
}

func TestExtractZWithoutXY(t *testing.T) {
	c := newPointCollection("EPSG:3035", [2]float64{5, 25})
	_, err := ExtractZ(t.Context(), c, newTestGrid("EPSG:3035"))
	assert.IsError(t, err, ErrMissingData)
}

func TestSampleWithReprojection(t *testing.T) {
	points := [][]float64{{1, 2}, {3, 4}}
	transformer := &shiftTransformer{dx: 10}

	samples, err := SampleWithReprojection(t.Context(), transformer, points, "EPSG:4326", "EPSG:3857", func(ctx context.Context, coords [][]float64) ([]float64, error) {
		samples := make([]float64, len(coords))
		for i, coord := range coords {
			samples[i] = coord[0]
		}
		return samples, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []float64{11, 13}, samples)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, points)

	_, err = SampleWithReprojection(t.Context(), transformer, points, "EPSG:4326", "EPSG:3857", func(ctx context.Context, coords [][]float64) ([]float64, error) {
		return []float64{0}, nil
	})
	assert.Error(t, err)

	_, err = SampleWithReprojection(t.Context(), failingTransformer{}, points, "EPSG:4326", "EPSG:3857", nil)
	assert.IsError(t, err, errUnexpectedTransform)
}
