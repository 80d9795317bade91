package gemgis

import (
	"slices"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/paulmach/orb"
)

func TestExtractXY(t *testing.T) {
	for _, tc := range []struct {
		name               string
		geometries         []orb.Geometry
		ids                []any
		expectedX          []float64
		expectedY          []float64
		expectedIDs        []any
		expectedErr        error
		expectedGeometries []orb.Geometry
	}{
		{
			name: "points",
			geometries: []orb.Geometry{
				orb.Point{1, 2},
				orb.Point{3, 4},
				orb.Point{5, 6},
			},
			ids:         []any{"a", "b", "c"},
			expectedX:   []float64{1, 3, 5},
			expectedY:   []float64{2, 4, 6},
			expectedIDs: []any{"a", "b", "c"},
		},
		{
			name: "line_strings",
			geometries: []orb.Geometry{
				orb.LineString{{0, 0}, {1, 1}, {2, 2}},
				orb.LineString{{10, 10}, {11, 11}},
			},
			ids:         []any{1, 2},
			expectedX:   []float64{0, 1, 2, 10, 11},
			expectedY:   []float64{0, 1, 2, 10, 11},
			expectedIDs: []any{1, 1, 1, 2, 2},
			expectedGeometries: []orb.Geometry{
				orb.Point{0, 0},
				orb.Point{1, 1},
				orb.Point{2, 2},
				orb.Point{10, 10},
				orb.Point{11, 11},
			},
		},
		{
			name: "line_string_and_multi_line_string",
			geometries: []orb.Geometry{
				orb.LineString{{0, 0}, {1, 0}},
				orb.MultiLineString{{{5, 5}, {6, 5}}, {{7, 7}}},
			},
			ids:         []any{"x", "y"},
			expectedX:   []float64{0, 1, 5, 6, 7},
			expectedY:   []float64{0, 0, 5, 5, 7},
			expectedIDs: []any{"x", "x", "y", "y", "y"},
		},
		{
			name: "mixed_points_and_lines",
			geometries: []orb.Geometry{
				orb.Point{0, 0},
				orb.LineString{{0, 0}, {1, 1}},
			},
			ids:         []any{1, 2},
			expectedErr: ErrTypeMismatch,
		},
		{
			name: "polygon",
			geometries: []orb.Geometry{
				orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
			},
			ids:         []any{1},
			expectedErr: ErrTypeMismatch,
		},
		{
			name:        "nil_geometry",
			geometries:  []orb.Geometry{nil},
			ids:         []any{1},
			expectedErr: ErrTypeMismatch,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCollection("EPSG:3035", tc.geometries)
			assert.NoError(t, c.SetAttribute("id", tc.ids))

			actual, err := ExtractXY(c)
			if tc.expectedErr != nil {
				assert.IsError(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedX, actual.X)
			assert.Equal(t, tc.expectedY, actual.Y)
			ids, ok := actual.Attribute("id")
			assert.True(t, ok)
			assert.Equal(t, tc.expectedIDs, ids)
			assert.Equal(t, "EPSG:3035", actual.CRS)
			if tc.expectedGeometries != nil {
				assert.Equal(t, tc.expectedGeometries, actual.Geometries)
			}

			// The input is unchanged.
			assert.False(t, c.HasXY())
			assert.Equal(t, tc.geometries, c.Geometries)
		})
	}
}

func TestExtractXYInto(t *testing.T) {
	c := NewCollection("", []orb.Geometry{
		orb.LineString{{0, 0}, {1, 1}},
	})
	assert.NoError(t, ExtractXYInto(c))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []float64{0, 1}, c.X)
	assert.Equal(t, []float64{0, 1}, c.Y)
	assert.Equal(t, []orb.Geometry{orb.Point{0, 0}, orb.Point{1, 1}}, c.Geometries)

	assert.IsError(t, ExtractXYInto(nil), ErrTypeMismatch)
}

func TestExtractXYBoundRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name       string
		geometries []orb.Geometry
	}{
		{
			name: "points",
			geometries: []orb.Geometry{
				orb.Point{3, -2},
				orb.Point{-7.5, 4},
				orb.Point{1, 9.25},
			},
		},
		{
			name: "line_strings",
			geometries: []orb.Geometry{
				orb.LineString{{0, 0}, {10, 5}, {4, -3}},
				orb.LineString{{-2, 8}, {6, 6}},
			},
		},
		{
			name: "multi_line_strings",
			geometries: []orb.Geometry{
				orb.MultiLineString{{{1, 1}, {2, 2}}, {{-4, 3}, {5, -6}}},
				orb.LineString{{0, 12}, {0.5, 0.5}},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCollection("", tc.geometries)
			actual, err := ExtractXY(c)
			assert.NoError(t, err)
			bound := orb.Bound{
				Min: orb.Point{slices.Min(actual.X), slices.Min(actual.Y)},
				Max: orb.Point{slices.Max(actual.X), slices.Max(actual.Y)},
			}
			assert.Equal(t, c.Bound(), bound)
		})
	}
}
