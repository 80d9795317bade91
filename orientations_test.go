package gemgis

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/paulmach/orb"
)

func TestCalculateOrientations(t *testing.T) {
	// Three strike lines on the plane z = x, which dips 45 degrees to the west.
	c := NewCollection("", []orb.Geometry{
		orb.LineString{{0, 0}, {0, 10}},
		orb.LineString{{10, 0}, {10, 10}},
		orb.LineString{{20, 0}, {20, 10}},
	})
	assert.NoError(t, c.SetAttribute(AttributeID, []any{1, 2, 3.0}))
	assert.NoError(t, c.SetAttribute(AttributeFormation, []any{"Sand1", "Sand1", "Sand1"}))
	c.Z = []float64{0, 10, 20}

	actual, err := CalculateOrientations(c)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(actual))
	for i, expected := range []Orientation{
		{X: 5, Y: 5, Z: 5, Formation: "Sand1", Dip: 45, Azimuth: 270, Polarity: 1},
		{X: 15, Y: 5, Z: 15, Formation: "Sand1", Dip: 45, Azimuth: 270, Polarity: 1},
	} {
		assertInDelta(t,
			[]float64{expected.X, expected.Y, expected.Z, expected.Dip, expected.Azimuth, expected.Polarity},
			[]float64{actual[i].X, actual[i].Y, actual[i].Z, actual[i].Dip, actual[i].Azimuth, actual[i].Polarity},
			1e-6,
		)
		assert.Equal(t, expected.Formation, actual[i].Formation)
	}
}

func TestCalculateOrientationsErrors(t *testing.T) {
	newStrikeLines := func(ids []any, z []float64) *Collection {
		c := NewCollection("", []orb.Geometry{
			orb.LineString{{0, 0}, {0, 10}},
			orb.LineString{{10, 0}, {10, 10}},
		})
		assert.NoError(t, c.SetAttribute(AttributeFormation, []any{"Sand1", "Sand1"}))
		if ids != nil {
			assert.NoError(t, c.SetAttribute(AttributeID, ids))
		}
		c.Z = z
		return c
	}

	for _, tc := range []struct {
		name        string
		collection  *Collection
		expectedErr error
	}{
		{
			name:        "missing_z",
			collection:  newStrikeLines([]any{1, 2}, nil),
			expectedErr: ErrMissingData,
		},
		{
			name:        "missing_id",
			collection:  newStrikeLines(nil, []float64{0, 10}),
			expectedErr: ErrMissingData,
		},
		{
			name:        "nil_id",
			collection:  newStrikeLines([]any{1, nil}, []float64{0, 10}),
			expectedErr: ErrInvalidParameter,
		},
		{
			name:        "single_line",
			collection:  newStrikeLines([]any{1, 1}, []float64{0, 10}),
			expectedErr: ErrInvalidParameter,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CalculateOrientations(tc.collection)
			assert.IsError(t, err, tc.expectedErr)
		})
	}
}
