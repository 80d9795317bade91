package gemgis

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/paulmach/orb"
)

func TestToInterfaces(t *testing.T) {
	t.Run("dem", func(t *testing.T) {
		c := newPointCollection("EPSG:3035", [2]float64{5, 25}, [2]float64{15, 25})
		assert.NoError(t, c.SetAttribute(AttributeFormation, []any{"Ton", "Sand1"}))
		actual, err := ToInterfaces(t.Context(), c, newTestGrid("EPSG:3035"))
		assert.NoError(t, err)
		assert.Equal(t, []Interface{
			{X: 5, Y: 25, Z: 0, Formation: "Ton"},
			{X: 15, Y: 25, Z: 1, Formation: "Sand1"},
		}, actual)
		assert.False(t, c.HasZ())
	})

	t.Run("z_present", func(t *testing.T) {
		c := NewCollection("", []orb.Geometry{orb.LineString{{0, 0}, {1, 1}}})
		c.Z = []float64{7}
		assert.NoError(t, c.SetAttribute(AttributeFormation, []any{"Ton"}))
		actual, err := ToInterfaces(t.Context(), c, nil)
		assert.NoError(t, err)
		assert.Equal(t, []Interface{
			{X: 0, Y: 0, Z: 7, Formation: "Ton"},
			{X: 1, Y: 1, Z: 7, Formation: "Ton"},
		}, actual)
	})

	t.Run("missing_dem", func(t *testing.T) {
		c := newPointCollection("", [2]float64{0, 0})
		assert.NoError(t, c.SetAttribute(AttributeFormation, []any{"Ton"}))
		_, err := ToInterfaces(t.Context(), c, nil)
		assert.IsError(t, err, ErrMissingData)
	})

	t.Run("missing_formation", func(t *testing.T) {
		c := newPointCollection("", [2]float64{0, 0})
		c.Z = []float64{1}
		_, err := ToInterfaces(t.Context(), c, nil)
		assert.IsError(t, err, ErrMissingData)
	})
}

func TestToOrientations(t *testing.T) {
	for _, tc := range []struct {
		name        string
		attributes  map[string][]any
		expected    []Orientation
		expectedErr error
	}{
		{
			name: "default_polarity",
			attributes: map[string][]any{
				AttributeFormation: {"Ton"},
				AttributeDip:       {"30.5"},
				AttributeAzimuth:   {180},
			},
			expected: []Orientation{
				{X: 1, Y: 2, Z: 3, Formation: "Ton", Dip: 30.5, Azimuth: 180, Polarity: 1},
			},
		},
		{
			name: "polarity",
			attributes: map[string][]any{
				AttributeFormation: {"Ton"},
				AttributeDip:       {30.0},
				AttributeAzimuth:   {180.0},
				AttributePolarity:  {-1},
			},
			expected: []Orientation{
				{X: 1, Y: 2, Z: 3, Formation: "Ton", Dip: 30, Azimuth: 180, Polarity: -1},
			},
		},
		{
			name: "dip_too_large",
			attributes: map[string][]any{
				AttributeFormation: {"Ton"},
				AttributeDip:       {91.0},
				AttributeAzimuth:   {180.0},
			},
			expectedErr: ErrInvalidParameter,
		},
		{
			name: "azimuth_too_large",
			attributes: map[string][]any{
				AttributeFormation: {"Ton"},
				AttributeDip:       {30.0},
				AttributeAzimuth:   {361.0},
			},
			expectedErr: ErrInvalidParameter,
		},
		{
			name: "missing_azimuth",
			attributes: map[string][]any{
				AttributeFormation: {"Ton"},
				AttributeDip:       {30.0},
			},
			expectedErr: ErrMissingData,
		},
		{
			name: "bad_dip",
			attributes: map[string][]any{
				AttributeFormation: {"Ton"},
				AttributeDip:       {"steep"},
				AttributeAzimuth:   {180.0},
			},
			expectedErr: ErrTypeMismatch,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newPointCollection("", [2]float64{1, 2})
			c.Z = []float64{3}
			for _, name := range []string{AttributeFormation, AttributeDip, AttributeAzimuth, AttributePolarity} {
				if values, ok := tc.attributes[name]; ok {
					assert.NoError(t, c.SetAttribute(name, values))
				}
			}
			actual, err := ToOrientations(t.Context(), c, nil)
			if tc.expectedErr != nil {
				assert.IsError(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}
