package gemgis

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/paulmach/orb"
)

// assertInDelta asserts that expected and actual are equal within delta,
// treating NaNs as equal.
func assertInDelta(t *testing.T, expected, actual []float64, delta float64) {
	t.Helper()
	assert.Equal(t, len(expected), len(actual))
	for i := range expected {
		switch {
		case math.IsNaN(expected[i]):
			assert.True(t, math.IsNaN(actual[i]), "index %d: expected NaN, got %g", i, actual[i])
		default:
			assert.True(t, math.Abs(expected[i]-actual[i]) <= delta, "index %d: expected %g, got %g", i, expected[i], actual[i])
		}
	}
}

func newPointCollection(crs string, coords ...[2]float64) *Collection {
	geometries := make([]orb.Geometry, len(coords))
	for i, coord := range coords {
		geometries[i] = orb.Point(coord)
	}
	return NewCollection(crs, geometries)
}
