package gemgis

import (
	"fmt"
	"math"
)

// InterpolateBilinear samples grid at coords by bilinear interpolation
// between cell centers. Coordinates in the outer half cell are clamped to the
// edge values. A coordinate outside grid's extent is an error.
func InterpolateBilinear(grid *Grid, coords [][]float64) ([]float64, error) {
	if err := grid.validate(); err != nil {
		return nil, err
	}
	rows, cols := grid.Shape()
	bound := grid.Extent.Bound()
	scaleX := (grid.Extent.MaxX() - grid.Extent.MinX()) / float64(cols)
	scaleY := (grid.Extent.MaxY() - grid.Extent.MinY()) / float64(rows)

	result := make([]float64, len(coords))
	for i, coord := range coords {
		if !bound.Contains(pointOf(coord)) {
			return nil, fmt.Errorf("%w: (%g, %g) outside grid extent", ErrOutOfBounds, coord[0], coord[1])
		}
		fx := clamp((coord[0]-grid.Extent.MinX())/scaleX-0.5, 0, float64(cols-1))
		fy := clamp((grid.Extent.MaxY()-coord[1])/scaleY-0.5, 0, float64(rows-1))
		c0, r0 := int(fx), int(fy)
		c1, r1 := min(c0+1, cols-1), min(r0+1, rows-1)
		dx, dy := fx-float64(c0), fy-float64(r0)
		result[i] = 0 +
			grid.Values[r0][c0]*(1-dx)*(1-dy) +
			grid.Values[r0][c1]*dx*(1-dy) +
			grid.Values[r1][c0]*(1-dx)*dy +
			grid.Values[r1][c1]*dx*dy
	}
	return result, nil
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}
