package gemgis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tidwall/rtree"
)

var interpolations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gemgis_interpolations_total",
	Help: "The total number of grid interpolations by method",
}, []string{"method"})

// An InterpolatedGrid is a regular grid of interpolated values. Values[i][j]
// is the value at X[j], Y[i]. Y is ascending.
type InterpolatedGrid struct {
	X      []float64
	Y      []float64
	Values [][]float64
}

// Shape returns the number of rows and columns of g.
func (g *InterpolatedGrid) Shape() (int, int) {
	return len(g.Y), len(g.X)
}

// Collection returns the nodes of g as points in crs with X, Y, and Z
// columns, row by row.
func (g *InterpolatedGrid) Collection(crs string) *Collection {
	rows, cols := g.Shape()
	geometries := make([]orb.Geometry, 0, rows*cols)
	xs := make([]float64, 0, rows*cols)
	ys := make([]float64, 0, rows*cols)
	zs := make([]float64, 0, rows*cols)
	for i, y := range g.Y {
		for j, x := range g.X {
			geometries = append(geometries, orb.Point{x, y})
			xs = append(xs, x)
			ys = append(ys, y)
			zs = append(zs, g.Values[i][j])
		}
	}
	c := NewCollection(crs, geometries)
	c.X, c.Y, c.Z = xs, ys, zs
	return c
}

// InterpolateRaster interpolates the Z values of c onto a regular grid
// spanning the X and Y range of its points. c must have Z values; X and Y are
// extracted if needed.
//
// ctx is checked between grid rows.
func InterpolateRaster(ctx context.Context, c *Collection, method Method, opts ...Option) (*InterpolatedGrid, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	if method == nil {
		return nil, fmt.Errorf("%w: No valid method defined", ErrInvalidParameter)
	}
	o := newOptions(opts)
	if o.res <= 0 {
		return nil, fmt.Errorf("%w: res must be positive", ErrInvalidParameter)
	}
	if !c.HasZ() {
		return nil, fmt.Errorf("%w: Z-values not defined", ErrMissingData)
	}
	if !c.HasXY() {
		var err error
		if c, err = ExtractXY(c); err != nil {
			return nil, err
		}
	}

	xs, ys, zs := c.X, c.Y, c.Z
	if o.sampleCount != nil {
		indexes, err := sampleIndexes(*o.sampleCount, c.Len(), o.seed)
		if err != nil {
			return nil, err
		}
		xs = selectFloat64s(xs, indexes)
		ys = selectFloat64s(ys, indexes)
		zs = selectFloat64s(zs, indexes)
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrMissingData)
	}
	if i := slices.IndexFunc(zs, math.IsNaN); i >= 0 {
		return nil, fmt.Errorf("%w: Z value %d is not a number", ErrMissingData, i)
	}

	grid := &InterpolatedGrid{
		X: linspace(slices.Min(xs), slices.Max(xs), o.res),
		Y: linspace(slices.Min(ys), slices.Max(ys), o.res),
	}

	var eval func(x, y float64) float64
	switch method := method.(type) {
	case Nearest:
		eval = nearestEvaluator(xs, ys, zs)
	case Linear:
		t, err := newTriangulation(xs, ys, zs)
		if err != nil {
			return nil, err
		}
		eval = t.linear
	case Cubic:
		t, err := newTriangulation(xs, ys, zs)
		if err != nil {
			return nil, err
		}
		eval = t.cubicEvaluator()
	case RadialBasis:
		rbf, err := fitRBF(xs, ys, zs, method)
		if err != nil {
			return nil, err
		}
		eval = rbf.eval
	default:
		return nil, fmt.Errorf("%w: No valid method defined", ErrInvalidParameter)
	}

	o.logger.Debug("interpolating",
		slog.String("method", method.String()),
		slog.Int("points", len(xs)),
		slog.Int("res", o.res),
	)

	grid.Values = make([][]float64, len(grid.Y))
	for i, y := range grid.Y {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := make([]float64, len(grid.X))
		for j, x := range grid.X {
			row[j] = eval(x, y)
		}
		grid.Values[i] = row
	}
	interpolations.WithLabelValues(method.String()).Inc()

	return grid, nil
}

// sampleIndexes returns n distinct random indexes in [0, count).
func sampleIndexes(n, count int, seed *uint64) ([]int, error) {
	if n < 0 || n > count {
		return nil, fmt.Errorf("%w: sample count %d exceeds %d points", ErrInvalidParameter, n, count)
	}
	var s uint64
	if seed != nil {
		s = *seed
	} else {
		s = rand.Uint64()
	}
	r := rand.New(rand.NewPCG(s, s))
	return r.Perm(count)[:n], nil
}

// linspace returns n evenly spaced values from start to stop inclusive.
func linspace(start, stop float64, n int) []float64 {
	values := make([]float64, n)
	if n == 1 {
		values[0] = start
		return values
	}
	step := (stop - start) / float64(n-1)
	for i := range n {
		values[i] = start + float64(i)*step
	}
	values[n-1] = stop
	return values
}

func nearestEvaluator(xs, ys, zs []float64) func(x, y float64) float64 {
	nearest := nearestIndex(xs, ys)
	return func(x, y float64) float64 {
		i := nearest(x, y)
		if i < 0 {
			return math.NaN()
		}
		return zs[i]
	}
}

// nearestIndex returns a function that returns the index of the point in xs,
// ys nearest to x, y, or -1 if there are no points.
func nearestIndex(xs, ys []float64) func(x, y float64) int {
	var index rtree.RTreeG[int]
	for i := range xs {
		point := [2]float64{xs[i], ys[i]}
		index.Insert(point, point, i)
	}
	return func(x, y float64) int {
		nearest := -1
		index.Nearby(
			func(min, max [2]float64, data int, item bool) float64 {
				return boxDist2(min, max, x, y)
			},
			func(min, max [2]float64, data int, dist float64) bool {
				nearest = data
				return false
			},
		)
		return nearest
	}
}

// boxDist2 returns the squared distance from x, y to the box min, max.
func boxDist2(min, max [2]float64, x, y float64) float64 {
	dx := math.Max(0, math.Max(min[0]-x, x-max[0]))
	dy := math.Max(0, math.Max(min[1]-y, y-max[1]))
	return dx*dx + dy*dy
}
