package gemgis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	elevationSamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemgis_elevation_samples_total",
		Help: "The total number of Z values sampled from DEMs",
	})
	reprojections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemgis_reprojections_total",
		Help: "The total number of samplings that required a CRS transformation",
	})
	outOfBoundsRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemgis_out_of_bounds_rejections_total",
		Help: "The total number of samplings rejected because a point was outside the DEM",
	})
)

// A SampleFunc returns one sample per coordinate, in order.
type SampleFunc func(ctx context.Context, coords [][]float64) ([]float64, error)

// ExtractZ returns a copy of c with a Z column sampled from dem. c must
// already have X and Y columns.
func ExtractZ(ctx context.Context, c *Collection, dem DEM, opts ...Option) (*Collection, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	clone := c.Clone()
	if err := ExtractZInto(ctx, clone, dem, opts...); err != nil {
		return nil, err
	}
	return clone, nil
}

// ExtractZInto adds a Z column sampled from dem to c.
func ExtractZInto(ctx context.Context, c *Collection, dem DEM, opts ...Option) error {
	if c == nil {
		return fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	if c.HasZ() {
		return ErrDuplicateZ
	}
	if !c.HasXY() {
		return fmt.Errorf("%w: X and Y values not extracted", ErrMissingData)
	}
	o := newOptions(opts)

	coords := make([][]float64, c.Len())
	for i := range coords {
		coords[i] = []float64{c.X[i], c.Y[i]}
	}

	var z []float64
	var err error
	switch dem := dem.(type) {
	case *Grid:
		if dem == nil {
			return fmt.Errorf("%w: nil grid", ErrTypeMismatch)
		}
		z, err = sampleGrid(ctx, o, c.CRS, dem, coords)
	case Handle:
		if dem.RasterReader == nil {
			return fmt.Errorf("%w: nil raster reader", ErrTypeMismatch)
		}
		z, err = sampleHandle(ctx, o, c.CRS, dem, coords)
	default:
		return fmt.Errorf("%w: DEM must be a grid or a raster handle", ErrTypeMismatch)
	}
	if err != nil {
		return err
	}

	c.Z = z
	elevationSamples.Add(float64(len(z)))
	return nil
}

func sampleGrid(ctx context.Context, o *options, crs string, grid *Grid, coords [][]float64) ([]float64, error) {
	if err := grid.validate(); err != nil {
		return nil, err
	}
	sample := func(ctx context.Context, coords [][]float64) ([]float64, error) {
		return InterpolateBilinear(grid, coords)
	}
	if sameCRS(crs, grid.CRS) {
		o.logger.Debug("sampling grid", slog.Int("points", len(coords)))
		return sample(ctx, coords)
	}
	o.logger.Debug("sampling grid with reprojection",
		slog.String("from", crs),
		slog.String("to", grid.CRS),
		slog.Int("points", len(coords)),
	)
	transformer, err := o.getTransformer()
	if err != nil {
		return nil, err
	}
	return SampleWithReprojection(ctx, transformer, coords, crs, grid.CRS, sample)
}

func sampleHandle(ctx context.Context, o *options, crs string, handle Handle, coords [][]float64) ([]float64, error) {
	bound := handle.Bounds()
	sample := func(ctx context.Context, coords [][]float64) ([]float64, error) {
		for _, coord := range coords {
			if !bound.Contains(pointOf(coord)) {
				outOfBoundsRejections.Inc()
				return nil, fmt.Errorf("%w: (%g, %g)", ErrOutOfBounds, coord[0], coord[1])
			}
		}
		return handle.Samples(ctx, coords)
	}
	if sameCRS(crs, handle.CRS()) {
		o.logger.Debug("sampling raster", slog.Int("points", len(coords)))
		return sample(ctx, coords)
	}
	o.logger.Debug("sampling raster with reprojection",
		slog.String("from", crs),
		slog.String("to", handle.CRS()),
		slog.Int("points", len(coords)),
	)
	transformer, err := o.getTransformer()
	if err != nil {
		return nil, err
	}
	return SampleWithReprojection(ctx, transformer, coords, crs, handle.CRS(), sample)
}

// SampleWithReprojection samples points given in sourceCRS with sample,
// which expects coordinates in targetCRS. points are not modified.
func SampleWithReprojection(ctx context.Context, transformer Transformer, points [][]float64, sourceCRS, targetCRS string, sample SampleFunc) ([]float64, error) {
	targetPoints := cloneCoords(points)
	if err := transformer.Transform(ctx, sourceCRS, targetCRS, targetPoints); err != nil {
		return nil, fmt.Errorf("%s to %s: %w", sourceCRS, targetCRS, err)
	}
	reprojections.Inc()
	samples, err := sample(ctx, targetPoints)
	if err != nil {
		return nil, err
	}
	if len(samples) != len(points) {
		return nil, fmt.Errorf("got %d samples for %d points", len(samples), len(points))
	}
	return samples, nil
}

func pointOf(coord []float64) orb.Point {
	return orb.Point{coord[0], coord[1]}
}
