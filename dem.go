package gemgis

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// A DEM is a digital elevation model. It is either a *Grid or a Handle. A nil
// DEM means that no elevation source is available.
type DEM interface {
	isDEM()
}

// A RasterReader samples a raster at coordinates in the raster's own CRS.
// Missing samples are represented by NaNs.
type RasterReader interface {
	Samples(ctx context.Context, coords [][]float64) ([]float64, error)
	Bounds() orb.Bound
	CRS() string
}

// A Handle is a DEM backed by a RasterReader.
type Handle struct {
	RasterReader
}

func (Handle) isDEM() {}

// A Grid is an in-memory DEM. Values[0] is the top (maxy) row and each value
// covers one cell of Extent.
type Grid struct {
	Values [][]float64
	Extent Extent
	CRS    string
}

func (*Grid) isDEM() {}

// Shape returns the number of rows and columns of g.
func (g *Grid) Shape() (int, int) {
	if len(g.Values) == 0 {
		return 0, 0
	}
	return len(g.Values), len(g.Values[0])
}

func (g *Grid) validate() error {
	if g.Extent == nil {
		return fmt.Errorf("%w: extent needed", ErrMissingData)
	}
	if err := g.Extent.Validate(); err != nil {
		return err
	}
	if g.Extent.MaxX() <= g.Extent.MinX() || g.Extent.MaxY() <= g.Extent.MinY() {
		return fmt.Errorf("%w: empty extent", ErrInvalidParameter)
	}
	rows, cols := g.Shape()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("%w: empty grid", ErrInvalidParameter)
	}
	for _, row := range g.Values {
		if len(row) != cols {
			return fmt.Errorf("%w: ragged grid", ErrInvalidParameter)
		}
	}
	return nil
}

// sameCRS returns whether a and b name the same CRS. An empty CRS matches
// everything.
func sameCRS(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a == "" || b == "" || strings.EqualFold(a, b)
}
