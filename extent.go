package gemgis

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// An Extent is a rectangular window minx, maxx, miny, maxy with optional
// minz, maxz.
type Extent []float64

// ExtentFromBound returns the two-dimensional extent of bound.
func ExtentFromBound(bound orb.Bound) Extent {
	return Extent{bound.Min.X(), bound.Max.X(), bound.Min.Y(), bound.Max.Y()}
}

// SetExtent returns the extent of c's geometries rounded to two decimals.
// nil geometries are ignored.
func SetExtent(c *Collection) (Extent, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	bound, ok := c.bound()
	if !ok {
		return nil, fmt.Errorf("%w: collection has no geometries", ErrMissingData)
	}
	extent := ExtentFromBound(bound)
	for i, value := range extent {
		extent[i] = math.Round(100*value) / 100
	}
	return extent, nil
}

// Validate returns an error if e does not have four or six finite bounds.
func (e Extent) Validate() error {
	if len(e) != 4 && len(e) != 6 {
		return fmt.Errorf("%w: extent has %d values, expected 4 or 6", ErrInvalidParameter, len(e))
	}
	for i, value := range e {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: extent value %d is not a number", ErrInvalidParameter, i)
		}
	}
	return nil
}

// MinX, MaxX, MinY, and MaxY return the individual bounds of e.
func (e Extent) MinX() float64 { return e[0] }
func (e Extent) MaxX() float64 { return e[1] }
func (e Extent) MinY() float64 { return e[2] }
func (e Extent) MaxY() float64 { return e[3] }

// Bound returns the two-dimensional bounds of e.
func (e Extent) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{e.MinX(), e.MinY()},
		Max: orb.Point{e.MaxX(), e.MaxY()},
	}
}

// Polygon returns e as a counter-clockwise rectangle.
func (e Extent) Polygon() orb.Polygon {
	return e.Bound().ToPolygon()
}
