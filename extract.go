package gemgis

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var extractedPoints = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gemgis_extracted_points_total",
	Help: "The total number of points whose X and Y were extracted",
})

// ExtractXY returns a copy of c with X and Y columns. Lines are exploded
// into one row per vertex.
func ExtractXY(c *Collection) (*Collection, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	clone := c.Clone()
	if err := ExtractXYInto(clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// ExtractXYInto adds X and Y columns to c, exploding lines in place.
func ExtractXYInto(c *Collection) error {
	if c == nil {
		return fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}

	hasPoints, hasLines := false, false
	for i, geometry := range c.Geometries {
		switch geometry.(type) {
		case orb.Point:
			hasPoints = true
		case orb.LineString, orb.MultiLineString:
			hasLines = true
		default:
			return fmt.Errorf("%w: row %d: unsupported geometry type %s", ErrTypeMismatch, i, geometryType(geometry))
		}
	}
	if hasPoints && hasLines {
		return fmt.Errorf("%w: mixed point and line geometries", ErrTypeMismatch)
	}

	if hasLines {
		explodeInto(c)
	}

	c.X = make([]float64, c.Len())
	c.Y = make([]float64, c.Len())
	for i, geometry := range c.Geometries {
		point := geometry.(orb.Point)
		c.X[i] = point.X()
		c.Y[i] = point.Y()
	}
	extractedPoints.Add(float64(c.Len()))

	return nil
}

// explodeInto replaces every line in c with one point row per vertex.
func explodeInto(c *Collection) {
	var indexes []int
	var points []orb.Geometry
	for i, geometry := range c.Geometries {
		switch g := geometry.(type) {
		case orb.LineString:
			for _, point := range g {
				indexes = append(indexes, i)
				points = append(points, point)
			}
		case orb.MultiLineString:
			for _, lineString := range g {
				for _, point := range lineString {
					indexes = append(indexes, i)
					points = append(points, point)
				}
			}
		}
	}
	exploded := c.selectRows(indexes)
	exploded.Geometries = points
	c.replace(exploded)
}

func geometryType(geometry orb.Geometry) string {
	if geometry == nil {
		return "nil"
	}
	return geometry.GeoJSONType()
}
