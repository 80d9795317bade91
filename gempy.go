package gemgis

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
)

// Attribute column names used by geological models.
const (
	AttributeFormation = "formation"
	AttributeDip       = "dip"
	AttributeAzimuth   = "azimuth"
	AttributePolarity  = "polarity"
	AttributeID        = "id"
)

// An Interface is a point on a layer boundary.
type Interface struct {
	X         float64
	Y         float64
	Z         float64
	Formation string
}

// An Orientation is a measured or calculated layer orientation. Dip and
// Azimuth are in degrees.
type Orientation struct {
	X         float64
	Y         float64
	Z         float64
	Formation string
	Dip       float64
	Azimuth   float64
	Polarity  float64
}

// ToInterfaces returns the interface points of c. Missing X, Y, and Z values
// are extracted, sampling Z from dem. c must have a formation attribute.
func ToInterfaces(ctx context.Context, c *Collection, dem DEM, opts ...Option) ([]Interface, error) {
	c, err := withCoordinates(ctx, c, dem, opts)
	if err != nil {
		return nil, err
	}
	formations, err := stringAttribute(c, AttributeFormation)
	if err != nil {
		return nil, err
	}
	interfaces := make([]Interface, c.Len())
	for i := range interfaces {
		interfaces[i] = Interface{
			X:         c.X[i],
			Y:         c.Y[i],
			Z:         c.Z[i],
			Formation: formations[i],
		}
	}
	return interfaces, nil
}

// ToOrientations returns the orientations of c. Missing X, Y, and Z values
// are extracted, sampling Z from dem. c must have formation, dip, and azimuth
// attributes. Dips must not exceed 90 degrees and azimuths must not exceed
// 360 degrees. A missing polarity attribute means a polarity of 1.
func ToOrientations(ctx context.Context, c *Collection, dem DEM, opts ...Option) ([]Orientation, error) {
	c, err := withCoordinates(ctx, c, dem, opts)
	if err != nil {
		return nil, err
	}
	formations, err := stringAttribute(c, AttributeFormation)
	if err != nil {
		return nil, err
	}
	dips, err := float64Attribute(c, AttributeDip)
	if err != nil {
		return nil, err
	}
	azimuths, err := float64Attribute(c, AttributeAzimuth)
	if err != nil {
		return nil, err
	}
	var polarities []float64
	if _, ok := c.Attribute(AttributePolarity); ok {
		if polarities, err = float64Attribute(c, AttributePolarity); err != nil {
			return nil, err
		}
	}

	orientations := make([]Orientation, c.Len())
	for i := range orientations {
		if dips[i] > 90 {
			return nil, fmt.Errorf("%w: row %d: dip values exceed 90 degrees", ErrInvalidParameter, i)
		}
		if azimuths[i] > 360 {
			return nil, fmt.Errorf("%w: row %d: azimuth values exceed 360 degrees", ErrInvalidParameter, i)
		}
		polarity := 1.0
		if polarities != nil {
			polarity = polarities[i]
		}
		orientations[i] = Orientation{
			X:         c.X[i],
			Y:         c.Y[i],
			Z:         c.Z[i],
			Formation: formations[i],
			Dip:       dips[i],
			Azimuth:   azimuths[i],
			Polarity:  polarity,
		}
	}
	return orientations, nil
}

// withCoordinates returns a copy of c with X, Y, and Z columns.
func withCoordinates(ctx context.Context, c *Collection, dem DEM, opts []Option) (*Collection, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	c = c.Clone()
	if !c.HasXY() {
		if err := ExtractXYInto(c); err != nil {
			return nil, err
		}
	}
	if !c.HasZ() {
		if dem == nil {
			return nil, fmt.Errorf("%w: DEM not provided", ErrMissingData)
		}
		if err := ExtractZInto(ctx, c, dem, opts...); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func stringAttribute(c *Collection, name string) ([]string, error) {
	values, ok := c.Attribute(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s names not defined", ErrMissingData, name)
	}
	result := make([]string, len(values))
	for i, value := range values {
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: row %d: %w", ErrTypeMismatch, name, i, err)
		}
		result[i] = s
	}
	return result, nil
}

func float64Attribute(c *Collection, name string) ([]float64, error) {
	values, ok := c.Attribute(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s values not defined", ErrMissingData, name)
	}
	result := make([]float64, len(values))
	for i, value := range values {
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: row %d: %w", ErrTypeMismatch, name, i, err)
		}
		result[i] = f
	}
	return result, nil
}
