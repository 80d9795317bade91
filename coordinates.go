package gemgis

import (
	"context"
	"fmt"
	"log/slog"
)

// ExtractCoordinates returns a copy of c with X, Y, and Z columns, extracting
// whatever is missing. dem is required unless c already has Z values.
func ExtractCoordinates(ctx context.Context, c *Collection, dem DEM, opts ...Option) (*Collection, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	clone := c.Clone()
	if err := ExtractCoordinatesInto(ctx, clone, dem, opts...); err != nil {
		return nil, err
	}
	return clone, nil
}

// ExtractCoordinatesInto adds whichever of the X, Y, and Z columns are
// missing to c. c is left unchanged if an error is returned.
func ExtractCoordinatesInto(ctx context.Context, c *Collection, dem DEM, opts ...Option) error {
	if c == nil {
		return fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	o := newOptions(opts)

	if c.HasZ() {
		o.logger.Debug("Z values present, skipping extraction")
		return nil
	}
	if dem == nil {
		return fmt.Errorf("%w: DEM is missing", ErrMissingData)
	}

	extracted := c.Clone()
	if !extracted.HasXY() {
		o.logger.Debug("extracting X and Y", slog.Int("rows", extracted.Len()))
		if err := ExtractXYInto(extracted); err != nil {
			return err
		}
	}
	if err := ExtractZInto(ctx, extracted, dem, opts...); err != nil {
		return err
	}

	c.replace(extracted)
	return nil
}
