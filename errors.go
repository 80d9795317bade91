package gemgis

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when an argument is not of the expected kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrMissingData is returned when a required column or input is absent.
	ErrMissingData = errors.New("missing data")

	// ErrOutOfBounds is returned when a point lies outside a raster.
	ErrOutOfBounds = errors.New("point outside boundaries")

	// ErrInvalidParameter is returned for unsupported or out-of-range parameters.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNumericalFailure is returned when an interpolation system is singular
	// or the point configuration is degenerate.
	ErrNumericalFailure = errors.New("numerical failure, reduce sample count")

	// ErrDuplicateZ is returned when Z values are extracted into a collection
	// that already has them.
	ErrDuplicateZ = fmt.Errorf("%w: Z values already extracted", ErrMissingData)
)
