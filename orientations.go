package gemgis

import (
	"fmt"
	"math"
	"slices"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CalculateOrientations calculates orientations from strike lines. c holds
// the vertices of strike lines with id, formation, and Z attributes; lines
// with consecutive ids are paired and the orientation of each pair is the
// normal of the plane that best fits their vertices, located at their mean.
func CalculateOrientations(c *Collection) ([]Orientation, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	if !c.HasZ() {
		return nil, fmt.Errorf("%w: Z column missing", ErrMissingData)
	}
	formations, err := stringAttribute(c, AttributeFormation)
	if err != nil {
		return nil, err
	}
	if _, ok := c.Attribute(AttributeID); !ok {
		return nil, fmt.Errorf("%w: id column missing", ErrMissingData)
	}
	if !c.HasXY() {
		if c, err = ExtractXY(c); err != nil {
			return nil, err
		}
	}

	idValues, _ := c.Attribute(AttributeID)
	ids := make([]int, len(idValues))
	for i, value := range idValues {
		if value == nil {
			return nil, fmt.Errorf("%w: IDs must not be nil", ErrInvalidParameter)
		}
		if ids[i], err = cast.ToIntE(value); err != nil {
			return nil, fmt.Errorf("%w: id: row %d: %w", ErrTypeMismatch, i, err)
		}
	}
	uniqueIDs := slices.Clone(ids)
	slices.Sort(uniqueIDs)
	uniqueIDs = slices.Compact(uniqueIDs)
	if len(uniqueIDs) < 2 {
		return nil, fmt.Errorf("%w: at least two strike lines are needed", ErrInvalidParameter)
	}

	orientations := make([]Orientation, 0, len(uniqueIDs)-1)
	for i := range len(uniqueIDs) - 1 {
		var points []float64
		for row, id := range ids {
			if id == uniqueIDs[i] || id == uniqueIDs[i+1] {
				points = append(points, c.X[row], c.Y[row], c.Z[row])
			}
		}
		orientation, err := planeOrientation(mat.NewDense(len(points)/3, 3, points))
		if err != nil {
			return nil, fmt.Errorf("strike lines %d and %d: %w", uniqueIDs[i], uniqueIDs[i+1], err)
		}
		orientation.Formation = formations[0]
		orientations = append(orientations, orientation)
	}
	return orientations, nil
}

// planeOrientation returns the orientation of the plane best fitting the
// rows of points, located at their mean.
func planeOrientation(points *mat.Dense) (Orientation, error) {
	n, _ := points.Dims()
	if n < 3 {
		return Orientation{}, fmt.Errorf("%w: %d points do not define a plane", ErrInvalidParameter, n)
	}

	var covariance mat.SymDense
	stat.CovarianceMatrix(&covariance, points, nil)
	var eigen mat.EigenSym
	if ok := eigen.Factorize(&covariance, true); !ok {
		return Orientation{}, fmt.Errorf("%w: eigen decomposition failed", ErrNumericalFailure)
	}
	var vectors mat.Dense
	eigen.VectorsTo(&vectors)
	// Eigenvalues are in ascending order, so the first vector is the normal.
	x, y, z := vectors.At(0, 0), vectors.At(1, 0), vectors.At(2, 0)

	signZ := -1.0
	if z > 0 {
		signZ = 1
	}
	dip := math.Atan2(math.Hypot(x, y), math.Abs(z)) * 180 / math.Pi
	azimuth := math.Mod(math.Atan2(signZ*x, signZ*y)*180/math.Pi, 360)
	if azimuth < 0 {
		azimuth += 360
	}

	return Orientation{
		X:        stat.Mean(mat.Col(nil, 0, points), nil),
		Y:        stat.Mean(mat.Col(nil, 1, points), nil),
		Z:        stat.Mean(mat.Col(nil, 2, points), nil),
		Dip:      dip,
		Azimuth:  azimuth,
		Polarity: 1,
	}, nil
}
