package gemgis

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/spf13/cast"
)

// CreateLineString returns the strike line of formation at altitude, joining
// the points of c with that formation and Z value in row order. c must
// contain only points and have a formation attribute and Z values.
func CreateLineString(c *Collection, formation string, altitude float64) (orb.LineString, error) {
	formations, err := strikePointFormations(c)
	if err != nil {
		return nil, err
	}
	var lineString orb.LineString
	for i, geometry := range c.Geometries {
		if formations[i] == formation && c.Z[i] == altitude {
			lineString = append(lineString, geometry.(orb.Point))
		}
	}
	if len(lineString) < 2 {
		return nil, fmt.Errorf("%w: %d points of %s at %g, need at least two", ErrInvalidParameter, len(lineString), formation, altitude)
	}
	return lineString, nil
}

// CreateLineStrings returns one strike line for each formation and altitude
// in c. Formations are in order of first appearance and altitudes ascending.
// The result has formation and id attributes and a Z column, ready for
// CalculateOrientations. Ids are numbered from 1 across all formations, so
// orientations should be calculated one formation at a time.
func CreateLineStrings(c *Collection) (*Collection, error) {
	formations, err := strikePointFormations(c)
	if err != nil {
		return nil, err
	}

	var uniqueFormations []string
	altitudesByFormation := make(map[string][]float64)
	for i, formation := range formations {
		if _, ok := altitudesByFormation[formation]; !ok {
			uniqueFormations = append(uniqueFormations, formation)
		}
		altitudesByFormation[formation] = append(altitudesByFormation[formation], c.Z[i])
	}

	var geometries []orb.Geometry
	var lineFormations, ids []any
	var zs []float64
	for _, formation := range uniqueFormations {
		altitudes := altitudesByFormation[formation]
		slices.Sort(altitudes)
		for _, altitude := range slices.Compact(altitudes) {
			lineString, err := CreateLineString(c, formation, altitude)
			if err != nil {
				return nil, err
			}
			geometries = append(geometries, lineString)
			lineFormations = append(lineFormations, formation)
			ids = append(ids, len(geometries))
			zs = append(zs, altitude)
		}
	}

	lines := NewCollection(c.CRS, geometries)
	lines.Z = zs
	if err := lines.SetAttribute(AttributeFormation, lineFormations); err != nil {
		return nil, err
	}
	if err := lines.SetAttribute(AttributeID, ids); err != nil {
		return nil, err
	}
	return lines, nil
}

// InterpolateStrikeLines returns the strike lines of c with additional lines
// every increment between lines with consecutive ids whose altitudes differ
// by more than increment. c must contain line strings with id and formation
// attributes and one Z value per line.
//
// Each vertex of an interpolated line lies on the segment from a vertex of
// the lower id line to the nearest vertex of the higher id line, at the
// fraction of the altitude difference that the line's altitude represents.
// Lines are returned in id order and renumbered from 1.
func InterpolateStrikeLines(c *Collection, increment float64) (*Collection, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	if !(increment > 0) || math.IsInf(increment, 0) {
		return nil, fmt.Errorf("%w: increment must be positive", ErrInvalidParameter)
	}
	if !c.HasZ() {
		return nil, fmt.Errorf("%w: Z column missing", ErrMissingData)
	}
	formations, err := stringAttribute(c, AttributeFormation)
	if err != nil {
		return nil, err
	}
	idValues, ok := c.Attribute(AttributeID)
	if !ok {
		return nil, fmt.Errorf("%w: id column missing", ErrMissingData)
	}
	lineStrings := make([]orb.LineString, c.Len())
	ids := make([]int, c.Len())
	for i, geometry := range c.Geometries {
		lineString, ok := geometry.(orb.LineString)
		if !ok {
			return nil, fmt.Errorf("%w: row %d: strike lines must be line strings, not %s", ErrTypeMismatch, i, geometryType(geometry))
		}
		if len(lineString) == 0 {
			return nil, fmt.Errorf("%w: row %d: empty line string", ErrInvalidParameter, i)
		}
		lineStrings[i] = lineString
		if ids[i], err = cast.ToIntE(idValues[i]); err != nil {
			return nil, fmt.Errorf("%w: id: row %d: %w", ErrTypeMismatch, i, err)
		}
	}
	if c.Len() < 2 {
		return nil, fmt.Errorf("%w: at least two strike lines are needed", ErrInvalidParameter)
	}

	order := make([]int, c.Len())
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(ids[a], ids[b])
	})

	var geometries []orb.Geometry
	var lineFormations []any
	var zs []float64
	add := func(lineString orb.LineString, formation string, z float64) {
		geometries = append(geometries, lineString)
		lineFormations = append(lineFormations, formation)
		zs = append(zs, z)
	}
	add(lineStrings[order[0]], formations[order[0]], c.Z[order[0]])
	for i := range len(order) - 1 {
		lower, upper := order[i], order[i+1]
		dz := c.Z[upper] - c.Z[lower]
		if n := int(math.Ceil(math.Abs(dz)/increment)) - 1; n > 0 {
			xs, ys := make([]float64, len(lineStrings[upper])), make([]float64, len(lineStrings[upper]))
			for j, point := range lineStrings[upper] {
				xs[j], ys[j] = point.X(), point.Y()
			}
			nearest := nearestIndex(xs, ys)
			for k := 1; k <= n; k++ {
				t := float64(k) * increment / math.Abs(dz)
				lineString := make(orb.LineString, len(lineStrings[lower]))
				for j, point := range lineStrings[lower] {
					target := lineStrings[upper][nearest(point.X(), point.Y())]
					lineString[j] = orb.Point{
						point.X() + t*(target.X()-point.X()),
						point.Y() + t*(target.Y()-point.Y()),
					}
				}
				add(lineString, formations[lower], c.Z[lower]+math.Copysign(float64(k)*increment, dz))
			}
		}
		add(lineStrings[upper], formations[upper], c.Z[upper])
	}

	lines := NewCollection(c.CRS, geometries)
	lines.Z = zs
	if err := lines.SetAttribute(AttributeFormation, lineFormations); err != nil {
		return nil, err
	}
	newIDs := make([]any, len(geometries))
	for i := range newIDs {
		newIDs[i] = i + 1
	}
	if err := lines.SetAttribute(AttributeID, newIDs); err != nil {
		return nil, err
	}
	return lines, nil
}

// strikePointFormations validates that c holds points with formations and Z
// values and returns the formations.
func strikePointFormations(c *Collection) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	for i, geometry := range c.Geometries {
		if _, ok := geometry.(orb.Point); !ok {
			return nil, fmt.Errorf("%w: row %d: strike points must be points, not %s", ErrTypeMismatch, i, geometryType(geometry))
		}
	}
	if !c.HasZ() {
		return nil, fmt.Errorf("%w: Z column missing", ErrMissingData)
	}
	return stringAttribute(c, AttributeFormation)
}
