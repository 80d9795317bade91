package gemgis

import (
	"fmt"

	"github.com/spf13/cast"
)

// DefaultSectionResolution is the default resolution of a custom section.
var DefaultSectionResolution = [2]int{100, 80}

// AttributeSectionName is the default attribute holding section names.
const AttributeSectionName = "section_name"

// A Section is a custom vertical section of a geological model, running from
// Start to End and sampled at Resolution.
type Section struct {
	Start      [2]float64
	End        [2]float64
	Resolution [2]int
}

// SetResolution returns the model resolution x, y, z. All values must be
// positive.
func SetResolution(x, y, z int) ([3]int, error) {
	resolution := [3]int{x, y, z}
	for i, value := range resolution {
		if value <= 0 {
			return [3]int{}, fmt.Errorf("%w: resolution %d is %d, must be positive", ErrInvalidParameter, i, value)
		}
	}
	return resolution, nil
}

// ToSectionDict returns the custom sections defined by c, keyed by the values
// of the sectionColumn attribute. Each section runs from the first to the
// second point with its name; X and Y are extracted if needed, so sections
// may be given as points or as lines. A nil resolution means
// DefaultSectionResolution.
func ToSectionDict(c *Collection, sectionColumn string, resolution []int) (map[string]Section, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	sectionResolution := DefaultSectionResolution
	if resolution != nil {
		if len(resolution) != 2 {
			return nil, fmt.Errorf("%w: resolution has %d values, expected 2", ErrInvalidParameter, len(resolution))
		}
		sectionResolution = [2]int{resolution[0], resolution[1]}
		if sectionResolution[0] <= 0 || sectionResolution[1] <= 0 {
			return nil, fmt.Errorf("%w: section resolution must be positive", ErrInvalidParameter)
		}
	}
	if sectionColumn == "" {
		sectionColumn = AttributeSectionName
	}
	if _, ok := c.Attribute(sectionColumn); !ok {
		return nil, fmt.Errorf("%w: %s column missing", ErrMissingData, sectionColumn)
	}
	if !c.HasXY() {
		var err error
		if c, err = ExtractXY(c); err != nil {
			return nil, err
		}
	}

	values, _ := c.Attribute(sectionColumn)
	rowsByName := make(map[string][]int)
	for i, value := range values {
		name, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: row %d: %w", ErrTypeMismatch, sectionColumn, i, err)
		}
		rowsByName[name] = append(rowsByName[name], i)
	}

	sections := make(map[string]Section, len(rowsByName))
	for name, rows := range rowsByName {
		if len(rows) < 2 {
			return nil, fmt.Errorf("%w: section %s has %d points, need at least two", ErrInvalidParameter, name, len(rows))
		}
		sections[name] = Section{
			Start:      [2]float64{c.X[rows[0]], c.Y[rows[0]]},
			End:        [2]float64{c.X[rows[1]], c.Y[rows[1]]},
			Resolution: sectionResolution,
		}
	}
	return sections, nil
}
