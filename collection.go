package gemgis

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Coordinate column names.
const (
	ColumnX = "X"
	ColumnY = "Y"
	ColumnZ = "Z"
)

// A Collection is a table of geometries with attribute columns and optional
// X, Y, and Z coordinate columns. Every column has Len() rows.
//
// A Collection is not safe for concurrent use. Functions with an Into suffix
// mutate their argument; all other functions work on a copy.
type Collection struct {
	CRS        string
	Geometries []orb.Geometry
	Attributes *orderedmap.OrderedMap[string, []any]
	X          []float64
	Y          []float64
	Z          []float64
}

// NewCollection returns a new Collection with geometries in crs.
func NewCollection(crs string, geometries []orb.Geometry) *Collection {
	return &Collection{
		CRS:        crs,
		Geometries: geometries,
		Attributes: orderedmap.New[string, []any](),
	}
}

// Len returns the number of rows in c.
func (c *Collection) Len() int {
	return len(c.Geometries)
}

// HasXY returns whether c has X and Y columns.
func (c *Collection) HasXY() bool {
	return c.X != nil && c.Y != nil
}

// HasZ returns whether c has a Z column.
func (c *Collection) HasZ() bool {
	return c.Z != nil
}

// SetAttribute sets the attribute column name to values.
func (c *Collection) SetAttribute(name string, values []any) error {
	if len(values) != c.Len() {
		return fmt.Errorf("%w: attribute %s has %d values, expected %d", ErrInvalidParameter, name, len(values), c.Len())
	}
	if c.Attributes == nil {
		c.Attributes = orderedmap.New[string, []any]()
	}
	c.Attributes.Set(name, values)
	return nil
}

// Attribute returns the attribute column name.
func (c *Collection) Attribute(name string) ([]any, bool) {
	if c.Attributes == nil {
		return nil, false
	}
	return c.Attributes.Get(name)
}

// AttributeNames returns the attribute column names in insertion order.
func (c *Collection) AttributeNames() []string {
	if c.Attributes == nil {
		return nil
	}
	names := make([]string, 0, c.Attributes.Len())
	for pair := c.Attributes.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Bound returns the bounds of all non-nil geometries in c, or the zero
// orb.Bound if there are none.
func (c *Collection) Bound() orb.Bound {
	bound, _ := c.bound()
	return bound
}

// bound returns the bounds of all non-nil geometries in c and whether there
// were any.
func (c *Collection) bound() (orb.Bound, bool) {
	var bound orb.Bound
	ok := false
	for _, geometry := range c.Geometries {
		switch {
		case geometry == nil:
		case !ok:
			bound, ok = geometry.Bound(), true
		default:
			bound = bound.Union(geometry.Bound())
		}
	}
	return bound, ok
}

// Clone returns a deep copy of c. Attribute values themselves are shared.
func (c *Collection) Clone() *Collection {
	clone := &Collection{
		CRS:        c.CRS,
		Geometries: make([]orb.Geometry, len(c.Geometries)),
		Attributes: orderedmap.New[string, []any](),
		X:          slices.Clone(c.X),
		Y:          slices.Clone(c.Y),
		Z:          slices.Clone(c.Z),
	}
	for i, geometry := range c.Geometries {
		clone.Geometries[i] = orb.Clone(geometry)
	}
	if c.Attributes != nil {
		for pair := c.Attributes.Oldest(); pair != nil; pair = pair.Next() {
			clone.Attributes.Set(pair.Key, slices.Clone(pair.Value))
		}
	}
	return clone
}

// selectRows returns a new Collection containing the rows of c at indexes,
// in order. Indexes may repeat.
func (c *Collection) selectRows(indexes []int) *Collection {
	selected := &Collection{
		CRS:        c.CRS,
		Geometries: make([]orb.Geometry, len(indexes)),
		Attributes: orderedmap.New[string, []any](),
		X:          selectFloat64s(c.X, indexes),
		Y:          selectFloat64s(c.Y, indexes),
		Z:          selectFloat64s(c.Z, indexes),
	}
	for i, index := range indexes {
		selected.Geometries[i] = c.Geometries[index]
	}
	if c.Attributes != nil {
		for pair := c.Attributes.Oldest(); pair != nil; pair = pair.Next() {
			values := make([]any, len(indexes))
			for i, index := range indexes {
				values[i] = pair.Value[index]
			}
			selected.Attributes.Set(pair.Key, values)
		}
	}
	return selected
}

// replace replaces the contents of c with other.
func (c *Collection) replace(other *Collection) {
	*c = *other
}

func selectFloat64s(values []float64, indexes []int) []float64 {
	if values == nil {
		return nil
	}
	selected := make([]float64, len(indexes))
	for i, index := range indexes {
		selected[i] = values[index]
	}
	return selected
}
