package gemgis

import "fmt"

// ClipByBBox returns a copy of c containing only the rows whose X and Y lie
// within bbox, inclusive. bbox has four or six values; z bounds are ignored.
// X and Y are extracted if needed.
func ClipByBBox(c *Collection, bbox Extent) (*Collection, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	clone := c.Clone()
	if err := ClipByBBoxInto(clone, bbox); err != nil {
		return nil, err
	}
	return clone, nil
}

// ClipByBBoxInto removes the rows of c that lie outside bbox.
func ClipByBBoxInto(c *Collection, bbox Extent) error {
	if c == nil {
		return fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	if err := bbox.Validate(); err != nil {
		return err
	}
	extracted := c
	if !c.HasXY() {
		var err error
		if extracted, err = ExtractXY(c); err != nil {
			return err
		}
	}

	indexes := make([]int, 0, extracted.Len())
	for i := range extracted.Len() {
		if bbox.MinX() <= extracted.X[i] && extracted.X[i] <= bbox.MaxX() &&
			bbox.MinY() <= extracted.Y[i] && extracted.Y[i] <= bbox.MaxY() {
			indexes = append(indexes, i)
		}
	}
	c.replace(extracted.selectRows(indexes))
	return nil
}

// ClipByShape returns a copy of c clipped to the bounds of shape.
func ClipByShape(c, shape *Collection) (*Collection, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	if shape == nil {
		return nil, fmt.Errorf("%w: nil shape", ErrTypeMismatch)
	}
	bbox, err := shapeExtent(shape)
	if err != nil {
		return nil, err
	}
	return ClipByBBox(c, bbox)
}

// ClipByShapeInto clips c to the bounds of shape.
func ClipByShapeInto(c, shape *Collection) error {
	if c == nil {
		return fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	if shape == nil {
		return fmt.Errorf("%w: nil shape", ErrTypeMismatch)
	}
	bbox, err := shapeExtent(shape)
	if err != nil {
		return err
	}
	return ClipByBBoxInto(c, bbox)
}

// shapeExtent returns the extent of shape's geometries.
func shapeExtent(shape *Collection) (Extent, error) {
	bound, ok := shape.bound()
	if !ok {
		return nil, fmt.Errorf("%w: shape has no geometries", ErrMissingData)
	}
	return ExtentFromBound(bound), nil
}
