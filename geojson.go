package gemgis

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ReadGeoJSON reads a GeoJSON FeatureCollection from r. Feature properties
// become attribute columns, sorted by name. Features without a property
// have a nil value in its column.
func ReadGeoJSON(r io.Reader, crs string) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	featureCollection, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	geometries := make([]orb.Geometry, len(featureCollection.Features))
	keySet := make(map[string]struct{})
	for i, feature := range featureCollection.Features {
		geometries[i] = feature.Geometry
		for key := range feature.Properties {
			keySet[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	c := NewCollection(crs, geometries)
	for _, key := range keys {
		values := make([]any, len(featureCollection.Features))
		for i, feature := range featureCollection.Features {
			values[i] = feature.Properties[key]
		}
		if err := c.SetAttribute(key, values); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WriteGeoJSON writes c to w as a GeoJSON FeatureCollection. X, Y, and Z
// columns are written as properties.
func WriteGeoJSON(w io.Writer, c *Collection) error {
	if c == nil {
		return fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	featureCollection := geojson.NewFeatureCollection()
	for i, geometry := range c.Geometries {
		feature := geojson.NewFeature(geometry)
		if c.Attributes != nil {
			for pair := c.Attributes.Oldest(); pair != nil; pair = pair.Next() {
				feature.Properties[pair.Key] = pair.Value[i]
			}
		}
		for _, column := range []struct {
			name   string
			values []float64
		}{
			{name: ColumnX, values: c.X},
			{name: ColumnY, values: c.Y},
			{name: ColumnZ, values: c.Z},
		} {
			if column.values != nil {
				feature.Properties[column.name] = column.values[i]
			}
		}
		featureCollection.Append(feature)
	}
	return json.NewEncoder(w).Encode(featureCollection)
}
