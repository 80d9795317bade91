package gemgis

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/spf13/cast"
)

// CRSMetadataKey is the schema metadata key holding the collection's CRS.
const CRSMetadataKey = "crs"

// RecordBatch returns c as an Arrow record batch with a WKB geometry column,
// one column per attribute, and whichever of the X, Y, and Z columns c has.
// Attribute column types are inferred: booleans, integers, and floats keep
// their type and everything else is converted to a string. nil values are
// nulls.
//
// The caller must release the returned record batch.
func (c *Collection) RecordBatch(mem memory.Allocator) (arrow.RecordBatch, error) {
	fields := []arrow.Field{
		{Name: GeometryColumn, Type: arrow.BinaryTypes.Binary, Nullable: true},
	}
	var columns []arrow.Array
	defer func() {
		for _, column := range columns {
			column.Release()
		}
	}()

	geometryBuilder := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
	defer geometryBuilder.Release()
	for row, geometry := range c.Geometries {
		if geometry == nil {
			geometryBuilder.AppendNull()
			continue
		}
		data, err := wkb.Marshal(geometry)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		geometryBuilder.Append(data)
	}
	columns = append(columns, geometryBuilder.NewArray())

	for _, name := range c.AttributeNames() {
		values, _ := c.Attribute(name)
		column, err := attributeArray(mem, values)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		fields = append(fields, arrow.Field{Name: name, Type: column.DataType(), Nullable: true})
		columns = append(columns, column)
	}

	for _, coordinate := range []struct {
		name   string
		values []float64
	}{
		{name: ColumnX, values: c.X},
		{name: ColumnY, values: c.Y},
		{name: ColumnZ, values: c.Z},
	} {
		if coordinate.values == nil {
			continue
		}
		builder := array.NewFloat64Builder(mem)
		builder.AppendValues(coordinate.values, nil)
		fields = append(fields, arrow.Field{Name: coordinate.name, Type: arrow.PrimitiveTypes.Float64})
		columns = append(columns, builder.NewArray())
		builder.Release()
	}

	metadata := arrow.NewMetadata([]string{CRSMetadataKey}, []string{c.CRS})
	schema := arrow.NewSchema(fields, &metadata)
	return array.NewRecordBatch(schema, columns, int64(c.Len())), nil
}

// attributeArray returns values as an Arrow array of the narrowest type that
// holds all of them.
func attributeArray(mem memory.Allocator, values []any) (arrow.Array, error) {
	allBool, allInt, allNumber := true, true, true
	for _, value := range values {
		switch value.(type) {
		case nil:
		case bool:
			allInt, allNumber = false, false
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			allBool = false
		case float32, float64:
			allBool, allInt = false, false
		default:
			allBool, allInt, allNumber = false, false, false
		}
	}

	switch {
	case allBool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		for _, value := range values {
			if value == nil {
				builder.AppendNull()
			} else {
				builder.Append(value.(bool))
			}
		}
		return builder.NewArray(), nil
	case allInt:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		for _, value := range values {
			if value == nil {
				builder.AppendNull()
				continue
			}
			i, err := cast.ToInt64E(value)
			if err != nil {
				return nil, err
			}
			builder.Append(i)
		}
		return builder.NewArray(), nil
	case allNumber:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		for _, value := range values {
			if value == nil {
				builder.AppendNull()
				continue
			}
			f, err := cast.ToFloat64E(value)
			if err != nil {
				return nil, err
			}
			builder.Append(f)
		}
		return builder.NewArray(), nil
	default:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		for _, value := range values {
			if value == nil {
				builder.AppendNull()
				continue
			}
			s, err := cast.ToStringE(value)
			if err != nil {
				return nil, err
			}
			builder.Append(s)
		}
		return builder.NewArray(), nil
	}
}

// WriteParquet writes c to w as a Snappy-compressed Parquet file.
func WriteParquet(w io.Writer, c *Collection) error {
	if c == nil {
		return fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	recordBatch, err := c.RecordBatch(memory.NewGoAllocator())
	if err != nil {
		return err
	}
	defer recordBatch.Release()

	writer, err := pqarrow.NewFileWriter(
		recordBatch.Schema(),
		w,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy)),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()),
	)
	if err != nil {
		return fmt.Errorf("parquet writer: %w", err)
	}
	if err := writer.Write(recordBatch); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write record batch: %w", err)
	}
	return writer.Close()
}
