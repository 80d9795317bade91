package gemgis

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/spf13/cast"
)

// GeometryColumn is the name of the geometry column in written tables.
const GeometryColumn = "geometry"

type csvOptions struct {
	xColumn   string
	yColumn   string
	zColumn   string
	delimiter rune
}

// A CSVOption sets an option on ReadCSV.
type CSVOption func(*csvOptions)

// WithXYColumns sets the names of the X and Y columns.
func WithXYColumns(xColumn, yColumn string) CSVOption {
	return func(o *csvOptions) {
		o.xColumn = xColumn
		o.yColumn = yColumn
	}
}

// WithZColumn sets the name of the optional Z column.
func WithZColumn(zColumn string) CSVOption {
	return func(o *csvOptions) {
		o.zColumn = zColumn
	}
}

// WithDelimiter sets the field delimiter.
func WithDelimiter(delimiter rune) CSVOption {
	return func(o *csvOptions) {
		o.delimiter = delimiter
	}
}

// ReadCSV reads points from r. The first record is a header that must
// contain the X and Y columns. If it contains the Z column then the
// collection has Z values. All other columns become attributes; values that
// parse as numbers are stored as float64, everything else as strings.
func ReadCSV(r io.Reader, crs string, options ...CSVOption) (*Collection, error) {
	o := &csvOptions{
		xColumn:   ColumnX,
		yColumn:   ColumnY,
		zColumn:   ColumnZ,
		delimiter: ',',
	}
	for _, option := range options {
		option(o)
	}

	csvReader := csv.NewReader(r)
	csvReader.Comma = o.delimiter
	csvReader.TrimLeadingSpace = true
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty CSV", ErrMissingData)
	}
	header, records := records[0], records[1:]

	xIndex := slices.Index(header, o.xColumn)
	yIndex := slices.Index(header, o.yColumn)
	if xIndex < 0 || yIndex < 0 {
		return nil, fmt.Errorf("%w: CSV needs %s and %s columns", ErrMissingData, o.xColumn, o.yColumn)
	}
	zIndex := slices.Index(header, o.zColumn)

	parseFloat := func(line, index int, record []string) (float64, error) {
		value, err := strconv.ParseFloat(record[index], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: line %d: %s: %w", ErrInvalidParameter, line, header[index], err)
		}
		return value, nil
	}

	geometries := make([]orb.Geometry, len(records))
	xs := make([]float64, len(records))
	ys := make([]float64, len(records))
	var zs []float64
	if zIndex >= 0 {
		zs = make([]float64, len(records))
	}
	for i, record := range records {
		line := i + 2
		if xs[i], err = parseFloat(line, xIndex, record); err != nil {
			return nil, err
		}
		if ys[i], err = parseFloat(line, yIndex, record); err != nil {
			return nil, err
		}
		if zIndex >= 0 {
			if record[zIndex] == "" {
				zs[i] = math.NaN()
			} else if zs[i], err = parseFloat(line, zIndex, record); err != nil {
				return nil, err
			}
		}
		geometries[i] = orb.Point{xs[i], ys[i]}
	}

	c := NewCollection(crs, geometries)
	c.X, c.Y, c.Z = xs, ys, zs
	for index, name := range header {
		if index == xIndex || index == yIndex || index == zIndex {
			continue
		}
		values := make([]any, len(records))
		for i, record := range records {
			if value, err := strconv.ParseFloat(record[index], 64); err == nil {
				values[i] = value
			} else {
				values[i] = record[index]
			}
		}
		if err := c.SetAttribute(name, values); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WriteCSV writes c to w with a WKT geometry column, the attribute columns,
// and whichever of the X, Y, and Z columns c has.
func WriteCSV(w io.Writer, c *Collection) error {
	if c == nil {
		return fmt.Errorf("%w: nil collection", ErrTypeMismatch)
	}
	names := c.AttributeNames()
	header := append([]string{GeometryColumn}, names...)
	var coordinates [][]float64
	for _, column := range []struct {
		name   string
		values []float64
	}{
		{name: ColumnX, values: c.X},
		{name: ColumnY, values: c.Y},
		{name: ColumnZ, values: c.Z},
	} {
		if column.values != nil {
			header = append(header, column.name)
			coordinates = append(coordinates, column.values)
		}
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(header); err != nil {
		return err
	}
	columns := make([][]any, len(names))
	for i, name := range names {
		columns[i], _ = c.Attribute(name)
	}
	record := make([]string, len(header))
	for row, geometry := range c.Geometries {
		record = record[:0]
		if geometry == nil {
			record = append(record, "")
		} else {
			record = append(record, wkt.MarshalString(geometry))
		}
		for _, column := range columns {
			value, err := cast.ToStringE(column[row])
			if err != nil {
				return fmt.Errorf("%w: row %d: %w", ErrTypeMismatch, row, err)
			}
			record = append(record, value)
		}
		for _, values := range coordinates {
			record = append(record, strconv.FormatFloat(values[row], 'g', -1, 64))
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteGridCSV writes g to w with one X, Y, Z row per grid node, row by row.
// NaN nodes are written as empty Z values.
func WriteGridCSV(w io.Writer, g *InterpolatedGrid) error {
	if g == nil {
		return fmt.Errorf("%w: nil grid", ErrTypeMismatch)
	}
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{ColumnX, ColumnY, ColumnZ}); err != nil {
		return err
	}
	for i, y := range g.Y {
		for j, x := range g.X {
			z := ""
			if value := g.Values[i][j]; !math.IsNaN(value) {
				z = strconv.FormatFloat(value, 'g', -1, 64)
			}
			if err := csvWriter.Write([]string{
				strconv.FormatFloat(x, 'g', -1, 64),
				strconv.FormatFloat(y, 'g', -1, 64),
				z,
			}); err != nil {
				return err
			}
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
