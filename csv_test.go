package gemgis

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/paulmach/orb"
)

func TestReadCSV(t *testing.T) {
	for _, tc := range []struct {
		name          string
		data          string
		options       []CSVOption
		expectedX     []float64
		expectedY     []float64
		expectedZ     []float64
		expectedNames []string
		expectedErr   error
	}{
		{
			name:          "xy",
			data:          "X,Y,formation\n1,2,Ton\n3,4,Sand1\n",
			expectedX:     []float64{1, 3},
			expectedY:     []float64{2, 4},
			expectedNames: []string{"formation"},
		},
		{
			name:          "xyz",
			data:          "formation,X,Y,Z,dip\nTon,1,2,3,30\nSand1,4,5,,45\n",
			expectedX:     []float64{1, 4},
			expectedY:     []float64{2, 5},
			expectedZ:     []float64{3, math.NaN()},
			expectedNames: []string{"formation", "dip"},
		},
		{
			name:          "custom_columns",
			data:          "easting;northing;elevation\n1;2;3\n",
			options:       []CSVOption{WithXYColumns("easting", "northing"), WithZColumn("elevation"), WithDelimiter(';')},
			expectedX:     []float64{1},
			expectedY:     []float64{2},
			expectedZ:     []float64{3},
			expectedNames: []string{},
		},
		{
			name:        "missing_y",
			data:        "X,formation\n1,Ton\n",
			expectedErr: ErrMissingData,
		},
		{
			name:        "bad_x",
			data:        "X,Y\none,2\n",
			expectedErr: ErrInvalidParameter,
		},
		{
			name:        "empty",
			data:        "",
			expectedErr: ErrMissingData,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := ReadCSV(strings.NewReader(tc.data), "EPSG:3035", tc.options...)
			if tc.expectedErr != nil {
				assert.IsError(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedX, actual.X)
			assert.Equal(t, tc.expectedY, actual.Y)
			if tc.expectedZ == nil {
				assert.False(t, actual.HasZ())
			} else {
				assertInDelta(t, tc.expectedZ, actual.Z, 0)
			}
			assert.Equal(t, tc.expectedNames, append([]string{}, actual.AttributeNames()...))
			for i := range actual.Len() {
				assert.Equal(t, orb.Geometry(orb.Point{tc.expectedX[i], tc.expectedY[i]}), actual.Geometries[i])
			}
		})
	}
}

func TestReadCSVAttributeTypes(t *testing.T) {
	c, err := ReadCSV(strings.NewReader("X,Y,id,formation\n1,2,7,Ton\n"), "")
	assert.NoError(t, err)
	ids, _ := c.Attribute("id")
	assert.Equal(t, []any{7.0}, ids)
	formations, _ := c.Attribute("formation")
	assert.Equal(t, []any{"Ton"}, formations)
}

func TestWriteCSV(t *testing.T) {
	c := NewCollection("", []orb.Geometry{
		orb.Point{1, 2},
		orb.Point{3.5, 4},
	})
	assert.NoError(t, c.SetAttribute("formation", []any{"Ton", nil}))
	assert.NoError(t, c.SetAttribute("id", []any{1, 2}))
	c.X, c.Y, c.Z = []float64{1, 3.5}, []float64{2, 4}, []float64{10, 20.25}

	var buffer bytes.Buffer
	assert.NoError(t, WriteCSV(&buffer, c))
	assert.Equal(t, ""+
		"geometry,formation,id,X,Y,Z\n"+
		"POINT(1 2),Ton,1,1,2,10\n"+
		"POINT(3.5 4),,2,3.5,4,20.25\n",
		buffer.String())
}

func TestWriteGridCSV(t *testing.T) {
	var buffer bytes.Buffer
	assert.NoError(t, WriteGridCSV(&buffer, &InterpolatedGrid{
		X:      []float64{0, 1},
		Y:      []float64{5},
		Values: [][]float64{{1.5, math.NaN()}},
	}))
	assert.Equal(t, "X,Y,Z\n0,5,1.5\n1,5,\n", buffer.String())
}
