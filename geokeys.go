package gemgis

import (
	"errors"
	"fmt"
)

var errParse = errors.New("parse error")

type GeoKey uint16

const (
	GeoKeyGTModelType  GeoKey = 1024
	GeoKeyGTRasterType GeoKey = 1025
	GeoKeyGTCitation   GeoKey = 1026

	GeoKeyGeodeticCRS            GeoKey = 2048
	GeoKeyGeogCitation           GeoKey = 2049
	GeoKeyGeodeticDatum          GeoKey = 2050
	GeoKeyPrimeMeridian          GeoKey = 2051
	GeoKeyLinearUnits            GeoKey = 2052
	GeoKeyGeogLinearUnitSize     GeoKey = 2053
	GeoKeyAngularUnits           GeoKey = 2054
	GeoKeyGeogAngularUnitSize    GeoKey = 2055
	GeoKeyEllipsoid              GeoKey = 2056
	GeoKeyEllipsoidSemiMajorAxis GeoKey = 2057
	GeoKeyEllipsoidSemiMinorAxis GeoKey = 2058
	GeoKeyEllipsoidInvFlattening GeoKey = 2059
	GeoKeyAzimuthUnits           GeoKey = 2060
	GeoKeyPrimeMeridianLongitude GeoKey = 2061

	GeoKeyProjectedCRS                                 GeoKey = 3072
	GeoKeyPCSCitation                                  GeoKey = 3073
	GeoKeyProjection                                   GeoKey = 3074
	GeoKeyProjMethod                                   GeoKey = 3075
	GeoKeyLinearUnits2                                 GeoKey = 3076
	GeoKeyProjectedLinearUnitSize                      GeoKey = 3077
	GeoKeyStandardParallel1GeoKeyProjAngularParameters GeoKey = 3078
	GeoKeyStandardParallel2GeoKeyProjAngularParameters GeoKey = 3079
	GeoKeyNaturalOriginLongitudeProjAngularParameters  GeoKey = 3080
	GeoKeyNaturalOriginLatitudeProjAngularParameters   GeoKey = 3081
	GeoKeyFalseEastingProjLinearParameters             GeoKey = 3082
	GeoKeyFalseNorthingProjLinearParameters            GeoKey = 3083
	GeoKeyFalseOriginLongitudeProjAngularParameters    GeoKey = 3084
	GeoKeyFalseOriginLatitudeProjAngularParameters     GeoKey = 3085
	GeoKeyFalseOriginEastingProjLinearParameters       GeoKey = 3086
	GeoKeyFalseOriginNorthingProjLinearParameters      GeoKey = 3087
	GeoKeyCenterLongitudeProjAngularParameters         GeoKey = 3088
	GeoKeyCenterLatitudeProjAngularParameters          GeoKey = 3089
	GeoKeyProjectionCenterEastingProjLinearParameters  GeoKey = 3090
	GeoKeyProjectionCenterNorthingProjLinearParameters GeoKey = 3091
	GeoKeyScaleAtNaturalOriginProjScalarParameters     GeoKey = 3092
	GeoKeyScaleAtCenterProjScalarParameters            GeoKey = 3093
	GeoKeyProjAzimuthAngle                             GeoKey = 3094
	GeoKeyStraightVerticalPoleProjAngularParameters    GeoKey = 3095

	GeoKeyVertical         GeoKey = 4096
	GeoKeyVerticalCitation GeoKey = 4097
	GeoKeyVerticalDatum    GeoKey = 4098
	GeoKeyVerticalUnits    GeoKey = 4099
)

// userDefined is the GeoKey value for a user-defined CRS.
const userDefined = 32767

// ParsedGeoKeys are the GeoKeys of a GeoTIFF.
type ParsedGeoKeys struct {
	Params       map[GeoKey]int
	DoubleParams map[GeoKey]float64
	ASCIIParams  map[GeoKey]string
}

// ParseGeoKeys parses a GeoKeyDirectoryTag and its parameter tags.
func ParseGeoKeys(directory []uint16, doubleParams []float64, asciiParams []byte) (*ParsedGeoKeys, error) {
	if len(directory) < 4 {
		return nil, fmt.Errorf("%w: GeoKey directory has %d values", errParse, len(directory))
	}
	switch keyDirectoryVersion, keyRevision, minorRevision := directory[0], directory[1], directory[2]; {
	case keyDirectoryVersion != 1:
		return nil, fmt.Errorf("%w: GeoKey directory version %d", errParse, keyDirectoryVersion)
	case keyRevision != 1 || minorRevision > 1:
		return nil, fmt.Errorf("%w: GeoKey revision %d.%d", errParse, keyRevision, minorRevision)
	}
	numberOfKeys := int(directory[3])
	if len(directory) != 4+4*numberOfKeys {
		return nil, fmt.Errorf("%w: GeoKey directory has %d values, expected %d", errParse, len(directory), 4+4*numberOfKeys)
	}

	parsedGeoKeys := &ParsedGeoKeys{
		Params:       make(map[GeoKey]int),
		DoubleParams: make(map[GeoKey]float64),
		ASCIIParams:  make(map[GeoKey]string),
	}
	for i := range numberOfKeys {
		entry := directory[4+4*i : 4+4*(i+1)]
		key, location, count, valueOrIndex := GeoKey(entry[0]), entry[1], int(entry[2]), int(entry[3])
		switch location {
		case 0:
			if count != 1 {
				return nil, fmt.Errorf("%w: GeoKey %d has %d inline values", errParse, key, count)
			}
			parsedGeoKeys.Params[key] = valueOrIndex
		case 34736: // GeoDoubleParamsTag
			if count != 1 {
				return nil, fmt.Errorf("GeoKey %d: %w", key, errors.ErrUnsupported)
			}
			if valueOrIndex >= len(doubleParams) {
				return nil, fmt.Errorf("%w: GeoKey %d double index %d out of range", errParse, key, valueOrIndex)
			}
			parsedGeoKeys.DoubleParams[key] = doubleParams[valueOrIndex]
		case 34737: // GeoASCIIParamsTag
			if valueOrIndex+count > len(asciiParams) {
				return nil, fmt.Errorf("%w: GeoKey %d ASCII range %d+%d out of range", errParse, key, valueOrIndex, count)
			}
			parsedGeoKeys.ASCIIParams[key] = string(asciiParams[valueOrIndex : valueOrIndex+count])
		default:
			return nil, fmt.Errorf("GeoKey %d in tag %d: %w", key, location, errors.ErrUnsupported)
		}
	}
	return parsedGeoKeys, nil
}

// CRS returns the EPSG code of the projected CRS, or of the geodetic CRS if
// there is no projected CRS, as a string like "EPSG:3035". It returns false if
// the CRS is missing or user-defined.
func (k *ParsedGeoKeys) CRS() (string, bool) {
	for _, geoKey := range []GeoKey{GeoKeyProjectedCRS, GeoKeyGeodeticCRS} {
		switch code, ok := k.Params[geoKey]; {
		case !ok:
			continue
		case code == 0 || code == userDefined:
			return "", false
		default:
			return fmt.Sprintf("EPSG:%d", code), true
		}
	}
	return "", false
}
