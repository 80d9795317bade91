package gemgis

import (
	"fmt"
	"io/fs"
	"slices"

	"github.com/paulmach/orb"
)

// EUDEMCRS is the CRS of the EU-DEM v1.1 tiles.
const EUDEMCRS = "EPSG:3035"

// NewEUDEM returns a GeoTIFFTileSet for the 1000km EU-DEM v1.1 tiles in fsys.
func NewEUDEM(fsys fs.FS, options ...GeoTIFFTileSetOption) (*GeoTIFFTileSet, error) {
	return NewGeoTIFFTileSet(slices.Concat(
		[]GeoTIFFTileSetOption{
			WithFS(fsys),
			WithSRID(3035),
			WithBounds(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{8000000, 6000000}}),
			WithTileCoordFunc(func(x, y float64) (TileCoord, bool) {
				if x < 0 || y < 0 {
					return TileCoord{}, false
				}
				return TileCoord{
					C: 10 * (int(x) / 1000000),
					R: 10 * (int(y) / 1000000),
				}, true
			}),
			WithTileFilenameFunc(func(tileCoord TileCoord) string {
				return fmt.Sprintf("eu_dem_v11_E%02dN%02d.TIF", tileCoord.C, tileCoord.R)
			}),
		},
		options,
	)...)
}
