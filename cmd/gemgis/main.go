package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/twpayne/go-gemgis"
	"github.com/twpayne/go-gemgis/internal/config"
)

const (
	CONFIG   = `config`
	LOGLEVEL = `log-level`
	INPUT    = `input`
	OUTPUT   = `output`
	CRS      = `crs`
	DEM      = `dem`
	DEMCRS   = `dem-crs`
	METHOD   = `method`
	RES      = `res`
	N        = `n`
	SEED     = `seed`
	FUNCTION = `function`
	EPSILON  = `epsilon`
	BBOX     = `bbox`
	SHAPE    = `shape`
)

// envVars returns the environment variable names for the flag name.
func envVars(name string) []string {
	return []string{config.EnvPrefix + "_" + strcase.ToScreamingSnake(name)}
}

// A session holds the state shared by all commands.
type session struct {
	cfg         *config.Config
	logger      *slog.Logger
	transformer *gemgis.ProjTransformer
}

func newSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load(c.String(CONFIG))
	if err != nil {
		return nil, err
	}
	if c.IsSet(LOGLEVEL) {
		cfg.Log.Level = c.String(LOGLEVEL)
	}
	transformer, err := gemgis.NewProjTransformer()
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:         cfg,
		logger:      cfg.NewLogger(os.Stderr),
		transformer: transformer,
	}, nil
}

func (a *session) options() []gemgis.Option {
	return []gemgis.Option{
		gemgis.WithLogger(a.logger),
		gemgis.WithTransformer(a.transformer),
	}
}

// openDEM opens the DEM at path. A directory is opened as EU-DEM tiles, a
// file as a single GeoTIFF. An empty path means no DEM.
func (a *session) openDEM(path, crs string) (gemgis.DEM, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if fileInfo.IsDir() {
		options := []gemgis.GeoTIFFTileSetOption{
			gemgis.WithGeoTIFFTileOptions(gemgis.WithTileCacheSize(a.cfg.DEM.TileCacheSize)),
		}
		if crs != "" {
			options = append(options, gemgis.WithTileSetCRS(crs))
		}
		euDEM, err := gemgis.NewEUDEM(os.DirFS(path), options...)
		if err != nil {
			return nil, nil, err
		}
		return gemgis.Handle{RasterReader: euDEM}, func() { _ = euDEM.Close() }, nil
	}
	options := []gemgis.GeoTIFFTileOption{gemgis.WithTileCacheSize(a.cfg.DEM.TileCacheSize)}
	if crs != "" {
		options = append(options, gemgis.WithCRS(crs))
	}
	tile, err := gemgis.NewGeoTIFFTile(os.DirFS(filepath.Dir(path)), filepath.Base(path), options...)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return gemgis.Handle{RasterReader: tile}, func() { _ = tile.Close() }, nil
}

func (a *session) demFromFlags(c *cli.Context) (gemgis.DEM, func(), error) {
	path, crs := a.cfg.DEM.Path, a.cfg.DEM.CRS
	if c.IsSet(DEM) {
		path = c.String(DEM)
	}
	if c.IsSet(DEMCRS) {
		crs = c.String(DEMCRS)
	}
	return a.openDEM(path, crs)
}

func (a *session) close() {
	a.transformer.Close()
}

// logMetrics logs the values of all gemgis counters at debug level.
func (a *session) logMetrics() {
	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		a.logger.Warn("gathering metrics", slog.Any("err", err))
		return
	}
	for _, metricFamily := range metricFamilies {
		if !strings.HasPrefix(metricFamily.GetName(), "gemgis_") {
			continue
		}
		for _, metric := range metricFamily.GetMetric() {
			if counter := metric.GetCounter(); counter != nil && counter.GetValue() != 0 {
				attrs := []any{slog.Float64("value", counter.GetValue())}
				for _, label := range metric.GetLabel() {
					attrs = append(attrs, slog.String(label.GetName(), label.GetValue()))
				}
				a.logger.Debug(metricFamily.GetName(), attrs...)
			}
		}
	}
}

func readCollection(path, crs string) (*gemgis.Collection, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson", ".json":
		return gemgis.ReadGeoJSON(file, crs)
	case ".csv":
		return gemgis.ReadCSV(file, crs)
	default:
		return nil, fmt.Errorf("%s: unsupported input format %q", path, ext)
	}
}

func writeFile(path string, write func(*os.File) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()
	return write(file)
}

func writeCollection(path string, c *gemgis.Collection) error {
	return writeFile(path, func(file *os.File) error {
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".csv":
			return gemgis.WriteCSV(file, c)
		case ".parquet":
			return gemgis.WriteParquet(file, c)
		case ".geojson", ".json":
			return gemgis.WriteGeoJSON(file, c)
		default:
			return fmt.Errorf("%s: unsupported output format %q", path, ext)
		}
	})
}

func extractAction(c *cli.Context) error {
	a, err := newSession(c)
	if err != nil {
		return err
	}
	defer a.close()
	collection, err := readCollection(c.String(INPUT), c.String(CRS))
	if err != nil {
		return err
	}
	dem, closeDEM, err := a.demFromFlags(c)
	if err != nil {
		return err
	}
	defer closeDEM()

	if dem == nil {
		err = gemgis.ExtractXYInto(collection)
	} else {
		err = gemgis.ExtractCoordinatesInto(c.Context, collection, dem, a.options()...)
	}
	if err != nil {
		return err
	}
	a.logger.Info("extracted", slog.Int("rows", collection.Len()), slog.Bool("z", collection.HasZ()))
	defer a.logMetrics()
	return writeCollection(c.String(OUTPUT), collection)
}

func interpolateAction(c *cli.Context) error {
	a, err := newSession(c)
	if err != nil {
		return err
	}
	defer a.close()
	collection, err := readCollection(c.String(INPUT), c.String(CRS))
	if err != nil {
		return err
	}
	dem, closeDEM, err := a.demFromFlags(c)
	if err != nil {
		return err
	}
	defer closeDEM()
	if !collection.HasZ() {
		if err := gemgis.ExtractCoordinatesInto(c.Context, collection, dem, a.options()...); err != nil {
			return err
		}
	}

	interpolationOptions := a.cfg.Interpolation
	if c.IsSet(METHOD) {
		interpolationOptions.Method = c.String(METHOD)
	}
	if c.IsSet(RES) {
		interpolationOptions.Res = c.Int(RES)
	}
	if c.IsSet(N) {
		interpolationOptions.N = c.Int(N)
	}
	if c.IsSet(SEED) {
		seed := c.Uint64(SEED)
		interpolationOptions.Seed = &seed
	}
	if c.IsSet(FUNCTION) {
		interpolationOptions.Function = c.String(FUNCTION)
	}
	if c.IsSet(EPSILON) {
		interpolationOptions.Epsilon = c.Float64(EPSILON)
	}
	method, options, err := interpolationOptions.Build()
	if err != nil {
		return err
	}

	grid, err := gemgis.InterpolateRaster(c.Context, collection, method, append(a.options(), options...)...)
	if err != nil {
		return err
	}
	rows, cols := grid.Shape()
	a.logger.Info("interpolated", slog.String("method", method.String()), slog.Int("rows", rows), slog.Int("cols", cols))
	defer a.logMetrics()

	output := c.String(OUTPUT)
	if strings.EqualFold(filepath.Ext(output), ".csv") {
		return writeFile(output, func(file *os.File) error {
			return gemgis.WriteGridCSV(file, grid)
		})
	}
	return writeCollection(output, grid.Collection(collection.CRS))
}

func clipAction(c *cli.Context) error {
	a, err := newSession(c)
	if err != nil {
		return err
	}
	defer a.close()
	collection, err := readCollection(c.String(INPUT), c.String(CRS))
	if err != nil {
		return err
	}

	switch {
	case c.IsSet(BBOX) && c.IsSet(SHAPE):
		return fmt.Errorf("%w: only one of --%s and --%s may be given", gemgis.ErrInvalidParameter, BBOX, SHAPE)
	case c.IsSet(BBOX):
		err = gemgis.ClipByBBoxInto(collection, gemgis.Extent(c.Float64Slice(BBOX)))
	case c.IsSet(SHAPE):
		var shape *gemgis.Collection
		if shape, err = readCollection(c.String(SHAPE), c.String(CRS)); err != nil {
			return err
		}
		err = gemgis.ClipByShapeInto(collection, shape)
	default:
		return fmt.Errorf("%w: one of --%s and --%s is required", gemgis.ErrInvalidParameter, BBOX, SHAPE)
	}
	if err != nil {
		return err
	}
	a.logger.Info("clipped", slog.Int("rows", collection.Len()))
	return writeCollection(c.String(OUTPUT), collection)
}

func elevationAction(c *cli.Context) error {
	a, err := newSession(c)
	if err != nil {
		return err
	}
	defer a.close()
	if c.NArg() != 2 {
		return errors.New("syntax: gemgis elevation latitude longitude")
	}
	lat, err := strconv.ParseFloat(c.Args().Get(0), 64)
	if err != nil {
		return err
	}
	lon, err := strconv.ParseFloat(c.Args().Get(1), 64)
	if err != nil {
		return err
	}
	dem, closeDEM, err := a.demFromFlags(c)
	if err != nil {
		return err
	}
	defer closeDEM()

	collection := gemgis.NewCollection("EPSG:4326", []orb.Geometry{orb.Point{lon, lat}})
	if err := gemgis.ExtractCoordinatesInto(c.Context, collection, dem, a.options()...); err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, collection.Z[0])
	return err
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	inputFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     INPUT,
			Aliases:  []string{"i"},
			Usage:    "Input `FILE` (.geojson, .json, or .csv)",
			Required: true,
			EnvVars:  envVars(INPUT),
		},
		&cli.StringFlag{
			Name:     OUTPUT,
			Aliases:  []string{"o"},
			Usage:    "Output `FILE` (.csv, .parquet, .geojson, or .json)",
			Required: true,
			EnvVars:  envVars(OUTPUT),
		},
		&cli.StringFlag{
			Name:    CRS,
			Usage:   "CRS of the input, e.g. EPSG:4326",
			EnvVars: envVars(CRS),
		},
	}
	demFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    DEM,
			Usage:   "DEM GeoTIFF `PATH`, or a directory of EU-DEM tiles",
			EnvVars: envVars(DEM),
		},
		&cli.StringFlag{
			Name:    DEMCRS,
			Usage:   "CRS of the DEM, overriding its GeoKeys",
			EnvVars: envVars(DEMCRS),
		},
	}

	app := cli.NewApp()
	app.Name = "gemgis"
	app.Usage = "Prepare spatial data for geological modeling"
	app.Version = versioninfo.Short()
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    CONFIG,
			Aliases: []string{"c"},
			Usage:   "Config `FILE`",
			EnvVars: envVars(CONFIG),
		},
		&cli.StringFlag{
			Name:    LOGLEVEL,
			Usage:   "Log level (debug, info, warn, error)",
			EnvVars: envVars(LOGLEVEL),
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:   "extract",
			Usage:  "Extract X and Y, and Z from a DEM if given",
			Flags:  append(append([]cli.Flag{}, inputFlags...), demFlags...),
			Action: extractAction,
		},
		{
			Name:  "interpolate",
			Usage: "Interpolate Z values onto a regular grid",
			Flags: append(append(append([]cli.Flag{}, inputFlags...), demFlags...),
				&cli.StringFlag{
					Name:    METHOD,
					Usage:   "Interpolation method (nearest, linear, cubic, rbf)",
					EnvVars: envVars(METHOD),
				},
				&cli.IntFlag{
					Name:    RES,
					Usage:   "Number of grid nodes along each axis",
					EnvVars: envVars(RES),
				},
				&cli.IntFlag{
					Name:    N,
					Usage:   "Number of randomly sampled points, 0 for all",
					EnvVars: envVars(N),
				},
				&cli.Uint64Flag{
					Name:    SEED,
					Usage:   "Random seed for sampling",
					EnvVars: envVars(SEED),
				},
				&cli.StringFlag{
					Name:    FUNCTION,
					Usage:   "RBF kernel (multiquadric, inverse, gaussian, linear, cubic, quintic, thin_plate)",
					EnvVars: envVars(FUNCTION),
				},
				&cli.Float64Flag{
					Name:    EPSILON,
					Usage:   "RBF shape parameter",
					EnvVars: envVars(EPSILON),
				},
			),
			Action: interpolateAction,
		},
		{
			Name:  "clip",
			Usage: "Keep rows inside a bounding box or the bounds of a shape",
			Flags: append(append([]cli.Flag{}, inputFlags...),
				&cli.Float64SliceFlag{
					Name:    BBOX,
					Usage:   "Bounding box minx,maxx,miny,maxy",
					EnvVars: envVars(BBOX),
				},
				&cli.StringFlag{
					Name:    SHAPE,
					Usage:   "Shape `FILE` whose bounds are used",
					EnvVars: envVars(SHAPE),
				},
			),
			Action: clipAction,
		},
		{
			Name:      "elevation",
			Usage:     "Print the elevation of a WGS84 coordinate",
			ArgsUsage: "latitude longitude",
			Flags:     demFlags,
			Action:    elevationAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
