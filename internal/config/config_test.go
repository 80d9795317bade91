package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-gemgis"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 128<<20, cfg.DEM.TileCacheSize)
	assert.Equal(t, gemgis.InterpolationOptions{
		Method:   gemgis.MethodNearest,
		Res:      gemgis.DefaultRes,
		Function: "multiquadric",
		Epsilon:  gemgis.DefaultEpsilon,
	}, cfg.Interpolation)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoadFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "gemgis.yaml")
	assert.NoError(t, os.WriteFile(configFile, []byte(""+
		"log:\n"+
		"  level: debug\n"+
		"  format: json\n"+
		"dem:\n"+
		"  path: /data/eu_dem\n"+
		"  crs: EPSG:3035\n"+
		"interpolation:\n"+
		"  method: rbf\n"+
		"  res: 100\n"+
		"  seed: 42\n"+
		"  function: gaussian\n"+
		"  epsilon: 0.5\n",
	), 0o666))
	t.Setenv("GEMGIS_INTERPOLATION_RES", "250")

	cfg, err := Load(configFile)
	assert.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, DEMConfig{Path: "/data/eu_dem", CRS: "EPSG:3035", TileCacheSize: 128 << 20}, cfg.DEM)
	assert.Equal(t, "rbf", cfg.Interpolation.Method)
	assert.Equal(t, 250, cfg.Interpolation.Res)
	assert.NotZero(t, cfg.Interpolation.Seed)
	assert.Equal(t, uint64(42), *cfg.Interpolation.Seed)

	method, _, err := cfg.Interpolation.Build()
	assert.NoError(t, err)
	assert.Equal(t, gemgis.Method(gemgis.RadialBasis{Kernel: gemgis.KernelGaussian, Epsilon: 0.5}), method)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buffer bytes.Buffer
	cfg := &Config{Log: LogConfig{Level: "warn", Format: "json"}}
	logger := cfg.NewLogger(&buffer)
	logger.Info("hidden")
	logger.Warn("shown", slog.Int("points", 3))

	var record map[string]any
	assert.NoError(t, json.Unmarshal(buffer.Bytes(), &record))
	assert.Equal(t, "shown", record["msg"])
	assert.Equal(t, 3.0, record["points"])
}
