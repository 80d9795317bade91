// Package config loads gemgis configuration from a file, the environment, and
// defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/twpayne/go-gemgis"
)

// EnvPrefix is the prefix of environment variables that override
// configuration values, e.g. GEMGIS_LOG_LEVEL.
const EnvPrefix = "GEMGIS"

// Config holds all configuration for the command line tool.
type Config struct {
	Log           LogConfig                   `mapstructure:"log"`
	DEM           DEMConfig                   `mapstructure:"dem"`
	Interpolation gemgis.InterpolationOptions `mapstructure:"interpolation"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// DEMConfig holds the default elevation source.
type DEMConfig struct {
	Path          string `mapstructure:"path"`
	CRS           string `mapstructure:"crs"`
	TileCacheSize int    `mapstructure:"tilecachesize"`
}

// Load reads configuration from configFile, if not empty, or from a gemgis.yaml
// in the current directory or $HOME/.gemgis, if present, and from environment
// variables.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("gemgis")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.gemgis")
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("dem.path", "")
	v.SetDefault("dem.crs", "")
	v.SetDefault("dem.tilecachesize", 128<<20)
	v.SetDefault("interpolation.method", gemgis.MethodNearest)
	v.SetDefault("interpolation.res", gemgis.DefaultRes)
	v.SetDefault("interpolation.n", 0)
	v.SetDefault("interpolation.function", "multiquadric")
	v.SetDefault("interpolation.epsilon", gemgis.DefaultEpsilon)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a new slog.Logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: c.Level(),
	}
	var handler slog.Handler
	switch strings.ToLower(c.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
