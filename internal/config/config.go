// Package config loads application configuration from file and environment
// and bootstraps the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/geosample-cli/internal/catalog"
)

// Config holds the full application configuration.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Selection SelectionConfig `yaml:"selection" mapstructure:"selection"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CatalogConfig configures the candidate catalog source.
type CatalogConfig struct {
	Path          string                   `yaml:"path" mapstructure:"path"`
	Format        string                   `yaml:"format" mapstructure:"format"` // csv, xlsx, shp; empty = by extension
	PopulationMin int64                    `yaml:"population_min" mapstructure:"population_min"`
	Columns       catalog.Columns          `yaml:"columns" mapstructure:"columns"`
	Shapefile     catalog.ShapefileOptions `yaml:"shapefile" mapstructure:"shapefile"`
}

// SelectionConfig configures the dispersion pipeline.
type SelectionConfig struct {
	NCities             int     `yaml:"n_cities" mapstructure:"n_cities"`
	MinDistanceKm       float64 `yaml:"min_distance_km" mapstructure:"min_distance_km"`
	MaxRepairIterations int     `yaml:"max_repair_iterations" mapstructure:"max_repair_iterations"`
	Workers             int     `yaml:"workers" mapstructure:"workers"`
}

// Validate checks the core-facing options.
func (c SelectionConfig) Validate() error {
	if c.NCities <= 0 {
		return eris.Errorf("config: selection.n_cities must be positive, got %d", c.NCities)
	}
	if c.MinDistanceKm <= 0 {
		return eris.Errorf("config: selection.min_distance_km must be positive, got %g", c.MinDistanceKm)
	}
	return nil
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	Path        string `yaml:"path" mapstructure:"path"`     // sqlite file
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port         int     `yaml:"port" mapstructure:"port"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateBurst    int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOSAMPLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("catalog.population_min", 0)
	v.SetDefault("catalog.columns.id", "id")
	v.SetDefault("catalog.columns.name", "city")
	v.SetDefault("catalog.columns.lat", "lat")
	v.SetDefault("catalog.columns.lng", "lng")
	v.SetDefault("catalog.columns.population", "population")
	v.SetDefault("catalog.shapefile.name_field", "NAME")
	v.SetDefault("catalog.shapefile.population_field", "POP_MAX")
	v.SetDefault("selection.n_cities", 200)
	v.SetDefault("selection.min_distance_km", 500.0)
	v.SetDefault("selection.max_repair_iterations", 1000)
	v.SetDefault("selection.workers", 1)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "geosample.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 5.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
