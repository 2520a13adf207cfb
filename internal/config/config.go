// Package config loads application configuration from file and environment
// and owns the global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/regioniq/catchment/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Boundaries BoundariesConfig `yaml:"boundaries" mapstructure:"boundaries"`
	DataAPI    DataAPIConfig    `yaml:"data_api" mapstructure:"data_api"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects the observation backend: the hosted Data API, Postgres,
// or a local SQLite snapshot.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // dataapi | postgres | sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// BoundariesConfig configures boundary loading: remote GeoJSON per level, or
// local files when Dir is set (expects <dir>/<level>.geojson).
type BoundariesConfig struct {
	URLs            map[string]string `yaml:"urls" mapstructure:"urls"`
	Dir             string            `yaml:"dir" mapstructure:"dir"`
	CodeProperty    string            `yaml:"code_property" mapstructure:"code_property"`
	NameProperty    string            `yaml:"name_property" mapstructure:"name_property"`
	LoadTimeoutSecs int               `yaml:"load_timeout_secs" mapstructure:"load_timeout_secs"`
	PreloadLevels   []string          `yaml:"preload_levels" mapstructure:"preload_levels"`
}

// DataAPIConfig holds the hosted Data API endpoint.
type DataAPIConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FetchConfig configures outbound HTTP behavior.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// BoundaryURLs resolves the configured level→URL map to typed levels.
func (c BoundariesConfig) BoundaryURLs() (map[model.Level]string, error) {
	urls := make(map[model.Level]string, len(c.URLs))
	for k, u := range c.URLs {
		level, err := model.ParseLevel(k)
		if err != nil {
			return nil, err
		}
		urls[level] = u
	}
	return urls, nil
}

// Validate checks the configuration needed for a run mode: "serve" for the
// HTTP API, "calc" for one-shot calculations, "ingest" for snapshot loading.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "dataapi":
		if c.DataAPI.BaseURL == "" {
			problems = append(problems, "data_api.base_url is required")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required")
		}
	default:
		problems = append(problems, "store.driver must be dataapi, postgres, or sqlite")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		fallthrough
	case "calc":
		if len(c.Boundaries.URLs) == 0 && c.Boundaries.Dir == "" {
			problems = append(problems, "boundaries.urls or boundaries.dir is required")
		}
		if c.Boundaries.LoadTimeoutSecs <= 0 {
			problems = append(problems, "boundaries.load_timeout_secs must be > 0")
		}
	case "ingest":
		if c.Store.Driver != "sqlite" {
			problems = append(problems, "ingest requires store.driver sqlite")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REGIONIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "dataapi")
	v.SetDefault("store.sqlite_path", "observations.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.user_agent", "regioniq-catchment/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("data_api.base_url", "https://api.regioniq.uk/v1")
	v.SetDefault("boundaries.load_timeout_secs", 30)
	v.SetDefault("boundaries.preload_levels", []string{"LAD"})
	v.SetDefault("boundaries.urls", map[string]string{
		"ITL1": "https://data.regioniq.uk/boundaries/itl1.geojson",
		"ITL2": "https://data.regioniq.uk/boundaries/itl2.geojson",
		"ITL3": "https://data.regioniq.uk/boundaries/itl3.geojson",
		"LAD":  "https://data.regioniq.uk/boundaries/lad.geojson",
	})

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
