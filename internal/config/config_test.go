package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/regioniq/catchment/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dataapi", cfg.Store.Driver)
	assert.Equal(t, "observations.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.regioniq.uk/v1", cfg.DataAPI.BaseURL)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 30, cfg.Boundaries.LoadTimeoutSecs)
	assert.Equal(t, []string{"LAD"}, cfg.Boundaries.PreloadLevels)
	assert.Len(t, cfg.Boundaries.URLs, 4)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
  sqlite_path: /data/obs.db
log:
  level: debug
  format: console
server:
  port: 9090
boundaries:
  dir: /data/boundaries
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/data/obs.db", cfg.Store.SQLitePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/data/boundaries", cfg.Boundaries.Dir)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("REGIONIQ_STORE_DRIVER", "postgres")
	t.Setenv("REGIONIQ_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("REGIONIQ_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestBoundaryURLs(t *testing.T) {
	c := BoundariesConfig{URLs: map[string]string{
		"lad":  "https://example.com/lad.geojson",
		"ITL1": "https://example.com/itl1.geojson",
	}}
	urls, err := c.BoundaryURLs()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/lad.geojson", urls[model.LevelLAD])
	assert.Equal(t, "https://example.com/itl1.geojson", urls[model.LevelITL1])

	c.URLs["bogus"] = "https://example.com/x.geojson"
	_, err = c.BoundaryURLs()
	require.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	return &Config{
		Store:   StoreConfig{Driver: "dataapi"},
		DataAPI: DataAPIConfig{BaseURL: "https://api.regioniq.uk/v1"},
		Server:  ServerConfig{Port: 8080},
		Boundaries: BoundariesConfig{
			URLs:            map[string]string{"LAD": "https://example.com/lad.geojson"},
			LoadTimeoutSecs: 30,
		},
	}
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateCalcNeedsBoundaries(t *testing.T) {
	cfg := validDefaults()
	cfg.Boundaries.URLs = nil

	err := cfg.Validate("calc")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "boundaries.urls or boundaries.dir")

	cfg.Boundaries.Dir = "/data/boundaries"
	assert.NoError(t, cfg.Validate("calc"))
}

func TestValidateDrivers(t *testing.T) {
	cfg := validDefaults()

	cfg.Store.Driver = "postgres"
	err := cfg.Validate("calc")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	cfg.Store.DatabaseURL = "postgres://localhost/regioniq"
	assert.NoError(t, cfg.Validate("calc"))

	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = ""
	err = cfg.Validate("calc")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.sqlite_path is required")

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("calc")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be")
}

func TestValidateIngest(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("ingest")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingest requires store.driver sqlite")

	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "obs.db"
	assert.NoError(t, cfg.Validate("ingest"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
