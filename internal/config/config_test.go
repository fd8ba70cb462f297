package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voyant-travel/itinerary-cli/pkg/oracle"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, oracle.DefaultModel, cfg.Oracle.Model)
	assert.Equal(t, int64(oracle.DefaultMaxTokens), cfg.Oracle.MaxTokens)
	assert.Equal(t, "https://airportdb.voyant.dev/v1", cfg.Airports.BaseURL)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocode.BaseURL)
	assert.Equal(t, 200, cfg.Geocode.VariantDelayMS)
	assert.InDelta(t, 1.0, cfg.Geocode.RatePerSecond, 0.001)
	assert.Equal(t, "https://router.project-osrm.org", cfg.Routing.PublicBaseURL)
	assert.Empty(t, cfg.Routing.PremiumBaseURL, "premium tier is opt-in")
	assert.Equal(t, 50, cfg.Cache.MemoryEntries)
	assert.Equal(t, 60, cfg.Cache.TTLMinutes)
	assert.Equal(t, 24, cfg.Cache.DiskTTLHours)
	assert.Equal(t, 4, cfg.Pipeline.ResolveConcurrency)
	assert.Equal(t, 4, cfg.Pipeline.EstimateConcurrency)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
routing:
  graph_base_url: http://localhost:8001
pipeline:
  resolve_concurrency: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8001", cfg.Routing.GraphBaseURL)
	assert.Equal(t, 8, cfg.Pipeline.ResolveConcurrency)
	// Defaults still apply for unset values
	assert.Equal(t, 50, cfg.Cache.MemoryEntries)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ITINERARY_LOG_LEVEL", "warn")
	t.Setenv("ITINERARY_ORACLE_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-ant-test", cfg.Oracle.Key)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("ITINERARY_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
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
	cfg := &Config{}
	cfg.Oracle.Key = "sk-ant-key"
	cfg.Server.Port = 8080
	cfg.Cache.MemoryEntries = 50
	cfg.Geocode.VariantDelayMS = 200
	cfg.Pipeline.ResolveConcurrency = 4
	cfg.Pipeline.EstimateConcurrency = 4
	return cfg
}

func TestValidatePlan_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("plan"))
}

func TestValidatePlan_MissingKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Oracle.Key = ""

	err := cfg.Validate("plan")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "oracle.key is required")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Pipeline.ResolveConcurrency = 0
	err := cfg.Validate("plan")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "resolve_concurrency must be between 1 and 50")

	cfg.Pipeline.ResolveConcurrency = 51
	err = cfg.Validate("plan")
	assert.Error(t, err)

	cfg.Pipeline.ResolveConcurrency = 50
	assert.NoError(t, cfg.Validate("plan"))
}

func TestValidateCacheAndDelayBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Cache.MemoryEntries = 0
	err := cfg.Validate("plan")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "memory_entries must be >= 1")

	cfg.Cache.MemoryEntries = 50
	cfg.Geocode.VariantDelayMS = -1
	err = cfg.Validate("plan")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "variant_delay_ms must be >= 0")
}
