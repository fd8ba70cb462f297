package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/voyant-travel/itinerary-cli/pkg/oracle"
)

// Config holds the full application configuration.
type Config struct {
	Oracle   OracleConfig   `yaml:"oracle" mapstructure:"oracle"`
	Airports AirportsConfig `yaml:"airports" mapstructure:"airports"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Routing  RoutingConfig  `yaml:"routing" mapstructure:"routing"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// OracleConfig holds the Anthropic API settings for the extraction and
// translation oracle.
type OracleConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// AirportsConfig holds the airport database service settings.
type AirportsConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeocodeConfig holds the geocoding service settings.
type GeocodeConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	VariantDelayMS int     `yaml:"variant_delay_ms" mapstructure:"variant_delay_ms"`
	RatePerSecond  float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// RoutingConfig holds the three network routing tiers. Tiers with no URL
// configured are skipped; the Haversine floor needs no configuration.
type RoutingConfig struct {
	PremiumKey     string `yaml:"premium_key" mapstructure:"premium_key"`
	PremiumBaseURL string `yaml:"premium_base_url" mapstructure:"premium_base_url"`
	GraphBaseURL   string `yaml:"graph_base_url" mapstructure:"graph_base_url"`
	PublicBaseURL  string `yaml:"public_base_url" mapstructure:"public_base_url"`
}

// CacheConfig configures the route/resolution caches.
type CacheConfig struct {
	MemoryEntries int    `yaml:"memory_entries" mapstructure:"memory_entries"`
	TTLMinutes    int    `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	DiskPath      string `yaml:"disk_path" mapstructure:"disk_path"`
	DiskTTLHours  int    `yaml:"disk_ttl_hours" mapstructure:"disk_ttl_hours"`
}

// PipelineConfig bounds the stage worker pools.
type PipelineConfig struct {
	ResolveConcurrency  int `yaml:"resolve_concurrency" mapstructure:"resolve_concurrency"`
	EstimateConcurrency int `yaml:"estimate_concurrency" mapstructure:"estimate_concurrency"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("ITINERARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("oracle.model", oracle.DefaultModel)
	v.SetDefault("oracle.max_tokens", oracle.DefaultMaxTokens)
	v.SetDefault("airports.base_url", "https://airportdb.voyant.dev/v1")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.variant_delay_ms", 200)
	v.SetDefault("geocode.rate_per_second", 1)
	v.SetDefault("routing.public_base_url", "https://router.project-osrm.org")
	v.SetDefault("cache.memory_entries", 50)
	v.SetDefault("cache.ttl_minutes", 60)
	v.SetDefault("cache.disk_ttl_hours", 24)
	v.SetDefault("pipeline.resolve_concurrency", 4)
	v.SetDefault("pipeline.estimate_concurrency", 4)

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

// Validate checks the configuration for a run mode ("plan" or "serve").
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "plan":
		if c.Oracle.Key == "" {
			problems = append(problems, "oracle.key is required")
		}
	case "serve":
		if c.Oracle.Key == "" {
			problems = append(problems, "oracle.key is required")
		}
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Pipeline.ResolveConcurrency < 1 || c.Pipeline.ResolveConcurrency > 50 {
		problems = append(problems, "pipeline.resolve_concurrency must be between 1 and 50")
	}
	if c.Pipeline.EstimateConcurrency < 1 || c.Pipeline.EstimateConcurrency > 50 {
		problems = append(problems, "pipeline.estimate_concurrency must be between 1 and 50")
	}
	if c.Cache.MemoryEntries < 1 {
		problems = append(problems, "cache.memory_entries must be >= 1")
	}
	if c.Geocode.VariantDelayMS < 0 {
		problems = append(problems, "geocode.variant_delay_ms must be >= 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
