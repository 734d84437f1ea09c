package config

import (
	"os"
	"strconv"
	"time"

	"github.com/ansel1/merry"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	"github.com/powerman/structlog"
)

var log = structlog.New(structlog.KeyUnit, "config")

const (
	DefaultTrackingBaseURL = "https://covidtracking.com/api"
	DefaultProjectionsURL  = "https://ihmecovid19storage.blob.core.windows.net/latest/ihme-covid19.zip"
)

type AppConfig struct {
	TrackingBaseURL string `validate:"required,url"`
	ProjectionsURL  string `validate:"required,url"`

	// RefreshTTL is how long the fetched table is served before a reload.
	// A reload must not be answered from the response cache.
	RefreshTTL time.Duration `validate:"gt=0,gtefield=HTTPCacheTTL"`

	// HTTP response cache in front of the fetchers.
	HTTPCacheTTL   time.Duration `validate:"gte=0"`
	HTTPCacheSweep time.Duration `validate:"gte=0"`
	// HTTPTimeout caps outbound requests. Zero keeps the client default.
	HTTPTimeout time.Duration `validate:"gte=0"`

	// CacheProjections routes the projections archive through the HTTP
	// cache. Off by default: every chart query downloads it afresh.
	CacheProjections bool

	// PopulationFile overrides the embedded population table.
	PopulationFile string

	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=dbg inf wrn err"`
}

// Default returns the configuration used when nothing is set.
func Default() *AppConfig {
	return &AppConfig{
		TrackingBaseURL: DefaultTrackingBaseURL,
		ProjectionsURL:  DefaultProjectionsURL,
		RefreshTTL:      1800 * time.Second,
		HTTPCacheTTL:    900 * time.Second,
		HTTPCacheSweep:  5 * time.Minute,
		Port:            "8080",
		LogLevel:        "inf",
	}
}

// Load reads configuration from an optional TOML file named by CONFIG_FILE
// and then from the environment, which wins.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "err", err)
	}
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, merry.Prepend(err, "invalid config")
	}
	return cfg, nil
}

// fileConfig mirrors AppConfig with durations as strings, the way they
// are written in the file ("30m", "15s").
type fileConfig struct {
	TrackingBaseURL  string `toml:"tracking_base_url"`
	ProjectionsURL   string `toml:"projections_url"`
	RefreshTTL       string `toml:"refresh_ttl"`
	HTTPCacheTTL     string `toml:"http_cache_ttl"`
	HTTPCacheSweep   string `toml:"http_cache_sweep"`
	HTTPTimeout      string `toml:"http_timeout"`
	CacheProjections *bool  `toml:"cache_projections"`
	PopulationFile   string `toml:"population_file"`
	Port             string `toml:"port"`
	LogLevel         string `toml:"log_level"`
}

func loadFile(path string, cfg *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return merry.Prepend(err, "read config file")
	}
	var fc fileConfig
	if err := toml.Unmarshal(b, &fc); err != nil {
		return merry.Prependf(err, "parse config file %s", path)
	}

	setString(&cfg.TrackingBaseURL, fc.TrackingBaseURL)
	setString(&cfg.ProjectionsURL, fc.ProjectionsURL)
	setString(&cfg.PopulationFile, fc.PopulationFile)
	setString(&cfg.Port, fc.Port)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.CacheProjections != nil {
		cfg.CacheProjections = *fc.CacheProjections
	}
	for _, d := range []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"refresh_ttl", fc.RefreshTTL, &cfg.RefreshTTL},
		{"http_cache_ttl", fc.HTTPCacheTTL, &cfg.HTTPCacheTTL},
		{"http_cache_sweep", fc.HTTPCacheSweep, &cfg.HTTPCacheSweep},
		{"http_timeout", fc.HTTPTimeout, &cfg.HTTPTimeout},
	} {
		if d.src == "" {
			continue
		}
		v, err := time.ParseDuration(d.src)
		if err != nil {
			return merry.Prependf(err, "invalid %s", d.name)
		}
		*d.dst = v
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	cfg.TrackingBaseURL = getenvDefault("TRACKING_BASE_URL", cfg.TrackingBaseURL)
	cfg.ProjectionsURL = getenvDefault("PROJECTIONS_URL", cfg.ProjectionsURL)
	cfg.PopulationFile = getenvDefault("POPULATION_FILE", cfg.PopulationFile)
	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.CacheProjections = getenvBool("CACHE_PROJECTIONS", cfg.CacheProjections)

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"REFRESH_TTL", &cfg.RefreshTTL},
		{"HTTP_CACHE_TTL", &cfg.HTTPCacheTTL},
		{"HTTP_CACHE_SWEEP", &cfg.HTTPCacheSweep},
		{"HTTP_TIMEOUT", &cfg.HTTPTimeout},
	} {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		dur, err := time.ParseDuration(v)
		if err != nil {
			return merry.Prependf(err, "invalid %s", d.key)
		}
		*d.dst = dur
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
