// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix is prepended to every variable name, e.g. TEMPO_CACHE_TTL.
const envPrefix = "tempo"

// Environment selects the advisory endpoint.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Data source variants.
const (
	SourceLive    = "live"
	SourceFixture = "fixture"
)

// Config holds the application configuration.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	DataSource   string `envconfig:"DATA_SOURCE" default:"live"`
	ExportDir    string `envconfig:"EXPORT_DIR"`
	FixturePath  string `envconfig:"FIXTURE_PATH"`
	DatabasePath string `envconfig:"DATABASE_PATH"`
	ProfilePath  string `envconfig:"PROFILE_PATH"`
	Timezone     string `envconfig:"TIMEZONE"`

	CacheTTL            time.Duration `envconfig:"CACHE_TTL" default:"1h"`
	RetentionDays       int           `envconfig:"RETENTION_DAYS" default:"30"`
	TrendDays           int           `envconfig:"TREND_DAYS" default:"7"`
	MaintenanceInterval time.Duration `envconfig:"MAINTENANCE_INTERVAL" default:"6h"`
	Debounce            time.Duration `envconfig:"DEBOUNCE" default:"500ms"`
	MinCoreFraction     float64       `envconfig:"MIN_CORE_FRACTION" default:"0.3"`

	WeightHRV      float64 `envconfig:"WEIGHT_HRV" default:"0.4"`
	WeightSleep    float64 `envconfig:"WEIGHT_SLEEP" default:"0.35"`
	WeightActivity float64 `envconfig:"WEIGHT_ACTIVITY" default:"0.25"`

	AdvisorURL             string        `envconfig:"ADVISOR_URL"`
	AdvisorDevURL          string        `envconfig:"ADVISOR_DEV_URL" default:"http://localhost:8787"`
	AdvisorProdURL         string        `envconfig:"ADVISOR_PROD_URL"`
	DeliveryEnabled        bool          `envconfig:"DELIVERY_ENABLED" default:"true"`
	DeliveryMaxAttempts    int           `envconfig:"DELIVERY_MAX_ATTEMPTS" default:"3"`
	DeliveryBaseDelay      time.Duration `envconfig:"DELIVERY_BASE_DELAY" default:"1s"`
	DeliveryMaxDelay       time.Duration `envconfig:"DELIVERY_MAX_DELAY" default:"30s"`
	DeliveryJitter         float64       `envconfig:"DELIVERY_JITTER" default:"0.1"`
	DeliveryAttemptTimeout time.Duration `envconfig:"DELIVERY_ATTEMPT_TIMEOUT" default:"30s"`

	Locale        string `envconfig:"LOCALE"`
	Notifications bool   `envconfig:"NOTIFICATIONS" default:"true"`
	MetricsAddr   string `envconfig:"METRICS_ADDR"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = defaultPath("tempo.db")
	}
	if cfg.ProfilePath == "" {
		cfg.ProfilePath = defaultPath("profile.yaml")
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = defaultPath("export")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	switch c.DataSource {
	case SourceLive:
	case SourceFixture:
		if c.FixturePath == "" {
			return fmt.Errorf("TEMPO_FIXTURE_PATH is required when TEMPO_DATA_SOURCE=fixture")
		}
	default:
		return fmt.Errorf("unsupported TEMPO_DATA_SOURCE: %q", c.DataSource)
	}

	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("unsupported TEMPO_ENVIRONMENT: %q", c.Environment)
	}

	if c.WeightHRV < 0 || c.WeightSleep < 0 || c.WeightActivity < 0 {
		return fmt.Errorf("status weights must not be negative")
	}
	if c.WeightHRV+c.WeightSleep+c.WeightActivity == 0 {
		return fmt.Errorf("status weights must not all be zero")
	}
	if c.DeliveryMaxAttempts < 1 {
		return fmt.Errorf("TEMPO_DELIVERY_MAX_ATTEMPTS must be at least 1")
	}
	if c.DeliveryJitter < 0 || c.DeliveryJitter > 1 {
		return fmt.Errorf("TEMPO_DELIVERY_JITTER must be within [0, 1]")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("TEMPO_CACHE_TTL must be positive")
	}
	if c.RetentionDays < 1 || c.TrendDays < 1 {
		return fmt.Errorf("retention and trend windows must be at least one day")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone, defaulting to the system zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TEMPO_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AdvisorBaseURL returns the advisory endpoint for the configured
// environment. An explicit TEMPO_ADVISOR_URL always wins.
func (c *Config) AdvisorBaseURL() (string, error) {
	if c.AdvisorURL != "" {
		return c.AdvisorURL, nil
	}
	if c.Environment == EnvProduction {
		if c.AdvisorProdURL == "" {
			return "", fmt.Errorf("TEMPO_ADVISOR_PROD_URL is required in production")
		}
		return c.AdvisorProdURL, nil
	}
	return c.AdvisorDevURL, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "tempo", ".env"),
			filepath.Join(home, ".tempo", ".env"),
		)
	}

	// Parent directories (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
	}

	return paths
}

// defaultPath returns name inside the tempo config directory.
func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", "tempo", name)
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
