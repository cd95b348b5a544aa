// Package config loads service configuration from a YAML file, the process
// environment and an optional .env file, in increasing order of precedence.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pumpcards/internal/domain"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config is the full service configuration.
type Config struct {
	HTTPAddr    string          `yaml:"http_addr"`
	MetricsAddr string          `yaml:"metrics_addr"`
	Log         LogConfig       `yaml:"log"`
	Storage     StorageConfig   `yaml:"storage"`
	Providers   ProvidersConfig `yaml:"providers"`
	Quote       QuoteConfig     `yaml:"quote"`
	Admin       AdminConfig     `yaml:"admin"`
	Schedule    ScheduleConfig  `yaml:"schedule"`

	// Pricing seeds the stored pricing config when none exists yet.
	Pricing *domain.PricingConfig `yaml:"pricing,omitempty"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Backend          string `yaml:"backend"`
	PostgresDSN      string `yaml:"postgres_dsn"`
	PostgresMaxConns int32  `yaml:"postgres_max_conns"`
	ClickhouseDSN    string `yaml:"clickhouse_dsn"`
	Migrate          bool   `yaml:"migrate"`
}

// ProvidersConfig configures the discovery adapters.
type ProvidersConfig struct {
	Timeout           time.Duration   `yaml:"timeout"`
	MaxRetries        int             `yaml:"max_retries"`
	RetryDelay        time.Duration   `yaml:"retry_delay"`
	RequestsPerSecond float64         `yaml:"requests_per_second"`
	PumpFun           PumpFunConfig   `yaml:"pumpfun"`
	Helius            HeliusConfig    `yaml:"helius"`
	Community         CommunityConfig `yaml:"community"`
	LiveFeed          LiveFeedConfig  `yaml:"live_feed"`
	Demo              DemoConfig      `yaml:"demo"`
}

// PumpFunConfig configures the pump.fun adapter.
type PumpFunConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Endpoints   []string `yaml:"endpoints"`
	LivePageURL string   `yaml:"live_page_url"`
}

// HeliusConfig configures the Helius adapter. Disabled without an API key.
type HeliusConfig struct {
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Mints   []string `yaml:"mints"`
}

// CommunityConfig configures the community feed adapter. Disabled without URLs.
type CommunityConfig struct {
	URLs     []string `yaml:"urls"`
	S3Region string   `yaml:"s3_region"`
}

// LiveFeedConfig configures the websocket snapshot adapter. Disabled without a URL.
type LiveFeedConfig struct {
	URL         string        `yaml:"url"`
	CollectFor  time.Duration `yaml:"collect_for"`
	MaxMessages int           `yaml:"max_messages"`
}

// DemoConfig configures the synthetic adapter.
type DemoConfig struct {
	Enabled bool `yaml:"enabled"`
}

// QuoteConfig configures quote signing.
type QuoteConfig struct {
	Secret    string        `yaml:"secret"`
	TTL       time.Duration `yaml:"ttl"`
	SingleUse bool          `yaml:"single_use"`
}

// AdminConfig configures admin authentication.
type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// ScheduleConfig sets the cadence of each periodic trigger.
type ScheduleConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Discovery time.Duration `yaml:"discovery"`
	Tiers     time.Duration `yaml:"tiers"`
	Refresh   time.Duration `yaml:"refresh"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			Migrate: true,
		},
		Providers: ProvidersConfig{
			Timeout:           10 * time.Second,
			MaxRetries:        3,
			RetryDelay:        time.Second,
			RequestsPerSecond: 5,
			PumpFun: PumpFunConfig{
				Enabled: true,
				Endpoints: []string{
					"https://frontend-api.pump.fun/coins/currently-live",
					"https://frontend-api-v3.pump.fun/coins/currently-live",
				},
				LivePageURL: "https://pump.fun/live",
			},
			Helius: HeliusConfig{
				BaseURL: "https://api.helius.xyz",
			},
			LiveFeed: LiveFeedConfig{
				CollectFor:  5 * time.Second,
				MaxMessages: 100,
			},
			Demo: DemoConfig{Enabled: true},
		},
		Quote: QuoteConfig{
			TTL:       60 * time.Second,
			SingleUse: true,
		},
		Schedule: ScheduleConfig{
			Enabled:   true,
			Discovery: 2 * time.Minute,
			Tiers:     10 * time.Minute,
			Refresh:   time.Minute,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (optional),
// .env and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.MetricsAddr, "METRICS_ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Log.Output, "LOG_OUTPUT")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.PostgresDSN, "POSTGRES_DSN")
	setString(&c.Storage.ClickhouseDSN, "CLICKHOUSE_DSN")
	setString(&c.Providers.Helius.APIKey, "HELIUS_API_KEY")
	setList(&c.Providers.Helius.Mints, "HELIUS_MINTS")
	setList(&c.Providers.Community.URLs, "COMMUNITY_URLS")
	setString(&c.Providers.Community.S3Region, "COMMUNITY_S3_REGION")
	setString(&c.Providers.LiveFeed.URL, "LIVE_FEED_URL")
	setList(&c.Providers.PumpFun.Endpoints, "PUMPFUN_ENDPOINTS")
	setString(&c.Quote.Secret, "QUOTE_SECRET")
	setString(&c.Admin.JWTSecret, "ADMIN_JWT_SECRET")

	for _, b := range []struct {
		dst *bool
		key string
	}{
		{&c.Providers.PumpFun.Enabled, "PUMPFUN_ENABLED"},
		{&c.Providers.Demo.Enabled, "DEMO_ENABLED"},
		{&c.Quote.SingleUse, "SINGLE_USE_QUOTES"},
		{&c.Schedule.Enabled, "SCHEDULE_ENABLED"},
		{&c.Storage.Migrate, "STORAGE_MIGRATE"},
	} {
		if err := setBool(b.dst, b.key); err != nil {
			return err
		}
	}

	for _, d := range []struct {
		dst *time.Duration
		key string
	}{
		{&c.Quote.TTL, "QUOTE_TTL"},
		{&c.Providers.Timeout, "PROVIDER_TIMEOUT"},
		{&c.Schedule.Discovery, "SCHEDULE_DISCOVERY"},
		{&c.Schedule.Tiers, "SCHEDULE_TIERS"},
		{&c.Schedule.Refresh, "SCHEDULE_REFRESH"},
	} {
		if err := setDuration(d.dst, d.key); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("postgres backend requires postgres_dsn")
		}
		if c.Quote.Secret == "" {
			return errors.New("quote secret is required")
		}
		if c.Admin.JWTSecret == "" {
			return errors.New("admin jwt secret is required")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Quote.TTL <= 0 {
		return errors.New("quote ttl must be positive")
	}
	if c.Providers.Timeout <= 0 {
		return errors.New("provider timeout must be positive")
	}
	if c.Providers.MaxRetries < 1 {
		return errors.New("provider max_retries must be at least 1")
	}
	if c.Schedule.Enabled && (c.Schedule.Discovery <= 0 || c.Schedule.Tiers <= 0 || c.Schedule.Refresh <= 0) {
		return errors.New("schedule cadences must be positive")
	}
	if c.Pricing != nil {
		if err := c.Pricing.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EnsureDevSecrets fills empty secrets with random values in memory mode.
// Returns true if any secret was generated.
func (c *Config) EnsureDevSecrets() (bool, error) {
	if c.Storage.Backend != BackendMemory {
		return false, nil
	}
	generated := false
	for _, s := range []*string{&c.Quote.Secret, &c.Admin.JWTSecret} {
		if *s != "" {
			continue
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return false, fmt.Errorf("generate secret: %w", err)
		}
		*s = hex.EncodeToString(buf)
		generated = true
	}
	return generated, nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = d
	return nil
}
