// Package common provides shared utilities for Shisan
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Shisan
type Config struct {
	Environment  string         `toml:"environment"`
	HomeCurrency string         `toml:"home_currency"` // Currency portfolio values are reported in (default "JPY")
	Server       ServerConfig   `toml:"server"`
	Storage      StorageConfig  `toml:"storage"`
	Clients      ClientsConfig  `toml:"clients"`
	Resolver     ResolverConfig `toml:"resolver"`
	Cache        CacheConfig    `toml:"cache"`
	Logging      LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds SurrealDB connection configuration.
type StorageConfig struct {
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
}

// ClientsConfig holds data-provider client configurations
type ClientsConfig struct {
	YahooChart  YahooChartConfig  `toml:"yahoo_chart"`
	YahooScrape YahooScrapeConfig `toml:"yahoo_scrape"`
	TwelveData  TwelveDataConfig  `toml:"twelve_data"`
	Toshin      ToshinConfig      `toml:"toshin"`
}

// YahooChartConfig holds Yahoo chart API configuration
type YahooChartConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooChartConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// YahooScrapeConfig holds the scrape adapter configuration
type YahooScrapeConfig struct {
	JPBaseURL     string `toml:"jp_base_url"`
	GlobalBaseURL string `toml:"global_base_url"`
	RateLimit     int    `toml:"rate_limit"`
	Timeout       string `toml:"timeout"`
	MaxPages      int    `toml:"max_pages"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooScrapeConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// TwelveDataConfig holds the secondary provider configuration.
// AlphaVantage acts as the in-adapter fallback when Twelve Data is
// unconfigured or fails.
type TwelveDataConfig struct {
	BaseURL             string `toml:"base_url"`
	APIKey              string `toml:"api_key"`
	AlphaVantageBaseURL string `toml:"alpha_vantage_base_url"`
	AlphaVantageAPIKey  string `toml:"alpha_vantage_api_key"`
	RateLimit           int    `toml:"rate_limit"`
	Timeout             string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *TwelveDataConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 15*time.Second)
}

// ToshinConfig holds the official NAV lookup configuration
type ToshinConfig struct {
	NavDir string `toml:"nav_dir"`
}

// ResolverConfig holds the coordinator tuning knobs. Everything here is
// configurable so tests can run with zero real delay.
type ResolverConfig struct {
	TierOrder        []string `toml:"tier_order"`
	BreakerThreshold int      `toml:"breaker_threshold"`
	BreakerCooldown  string   `toml:"breaker_cooldown"`
	InflightWait     string   `toml:"inflight_wait"`
	RetryAttempts    int      `toml:"retry_attempts"`
	RetryBaseDelay   string   `toml:"retry_base_delay"`
}

// GetBreakerCooldown parses and returns the circuit breaker cooldown window.
func (c *ResolverConfig) GetBreakerCooldown() time.Duration {
	return parseDuration(c.BreakerCooldown, 60*time.Second)
}

// GetInflightWait parses and returns the bounded wait for duplicate in-flight requests.
func (c *ResolverConfig) GetInflightWait() time.Duration {
	return parseDuration(c.InflightWait, 5*time.Second)
}

// GetRetryBaseDelay parses and returns the initial retry backoff interval.
func (c *ResolverConfig) GetRetryBaseDelay() time.Duration {
	return parseDuration(c.RetryBaseDelay, 500*time.Millisecond)
}

// CacheConfig holds the price cache fetch-window policy.
type CacheConfig struct {
	PriorityFetchDays int    `toml:"priority_fetch_days"`
	BackfillChunkDays int    `toml:"backfill_chunk_days"`
	ChunkPause        string `toml:"chunk_pause"`
}

// GetChunkPause parses and returns the pause between backfill chunks.
func (c *CacheConfig) GetChunkPause() time.Duration {
	return parseDuration(c.ChunkPause, 2*time.Second)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:  "development",
		HomeCurrency: "JPY",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Address:   "ws://localhost:8000",
			Username:  "root",
			Password:  "root",
			Namespace: "shisan",
			Database:  "shisan",
		},
		Clients: ClientsConfig{
			YahooChart: YahooChartConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 2,
				Timeout:   "30s",
			},
			YahooScrape: YahooScrapeConfig{
				JPBaseURL:     "https://finance.yahoo.co.jp",
				GlobalBaseURL: "https://finance.yahoo.com",
				RateLimit:     1,
				Timeout:       "30s",
				MaxPages:      25,
			},
			TwelveData: TwelveDataConfig{
				BaseURL:             "https://api.twelvedata.com",
				AlphaVantageBaseURL: "https://www.alphavantage.co",
				RateLimit:           1,
				Timeout:             "15s",
			},
			Toshin: ToshinConfig{
				NavDir: "inputs/nav_cache",
			},
		},
		Resolver: ResolverConfig{
			TierOrder:        []string{"nav", "scraped", "yahoo", "alt"},
			BreakerThreshold: 3,
			BreakerCooldown:  "60s",
			InflightWait:     "5s",
			RetryAttempts:    2,
			RetryBaseDelay:   "500ms",
		},
		Cache: CacheConfig{
			PriorityFetchDays: 365,
			BackfillChunkDays: 365,
			ChunkPause:        "2s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	validateHomeCurrency(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SHISAN_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("SHISAN_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("SHISAN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("SHISAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if addr := os.Getenv("SHISAN_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}
	if user := os.Getenv("SHISAN_STORAGE_USERNAME"); user != "" {
		config.Storage.Username = user
	}
	if pass := os.Getenv("SHISAN_STORAGE_PASSWORD"); pass != "" {
		config.Storage.Password = pass
	}

	if dir := os.Getenv("TOSHIN_NAV_DIR"); dir != "" {
		config.Clients.Toshin.NavDir = dir
	}

	if key := os.Getenv("TWELVE_DATA_API_KEY"); key != "" {
		config.Clients.TwelveData.APIKey = key
	}
	if key := os.Getenv("ALPHA_VANTAGE_API_KEY"); key != "" {
		config.Clients.TwelveData.AlphaVantageAPIKey = key
	}

	if order := os.Getenv("SHISAN_TIER_ORDER"); order != "" {
		parts := strings.Split(order, ",")
		tiers := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				tiers = append(tiers, t)
			}
		}
		if len(tiers) > 0 {
			config.Resolver.TierOrder = tiers
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// validateHomeCurrency ensures HomeCurrency is set, defaulting to JPY.
func validateHomeCurrency(config *Config) {
	hc := strings.ToUpper(strings.TrimSpace(config.HomeCurrency))
	if hc == "" {
		hc = "JPY"
	}
	config.HomeCurrency = hc
}
