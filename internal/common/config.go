// Package common provides shared utilities for Folio
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Folio
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Clients     ClientsConfig  `toml:"clients"`
	Importer    ImporterConfig `toml:"importer"`
	Logging     LoggingConfig  `toml:"logging"`

	// SymbolBlacklist lists tickers the price feed can no longer serve
	// (delisted or renamed). They are excluded from price fetches rather
	// than failing the batch.
	SymbolBlacklist []string `toml:"symbol_blacklist"`
}

// ServerConfig holds HTTP server configuration for the read-only history API
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	RefreshInterval string `toml:"refresh_interval"`
}

// GetRefreshInterval parses and returns the scheduler interval
func (c *ServerConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// StorageConfig holds storage paths for the 2 storage areas.
type StorageConfig struct {
	Events  AreaConfig `toml:"events"`  // Raw event log + entities (BadgerHold)
	History AreaConfig `toml:"history"` // Derived history series (BadgerHold)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD EODHDConfig `toml:"eodhd"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ImporterConfig holds brokerage CSV import configuration
type ImporterConfig struct {
	Sources      []SourceConfig `toml:"sources"`
	Entities     string         `toml:"entities_dir"`
	Splits       string         `toml:"splits_dir"`
	Acquisitions string         `toml:"acquisitions_dir"`
}

// SourceConfig describes one brokerage export directory.
type SourceConfig struct {
	Brokerage   string `toml:"brokerage"`    // schwab, tdameritrade, wallmine
	Dir         string `toml:"dir"`          // directory of CSV exports
	AccountType string `toml:"account_type"` // taxable, retirement, ...
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			RefreshInterval: "24h",
		},
		Storage: StorageConfig{
			Events:  AreaConfig{Path: "data/events"},
			History: AreaConfig{Path: "data/history"},
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
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

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FOLIO_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FOLIO_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("FOLIO_DATA_PATH"); path != "" {
		config.Storage.Events.Path = filepath.Join(path, "events")
		config.Storage.History.Path = filepath.Join(path, "history")
	}

	if key := os.Getenv("FOLIO_EODHD_API_KEY"); key != "" {
		config.Clients.EODHD.APIKey = key
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// IsBlacklisted reports whether a symbol is on the price-feed blacklist.
func (c *Config) IsBlacklisted(symbol string) bool {
	for _, s := range c.SymbolBlacklist {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}
