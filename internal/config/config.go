package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	// HTTP server configuration
	Server ServerConfig `toml:"server"`

	// Database configuration
	Database DatabaseConfig `toml:"database"`

	// Card reference oracle configuration
	Scryfall ScryfallConfig `toml:"scryfall"`

	// Bulk reference index configuration
	Bulk BulkConfig `toml:"bulk"`

	// Import pipeline configuration
	Import ImportConfig `toml:"import"`

	// Current user resolution
	Auth AuthConfig `toml:"auth"`
}

// ServerConfig contains REST API settings.
type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// DatabaseConfig contains storage settings.
type DatabaseConfig struct {
	Path string `toml:"path"` // Path to the SQLite database
}

// ScryfallConfig contains oracle client settings.
type ScryfallConfig struct {
	BaseURL      string `toml:"base_url"`
	RateInterval string `toml:"rate_interval"` // Minimum spacing between calls (e.g., "100ms")
	RetryMax     int    `toml:"retry_max"`
	Timeout      string `toml:"timeout"`
	UserAgent    string `toml:"user_agent"`
}

// BulkConfig points at the slimmed bulk card file.
type BulkConfig struct {
	Path string `toml:"path"` // Local JSON or NDJSON file, optionally gzipped
	URL  string `toml:"url"`  // Download location used when Path is empty
	Type string `toml:"type"` // Oracle bulk type ("oracle_cards") used when Path and URL are empty
}

// ImportConfig contains import pipeline settings.
type ImportConfig struct {
	Concurrency int    `toml:"concurrency"` // Rows resolved in parallel
	WatchDir    string `toml:"watch_dir"`   // Drop folder for automatic imports (empty = disabled)
}

// AuthConfig contains current-user settings.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`  // HMAC secret for bearer tokens
	DevUserID string `toml:"dev_user_id"` // Fixed user when no secret is configured
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Database: DatabaseConfig{
			Path: "",
		},
		Scryfall: ScryfallConfig{
			BaseURL:      "https://api.scryfall.com",
			RateInterval: "100ms",
			RetryMax:     3,
			Timeout:      "30s",
			UserAgent:    "MTG-Collection/1.0",
		},
		Bulk: BulkConfig{
			Path: "",
			URL:  "",
			Type: "",
		},
		Import: ImportConfig{
			Concurrency: 8,
			WatchDir:    "",
		},
		Auth: AuthConfig{
			JWTSecret: "",
			DevUserID: "",
		},
	}
}

// configDir returns the application directory, creating it when missing.
func configDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".mtg-collection")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return dir, nil
}

// configPath returns the path to the configuration file.
func configPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultDatabasePath returns ~/.mtg-collection/data.db.
func DefaultDatabasePath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data.db"), nil
}

// Load loads the configuration from the default location, then applies
// .env and MTGC_* environment overrides.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from path. Returns the default config
// (plus environment overrides) if the file doesn't exist.
func LoadFrom(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// A missing .env file is not an error
	_ = godotenv.Load()
	config.applyEnv()

	return config, nil
}

// Save saves the configuration to the default location.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// applyEnv overrides file values with MTGC_* environment variables.
func (c *Config) applyEnv() {
	c.Server.Port = getEnvAsInt("MTGC_PORT", c.Server.Port)
	if origins := os.Getenv("MTGC_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	c.Database.Path = getEnv("MTGC_DB_PATH", c.Database.Path)
	c.Scryfall.BaseURL = getEnv("MTGC_SCRYFALL_URL", c.Scryfall.BaseURL)
	c.Scryfall.RateInterval = getEnv("MTGC_SCRYFALL_RATE", c.Scryfall.RateInterval)
	c.Bulk.Path = getEnv("MTGC_BULK_PATH", c.Bulk.Path)
	c.Bulk.URL = getEnv("MTGC_BULK_URL", c.Bulk.URL)
	c.Bulk.Type = getEnv("MTGC_BULK_TYPE", c.Bulk.Type)
	c.Import.Concurrency = getEnvAsInt("MTGC_IMPORT_CONCURRENCY", c.Import.Concurrency)
	c.Import.WatchDir = getEnv("MTGC_WATCH_DIR", c.Import.WatchDir)
	c.Auth.JWTSecret = getEnv("MTGC_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.DevUserID = getEnv("MTGC_DEV_USER", c.Auth.DevUserID)
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if _, err := time.ParseDuration(c.Scryfall.RateInterval); err != nil {
		return fmt.Errorf("invalid scryfall rate interval %q: %w", c.Scryfall.RateInterval, err)
	}

	if _, err := time.ParseDuration(c.Scryfall.Timeout); err != nil {
		return fmt.Errorf("invalid scryfall timeout %q: %w", c.Scryfall.Timeout, err)
	}

	if c.Scryfall.RetryMax < 0 {
		return fmt.Errorf("scryfall retry max cannot be negative: %d", c.Scryfall.RetryMax)
	}

	if c.Import.Concurrency < 1 {
		return fmt.Errorf("import concurrency must be at least 1: %d", c.Import.Concurrency)
	}

	return nil
}

// GetRateInterval returns the oracle call spacing as a duration.
func (c *Config) GetRateInterval() (time.Duration, error) {
	return time.ParseDuration(c.Scryfall.RateInterval)
}

// GetTimeout returns the oracle request timeout as a duration.
func (c *Config) GetTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Scryfall.Timeout)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
