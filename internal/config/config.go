package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	BaseURL string        `toml:"base_url"`
	Strava  StravaConfig  `toml:"strava"`
	Storage StorageConfig `toml:"storage"`
	Server  ServerConfig  `toml:"server"`
	Trend   TrendConfig   `toml:"trend"`
	Log     LogConfig     `toml:"log"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
}

// StorageConfig holds data location and sync settings
type StorageConfig struct {
	DataDir       string `toml:"data_dir"`
	DownloadCount int    `toml:"download_count"`
	User          string `toml:"user"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr         string `toml:"addr"`
	SyncSchedule string `toml:"sync_schedule"` // cron spec, empty disables periodic sync
}

// TrendConfig holds trend classification settings
type TrendConfig struct {
	Window   int     `toml:"window"`
	SameBand float64 `toml:"same_band"`
	VeryBand float64 `toml:"very_band"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultBaseURL is the Strava API root
const DefaultBaseURL = "https://www.strava.com/api/v3"

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	dataDir := "data"
	if dir, err := GetConfigDir(); err == nil {
		dataDir = filepath.Join(dir, "data")
	}
	return Config{
		BaseURL: DefaultBaseURL,
		Storage: StorageConfig{
			DataDir:       dataDir,
			DownloadCount: 10,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			SyncSchedule: "@every 5m",
		},
		Trend: TrendConfig{
			Window:   10,
			SameBand: 0.02,
			VeryBand: 0.08,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the configuration from ~/.abcy/config.toml
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the configuration from path, fills defaults for missing
// values and applies environment overrides (including a .env file in the
// working directory).
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.ApplyEnv()
	return &cfg, nil
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() *Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return &cfg
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = defaults.BaseURL
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = defaults.Storage.DataDir
	}
	if c.Storage.DownloadCount == 0 {
		c.Storage.DownloadCount = defaults.Storage.DownloadCount
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Trend.Window == 0 {
		c.Trend.Window = defaults.Trend.Window
	}
	if c.Trend.SameBand == 0 {
		c.Trend.SameBand = defaults.Trend.SameBand
	}
	if c.Trend.VeryBand == 0 {
		c.Trend.VeryBand = defaults.Trend.VeryBand
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	c.Storage.DataDir = expandHome(c.Storage.DataDir)
}

// ApplyEnv overrides settings from the environment. A .env file in the
// working directory is loaded first; variables already set take precedence.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	setString(&c.Strava.ClientID, "STRAVA_CLIENT_ID")
	setString(&c.Strava.ClientSecret, "STRAVA_CLIENT_SECRET")
	setString(&c.Strava.RefreshToken, "STRAVA_REFRESH_TOKEN")
	setString(&c.BaseURL, "STRAVA_BASE_URL")
	setString(&c.Storage.DataDir, "ABCY_DATA_DIR")
	setString(&c.Server.Addr, "ABCY_ADDR")
	setString(&c.Log.Level, "ABCY_LOG_LEVEL")
	setString(&c.Log.Format, "ABCY_LOG_FORMAT")

	if v, err := strconv.Atoi(os.Getenv("ABCY_DOWNLOAD_COUNT")); err == nil {
		c.Storage.DownloadCount = v
	}
	c.Storage.DataDir = expandHome(c.Storage.DataDir)
}

// Save writes the configuration to ~/.abcy/config.toml
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(cfg, path)
}

// SaveFile writes the configuration to path
func SaveFile(cfg *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
		RefreshToken: "YOUR_REFRESH_TOKEN",
	}
	example.Storage.User = "me"

	return SaveFile(&example, path)
}

// Validate checks that settings are usable
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if c.Storage.DownloadCount < 1 {
		return fmt.Errorf("storage.download_count must be at least 1, got %d", c.Storage.DownloadCount)
	}
	if c.Trend.Window < 1 {
		return fmt.Errorf("trend.window must be at least 1, got %d", c.Trend.Window)
	}
	if c.Trend.SameBand <= 0 || c.Trend.VeryBand <= c.Trend.SameBand {
		return fmt.Errorf("trend bands must satisfy 0 < same_band (%v) < very_band (%v)", c.Trend.SameBand, c.Trend.VeryBand)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != "" && c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be \"console\" or \"json\", got %q", c.Log.Format)
	}

	return nil
}

// ValidateStrava checks that Strava credentials are present
func (c *Config) ValidateStrava() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".abcy"), nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
