// Package config loads ~/.newsroom/config.yaml and applies environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pevans/newsroom/feed"
	"gopkg.in/yaml.v3"
)

// APIConfig is where the client finds the news server.
type APIConfig struct {
	Host              string        `yaml:"host"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`

	// Token is only read from the environment; the profile holds the
	// signed-in token.
	Token string `yaml:"-"`
}

// ReaderConfig holds the reader thresholds, in terminal lines.
type ReaderConfig struct {
	Debounce         time.Duration `yaml:"debounce"`
	ReadBoundary     int           `yaml:"read_boundary"`
	LookAhead        int           `yaml:"look_ahead"`
	NextBoundary     int           `yaml:"next_boundary"`
	PreviousBoundary int           `yaml:"previous_boundary"`
	OpenBoundary     int           `yaml:"open_boundary"`
	PageSize         int           `yaml:"page_size"`
	RetryAttempts    uint          `yaml:"retry_attempts"`
}

// LogConfig selects where and how much to log.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// ServerConfig configures newsroomd.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	DSN      string `yaml:"dsn"`
	PageSize int    `yaml:"page_size"`
}

// Config represents the structure of ~/.newsroom/config.yaml.
type Config struct {
	API    APIConfig    `yaml:"api"`
	Reader ReaderConfig `yaml:"reader"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// Default returns the configuration used when no file is present. Reader
// positions are measured in lines from the top of the list: the item at the
// top is the current one.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Host:              "http://localhost:8080",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
		},
		Reader: ReaderConfig{
			Debounce:         time.Second,
			ReadBoundary:     1,
			LookAhead:        12,
			NextBoundary:     0,
			PreviousBoundary: 0,
			OpenBoundary:     -1,
			PageSize:         30,
			RetryAttempts:    4,
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:     ":8080",
			DSN:      "newsroom.db",
			PageSize: 30,
		},
	}
}

// Dir returns ~/.newsroom.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".newsroom"), nil
}

// DefaultPath returns the config file path, honoring NEWSROOM_CONFIG.
func DefaultPath() (string, error) {
	if path := os.Getenv("NEWSROOM_CONFIG"); path != "" {
		return path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file at path over the defaults, then applies
// environment overrides and validates the result. A missing file is not an
// error. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// File doesn't exist -- not an error
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file settings with NEWSROOM_* environment variables.
func (c *Config) applyEnv() error {
	c.API.Host = getEnv("NEWSROOM_API_HOST", c.API.Host)
	c.API.Token = getEnv("NEWSROOM_TOKEN", c.API.Token)
	c.Log.Level = getEnv("NEWSROOM_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("NEWSROOM_LOG_FILE", c.Log.File)
	c.Server.Addr = getEnv("NEWSROOM_SERVER_ADDR", c.Server.Addr)
	c.Server.DSN = getEnv("NEWSROOM_SERVER_DSN", c.Server.DSN)

	if v := os.Getenv("NEWSROOM_PAGE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NEWSROOM_PAGE_SIZE: %w", err)
		}
		c.Reader.PageSize = size
		c.Server.PageSize = size
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate rejects settings the client or server cannot run with.
func (c *Config) Validate() error {
	if c.API.Host == "" {
		return errors.New("invalid api.host: must not be empty")
	}
	if c.API.Timeout <= 0 {
		return errors.New("invalid api.timeout: must be positive")
	}
	if c.API.RequestsPerSecond < 0 {
		return errors.New("invalid api.requests_per_second: must not be negative")
	}
	if c.Reader.Debounce <= 0 {
		return errors.New("invalid reader.debounce: must be positive")
	}
	if c.Reader.LookAhead <= 0 {
		return errors.New("invalid reader.look_ahead: must be positive")
	}
	if c.Reader.PageSize <= 0 {
		return errors.New("invalid reader.page_size: must be positive")
	}
	if c.Server.PageSize <= 0 {
		return errors.New("invalid server.page_size: must be positive")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	return nil
}

// ReaderOptions converts the reader section into feed options.
func (c *Config) ReaderOptions() feed.Options {
	opts := feed.DefaultOptions()
	opts.ReadBoundary = c.Reader.ReadBoundary
	opts.LookAhead = c.Reader.LookAhead
	opts.NextBoundary = c.Reader.NextBoundary
	opts.PreviousBoundary = c.Reader.PreviousBoundary
	opts.OpenBoundary = c.Reader.OpenBoundary
	opts.Debounce = c.Reader.Debounce
	opts.PageSize = c.Reader.PageSize
	if c.Reader.RetryAttempts > 0 {
		opts.Retry.MaxTries = c.Reader.RetryAttempts
	}
	return opts
}
