// Package config handles portalchat configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store backends.
const (
	BackendHTTP   = "http"
	BackendSQLite = "sqlite"
)

// MinPollInterval is the smallest accepted sync.poll_interval.
const MinPollInterval = 100 * time.Millisecond

// Config is the root configuration structure for portalchat.
type Config struct {
	// User identifies the local participant.
	User UserConfig `yaml:"user" mapstructure:"user"`

	// Store selects and configures the message store.
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// Sync controls the polling scheduler.
	Sync SyncConfig `yaml:"sync" mapstructure:"sync"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`

	// Metrics exposes prometheus counters when Listen is set.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// DataDir holds the sqlite database, session file and logs.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
}

// UserConfig identifies the local participant.
type UserConfig struct {
	// Identity is the local user's identifier, as the backend knows it.
	Identity string `yaml:"identity" mapstructure:"identity"`

	// Role is sent with list requests (academician, student).
	Role string `yaml:"role" mapstructure:"role"`
}

// StoreConfig configures the message store.
type StoreConfig struct {
	// Backend is http or sqlite.
	Backend string `yaml:"backend" mapstructure:"backend"`

	// BaseURL is the portal backend root for the http backend.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds each backend request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// RateLimit caps http requests per second. Zero means unlimited.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// SyncConfig controls the polling scheduler.
type SyncConfig struct {
	// PollInterval is the delay between scheduled fetches.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// Theme is the color theme (default, dark, light).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowTimestamps shows HH:MM labels next to messages.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address for /metrics, e.g. ":9464". Empty disables it.
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		User: UserConfig{
			Role: "academician",
		},
		Store: StoreConfig{
			Backend: BackendHTTP,
			BaseURL: "http://127.0.0.1:8000",
			Timeout: 10 * time.Second,
		},
		Sync: SyncConfig{
			PollInterval: 3 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		TUI: TUIConfig{
			Theme:          "default",
			ShowTimestamps: true,
		},
		DataDir: filepath.Join(homeDir, ".local", "share", "portalchat"),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendHTTP:
		u, err := url.Parse(c.Store.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("store.base_url must be an http(s) url, got %q", c.Store.BaseURL)
		}
	case BackendSQLite:
	default:
		return fmt.Errorf("store.backend must be one of http, sqlite")
	}

	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be positive")
	}

	if c.Store.RateLimit < 0 {
		return fmt.Errorf("store.rate_limit must not be negative")
	}

	if c.Sync.PollInterval < MinPollInterval {
		return fmt.Errorf("sync.poll_interval must be at least %s", MinPollInterval)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}

	switch c.TUI.Theme {
	case "default", "dark", "light":
	default:
		return fmt.Errorf("tui.theme must be one of default, dark, light")
	}

	return nil
}

// RequireIdentity reports a missing local identity. Commands that talk to a
// store call it; config inspection does not.
func (c *Config) RequireIdentity() error {
	if strings.TrimSpace(c.User.Identity) == "" {
		return fmt.Errorf("user.identity is required (set PORTALCHAT_USER_IDENTITY or --user)")
	}
	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.DataDir, err)
	}
	return nil
}

// DatabasePath returns the full sqlite database path.
func (c *Config) DatabasePath() string {
	if c.Store.SQLitePath != "" {
		return c.Store.SQLitePath
	}
	return filepath.Join(c.DataDir, "messages.db")
}

// SessionPath returns the path of the persisted session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.yaml")
}
