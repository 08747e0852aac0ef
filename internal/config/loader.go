package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PORTALCHAT"

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
	dotenv     string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:      viper.New(),
		dotenv: ".env",
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// SetDotenvFile changes the .env file read before the environment is
// consulted. An empty path disables it.
func (l *Loader) SetDotenvFile(path string) {
	l.dotenv = path
}

// Load loads configuration with proper precedence:
// defaults < config file < .env < env vars < CLI flags (bound by the caller)
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := l.loadDotenv(); err != nil {
		return nil, err
	}

	l.setupViper(cfg)

	if err := l.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotenv exports .env entries without overriding variables already set.
func (l *Loader) loadDotenv() error {
	if l.dotenv == "" {
		return nil
	}
	if err := godotenv.Load(l.dotenv); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", l.dotenv, err)
	}
	return nil
}

func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func expandPaths(cfg *Config) {
	cfg.DataDir = expandTilde(cfg.DataDir)
	cfg.Store.SQLitePath = expandTilde(cfg.Store.SQLitePath)
	cfg.Logging.File = expandTilde(cfg.Logging.File)
}

func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "portalchat"))
	}
	if homeDir, _ := os.UserHomeDir(); homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "portalchat"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	l.setDefaults(cfg)

	// Unmarshal only sees env vars for nested keys that are explicitly bound.
	for _, key := range configKeys {
		_ = v.BindEnv(key, EnvVar(key))
	}

	v.AutomaticEnv()
}

// configKeys lists every key that accepts an environment override.
var configKeys = []string{
	"user.identity",
	"user.role",
	"store.backend",
	"store.base_url",
	"store.timeout",
	"store.rate_limit",
	"store.sqlite_path",
	"sync.poll_interval",
	"logging.level",
	"logging.format",
	"logging.file",
	"logging.enable_caller",
	"tui.theme",
	"tui.show_timestamps",
	"metrics.listen",
	"data_dir",
}

// EnvVar returns the environment variable bound to key:
// store.base_url -> PORTALCHAT_STORE_BASE_URL.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (l *Loader) setDefaults(cfg *Config) {
	v := l.v

	v.SetDefault("user.identity", cfg.User.Identity)
	v.SetDefault("user.role", cfg.User.Role)

	v.SetDefault("store.backend", cfg.Store.Backend)
	v.SetDefault("store.base_url", cfg.Store.BaseURL)
	v.SetDefault("store.timeout", cfg.Store.Timeout)
	v.SetDefault("store.rate_limit", cfg.Store.RateLimit)
	v.SetDefault("store.sqlite_path", cfg.Store.SQLitePath)

	v.SetDefault("sync.poll_interval", cfg.Sync.PollInterval)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.enable_caller", cfg.Logging.EnableCaller)

	v.SetDefault("tui.theme", cfg.TUI.Theme)
	v.SetDefault("tui.show_timestamps", cfg.TUI.ShowTimestamps)

	v.SetDefault("metrics.listen", cfg.Metrics.Listen)

	v.SetDefault("data_dir", cfg.DataDir)
}

func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && l.configFile == "" {
			return nil
		}
		return err
	}
	return nil
}

// ConfigFileUsed returns the config file that was loaded.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// BindFlag lets a command-line flag override key when it is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for %s", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Set overrides a key.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// AllSettings returns the merged settings tree.
func (l *Loader) AllSettings() map[string]any {
	return l.v.AllSettings()
}

// Viper returns the underlying Viper instance for advanced use.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}
