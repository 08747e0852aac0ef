package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the loader away from the developer's real config and .env.
func isolate(t *testing.T) *Loader {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	for _, key := range configKeys {
		t.Setenv(EnvVar(key), "")
		os.Unsetenv(EnvVar(key))
	}
	loader := NewLoader()
	loader.SetDotenvFile("")
	return loader
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, BackendHTTP, cfg.Store.Backend)
	assert.Equal(t, "academician", cfg.User.Role)
	assert.Error(t, cfg.RequireIdentity())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"poll too fast", func(c *Config) { c.Sync.PollInterval = 50 * time.Millisecond }, "sync.poll_interval"},
		{"bad backend", func(c *Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"bad url", func(c *Config) { c.Store.BaseURL = "ftp://portal" }, "store.base_url"},
		{"missing host", func(c *Config) { c.Store.BaseURL = "http://" }, "store.base_url"},
		{"zero timeout", func(c *Config) { c.Store.Timeout = 0 }, "store.timeout"},
		{"negative rate limit", func(c *Config) { c.Store.RateLimit = -1 }, "store.rate_limit"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad theme", func(c *Config) { c.TUI.Theme = "neon" }, "tui.theme"},
		{"sqlite ignores url", func(c *Config) { c.Store.Backend = BackendSQLite; c.Store.BaseURL = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/portalchat"
	assert.Equal(t, "/var/lib/portalchat/messages.db", cfg.DatabasePath())
	assert.Equal(t, "/var/lib/portalchat/session.yaml", cfg.SessionPath())

	cfg.Store.SQLitePath = "/tmp/chat.db"
	assert.Equal(t, "/tmp/chat.db", cfg.DatabasePath())
}

func TestLoaderDefaults(t *testing.T) {
	cfg, err := isolate(t).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Store, cfg.Store)
	assert.Equal(t, 3*time.Second, cfg.Sync.PollInterval)
}

func TestLoaderPrecedence(t *testing.T) {
	loader := isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
user:
  identity: ayse
store:
  base_url: https://portal.example.com
  timeout: 4s
sync:
  poll_interval: 5s
`), 0o644))
	loader.SetConfigFile(path)

	t.Setenv("PORTALCHAT_SYNC_POLL_INTERVAL", "750ms")
	loader.Set("user.identity", "mehmet")

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "mehmet", cfg.User.Identity, "flag overrides file")
	assert.Equal(t, 750*time.Millisecond, cfg.Sync.PollInterval, "env overrides file")
	assert.Equal(t, "https://portal.example.com", cfg.Store.BaseURL)
	assert.Equal(t, 4*time.Second, cfg.Store.Timeout)
	assert.Equal(t, path, loader.ConfigFileUsed())
}

func TestLoaderDotenv(t *testing.T) {
	loader := isolate(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORTALCHAT_USER_IDENTITY=zeynep\nPORTALCHAT_STORE_BACKEND=sqlite\n"), 0o644))
	loader.SetDotenvFile(envFile)
	t.Cleanup(func() {
		os.Unsetenv("PORTALCHAT_USER_IDENTITY")
		os.Unsetenv("PORTALCHAT_STORE_BACKEND")
	})

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "zeynep", cfg.User.Identity)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
}

func TestLoaderMissingExplicitFile(t *testing.T) {
	loader := isolate(t)
	loader.SetConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := loader.Load()
	require.Error(t, err)
}

func TestLoaderRejectsInvalid(t *testing.T) {
	loader := isolate(t)
	t.Setenv("PORTALCHAT_SYNC_POLL_INTERVAL", "10ms")
	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.poll_interval")
}

func TestExpandTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, "chat.db"), expandTilde("~/chat.db"))
	assert.Equal(t, home, expandTilde("~"))
	assert.Equal(t, "/abs", expandTilde("/abs"))
	assert.Empty(t, expandTilde(""))
}

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "PORTALCHAT_STORE_BASE_URL", EnvVar("store.base_url"))
	assert.Equal(t, "PORTALCHAT_DATA_DIR", EnvVar("data_dir"))
}
