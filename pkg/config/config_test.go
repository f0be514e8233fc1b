package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, []string{"./plugins"}, cfg.Plugins.Dirs)
	assert.Equal(t, 5, cfg.Plugins.Retry)
	assert.False(t, cfg.Plugins.AlwaysEnable)
	assert.True(t, cfg.Plugins.Watch)
	assert.Equal(t, "sqlite3", cfg.Storage.Driver)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STOCKYARD_PORT", "9000")
	t.Setenv("STOCKYARD_PLUGIN_DIRS", "/opt/plugins, /var/plugins")
	t.Setenv("STOCKYARD_PLUGIN_RETRY", "3")
	t.Setenv("STOCKYARD_PLUGIN_ALWAYS_ENABLE", "true")
	t.Setenv("STOCKYARD_DB_DRIVER", "postgres")
	t.Setenv("STOCKYARD_DB_DSN", "postgres://localhost/stockyard")
	t.Setenv("STOCKYARD_READ_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, []string{"/opt/plugins", "/var/plugins"}, cfg.Plugins.Dirs)
	assert.Equal(t, 3, cfg.Plugins.Retry)
	assert.True(t, cfg.Plugins.AlwaysEnable)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("STOCKYARD_PLUGIN_RETRY", "many")
	t.Setenv("STOCKYARD_PLUGIN_WATCH", "kinda")
	t.Setenv("STOCKYARD_READ_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Plugins.Retry)
	assert.True(t, cfg.Plugins.Watch)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080", MetricsPort: "9090"},
			Plugins: PluginsConfig{
				Retry: 5,
			},
			Storage: StorageConfig{Driver: "sqlite3", DSN: "stockyard.db"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "same ports",
			mutate:  func(c *Config) { c.Server.MetricsPort = "8080" },
			wantErr: "must be different",
		},
		{
			name:    "unsupported driver",
			mutate:  func(c *Config) { c.Storage.Driver = "oracle" },
			wantErr: "unsupported database driver",
		},
		{
			name:    "empty DSN",
			mutate:  func(c *Config) { c.Storage.DSN = "" },
			wantErr: "DSN is required",
		},
		{
			name:    "non-positive retry",
			mutate:  func(c *Config) { c.Plugins.Retry = 0 },
			wantErr: "retry bound must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
