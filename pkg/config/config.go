package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Plugins PluginsConfig
	Storage StorageConfig
	Metrics MetricsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Metrics/health server (separate port for probes)
	MetricsPort string
}

// PluginsConfig holds plugin registry configuration.
type PluginsConfig struct {
	// Dirs are the filesystem search roots scanned for plugin manifests.
	Dirs []string

	// Retry bounds the quarantine retry loop of a single load sequence.
	Retry int

	// AlwaysEnable activates every discovered plugin regardless of persisted
	// state. Test mode only.
	AlwaysEnable bool

	// Bootstrap lets loading proceed with in-memory config records when the
	// config store is not provisioned yet.
	Bootstrap bool

	// Watch reloads plugins when a search directory changes on disk.
	Watch bool
}

// StorageConfig holds config store and cache configuration.
type StorageConfig struct {
	// Driver is "sqlite3" or "postgres".
	Driver string
	DSN    string

	// RedisURL enables the host settings cache when non-empty.
	RedisURL string
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool
}

// LogLevel is the configured logrus level name.
func LogLevel() string {
	return getEnv("STOCKYARD_LOG_LEVEL", "info")
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("STOCKYARD_HOST", "0.0.0.0"),
			Port:            getEnv("STOCKYARD_PORT", "8080"),
			ReadTimeout:     getEnvDuration("STOCKYARD_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("STOCKYARD_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("STOCKYARD_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("STOCKYARD_SHUTDOWN_TIMEOUT", 30*time.Second),
			MetricsPort:     getEnv("STOCKYARD_METRICS_PORT", "9090"),
		},
		Plugins: PluginsConfig{
			Dirs:         getEnvList("STOCKYARD_PLUGIN_DIRS", []string{"./plugins"}),
			Retry:        getEnvInt("STOCKYARD_PLUGIN_RETRY", 5),
			AlwaysEnable: getEnvBool("STOCKYARD_PLUGIN_ALWAYS_ENABLE", false),
			Bootstrap:    getEnvBool("STOCKYARD_PLUGIN_BOOTSTRAP", false),
			Watch:        getEnvBool("STOCKYARD_PLUGIN_WATCH", true),
		},
		Storage: StorageConfig{
			Driver:   getEnv("STOCKYARD_DB_DRIVER", "sqlite3"),
			DSN:      getEnv("STOCKYARD_DB_DSN", "stockyard.db"),
			RedisURL: getEnv("STOCKYARD_REDIS_URL", ""),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("STOCKYARD_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.MetricsPort == "" {
		return fmt.Errorf("metrics port is required")
	}
	if c.Server.Port == c.Server.MetricsPort {
		return fmt.Errorf("server port and metrics port must be different")
	}

	switch c.Storage.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	if c.Plugins.Retry <= 0 {
		return fmt.Errorf("plugin retry bound must be positive")
	}
	return nil
}

// getEnv returns an environment variable or the default.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or the default.
func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvBool returns a boolean environment variable or the default.
func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvDuration returns a duration environment variable or the default.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvList returns a comma-separated environment variable or the default.
func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
