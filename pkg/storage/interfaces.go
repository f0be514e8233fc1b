package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the configuration store is not provisioned yet
// (missing schema, unreachable database). The registry treats this as fatal
// outside of bootstrap mode.
var ErrUnavailable = errors.New("configuration store unavailable")

// PluginConfig is the persisted activation record for one plugin, keyed by
// its slug. It is created on first discovery and mutated when an admin
// toggles activation or the registry quarantines a failing plugin. The
// registry never deletes it.
type PluginConfig struct {
	ID        int64
	Key       string
	Name      string
	Active    bool
	UpdatedAt time.Time
}

// ConfigStore persists plugin activation state and scoped settings.
type ConfigStore interface {
	// GetOrCreatePlugin returns the config for key, creating an active one if
	// none exists. The second return reports whether a record was created.
	GetOrCreatePlugin(ctx context.Context, key, name string) (*PluginConfig, bool, error)

	// SavePlugin persists changes to an existing config.
	SavePlugin(ctx context.Context, cfg *PluginConfig) error

	// ListPlugins returns every known plugin config.
	ListPlugins(ctx context.Context) ([]*PluginConfig, error)

	// GetSetting returns a scoped setting value and whether it was present.
	GetSetting(ctx context.Context, scope, key string) (string, bool, error)

	// SetSetting writes a scoped setting value.
	SetSetting(ctx context.Context, scope, key, value string) error

	// HealthCheck verifies the store is reachable and provisioned.
	HealthCheck(ctx context.Context) error
}
