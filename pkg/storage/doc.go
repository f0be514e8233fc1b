// Package storage provides the persistence layer for plugin configuration.
//
// # Overview
//
// The plugin registry treats this package as the single source of truth for a
// plugin's enabled/disabled state across restarts. Two backends are provided:
//
//   - SQLStore: database/sql backed, supporting the sqlite3 and postgres
//     drivers. Used in production.
//   - MemoryStore: in-memory only, used in bootstrap and test modes where the
//     database is not yet provisioned.
//
// # Interface
//
//	type ConfigStore interface {
//		GetOrCreatePlugin(ctx, key, name) (*PluginConfig, bool, error)
//		SavePlugin(ctx, cfg) error
//		ListPlugins(ctx) ([]*PluginConfig, error)
//		GetSetting(ctx, scope, key) (string, bool, error)
//		SetSetting(ctx, scope, key, value) error
//		HealthCheck(ctx) error
//	}
//
// The settings key/value surface backs both host-level flags (scope "host")
// and per-plugin settings (scope = plugin slug).
package storage
