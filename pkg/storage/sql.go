package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DriverSQLite selects the mattn/go-sqlite3 driver.
	DriverSQLite = "sqlite3"
	// DriverPostgres selects the lib/pq driver.
	DriverPostgres = "postgres"
)

// SQLStore is a ConfigStore backed by database/sql.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore opens a config store on the given driver and DSN and bootstraps
// the schema.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	store := &SQLStore{db: db, driver: driver}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStoreWithDB wraps an existing database handle without running
// migrations. Used by tests with sqlmock.
func NewSQLStoreWithDB(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) migrate(ctx context.Context) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS plugin_configs (
			id %s,
			key TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMP NOT NULL
		)`, serial),
		`CREATE TABLE IF NOT EXISTS scoped_settings (
			scope TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (scope, key)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migration failed: %v", ErrUnavailable, err)
		}
	}
	return nil
}

// rebind converts ? placeholders to the $N form used by the postgres driver.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GetOrCreatePlugin returns the persisted config for key, creating a new
// active record when none exists.
func (s *SQLStore) GetOrCreatePlugin(ctx context.Context, key, name string) (*PluginConfig, bool, error) {
	cfg := &PluginConfig{}
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, key, name, active, updated_at FROM plugin_configs WHERE key = ?`), key)

	err := row.Scan(&cfg.ID, &cfg.Key, &cfg.Name, &cfg.Active, &cfg.UpdatedAt)
	switch {
	case err == nil:
		return cfg, false, nil
	case err != sql.ErrNoRows:
		return nil, false, fmt.Errorf("%w: query plugin config %s: %v", ErrUnavailable, key, err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO plugin_configs (key, name, active, updated_at) VALUES (?, ?, ?, ?)`),
		key, name, true, now)
	if err != nil {
		return nil, false, fmt.Errorf("%w: create plugin config %s: %v", ErrUnavailable, key, err)
	}

	cfg = &PluginConfig{Key: key, Name: name, Active: true, UpdatedAt: now}
	if id, err := res.LastInsertId(); err == nil {
		cfg.ID = id
	}
	return cfg, true, nil
}

// SavePlugin persists changes to an existing plugin config.
func (s *SQLStore) SavePlugin(ctx context.Context, cfg *PluginConfig) error {
	cfg.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE plugin_configs SET name = ?, active = ?, updated_at = ? WHERE key = ?`),
		cfg.Name, cfg.Active, cfg.UpdatedAt, cfg.Key)
	if err != nil {
		return fmt.Errorf("%w: save plugin config %s: %v", ErrUnavailable, cfg.Key, err)
	}
	return nil
}

// ListPlugins returns every known plugin config ordered by key.
func (s *SQLStore) ListPlugins(ctx context.Context) ([]*PluginConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, name, active, updated_at FROM plugin_configs ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("%w: list plugin configs: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var configs []*PluginConfig
	for rows.Next() {
		cfg := &PluginConfig{}
		if err := rows.Scan(&cfg.ID, &cfg.Key, &cfg.Name, &cfg.Active, &cfg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan plugin config: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// GetSetting returns a scoped setting value.
func (s *SQLStore) GetSetting(ctx context.Context, scope, key string) (string, bool, error) {
	var value string
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT value FROM scoped_settings WHERE scope = ? AND key = ?`), scope, key)

	err := row.Scan(&value)
	switch {
	case err == sql.ErrNoRows:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("%w: query setting %s/%s: %v", ErrUnavailable, scope, key, err)
	}
	return value, true, nil
}

// SetSetting writes a scoped setting value, replacing any previous value.
func (s *SQLStore) SetSetting(ctx context.Context, scope, key, value string) error {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE scoped_settings SET value = ?, updated_at = ? WHERE scope = ? AND key = ?`),
		value, now, scope, key)
	if err != nil {
		return fmt.Errorf("%w: update setting %s/%s: %v", ErrUnavailable, scope, key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO scoped_settings (scope, key, value, updated_at) VALUES (?, ?, ?, ?)`),
		scope, key, value, now)
	if err != nil {
		return fmt.Errorf("%w: insert setting %s/%s: %v", ErrUnavailable, scope, key, err)
	}
	return nil
}

// HealthCheck verifies the database is reachable.
func (s *SQLStore) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}
