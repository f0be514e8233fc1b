package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory ConfigStore for bootstrap and test modes where
// no database is provisioned. State does not survive a restart, so quarantine
// decisions made against it are per-process only.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	plugins  map[string]*PluginConfig
	settings map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   1,
		plugins:  make(map[string]*PluginConfig),
		settings: make(map[string]string),
	}
}

func settingKey(scope, key string) string {
	return scope + "\x00" + key
}

// GetOrCreatePlugin returns the config for key, creating an active one if
// missing.
func (s *MemoryStore) GetOrCreatePlugin(_ context.Context, key, name string) (*PluginConfig, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, ok := s.plugins[key]; ok {
		out := *cfg
		return &out, false, nil
	}

	cfg := &PluginConfig{
		ID:        s.nextID,
		Key:       key,
		Name:      name,
		Active:    true,
		UpdatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.plugins[key] = cfg

	out := *cfg
	return &out, true, nil
}

// SavePlugin persists changes to an existing config.
func (s *MemoryStore) SavePlugin(_ context.Context, cfg *PluginConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *cfg
	stored.UpdatedAt = time.Now().UTC()
	s.plugins[cfg.Key] = &stored
	return nil
}

// ListPlugins returns every known config ordered by key.
func (s *MemoryStore) ListPlugins(_ context.Context) ([]*PluginConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := make([]*PluginConfig, 0, len(s.plugins))
	for _, cfg := range s.plugins {
		out := *cfg
		configs = append(configs, &out)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Key < configs[j].Key })
	return configs, nil
}

// GetSetting returns a scoped setting value.
func (s *MemoryStore) GetSetting(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.settings[settingKey(scope, key)]
	return value, ok, nil
}

// SetSetting writes a scoped setting value.
func (s *MemoryStore) SetSetting(_ context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[settingKey(scope, key)] = value
	return nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}
