package host

import (
	"fmt"
	"sort"
	"sync"
)

// AdminSite holds the model registrations that back the host's admin surface.
// Registrations are keyed by "app.model".
type AdminSite struct {
	mu      sync.RWMutex
	entries map[string]AdminBinding
}

// NewAdminSite creates an empty admin site.
func NewAdminSite() *AdminSite {
	return &AdminSite{entries: make(map[string]AdminBinding)}
}

func adminKey(appName, model string) string {
	return appName + "." + model
}

// IsRegistered reports whether a model is registered with the admin site.
func (s *AdminSite) IsRegistered(appName, model string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[adminKey(appName, model)]
	return ok
}

// Register adds a model to the admin site.
func (s *AdminSite) Register(appName, model string, binding AdminBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := adminKey(appName, model)
	if _, ok := s.entries[key]; ok {
		return fmt.Errorf("model %s already registered with admin site", key)
	}
	s.entries[key] = binding
	return nil
}

// Unregister removes a model from the admin site.
func (s *AdminSite) Unregister(appName, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := adminKey(appName, model)
	if _, ok := s.entries[key]; !ok {
		return fmt.Errorf("model %s not registered with admin site", key)
	}
	delete(s.entries, key)
	return nil
}

// Registered returns the sorted "app.model" keys currently on the site.
func (s *AdminSite) Registered() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered models.
func (s *AdminSite) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
