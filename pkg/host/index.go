package host

import (
	"sort"
	"sync"
)

// SettingDefinition describes one configurable setting contributed by a
// plugin.
type SettingDefinition struct {
	Key         string
	Name        string
	Description string
	Default     string
}

// NavItem is a navigation link contributed by a plugin.
type NavItem struct {
	Name string
	Link string
	Icon string
}

// SettingsIndex is the process-wide index of plugin-contributed setting
// definitions, keyed by plugin slug.
type SettingsIndex struct {
	mu   sync.RWMutex
	defs map[string][]SettingDefinition
}

// NewSettingsIndex creates an empty settings index.
func NewSettingsIndex() *SettingsIndex {
	return &SettingsIndex{defs: make(map[string][]SettingDefinition)}
}

// Contribute records a plugin's setting definitions, replacing any previous
// contribution under the same slug.
func (i *SettingsIndex) Contribute(slug string, defs []SettingDefinition) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.defs[slug] = append([]SettingDefinition(nil), defs...)
}

// Drop removes one plugin's contribution and nothing else.
func (i *SettingsIndex) Drop(slug string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.defs, slug)
}

// Get returns the definitions contributed by a plugin.
func (i *SettingsIndex) Get(slug string) ([]SettingDefinition, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	defs, ok := i.defs[slug]
	return defs, ok
}

// Slugs returns the sorted plugin slugs with contributions.
func (i *SettingsIndex) Slugs() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	slugs := make([]string, 0, len(i.defs))
	for slug := range i.defs {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Clear drops every contribution.
func (i *SettingsIndex) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.defs = make(map[string][]SettingDefinition)
}

// NavIndex is the process-wide index of plugin-contributed navigation links,
// keyed by plugin slug.
type NavIndex struct {
	mu    sync.RWMutex
	items map[string][]NavItem
}

// NewNavIndex creates an empty navigation index.
func NewNavIndex() *NavIndex {
	return &NavIndex{items: make(map[string][]NavItem)}
}

// Contribute records a plugin's navigation links.
func (i *NavIndex) Contribute(slug string, items []NavItem) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items[slug] = append([]NavItem(nil), items...)
}

// Drop removes one plugin's links.
func (i *NavIndex) Drop(slug string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.items, slug)
}

// Get returns the links contributed by a plugin.
func (i *NavIndex) Get(slug string) ([]NavItem, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	items, ok := i.items[slug]
	return items, ok
}

// All returns every link ordered by contributing slug.
func (i *NavIndex) All() []NavItem {
	i.mu.RLock()
	defer i.mu.RUnlock()

	slugs := make([]string, 0, len(i.items))
	for slug := range i.items {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var all []NavItem
	for _, slug := range slugs {
		all = append(all, i.items[slug]...)
	}
	return all
}

// Clear drops every contribution.
func (i *NavIndex) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items = make(map[string][]NavItem)
}
