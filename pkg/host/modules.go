package host

import (
	"fmt"
	"path"
	"sort"
	"sync"
)

// ModelBinding describes a single model exported by a module.
type ModelBinding struct {
	Name   string
	Fields []string
}

// AdminBinding describes how a model is presented on the admin site.
type AdminBinding struct {
	Model      string
	ListFields []string
}

// ModuleBindings is the full exported binding set of one module.
type ModuleBindings struct {
	Models []ModelBinding
	Admin  []AdminBinding
}

// BindingsFactory constructs the exported binding set for a module. The
// factory is the module's source of truth: rebuilding a module means
// discarding its current bindings and invoking the factory again.
type BindingsFactory func() ModuleBindings

// ModuleConfig is the populated runtime configuration of one installed module.
type ModuleConfig struct {
	Path string
	Name string

	mu      sync.RWMutex
	factory BindingsFactory
	models  map[string]ModelBinding
	admin   []AdminBinding
}

func newModuleConfig(modulePath string, factory BindingsFactory) *ModuleConfig {
	c := &ModuleConfig{
		Path:    modulePath,
		Name:    AppName(modulePath),
		factory: factory,
		models:  make(map[string]ModelBinding),
	}
	c.rebuild()
	return c
}

func (c *ModuleConfig) rebuild() {
	if c.factory == nil {
		return
	}
	bindings := c.factory()
	c.models = make(map[string]ModelBinding, len(bindings.Models))
	for _, m := range bindings.Models {
		c.models[m.Name] = m
	}
	c.admin = append([]AdminBinding(nil), bindings.Admin...)
}

// HasSource reports whether the module's defining factory is still present,
// i.e. whether the binding set can be reconstructed without re-discovery.
func (c *ModuleConfig) HasSource() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.factory != nil
}

// Models returns the module's current model bindings, sorted by name.
func (c *ModuleConfig) Models() []ModelBinding {
	c.mu.RLock()
	defer c.mu.RUnlock()

	models := make([]ModelBinding, 0, len(c.models))
	for _, m := range c.models {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models
}

// ModelCount returns the number of models currently bound.
func (c *ModuleConfig) ModelCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}

// RemoveModel drops a single model from the binding set.
func (c *ModuleConfig) RemoveModel(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.models, name)
}

// RebuildModels reconstructs the model bindings from the module's factory.
// Used when the model registry was emptied by a previous unload while the
// defining factory is still present.
func (c *ModuleConfig) RebuildModels() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebuild()
}

// HasAdmin reports whether the module declares an admin surface.
func (c *ModuleConfig) HasAdmin() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.admin) > 0
}

// AdminBindings returns the module's admin descriptors.
func (c *ModuleConfig) AdminBindings() []AdminBinding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]AdminBinding(nil), c.admin...)
}

// ModuleRegistry tracks the host's installed modules and their populated
// configurations. It replaces in-place module mutation with wholesale
// reconstruction: Populate discards nothing silently, and ClearPopulated
// plus Populate is the canonical "full reload".
type ModuleRegistry struct {
	mu        sync.RWMutex
	factories map[string]BindingsFactory
	configs   map[string]*ModuleConfig
	installed []string
	populated bool
}

// NewModuleRegistry creates a module registry seeded with the host's base
// module paths. Factories for base modules are registered separately.
func NewModuleRegistry(base ...string) *ModuleRegistry {
	return &ModuleRegistry{
		factories: make(map[string]BindingsFactory),
		configs:   make(map[string]*ModuleConfig),
		installed: append([]string(nil), base...),
	}
}

// AppName derives the short application name from a module path.
func AppName(modulePath string) string {
	return path.Base(modulePath)
}

// RegisterFactory binds a module path to its bindings factory. Registering an
// already-known path replaces the factory; the next population picks it up.
func (r *ModuleRegistry) RegisterFactory(modulePath string, factory BindingsFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[modulePath] = factory
}

// Installed returns the ordered installed module paths.
func (r *ModuleRegistry) Installed() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.installed...)
}

// AddInstalled appends a module path to the installed list. It reports whether
// the list changed.
func (r *ModuleRegistry) AddInstalled(modulePath string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.installed {
		if p == modulePath {
			return false
		}
	}
	r.installed = append(r.installed, modulePath)
	return true
}

// RemoveInstalled drops a module path from the installed list.
func (r *ModuleRegistry) RemoveInstalled(modulePath string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.installed {
		if p == modulePath {
			r.installed = append(r.installed[:i], r.installed[i+1:]...)
			return
		}
	}
}

// IsPopulated reports whether a full population has completed since the last
// ClearPopulated call.
func (r *ModuleRegistry) IsPopulated() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.populated
}

// ClearPopulated drops every populated module configuration and resets the
// populated marker. The installed list and registered factories survive, so a
// subsequent Populate rebuilds everything from scratch.
func (r *ModuleRegistry) ClearPopulated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = make(map[string]*ModuleConfig)
	r.populated = false
}

// Populate builds a configuration for every installed module and marks the
// registry populated. Modules without a registered factory are an error: the
// module-lookup mechanism no longer knows them.
func (r *ModuleRegistry) Populate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, modulePath := range r.installed {
		factory, ok := r.factories[modulePath]
		if !ok {
			return fmt.Errorf("module %s has no registered bindings factory", modulePath)
		}
		r.configs[AppName(modulePath)] = newModuleConfig(modulePath, factory)
	}
	r.populated = true
	return nil
}

// Install populates configurations for any installed modules that do not have
// one yet. Cheaper than a full Populate when only additions happened.
func (r *ModuleRegistry) Install() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, modulePath := range r.installed {
		name := AppName(modulePath)
		if _, ok := r.configs[name]; ok {
			continue
		}
		factory, ok := r.factories[modulePath]
		if !ok {
			return fmt.Errorf("module %s has no registered bindings factory", modulePath)
		}
		r.configs[name] = newModuleConfig(modulePath, factory)
	}
	return nil
}

// Get returns the populated configuration for an app name.
func (r *ModuleRegistry) Get(appName string) (*ModuleConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[appName]
	return cfg, ok
}

// DropConfig drops a module's populated configuration while keeping its
// registered factory, so the same module can be populated again without
// re-discovery.
func (r *ModuleRegistry) DropConfig(modulePath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.configs, AppName(modulePath))
}

// Remove drops a module's populated configuration and its factory so the
// module is forgotten entirely.
func (r *ModuleRegistry) Remove(modulePath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.configs, AppName(modulePath))
	delete(r.factories, modulePath)
}

// Configured returns the app names that currently have a populated
// configuration, sorted for deterministic iteration.
func (r *ModuleRegistry) Configured() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
