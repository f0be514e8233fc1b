package plugin

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/stockyard-io/stockyard/pkg/host"
)

// SourceKind tells where a plugin candidate came from.
type SourceKind string

const (
	// SourceLocal marks a plugin discovered from a filesystem search path.
	SourceLocal SourceKind = "local"
	// SourcePackaged marks a plugin advertised through the package
	// entry-point index.
	SourcePackaged SourceKind = "packaged"
)

// Capability names an optional behavior a plugin may declare.
type Capability string

const (
	CapabilitySettings   Capability = "settings"
	CapabilityTasks      Capability = "tasks"
	CapabilityModules    Capability = "modules"
	CapabilityRoutes     Capability = "routes"
	CapabilityNavigation Capability = "navigation"
)

// Descriptor is the static, declarative description of a plugin. It is read
// without instantiating the plugin, so no plugin code runs before the
// activation decision is made.
type Descriptor struct {
	Name        string
	Slug        string
	Version     string
	Author      string
	Description string
	Source      SourceKind

	// Module is the identity used for error attribution: the manifest
	// directory for local plugins, the import path for packaged ones.
	Module string

	// Capabilities are the declared capability flags. Activation relies on
	// the capability interfaces of the built instance; the declared set is
	// for pre-activation decisions and listings only.
	Capabilities []Capability
}

// Key returns the normalized slug used as the plugin's persisted identity.
func (d Descriptor) Key() string {
	if d.Slug != "" {
		return Slugify(d.Slug)
	}
	return Slugify(d.Name)
}

// Declares reports whether the descriptor declares a capability.
func (d Descriptor) Declares(c Capability) bool {
	for _, dc := range d.Capabilities {
		if dc == c {
			return true
		}
	}
	return false
}

// Plugin is a live, instantiated extension object. Capabilities are expressed
// by additionally implementing the provider interfaces below.
type Plugin interface {
	Descriptor() Descriptor
}

// Builder is a discovered plugin candidate. Build runs plugin code and must
// only be called for plugins whose persisted config allows activation.
type Builder interface {
	Descriptor() Descriptor
	Build() (Plugin, error)
}

// SettingsProvider contributes setting definitions to the host settings index.
type SettingsProvider interface {
	Plugin
	Settings() []host.SettingDefinition
}

// TaskProvider declares named scheduled tasks registered with the host
// scheduler while the plugin is active.
type TaskProvider interface {
	Plugin
	Tasks() []TaskSpec
}

// ModuleProvider registers a host module and its exported bindings.
type ModuleProvider interface {
	Plugin
	ModulePath() string
	Bindings() host.ModuleBindings
}

// RouteProvider mounts routes under the plugin URL subtree.
type RouteProvider interface {
	Plugin
	MountRoutes(r *mux.Router)
}

// NavigationProvider contributes navigation links to the host.
type NavigationProvider interface {
	Plugin
	Navigation() []host.NavItem
}

// TaskSpec declares one scheduled task: a key unique within the plugin, a
// standard cron spec and the job to run.
type TaskSpec struct {
	Key  string
	Spec string
	Job  func()
}

// Validate checks the task declaration without scheduling it.
func (t TaskSpec) Validate() error {
	if t.Key == "" {
		return fmt.Errorf("task is missing a key")
	}
	if t.Job == nil {
		return fmt.Errorf("task %s is missing a job function", t.Key)
	}
	if _, err := cron.ParseStandard(t.Spec); err != nil {
		return fmt.Errorf("task %s has an invalid schedule %q: %w", t.Key, t.Spec, err)
	}
	return nil
}

// TaskNamespace prefixes every scheduler entry owned by the plugin system.
// Reconciliation removes entries under this prefix that no active plugin
// declares.
const TaskNamespace = "plugin."

// TaskName builds the unique scheduler name for a plugin task.
func TaskName(slug, key string) string {
	return TaskNamespace + slug + "." + key
}

// Slugify normalizes a plugin name into its persisted key: lowercase, runs of
// non-alphanumerics collapsed to single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
			continue
		}
		hyphen = true
	}
	return b.String()
}

// Factory creates a plugin instance from its descriptor. Manifest-discovered
// plugins bind to factories by entry name, the Go analog of a module-lookup
// mechanism: the code is compiled in, the manifest decides whether it loads.
type Factory func(Descriptor) (Plugin, error)

var (
	indexMu     sync.RWMutex
	entryPoints []Builder
	factories   = make(map[string]Factory)
)

// RegisterEntryPoint advertises a packaged plugin builder. Typically called
// from the plugin package's init function.
func RegisterEntryPoint(b Builder) error {
	if b == nil {
		return fmt.Errorf("cannot register nil builder")
	}
	key := b.Descriptor().Key()
	if key == "" {
		return fmt.Errorf("cannot register builder without a name")
	}

	indexMu.Lock()
	defer indexMu.Unlock()

	for _, existing := range entryPoints {
		if existing.Descriptor().Key() == key {
			return fmt.Errorf("entry point already registered: %s", key)
		}
	}
	entryPoints = append(entryPoints, b)
	return nil
}

// EntryPoints returns the registered packaged plugin builders.
func EntryPoints() []Builder {
	indexMu.RLock()
	defer indexMu.RUnlock()
	return append([]Builder(nil), entryPoints...)
}

// ClearEntryPoints drops every registered entry point. Test helper.
func ClearEntryPoints() {
	indexMu.Lock()
	defer indexMu.Unlock()
	entryPoints = nil
}

// RegisterFactory binds a manifest entry name to a plugin factory.
func RegisterFactory(entry string, f Factory) error {
	if entry == "" || f == nil {
		return fmt.Errorf("factory registration requires an entry name and a function")
	}

	indexMu.Lock()
	defer indexMu.Unlock()

	if _, ok := factories[entry]; ok {
		return fmt.Errorf("factory already registered: %s", entry)
	}
	factories[entry] = f
	return nil
}

// LookupFactory returns the factory registered under entry.
func LookupFactory(entry string) (Factory, bool) {
	indexMu.RLock()
	defer indexMu.RUnlock()
	f, ok := factories[entry]
	return f, ok
}

// ClearFactories drops every registered factory. Test helper.
func ClearFactories() {
	indexMu.Lock()
	defer indexMu.Unlock()
	factories = make(map[string]Factory)
}
