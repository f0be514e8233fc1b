package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/stockyard-io/stockyard/pkg/host"
)

// Route table entry names replaced by the registry. At most these two entries
// are touched; the rest of the host's route list is never modified.
const (
	RouteEntryAdmin  = "admin"
	RouteEntryPlugin = "plugin"
)

// activatePlugins runs every capability activation once across all active
// instances. A failing plugin is reported as an ActivationError and never
// blocks activation of independent plugins in the same pass.
func (r *Registry) activatePlugins(ctx context.Context, forceReload bool) []*ActivationError {
	r.log.Infof("Activating %d plugins", len(r.active))

	var failures []*ActivationError
	failures = append(failures, r.activateSettings()...)
	failures = append(failures, r.activateNavigation()...)
	failures = append(failures, r.activateSchedule(ctx)...)
	failures = append(failures, r.activateModules(ctx, forceReload)...)
	r.activateURLs(ctx)
	return failures
}

// deactivatePlugins reverses every capability in reverse dependency order:
// URLs first so no traffic reaches modules about to disappear, then module
// deregistration, then scheduled tasks, then settings and navigation.
func (r *Registry) deactivatePlugins(ctx context.Context) {
	r.deactivateURLs()
	r.deactivateModules()
	r.deactivateSchedule()
	r.deactivateSettings()
	r.deactivateNavigation()
}

// region settings

func (r *Registry) activateSettings() []*ActivationError {
	r.log.Info("Activating plugin settings")
	r.hosts.SettingsIndex.Clear()

	var failures []*ActivationError
	for _, slug := range r.activeSlugs() {
		provider, ok := r.active[slug].(SettingsProvider)
		if !ok {
			continue
		}

		var defs []host.SettingDefinition
		err := capture(func() error {
			defs = provider.Settings()
			return nil
		})
		if err != nil {
			failures = append(failures, r.contain(slug, "settings", err))
			continue
		}
		r.hosts.SettingsIndex.Contribute(slug, defs)
	}
	return failures
}

func (r *Registry) deactivateSettings() {
	r.hosts.SettingsIndex.Clear()
}

// endregion

// region navigation

func (r *Registry) activateNavigation() []*ActivationError {
	var failures []*ActivationError
	for _, slug := range r.activeSlugs() {
		provider, ok := r.active[slug].(NavigationProvider)
		if !ok {
			continue
		}

		var items []host.NavItem
		err := capture(func() error {
			items = provider.Navigation()
			for _, item := range items {
				if item.Name == "" || item.Link == "" {
					return fmt.Errorf("navigation link requires name and link, got %+v", item)
				}
			}
			return nil
		})
		if err != nil {
			failures = append(failures, r.contain(slug, "navigation", err))
			continue
		}
		r.hosts.NavIndex.Contribute(slug, items)
	}
	return failures
}

func (r *Registry) deactivateNavigation() {
	r.hosts.NavIndex.Clear()
}

// endregion

// region schedule

func (r *Registry) activateSchedule(ctx context.Context) []*ActivationError {
	if !r.hosts.Settings.Bool(ctx, host.SettingEnablePluginTasks, true) {
		r.log.Info("Plugin task scheduling disabled, skipping schedule activation")
		return nil
	}
	if r.sched == nil {
		// Transient: the scheduler may be provisioned later.
		r.log.Warnf("Schedule activation skipped: %v", ErrSchedulerUnavailable)
		return nil
	}

	r.log.Info("Activating plugin tasks")

	var failures []*ActivationError
	fresh := make(map[string]bool)

	for _, slug := range r.activeSlugs() {
		provider, ok := r.active[slug].(TaskProvider)
		if !ok {
			continue
		}

		// Only plugins whose persisted config is active get their tasks
		// scheduled, even when the instance was force-enabled.
		cfg, _, err := r.store.GetOrCreatePlugin(ctx, slug, slug)
		if err != nil {
			r.log.Warnf("Could not read config for %s, skipping its tasks: %v", slug, err)
			continue
		}
		if !cfg.Active {
			continue
		}

		var tasks []TaskSpec
		err = capture(func() error {
			tasks = provider.Tasks()
			for _, t := range tasks {
				if err := t.Validate(); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			failures = append(failures, r.contain(slug, "schedule", err))
			continue
		}

		for _, t := range tasks {
			name := TaskName(slug, t.Key)
			if err := r.sched.Register(name, t.Spec, t.Job); err != nil {
				failures = append(failures, r.contain(slug, "schedule", err))
				continue
			}
			fresh[name] = true
		}
	}

	if len(fresh) > 0 {
		r.log.Infof("Activated %d scheduled tasks", len(fresh))
	}

	// Reconcile: drop stale entries under the plugin namespace so tasks from
	// disabled or renamed plugins do not accumulate.
	removed := 0
	for _, name := range r.sched.List(TaskNamespace) {
		if fresh[name] {
			continue
		}
		if err := r.sched.Delete(name); err != nil {
			r.log.Warnf("Could not remove stale task %s: %v", name, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		r.log.Infof("Removed %d stale scheduled tasks", removed)
	}

	names := make([]string, 0, len(fresh))
	for name := range fresh {
		names = append(names, name)
	}
	r.stateMu.Lock()
	r.taskNames = names
	r.stateMu.Unlock()

	if r.metrics != nil {
		r.metrics.ScheduledTasksActive.Set(float64(len(fresh)))
		r.metrics.ScheduledTasksRemoved.Add(float64(removed))
	}
	return failures
}

func (r *Registry) deactivateSchedule() {
	if r.sched == nil {
		return
	}
	for _, name := range r.taskNames {
		if err := r.sched.Delete(name); err != nil {
			r.log.Warnf("Could not remove task %s during unload: %v", name, err)
		}
	}

	r.stateMu.Lock()
	r.taskNames = nil
	r.stateMu.Unlock()

	if r.metrics != nil {
		r.metrics.ScheduledTasksActive.Set(0)
	}
}

// endregion

// region modules

func (r *Registry) activateModules(ctx context.Context, forceReload bool) []*ActivationError {
	if !r.hosts.Settings.Bool(ctx, host.SettingEnablePluginApps, true) {
		r.log.Info("Plugin module registration disabled, skipping")
		return nil
	}

	r.log.Info("Registering plugin modules")

	var failures []*ActivationError
	modulesChanged := false

	for _, slug := range r.activeSlugs() {
		provider, ok := r.active[slug].(ModuleProvider)
		if !ok {
			continue
		}

		var modulePath string
		err := capture(func() error {
			modulePath = provider.ModulePath()
			if modulePath == "" {
				return fmt.Errorf("module provider returned empty module path")
			}
			return nil
		})
		if err != nil {
			failures = append(failures, r.contain(slug, "modules", err))
			continue
		}

		r.hosts.Modules.RegisterFactory(modulePath, provider.Bindings)
		if r.hosts.Modules.AddInstalled(modulePath) {
			r.addInstalledModule(modulePath, slug)
			modulesChanged = true
		}
	}

	if !modulesChanged && !forceReload {
		return failures
	}

	// First full population or a forced reload rebuilds the module registry
	// wholesale; otherwise a cheaper incremental install suffices.
	if !r.appsReady || forceReload {
		r.stateMu.Lock()
		r.appsReady = true
		r.stateMu.Unlock()

		r.hosts.Modules.ClearPopulated()
		if err := r.populateModules(); err != nil {
			failures = append(failures, r.containModuleError(err))
		}
	} else {
		if err := r.installModules(); err != nil {
			failures = append(failures, r.containModuleError(err))
		}
	}

	r.reregisterAdmin()

	return failures
}

func (r *Registry) populateModules() error {
	return capture(func() error { return r.hosts.Modules.Populate() })
}

func (r *Registry) installModules() error {
	return capture(func() error { return r.hosts.Modules.Install() })
}

// containModuleError attributes a module population failure to the plugin
// that installed the offending module, when one can be identified.
func (r *Registry) containModuleError(err error) *ActivationError {
	r.stateMu.RLock()
	owners := r.moduleOwners
	source := ""
	for modulePath, owner := range owners {
		if strings.Contains(err.Error(), modulePath) {
			source = owner
			break
		}
	}
	r.stateMu.RUnlock()
	return r.contain(source, "modules", err)
}

// reregisterAdmin re-binds models and admin registrations after the module
// registry was repopulated. A module whose model set came back empty while
// its defining factory is still present gets its bindings rebuilt without
// re-discovery; modules with unregistered models get their admin binding set
// re-applied.
func (r *Registry) reregisterAdmin() {
	for _, modulePath := range r.InstalledModules() {
		appName := host.AppName(modulePath)
		cfg, ok := r.hosts.Modules.Get(appName)
		if !ok {
			// The module was never populated correctly.
			r.log.Debugf("%s module was not found during admin re-registration", appName)
			break
		}

		if cfg.ModelCount() == 0 && cfg.HasSource() {
			cfg.RebuildModels()
		}

		missing := false
		for _, model := range cfg.Models() {
			if !r.hosts.Admin.IsRegistered(appName, model.Name) {
				missing = true
				break
			}
		}
		if !missing || !cfg.HasAdmin() {
			continue
		}

		for _, binding := range cfg.AdminBindings() {
			if r.hosts.Admin.IsRegistered(appName, binding.Model) {
				continue
			}
			if err := r.hosts.Admin.Register(appName, binding.Model, binding); err != nil {
				r.log.Warnf("Could not register %s.%s with admin site: %v", appName, binding.Model, err)
			}
		}
	}
}

func (r *Registry) deactivateModules() {
	for _, modulePath := range r.InstalledModules() {
		appName := host.AppName(modulePath)
		cfg, ok := r.hosts.Modules.Get(appName)
		if !ok {
			r.log.Debugf("%s module was not found during deregistration", appName)
			break
		}

		for _, model := range cfg.Models() {
			if err := r.hosts.Admin.Unregister(appName, model.Name); err != nil {
				r.log.Debugf("Model %s.%s was not on the admin site: %v", appName, model.Name, err)
			}
			cfg.RemoveModel(model.Name)
		}

		// Keep the factory so a later load of the same plugin can rebuild
		// bindings; only the populated config goes away.
		r.hosts.Modules.DropConfig(modulePath)
		r.hosts.Modules.RemoveInstalled(modulePath)
	}

	r.stateMu.Lock()
	r.installedModules = nil
	r.moduleOwners = make(map[string]string)
	r.stateMu.Unlock()

	r.hosts.Modules.ClearPopulated()
	if err := r.hosts.Modules.Populate(); err != nil {
		r.log.Errorf("Failed to repopulate base modules during unload: %v", err)
	}

	r.updateURLs()
}

// endregion

// region urls

// activateURLs rebuilds the dispatch table after every other capability so
// admin routes see the freshly registered models. The plugin subtree itself
// only mounts provider routes while the host setting allows it.
func (r *Registry) activateURLs(ctx context.Context) {
	r.stateMu.Lock()
	r.urlsEnabled = r.hosts.Settings.Bool(ctx, host.SettingEnablePluginURLs, true)
	r.stateMu.Unlock()
	r.updateURLs()
}

// updateURLs rebuilds the host's dispatch table by replacing the admin and
// plugin subtree entries, then invalidates cached URL resolution.
func (r *Registry) updateURLs() {
	r.hosts.Routes.Replace(RouteEntryAdmin, host.RouteEntry{
		Prefix: "/admin",
		Mount:  r.mountAdmin,
	})
	r.hosts.Routes.Replace(RouteEntryPlugin, host.RouteEntry{
		Prefix: "/plugin",
		Mount:  r.mountPlugins,
	})
	r.hosts.Routes.Rebuild()
}

// deactivateURLs empties the plugin subtree before modules are deregistered
// so no request is dispatched into a disappearing module.
func (r *Registry) deactivateURLs() {
	r.hosts.Routes.Replace(RouteEntryPlugin, host.RouteEntry{
		Prefix: "/plugin",
		Mount:  func(*mux.Router) {},
	})
	r.hosts.Routes.Rebuild()
}

func (r *Registry) mountAdmin(router *mux.Router) {
	for _, key := range r.hosts.Admin.Registered() {
		parts := strings.SplitN(key, ".", 2)
		if len(parts) != 2 {
			continue
		}
		router.HandleFunc("/"+parts[0]+"/"+parts[1], adminModelHandler(key)).Name("admin:" + key)
	}
}

func (r *Registry) mountPlugins(router *mux.Router) {
	r.stateMu.RLock()
	enabled := r.urlsEnabled
	r.stateMu.RUnlock()
	if !enabled {
		return
	}

	for _, slug := range r.activeSlugs() {
		provider, ok := r.active[slug].(RouteProvider)
		if !ok {
			continue
		}

		sub := router.PathPrefix("/" + slug).Subrouter()
		err := capture(func() error {
			provider.MountRoutes(sub)
			return nil
		})
		if err != nil {
			r.log.Errorf("Plugin %s failed to mount routes: %v", slug, err)
		}
	}
}

func adminModelHandler(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"model": key})
	}
}

// endregion
