package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stockyard-io/stockyard/pkg/host"
	"github.com/stockyard-io/stockyard/pkg/observability"
	"github.com/stockyard-io/stockyard/pkg/schedule"
	"github.com/stockyard-io/stockyard/pkg/storage"
)

// DefaultRetry bounds how many times a load sequence is re-run after
// contained plugin failures before giving up.
const DefaultRetry = 5

// Config tunes the registry's lifecycle behavior.
type Config struct {
	// Retry is the bounded retry count for the quarantine loop. Zero means
	// DefaultRetry.
	Retry int

	// AlwaysEnable activates every discovered plugin regardless of its
	// persisted config. Test mode only.
	AlwaysEnable bool

	// Bootstrap lets a load proceed with per-process config records when the
	// config store is unavailable instead of failing.
	Bootstrap bool
}

// Host bundles the application surfaces the registry activates against.
type Host struct {
	Modules       *host.ModuleRegistry
	Admin         *host.AdminSite
	Routes        *host.RouteTable
	Maintenance   *host.Maintenance
	SettingsIndex *host.SettingsIndex
	NavIndex      *host.NavIndex
	Settings      *host.Settings
}

// Registry is the process-wide plugin lifecycle manager. It owns every
// PluginInstance for the duration of one load generation and is the only
// component allowed to mutate the shared host state it activates against.
//
// Lifecycle methods never run concurrently: a reentrancy flag is checked and
// set atomically, and callers observing a load in flight return without
// effect rather than block.
type Registry struct {
	cfg     Config
	loader  *Loader
	store   storage.ConfigStore
	sched   schedule.Scheduler
	hosts   *Host
	log     *logrus.Logger
	metrics *observability.Metrics

	flagMu    sync.Mutex
	isLoading bool

	// stateMu guards the published state below for external readers; writes
	// happen only inside the guarded lifecycle section.
	stateMu          sync.RWMutex
	candidates       []Builder
	active           map[string]Plugin
	inactive         map[string]*storage.PluginConfig
	installedModules []string
	moduleOwners     map[string]string
	errs             map[string]string
	taskNames        []string
	appsReady        bool
	urlsEnabled      bool
	generation       string
}

// NewRegistry creates a plugin registry. A nil store is allowed only in
// bootstrap mode, where an in-memory store is substituted. A nil scheduler
// means schedule activation is skipped as unavailable.
func NewRegistry(cfg Config, loader *Loader, store storage.ConfigStore, sched schedule.Scheduler, hosts *Host, log *logrus.Logger, metrics *observability.Metrics) (*Registry, error) {
	if cfg.Retry <= 0 {
		cfg.Retry = DefaultRetry
	}
	if log == nil {
		log = logrus.New()
	}
	if store == nil {
		if !cfg.Bootstrap {
			return nil, fmt.Errorf("%w: no config store and bootstrap mode disabled", storage.ErrUnavailable)
		}
		store = storage.NewMemoryStore()
	}
	if hosts == nil || hosts.Modules == nil || hosts.Admin == nil || hosts.Routes == nil ||
		hosts.Maintenance == nil || hosts.SettingsIndex == nil || hosts.NavIndex == nil || hosts.Settings == nil {
		return nil, fmt.Errorf("registry requires all host surfaces")
	}

	return &Registry{
		cfg:          cfg,
		loader:       loader,
		store:        store,
		sched:        sched,
		hosts:        hosts,
		log:          log,
		metrics:      metrics,
		active:       make(map[string]Plugin),
		inactive:     make(map[string]*storage.PluginConfig),
		moduleOwners: make(map[string]string),
		errs:         make(map[string]string),
	}, nil
}

// SetScheduler provisions the task scheduler after construction. The next
// load picks it up.
func (r *Registry) SetScheduler(s schedule.Scheduler) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	r.sched = s
}

// region reentrancy guard

func (r *Registry) tryBegin() bool {
	r.flagMu.Lock()
	defer r.flagMu.Unlock()

	if r.isLoading {
		return false
	}
	r.isLoading = true
	return true
}

func (r *Registry) end() {
	r.flagMu.Lock()
	defer r.flagMu.Unlock()
	r.isLoading = false
}

// IsLoading reports whether a lifecycle operation is in flight.
func (r *Registry) IsLoading() bool {
	r.flagMu.Lock()
	defer r.flagMu.Unlock()
	return r.isLoading
}

func (r *Registry) withMaintenance(fn func()) {
	entered := r.hosts.Maintenance.Enter()
	defer func() {
		if entered {
			r.hosts.Maintenance.Exit()
		}
	}()
	fn()
}

// endregion

// Load discovers, instantiates and activates all enabled plugins. Calling it
// while a lifecycle operation is in flight is a no-op. It returns an error
// only for a fatal persistence failure outside bootstrap mode; plugin
// failures are contained and quarantined instead.
func (r *Registry) Load(ctx context.Context) error {
	if !r.tryBegin() {
		return nil
	}
	defer r.end()

	var err error
	r.withMaintenance(func() {
		err = r.doLoad(ctx)
	})
	return err
}

// Unload deactivates every capability in reverse activation order and
// restores the host's module list. No-op while another lifecycle call runs.
func (r *Registry) Unload(ctx context.Context) {
	if !r.tryBegin() {
		return
	}
	defer r.end()

	r.withMaintenance(func() {
		r.doUnload(ctx)
	})
}

// Reload safely reloads all plugins: unload immediately followed by the full
// load sequence inside a single maintenance window. A reload while loading is
// a no-op, preventing re-entrant storms from nested triggers.
func (r *Registry) Reload(ctx context.Context) error {
	if !r.tryBegin() {
		return nil
	}
	defer r.end()

	r.log.Info("Start reloading plugins")
	var err error
	r.withMaintenance(func() {
		r.doUnload(ctx)
		err = r.doLoad(ctx)
	})
	if r.metrics != nil {
		r.metrics.PluginReloadsTotal.Inc()
	}
	r.log.Info("Finished reloading plugins")
	return err
}

func (r *Registry) doLoad(ctx context.Context) error {
	start := time.Now()
	r.log.Info("Start loading plugins")

	// Errors always describe the current generation; a source that recovered
	// since the last load must not keep reporting its old failure.
	r.stateMu.Lock()
	r.generation = uuid.NewString()
	r.errs = make(map[string]string)
	r.stateMu.Unlock()

	r.collect()

	blocked := make(map[string]bool)
	retries := r.cfg.Retry

	for {
		failures, fatal := r.initPlugins(ctx, blocked)
		if fatal != nil {
			r.log.Errorf("Configuration store not accessible while loading plugins: %v", fatal)
			return fatal
		}

		failures = append(failures, r.activatePlugins(ctx, len(blocked) > 0)...)
		if len(failures) == 0 {
			break
		}

		for _, f := range failures {
			r.quarantine(ctx, f)
			if f.Source != "" {
				blocked[f.Source] = true
			}
		}
		r.resetState(ctx)

		retries--
		if r.metrics != nil {
			r.metrics.PluginLoadRetries.Inc()
		}
		if retries <= 0 {
			r.log.Errorf("Max plugin load retries reached, aborting with %d plugins blocked", len(blocked))
			r.abortLoad(ctx)
			break
		}
		r.log.Warnf("Retrying plugin load, %d/%d retries left", retries, r.cfg.Retry)
	}

	r.publishMetrics(time.Since(start))
	r.log.Infof("Finished loading plugins: %d active, %d inactive", len(r.active), len(r.inactive))
	return nil
}

func (r *Registry) doUnload(ctx context.Context) {
	r.log.Info("Start unloading plugins")

	r.clearRegistry()
	r.deactivatePlugins(ctx)

	r.publishMetrics(0)
	r.log.Info("Finished unloading plugins")
}

// collect runs discovery. The candidate list is replaced atomically; stale
// candidates from a previous generation never survive a merge.
func (r *Registry) collect() {
	builders, errs := r.loader.Collect()

	r.stateMu.Lock()
	r.candidates = builders
	for source, msg := range errs {
		r.errs[source] = msg
	}
	r.stateMu.Unlock()

	if r.metrics != nil {
		for source := range errs {
			r.metrics.DiscoveryErrorsTotal.WithLabelValues(source).Inc()
		}
	}
}

// initPlugins instantiates every enabled candidate. Failures are collected
// per pass so simultaneous offenders are all quarantined before the next
// retry. The fatal return is non-nil only when the config store is
// unavailable outside bootstrap mode.
func (r *Registry) initPlugins(ctx context.Context, blocked map[string]bool) ([]*ActivationError, error) {
	r.log.Info("Starting plugin initialisation")

	var failures []*ActivationError
	seen := make(map[string]bool)

	for _, b := range r.candidates {
		desc := b.Descriptor()
		slug := desc.Key()
		if slug == "" {
			r.recordError(desc.Module, "candidate has no name")
			continue
		}
		if seen[slug] {
			r.recordError(desc.Module, fmt.Sprintf("duplicate plugin slug %s", slug))
			continue
		}
		seen[slug] = true

		cfg, _, err := r.store.GetOrCreatePlugin(ctx, slug, desc.Name)
		if err != nil {
			if !r.cfg.Bootstrap {
				return nil, fmt.Errorf("%w: plugin config for %s: %v", storage.ErrUnavailable, slug, err)
			}
			r.log.Warnf("Config store unavailable for %s, using in-memory config", slug)
			cfg = &storage.PluginConfig{Key: slug, Name: desc.Name, Active: true}
		}

		if blocked[slug] {
			cfg.Active = false
			r.setInactive(slug, cfg)
			continue
		}

		if !r.cfg.AlwaysEnable && !cfg.Active {
			r.setInactive(slug, cfg)
			continue
		}

		r.log.Infof("Loading plugin %s", desc.Name)
		var instance Plugin
		err = capture(func() error {
			var buildErr error
			instance, buildErr = b.Build()
			return buildErr
		})
		if err != nil {
			failures = append(failures, r.contain(slug, "init", err))
			continue
		}
		if instance == nil {
			failures = append(failures, r.contain(slug, "init", fmt.Errorf("builder returned nil plugin")))
			continue
		}

		r.setActive(slug, instance)
		r.log.Infof("Loaded plugin %s", slug)
	}

	return failures, nil
}

// quarantine disables a failing plugin's persisted config so subsequent
// independent loads skip it.
func (r *Registry) quarantine(ctx context.Context, f *ActivationError) {
	if f.Source == "" {
		r.log.Errorf("Unattributable plugin failure during %s: %v", f.Phase, f.Err)
		return
	}

	r.log.Errorf("Quarantining plugin %s after %s failure: %v", f.Source, f.Phase, f.Err)

	cfg, _, err := r.store.GetOrCreatePlugin(ctx, f.Source, f.Source)
	if err != nil {
		r.log.Warnf("Could not persist quarantine of %s: %v", f.Source, err)
		cfg = &storage.PluginConfig{Key: f.Source, Name: f.Source}
	}
	cfg.Active = false
	if err := r.store.SavePlugin(ctx, cfg); err != nil {
		r.log.Warnf("Could not persist quarantine of %s: %v", f.Source, err)
	}

	if r.metrics != nil {
		r.metrics.PluginQuarantines.WithLabelValues(f.Source).Inc()
	}
}

// resetState clears all in-memory plugin state and reverses the module
// registration side effects, leaving the host on its base modules so the next
// pass starts clean.
func (r *Registry) resetState(ctx context.Context) {
	r.clearRegistry()

	r.stateMu.Lock()
	installed := r.installedModules
	r.installedModules = nil
	r.moduleOwners = make(map[string]string)
	r.taskNames = nil
	r.stateMu.Unlock()

	for _, modulePath := range installed {
		r.hosts.Modules.RemoveInstalled(modulePath)
		r.hosts.Modules.DropConfig(modulePath)
	}
}

// abortLoad is the retry-exhaustion terminal state: every candidate ends up
// inactive and the host is restored to a stable base configuration. Scheduler
// entries registered during the final failed pass are left in place; the next
// successful load reconciles them away against the then-active task set.
func (r *Registry) abortLoad(ctx context.Context) {
	for _, b := range r.candidates {
		slug := b.Descriptor().Key()
		if slug == "" {
			continue
		}
		cfg, _, err := r.store.GetOrCreatePlugin(ctx, slug, b.Descriptor().Name)
		if err != nil {
			cfg = &storage.PluginConfig{Key: slug, Name: b.Descriptor().Name}
		}
		r.setInactive(slug, cfg)
	}

	r.hosts.Modules.ClearPopulated()
	if err := r.hosts.Modules.Populate(); err != nil {
		r.log.Errorf("Failed to repopulate base modules after aborted load: %v", err)
	}
	r.updateURLs()
}

func (r *Registry) clearRegistry() {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	r.active = make(map[string]Plugin)
	r.inactive = make(map[string]*storage.PluginConfig)
}

func (r *Registry) publishMetrics(loadDuration time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.PluginsActive.Set(float64(len(r.active)))
	r.metrics.PluginsInactive.Set(float64(len(r.inactive)))
	if loadDuration > 0 {
		r.metrics.PluginLoadsTotal.Inc()
		r.metrics.PluginLoadDuration.Observe(loadDuration.Seconds())
	}
}

// region state mutation helpers

func (r *Registry) setActive(slug string, p Plugin) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	delete(r.inactive, slug)
	r.active[slug] = p
}

func (r *Registry) setInactive(slug string, cfg *storage.PluginConfig) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	delete(r.active, slug)
	r.inactive[slug] = cfg
}

func (r *Registry) recordError(source, msg string) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	r.errs[source] = msg
}

func (r *Registry) addInstalledModule(modulePath, owner string) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	r.installedModules = append(r.installedModules, modulePath)
	r.moduleOwners[modulePath] = owner
}

// activeSlugs returns the active plugin slugs in deterministic order.
func (r *Registry) activeSlugs() []string {
	slugs := make([]string, 0, len(r.active))
	for slug := range r.active {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// endregion

// region accessors

// Active returns a copy of the slug to instance mapping of loaded plugins.
func (r *Registry) Active() map[string]Plugin {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()

	out := make(map[string]Plugin, len(r.active))
	for slug, p := range r.active {
		out[slug] = p
	}
	return out
}

// Inactive returns a copy of the slug to config mapping of known but not
// activated plugins.
func (r *Registry) Inactive() map[string]*storage.PluginConfig {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()

	out := make(map[string]*storage.PluginConfig, len(r.inactive))
	for slug, cfg := range r.inactive {
		copied := *cfg
		out[slug] = &copied
	}
	return out
}

// Get returns an active plugin by slug.
func (r *Registry) Get(slug string) (Plugin, bool) {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	p, ok := r.active[slug]
	return p, ok
}

// Errors returns the most recent discovery and activation error per source.
func (r *Registry) Errors() map[string]string {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()

	out := make(map[string]string, len(r.errs))
	for source, msg := range r.errs {
		out[source] = msg
	}
	return out
}

// InstalledModules returns the module paths installed by active plugins, in
// activation order.
func (r *Registry) InstalledModules() []string {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return append([]string(nil), r.installedModules...)
}

// Generation returns the identifier of the current load generation.
func (r *Registry) Generation() string {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.generation
}

// AppsReady reports whether the host's first full module population has
// completed.
func (r *Registry) AppsReady() bool {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.appsReady
}

// endregion
