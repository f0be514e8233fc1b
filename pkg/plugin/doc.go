// Package plugin implements the host's plugin lifecycle manager: discovery,
// instantiation, capability activation, deactivation and runtime reload with
// failure containment.
//
// # Overview
//
// Plugins are same-process extension objects. A plugin is described by a
// static Descriptor (readable without running plugin code), built by a
// Builder, and may implement any subset of the capability interfaces:
//
//	SettingsProvider:   contributes setting definitions to the host index
//	TaskProvider:       declares named scheduled tasks
//	ModuleProvider:     registers a host module with model/admin bindings
//	RouteProvider:      mounts routes under the plugin URL subtree
//	NavigationProvider: contributes navigation links
//
// # Discovery
//
// The Loader collects candidates from two sources: plugin.yaml manifests in
// configured search directories (bound to factories registered with
// RegisterFactory) and the package entry-point index populated by compiled-in
// plugin packages via RegisterEntryPoint. Discovery never instantiates a
// plugin; only declared attributes are read before the activation decision.
//
// # Lifecycle
//
// The Registry owns all loaded plugin state for one generation. Load runs
// discovery, instantiates enabled plugins and activates each capability once
// across all instances. A plugin failing during instantiation or activation
// is quarantined: its persisted config is disabled, in-memory state is reset,
// and the whole sequence re-runs without it, bounded by a configurable retry
// count. Reload is unload followed by load inside one maintenance window.
// Lifecycle calls are guarded by a non-blocking reentrancy flag; a call that
// observes a load in flight returns without effect.
package plugin
