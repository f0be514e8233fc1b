// Package host exposes the mutable application surfaces that the plugin
// registry activates against: the module registry, the admin site, the route
// table, the maintenance window and the per-plugin settings and navigation
// indexes.
//
// # Module Registry
//
// Modules are identified by a slash-separated path (e.g. "plugins/label-print").
// Each module exports a binding set (models plus optional admin descriptors)
// constructed by a BindingsFactory. A "reload" of a module discards its current
// binding set and invokes the factory again; bindings are rebuilt wholesale,
// never mutated in place.
//
// # Route Table
//
// The route table is an ordered list of named entries, each mounting a subtree
// onto a gorilla/mux router. Rebuilding the table constructs a fresh router and
// purges the URL resolution cache, so a half-rebuilt dispatch table is never
// observable.
//
// # Concurrency
//
// All surfaces are safe for concurrent reads. Mutations are expected to happen
// only from inside the plugin registry's guarded lifecycle section, with the
// maintenance window keeping request handling out of the way.
package host
