// Package schedule wraps robfig/cron with a name-indexed task surface.
//
// The plugin registry reconciles against this scheduler on every load: it
// registers the task set declared by active plugins, lists everything under
// the plugin task namespace, and deletes entries that no plugin declares
// anymore. Names are the unit of identity; registering an existing name is a
// no-op so repeated loads stay idempotent.
package schedule
