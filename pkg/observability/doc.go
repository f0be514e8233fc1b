// Package observability provides Prometheus metrics for the plugin registry
// and the host server.
//
// Metrics are registered on a caller-supplied prometheus.Registry so tests can
// use isolated registries. The Handler helper exposes the standard promhttp
// endpoint for scraping.
package observability
