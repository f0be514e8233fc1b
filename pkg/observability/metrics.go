package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics published by the host.
type Metrics struct {
	// Registry lifecycle metrics
	PluginLoadsTotal      prometheus.Counter
	PluginReloadsTotal    prometheus.Counter
	PluginLoadRetries     prometheus.Counter
	PluginQuarantines     *prometheus.CounterVec
	PluginLoadDuration    prometheus.Histogram
	PluginsActive         prometheus.Gauge
	PluginsInactive       prometheus.Gauge
	DiscoveryErrorsTotal  *prometheus.CounterVec
	ScheduledTasksActive  prometheus.Gauge
	ScheduledTasksRemoved prometheus.Counter
}

// NewMetrics creates and registers all host metrics on the given registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		PluginLoadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockyard_plugin_loads_total",
			Help: "Total number of completed plugin load sequences",
		}),
		PluginReloadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockyard_plugin_reloads_total",
			Help: "Total number of full plugin reloads",
		}),
		PluginLoadRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockyard_plugin_load_retries_total",
			Help: "Total number of load passes re-run after a contained plugin failure",
		}),
		PluginQuarantines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockyard_plugin_quarantines_total",
				Help: "Plugins disabled after failing during load, by slug",
			},
			[]string{"slug"},
		),
		PluginLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockyard_plugin_load_duration_seconds",
			Help:    "Duration of full plugin load sequences in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		PluginsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockyard_plugins_active",
			Help: "Number of currently active plugins",
		}),
		PluginsInactive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockyard_plugins_inactive",
			Help: "Number of known but inactive plugins",
		}),
		DiscoveryErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockyard_plugin_discovery_errors_total",
				Help: "Plugin discovery failures, by source",
			},
			[]string{"source"},
		),
		ScheduledTasksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockyard_plugin_scheduled_tasks",
			Help: "Number of scheduler entries in the plugin task namespace",
		}),
		ScheduledTasksRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockyard_plugin_scheduled_tasks_removed_total",
			Help: "Orphaned plugin tasks removed during schedule reconciliation",
		}),
	}

	registry.MustRegister(
		m.PluginLoadsTotal,
		m.PluginReloadsTotal,
		m.PluginLoadRetries,
		m.PluginQuarantines,
		m.PluginLoadDuration,
		m.PluginsActive,
		m.PluginsInactive,
		m.DiscoveryErrorsTotal,
		m.ScheduledTasksActive,
		m.ScheduledTasksRemoved,
	)
	return m
}

// Handler returns an HTTP handler exposing the registry's metrics.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
