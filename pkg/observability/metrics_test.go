package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NotNil(t, m)

	m.PluginLoadsTotal.Inc()
	m.PluginQuarantines.WithLabelValues("inventory-sync").Inc()
	m.PluginsActive.Set(3)
	m.PluginLoadDuration.Observe(0.25)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.PluginLoadsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PluginQuarantines.WithLabelValues("inventory-sync")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.PluginsActive))
}

func TestNewMetricsDoubleRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)
	assert.Panics(t, func() { NewMetrics(registry) })
}

func TestHandlerServesMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.PluginsActive.Set(2)

	w := httptest.NewRecorder()
	Handler(registry).ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stockyard_plugins_active 2")
}
