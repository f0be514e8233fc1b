package host

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRouteTableServesMountedEntries(t *testing.T) {
	table := NewRouteTable(RouteEntry{
		Name:   "api",
		Prefix: "/api",
		Mount: func(r *mux.Router) {
			r.HandleFunc("/parts", okHandler).Name("api:parts")
		},
	})

	w := httptest.NewRecorder()
	table.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/parts", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	table.Router().ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouteTableReplace(t *testing.T) {
	table := NewRouteTable(
		RouteEntry{Name: "api", Prefix: "/api", Mount: func(*mux.Router) {}},
		RouteEntry{Name: "plugin", Prefix: "/plugin", Mount: func(*mux.Router) {}},
	)

	replaced := table.Replace("plugin", RouteEntry{
		Prefix: "/plugin",
		Mount: func(r *mux.Router) {
			r.HandleFunc("/demo/status", okHandler)
		},
	})
	assert.True(t, replaced)
	assert.False(t, table.Replace("unknown", RouteEntry{Prefix: "/x"}))

	// Order and names are preserved across replacement.
	assert.Equal(t, []string{"api", "plugin"}, table.Entries())

	// The new mount only takes effect after a rebuild.
	w := httptest.NewRecorder()
	table.Router().ServeHTTP(w, httptest.NewRequest("GET", "/plugin/demo/status", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	table.Rebuild()
	w = httptest.NewRecorder()
	table.Router().ServeHTTP(w, httptest.NewRequest("GET", "/plugin/demo/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouteTableResolve(t *testing.T) {
	table := NewRouteTable(RouteEntry{
		Name:   "api",
		Prefix: "/api",
		Mount: func(r *mux.Router) {
			r.HandleFunc("/parts/{id}", okHandler).Name("api:part-detail")
		},
	})

	tmpl, err := table.Resolve("api:part-detail")
	require.NoError(t, err)
	assert.Equal(t, "/api/parts/{id}", tmpl)

	// Second lookup is served from the cache.
	tmpl, err = table.Resolve("api:part-detail")
	require.NoError(t, err)
	assert.Equal(t, "/api/parts/{id}", tmpl)

	_, err = table.Resolve("api:missing")
	require.Error(t, err)
}

func TestRouteTableRebuildInvalidatesResolution(t *testing.T) {
	mountV1 := func(r *mux.Router) {
		r.HandleFunc("/status", okHandler).Name("plugin:demo")
	}
	table := NewRouteTable(RouteEntry{Name: "plugin", Prefix: "/plugin", Mount: mountV1})

	tmpl, err := table.Resolve("plugin:demo")
	require.NoError(t, err)
	assert.Equal(t, "/plugin/status", tmpl)

	table.Replace("plugin", RouteEntry{
		Prefix: "/plugins",
		Mount: func(r *mux.Router) {
			r.HandleFunc("/status", okHandler).Name("plugin:demo")
		},
	})
	table.Rebuild()

	tmpl, err = table.Resolve("plugin:demo")
	require.NoError(t, err)
	assert.Equal(t, "/plugins/status", tmpl, "stale cached resolution must not survive a rebuild")
}
