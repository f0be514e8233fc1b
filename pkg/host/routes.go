package host

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const resolverCacheSize = 512

// RouteEntry mounts one named subtree of the host's dispatch table.
type RouteEntry struct {
	Name   string
	Prefix string
	Mount  func(r *mux.Router)
}

// RouteTable is the host's ordered route list. Rebuilding constructs a fresh
// gorilla/mux router from the entries and purges the resolution cache; the
// previous router stays valid for in-flight requests.
type RouteTable struct {
	mu      sync.RWMutex
	entries []RouteEntry
	router  *mux.Router
	cache   *lru.LRU[string, string]
}

// NewRouteTable creates a route table with the given initial entries.
func NewRouteTable(entries ...RouteEntry) *RouteTable {
	t := &RouteTable{
		entries: append([]RouteEntry(nil), entries...),
		cache:   lru.NewLRU[string, string](resolverCacheSize, nil, time.Hour),
	}
	t.rebuildLocked()
	return t
}

// Replace swaps the entry with the matching name in place, preserving order.
// It reports whether an entry was replaced; unknown names are left alone.
func (t *RouteTable) Replace(name string, entry RouteEntry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.entries {
		if e.Name == name {
			entry.Name = name
			t.entries[i] = entry
			return true
		}
	}
	return false
}

// Rebuild constructs a new router from the current entries and invalidates
// cached URL resolutions.
func (t *RouteTable) Rebuild() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rebuildLocked()
}

func (t *RouteTable) rebuildLocked() {
	router := mux.NewRouter()
	for _, e := range t.entries {
		if e.Mount == nil {
			continue
		}
		sub := router.PathPrefix(e.Prefix).Subrouter()
		e.Mount(sub)
	}
	t.router = router
	t.cache.Purge()
}

// Router returns the current dispatch router.
func (t *RouteTable) Router() *mux.Router {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.router
}

// Resolve returns the path template for a named route, consulting the
// resolution cache first.
func (t *RouteTable) Resolve(name string) (string, error) {
	t.mu.RLock()
	if tmpl, ok := t.cache.Get(name); ok {
		t.mu.RUnlock()
		return tmpl, nil
	}
	route := t.router.Get(name)
	t.mu.RUnlock()

	if route == nil {
		return "", fmt.Errorf("no route named %q", name)
	}
	tmpl, err := route.GetPathTemplate()
	if err != nil {
		return "", fmt.Errorf("route %q has no path template: %w", name, err)
	}

	t.mu.Lock()
	t.cache.Add(name, tmpl)
	t.mu.Unlock()
	return tmpl, nil
}

// InvalidateCache purges all cached URL resolutions.
func (t *RouteTable) InvalidateCache() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Purge()
}

// Entries returns the names of the current route entries in order.
func (t *RouteTable) Entries() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		names = append(names, e.Name)
	}
	return names
}
