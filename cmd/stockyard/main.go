package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stockyard-io/stockyard/pkg/config"
	"github.com/stockyard-io/stockyard/pkg/host"
	"github.com/stockyard-io/stockyard/pkg/observability"
	"github.com/stockyard-io/stockyard/pkg/plugin"
	_ "github.com/stockyard-io/stockyard/pkg/plugin/builtin"
	"github.com/stockyard-io/stockyard/pkg/schedule"
	"github.com/stockyard-io/stockyard/pkg/storage"
)

func main() {
	log := logrus.New()
	if level, err := logrus.ParseLevel(config.LogLevel()); err == nil {
		log.SetLevel(level)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config store
	var store storage.ConfigStore
	sqlStore, err := storage.NewSQLStore(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		if !cfg.Plugins.Bootstrap {
			log.Fatalf("Failed to open config store: %v", err)
		}
		log.Warnf("Config store unavailable, running with in-memory config: %v", err)
		store = storage.NewMemoryStore()
	} else {
		defer sqlStore.Close()
		store = sqlStore
	}

	// Optional settings cache
	var cache *redis.Client
	if cfg.Storage.RedisURL != "" {
		cache = connectRedis(ctx, cfg.Storage.RedisURL, log)
	}

	// Host surfaces
	hosts := buildHost(store, cache, log)

	// Task scheduler
	scheduler := schedule.NewCronScheduler()
	scheduler.Start()
	defer scheduler.Stop()

	// Metrics
	var metrics *observability.Metrics
	promRegistry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(promRegistry)
	}

	loader := plugin.NewLoader(cfg.Plugins.Dirs, log)
	registry, err := plugin.NewRegistry(plugin.Config{
		Retry:        cfg.Plugins.Retry,
		AlwaysEnable: cfg.Plugins.AlwaysEnable,
		Bootstrap:    cfg.Plugins.Bootstrap,
	}, loader, store, scheduler, hosts, log, metrics)
	if err != nil {
		log.Fatalf("Failed to create plugin registry: %v", err)
	}

	if err := registry.Load(ctx); err != nil {
		log.Fatalf("Failed to load plugins: %v", err)
	}

	if cfg.Plugins.Watch {
		watcher, err := plugin.NewWatcher(registry, cfg.Plugins.Dirs, log)
		if err != nil {
			log.Warnf("Plugin directory watching disabled: %v", err)
		} else {
			watcher.Start(ctx)
			defer watcher.Close()
		}
	}

	serve(ctx, cfg, hosts, registry, promRegistry, log)
}

// connectRedis opens the settings cache, degrading to no cache on failure.
func connectRedis(ctx context.Context, url string, log *logrus.Logger) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Warnf("Invalid redis URL, settings cache disabled: %v", err)
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warnf("Redis unreachable, settings cache disabled: %v", err)
		return nil
	}
	return client
}

func buildHost(store storage.ConfigStore, cache *redis.Client, log *logrus.Logger) *plugin.Host {
	modules := host.NewModuleRegistry("stockyard/inventory", "stockyard/orders")
	modules.RegisterFactory("stockyard/inventory", inventoryBindings)
	modules.RegisterFactory("stockyard/orders", orderBindings)

	admin := host.NewAdminSite()
	settingsIndex := host.NewSettingsIndex()
	navIndex := host.NewNavIndex()

	routes := host.NewRouteTable(
		host.RouteEntry{Name: "api", Prefix: "/api", Mount: func(*mux.Router) {}},
		host.RouteEntry{Name: plugin.RouteEntryAdmin, Prefix: "/admin", Mount: func(*mux.Router) {}},
		host.RouteEntry{Name: plugin.RouteEntryPlugin, Prefix: "/plugin", Mount: func(*mux.Router) {}},
	)

	if err := modules.Populate(); err != nil {
		log.Fatalf("Failed to populate base modules: %v", err)
	}
	registerBaseAdmin(modules, admin, log)

	return &plugin.Host{
		Modules:       modules,
		Admin:         admin,
		Routes:        routes,
		Maintenance:   host.NewMaintenance(),
		SettingsIndex: settingsIndex,
		NavIndex:      navIndex,
		Settings:      host.NewSettings(store, cache, log),
	}
}

func inventoryBindings() host.ModuleBindings {
	return host.ModuleBindings{
		Models: []host.ModelBinding{
			{Name: "Part", Fields: []string{"id", "name", "ipn", "category"}},
			{Name: "StockItem", Fields: []string{"id", "part", "quantity", "location"}},
			{Name: "StockLocation", Fields: []string{"id", "name", "parent"}},
		},
		Admin: []host.AdminBinding{
			{Model: "Part", ListFields: []string{"name", "ipn", "category"}},
			{Model: "StockItem", ListFields: []string{"part", "quantity", "location"}},
			{Model: "StockLocation", ListFields: []string{"name", "parent"}},
		},
	}
}

func orderBindings() host.ModuleBindings {
	return host.ModuleBindings{
		Models: []host.ModelBinding{
			{Name: "BuildOrder", Fields: []string{"id", "part", "quantity", "status"}},
			{Name: "PurchaseOrder", Fields: []string{"id", "supplier", "status"}},
		},
		Admin: []host.AdminBinding{
			{Model: "BuildOrder", ListFields: []string{"part", "quantity", "status"}},
			{Model: "PurchaseOrder", ListFields: []string{"supplier", "status"}},
		},
	}
}

func registerBaseAdmin(modules *host.ModuleRegistry, admin *host.AdminSite, log *logrus.Logger) {
	for _, name := range modules.Configured() {
		cfg, ok := modules.Get(name)
		if !ok {
			continue
		}
		for _, binding := range cfg.AdminBindings() {
			if err := admin.Register(name, binding.Model, binding); err != nil {
				log.Warnf("Could not register %s.%s with admin site: %v", name, binding.Model, err)
			}
		}
	}
}

func serve(ctx context.Context, cfg *config.Config, hosts *plugin.Host, registry *plugin.Registry, promRegistry *prometheus.Registry, log *logrus.Logger) {
	apiHandler := maintenanceMiddleware(hosts.Maintenance, rootHandler(hosts, registry))

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      apiHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", observability.Handler(promRegistry))
	metricsMux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.MetricsPort,
		Handler: metricsMux,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Infof("Stockyard server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		log.Infof("Metrics server listening on %s", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		apiServer.Shutdown(shutdownCtx)
		metricsServer.Shutdown(shutdownCtx)
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Info("Stockyard server stopped")
}

// maintenanceMiddleware answers 503 while a plugin lifecycle operation has
// the host in its maintenance window.
func maintenanceMiddleware(m *host.Maintenance, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Active() {
			http.Error(w, "host is in maintenance", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rootHandler dispatches through the rebuildable route table and serves the
// host API endpoints that render registry state.
func rootHandler(hosts *plugin.Host, registry *plugin.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/plugins":
			writeJSON(w, pluginListing(registry))
			return
		case "/api/nav":
			writeJSON(w, hosts.NavIndex.All())
			return
		}
		hosts.Routes.Router().ServeHTTP(w, r)
	})
}

func pluginListing(registry *plugin.Registry) map[string]any {
	active := make(map[string]plugin.Descriptor)
	for slug, p := range registry.Active() {
		active[slug] = p.Descriptor()
	}

	inactive := make(map[string]storage.PluginConfig)
	for slug, cfg := range registry.Inactive() {
		inactive[slug] = *cfg
	}

	return map[string]any{
		"generation": registry.Generation(),
		"active":     active,
		"inactive":   inactive,
		"errors":     registry.Errors(),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
