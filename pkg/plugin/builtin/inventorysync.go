package builtin

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"

	"github.com/stockyard-io/stockyard/pkg/host"
	"github.com/stockyard-io/stockyard/pkg/plugin"
)

func init() {
	if err := plugin.RegisterEntryPoint(&inventorySyncBuilder{}); err != nil {
		panic(err)
	}
}

var inventorySyncDescriptor = plugin.Descriptor{
	Name:        "Inventory Sync",
	Slug:        "inventory-sync",
	Version:     "1.0.0",
	Author:      "Stockyard",
	Description: "Synchronizes stock levels with an upstream warehouse system",
	Source:      plugin.SourcePackaged,
	Module:      "plugins/inventory-sync",
	Capabilities: []plugin.Capability{
		plugin.CapabilitySettings,
		plugin.CapabilityTasks,
		plugin.CapabilityModules,
		plugin.CapabilityRoutes,
		plugin.CapabilityNavigation,
	},
}

type inventorySyncBuilder struct{}

func (b *inventorySyncBuilder) Descriptor() plugin.Descriptor { return inventorySyncDescriptor }

func (b *inventorySyncBuilder) Build() (plugin.Plugin, error) {
	return &InventorySync{}, nil
}

// InventorySync is the built-in synchronization plugin. It exercises every
// capability the registry supports and doubles as the reference
// implementation for third-party plugin authors.
type InventorySync struct {
	syncRuns atomic.Int64
}

func (p *InventorySync) Descriptor() plugin.Descriptor { return inventorySyncDescriptor }

func (p *InventorySync) Settings() []host.SettingDefinition {
	return []host.SettingDefinition{
		{
			Key:         "upstream_url",
			Name:        "Upstream URL",
			Description: "Base URL of the upstream warehouse API",
			Default:     "https://warehouse.example.com",
		},
		{
			Key:         "batch_size",
			Name:        "Batch size",
			Description: "Number of stock records synchronized per run",
			Default:     "500",
		},
	}
}

func (p *InventorySync) Tasks() []plugin.TaskSpec {
	return []plugin.TaskSpec{
		{Key: "sync", Spec: "@every 1h", Job: p.runSync},
		{Key: "heartbeat", Spec: "*/15 * * * *", Job: func() {}},
	}
}

func (p *InventorySync) runSync() {
	p.syncRuns.Add(1)
}

// SyncRuns returns how many times the sync task has fired.
func (p *InventorySync) SyncRuns() int64 {
	return p.syncRuns.Load()
}

func (p *InventorySync) ModulePath() string {
	return "plugins/inventory-sync"
}

func (p *InventorySync) Bindings() host.ModuleBindings {
	return host.ModuleBindings{
		Models: []host.ModelBinding{
			{Name: "SyncRecord", Fields: []string{"id", "part", "quantity", "synced_at"}},
			{Name: "SyncConflict", Fields: []string{"id", "record", "reason"}},
		},
		Admin: []host.AdminBinding{
			{Model: "SyncRecord", ListFields: []string{"part", "quantity", "synced_at"}},
			{Model: "SyncConflict", ListFields: []string{"record", "reason"}},
		},
	}
}

func (p *InventorySync) MountRoutes(r *mux.Router) {
	r.HandleFunc("/status", p.handleStatus).Methods(http.MethodGet).Name("plugin:inventory-sync:status")
}

func (p *InventorySync) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"plugin":    "inventory-sync",
		"sync_runs": p.SyncRuns(),
	})
}

func (p *InventorySync) Navigation() []host.NavItem {
	return []host.NavItem{
		{Name: "Inventory Sync", Link: "/plugin/inventory-sync/status", Icon: "sync"},
	}
}
