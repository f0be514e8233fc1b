package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetOrCreatePlugin(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	cfg, created, err := store.GetOrCreatePlugin(ctx, "inventory-sync", "Inventory Sync")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, cfg.Active, "new configs start active")
	assert.Equal(t, "inventory-sync", cfg.Key)
	assert.NotZero(t, cfg.ID)

	again, created, err := store.GetOrCreatePlugin(ctx, "inventory-sync", "Inventory Sync")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, cfg.ID, again.ID)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	cfg, _, err := store.GetOrCreatePlugin(ctx, "demo", "Demo")
	require.NoError(t, err)

	// Mutating the returned config must not leak into the store.
	cfg.Active = false

	fresh, _, err := store.GetOrCreatePlugin(ctx, "demo", "Demo")
	require.NoError(t, err)
	assert.True(t, fresh.Active)
}

func TestMemoryStoreSavePlugin(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	cfg, _, err := store.GetOrCreatePlugin(ctx, "demo", "Demo")
	require.NoError(t, err)

	cfg.Active = false
	require.NoError(t, store.SavePlugin(ctx, cfg))

	saved, created, err := store.GetOrCreatePlugin(ctx, "demo", "Demo")
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, saved.Active)
}

func TestMemoryStoreListPluginsSorted(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, key := range []string{"zeta", "alpha", "mid"} {
		_, _, err := store.GetOrCreatePlugin(ctx, key, key)
		require.NoError(t, err)
	}

	configs, err := store.ListPlugins(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 3)
	assert.Equal(t, "alpha", configs[0].Key)
	assert.Equal(t, "mid", configs[1].Key)
	assert.Equal(t, "zeta", configs[2].Key)
}

func TestMemoryStoreSettingsScoped(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SetSetting(ctx, "host", "site.name", "Stockyard"))
	require.NoError(t, store.SetSetting(ctx, "plugin", "site.name", "Other"))

	value, ok, err := store.GetSetting(ctx, "host", "site.name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Stockyard", value)

	value, ok, err = store.GetSetting(ctx, "plugin", "site.name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Other", value)

	_, ok, err = store.GetSetting(ctx, "host", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreHealthCheck(t *testing.T) {
	assert.NoError(t, NewMemoryStore().HealthCheck(context.Background()))
}
