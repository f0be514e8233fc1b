package host

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockyard-io/stockyard/pkg/storage"
)

func TestSettingsGetFallback(t *testing.T) {
	s := NewSettings(storage.NewMemoryStore(), nil, nil)
	ctx := context.Background()

	assert.Equal(t, "default", s.Get(ctx, "missing", "default"))
	assert.True(t, s.Bool(ctx, SettingEnablePluginTasks, true))
	assert.False(t, s.Bool(ctx, SettingEnablePluginTasks, false))
}

func TestSettingsSetAndGet(t *testing.T) {
	s := NewSettings(storage.NewMemoryStore(), nil, nil)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "site.name", "Stockyard"))
	assert.Equal(t, "Stockyard", s.Get(ctx, "site.name", "other"))

	require.NoError(t, s.SetBool(ctx, SettingEnablePluginApps, false))
	assert.False(t, s.Bool(ctx, SettingEnablePluginApps, true))
}

func TestSettingsBoolIgnoresGarbage(t *testing.T) {
	store := storage.NewMemoryStore()
	s := NewSettings(store, nil, nil)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, SettingEnablePluginTasks, "not-a-bool"))
	assert.True(t, s.Bool(ctx, SettingEnablePluginTasks, true))
}

func TestSettingsCacheFill(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := storage.NewMemoryStore()
	s := NewSettings(store, cache, nil)
	ctx := context.Background()

	require.NoError(t, store.SetSetting(ctx, "host", "site.name", "Stockyard"))

	// First read misses the cache and fills it.
	assert.Equal(t, "Stockyard", s.Get(ctx, "site.name", ""))
	cached, err := mr.Get("setting:host:site.name")
	require.NoError(t, err)
	assert.Equal(t, "Stockyard", cached)

	// A stale cache entry wins over the store until invalidated.
	require.NoError(t, store.SetSetting(ctx, "host", "site.name", "Changed"))
	assert.Equal(t, "Stockyard", s.Get(ctx, "site.name", ""))
}

func TestSettingsSetInvalidatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewSettings(storage.NewMemoryStore(), cache, nil)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "site.name", "Stockyard"))
	assert.Equal(t, "Stockyard", s.Get(ctx, "site.name", ""))

	require.NoError(t, s.Set(ctx, "site.name", "Renamed"))
	assert.Equal(t, "Renamed", s.Get(ctx, "site.name", ""))
}

func TestSettingsCacheUnreachableFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := storage.NewMemoryStore()
	s := NewSettings(store, cache, nil)
	ctx := context.Background()

	require.NoError(t, store.SetSetting(ctx, "host", "site.name", "Stockyard"))
	mr.Close()

	// Reads survive a dead cache by going to the store.
	assert.Equal(t, "Stockyard", s.Get(ctx, "site.name", ""))
}
