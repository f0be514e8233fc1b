package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coreBindings() ModuleBindings {
	return ModuleBindings{
		Models: []ModelBinding{
			{Name: "Part", Fields: []string{"id", "name"}},
			{Name: "StockItem", Fields: []string{"id", "part", "quantity"}},
		},
		Admin: []AdminBinding{
			{Model: "Part", ListFields: []string{"name"}},
		},
	}
}

func TestAppName(t *testing.T) {
	assert.Equal(t, "inventory", AppName("stockyard/inventory"))
	assert.Equal(t, "sync", AppName("plugins/vendor/sync"))
	assert.Equal(t, "inventory", AppName("inventory"))
}

func TestModuleRegistryPopulate(t *testing.T) {
	r := NewModuleRegistry("stockyard/core")
	r.RegisterFactory("stockyard/core", coreBindings)

	require.NoError(t, r.Populate())
	assert.True(t, r.IsPopulated())

	cfg, ok := r.Get("core")
	require.True(t, ok)
	assert.Equal(t, "stockyard/core", cfg.Path)
	assert.Equal(t, 2, cfg.ModelCount())
	assert.True(t, cfg.HasSource())
	assert.True(t, cfg.HasAdmin())
}

func TestModuleRegistryPopulateMissingFactory(t *testing.T) {
	r := NewModuleRegistry("stockyard/core")

	err := r.Populate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stockyard/core")
	assert.False(t, r.IsPopulated())
}

func TestModuleRegistryInstallIsIncremental(t *testing.T) {
	r := NewModuleRegistry("stockyard/core")
	r.RegisterFactory("stockyard/core", coreBindings)
	require.NoError(t, r.Populate())

	built := 0
	r.RegisterFactory("plugins/extra", func() ModuleBindings {
		built++
		return ModuleBindings{Models: []ModelBinding{{Name: "Extra"}}}
	})

	assert.True(t, r.AddInstalled("plugins/extra"))
	assert.False(t, r.AddInstalled("plugins/extra"), "second add must report no change")

	require.NoError(t, r.Install())
	assert.Equal(t, 1, built)

	// Install again: existing configs are not rebuilt.
	require.NoError(t, r.Install())
	assert.Equal(t, 1, built)

	assert.Equal(t, []string{"core", "extra"}, r.Configured())
}

func TestModuleRegistryClearPopulatedKeepsFactories(t *testing.T) {
	r := NewModuleRegistry("stockyard/core")
	r.RegisterFactory("stockyard/core", coreBindings)
	require.NoError(t, r.Populate())

	r.ClearPopulated()
	assert.False(t, r.IsPopulated())
	_, ok := r.Get("core")
	assert.False(t, ok)

	// The factory survived, so a full repopulation works.
	require.NoError(t, r.Populate())
	_, ok = r.Get("core")
	assert.True(t, ok)
}

func TestModuleRegistryDropConfigVersusRemove(t *testing.T) {
	r := NewModuleRegistry()
	r.RegisterFactory("plugins/extra", coreBindings)
	r.AddInstalled("plugins/extra")
	require.NoError(t, r.Populate())

	r.DropConfig("plugins/extra")
	_, ok := r.Get("extra")
	assert.False(t, ok)

	// DropConfig kept the factory: repopulation succeeds.
	require.NoError(t, r.Populate())

	r.Remove("plugins/extra")
	err := r.Populate()
	require.Error(t, err, "Remove forgets the factory as well")
}

func TestModuleRegistryRemoveInstalled(t *testing.T) {
	r := NewModuleRegistry("a", "b", "c")
	r.RemoveInstalled("b")
	assert.Equal(t, []string{"a", "c"}, r.Installed())

	r.RemoveInstalled("missing")
	assert.Equal(t, []string{"a", "c"}, r.Installed())
}

func TestModuleConfigRebuildModels(t *testing.T) {
	cfg := newModuleConfig("stockyard/core", coreBindings)

	cfg.RemoveModel("Part")
	cfg.RemoveModel("StockItem")
	assert.Equal(t, 0, cfg.ModelCount())
	assert.True(t, cfg.HasSource())

	cfg.RebuildModels()
	assert.Equal(t, 2, cfg.ModelCount())

	models := cfg.Models()
	require.Len(t, models, 2)
	assert.Equal(t, "Part", models[0].Name)
	assert.Equal(t, "StockItem", models[1].Name)
}

func TestModuleConfigWithoutFactory(t *testing.T) {
	cfg := newModuleConfig("stockyard/ghost", nil)
	assert.False(t, cfg.HasSource())
	assert.Equal(t, 0, cfg.ModelCount())
	assert.False(t, cfg.HasAdmin())

	// Rebuild with no factory is a no-op, not a panic.
	cfg.RebuildModels()
	assert.Equal(t, 0, cfg.ModelCount())
}
