package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderCollectFromDirectories(t *testing.T) {
	root := t.TempDir()

	labelDir := filepath.Join(root, "labels")
	require.NoError(t, os.Mkdir(labelDir, 0o755))
	writeManifest(t, labelDir, demoManifest)

	brokenDir := filepath.Join(root, "broken")
	require.NoError(t, os.Mkdir(brokenDir, 0o755))
	writeManifest(t, brokenDir, "name: Broken\n")

	// Files at the top level are not plugin candidates.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	loader := NewLoader([]string{root}, nil)
	builders, errs := loader.Collect()

	require.Len(t, builders, 1)
	assert.Equal(t, "label-printer", builders[0].Descriptor().Key())

	require.Len(t, errs, 1)
	assert.Contains(t, errs[brokenDir], "missing an entry name")
}

func TestLoaderSkipsMissingDirectories(t *testing.T) {
	loader := NewLoader([]string{"/definitely/not/here"}, nil)
	builders, errs := loader.Collect()
	assert.Empty(t, builders)
	assert.Empty(t, errs, "a missing search directory is not an error")
}

func TestLoaderIncludesEntryPoints(t *testing.T) {
	saved := EntryPoints()
	ClearEntryPoints()
	t.Cleanup(func() {
		ClearEntryPoints()
		for _, b := range saved {
			_ = RegisterEntryPoint(b)
		}
	})

	require.NoError(t, RegisterEntryPoint(&namedBuilder{name: "Packaged Demo"}))

	loader := NewLoader(nil, nil)
	builders, errs := loader.Collect()
	require.Len(t, builders, 1)
	assert.Equal(t, "packaged-demo", builders[0].Descriptor().Key())
	assert.Empty(t, errs)
}

func TestLoaderDirs(t *testing.T) {
	loader := NewLoader([]string{"/a", "/b"}, nil)
	dirs := loader.Dirs()
	assert.Equal(t, []string{"/a", "/b"}, dirs)

	// The returned slice is a copy.
	dirs[0] = "/mutated"
	assert.Equal(t, []string{"/a", "/b"}, loader.Dirs())
}
