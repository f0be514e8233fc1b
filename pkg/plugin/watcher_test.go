package plugin

import (
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockyard-io/stockyard/pkg/storage"
)

func TestRelevantEvent(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"manifest written", fsnotify.Event{Name: "/plugins/sync/plugin.yaml", Op: fsnotify.Write}, true},
		{"manifest created", fsnotify.Event{Name: "/plugins/sync/plugin.yaml", Op: fsnotify.Create}, true},
		{"plugin dir removed", fsnotify.Event{Name: "/plugins/sync", Op: fsnotify.Remove}, true},
		{"plugin dir renamed", fsnotify.Event{Name: "/plugins/sync", Op: fsnotify.Rename}, true},
		{"manifest chmod only", fsnotify.Event{Name: "/plugins/sync/plugin.yaml", Op: fsnotify.Chmod}, false},
		{"unrelated file", fsnotify.Event{Name: "/plugins/sync/notes.txt", Op: fsnotify.Write}, false},
		{"editor swap file", fsnotify.Event{Name: "/plugins/sync/plugin.yaml.swp", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevantEvent(tt.event))
		})
	}
}

func TestNewWatcherSkipsMissingDirs(t *testing.T) {
	r, _ := newTestRegistry(t, Config{}, storage.NewMemoryStore(), nil)

	w, err := NewWatcher(r, []string{t.TempDir(), "/definitely/not/here"}, testLogger())
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
