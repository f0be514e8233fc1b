package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const watchDebounce = 2 * time.Second

// Watcher triggers a registry reload when a plugin search directory changes
// on disk. Events are debounced so a burst of writes causes one reload; the
// registry's own reentrancy guard absorbs anything that still overlaps.
type Watcher struct {
	registry *Registry
	watcher  *fsnotify.Watcher
	log      *logrus.Logger
	done     chan struct{}
}

// NewWatcher watches the existing directories among dirs for plugin changes.
func NewWatcher(registry *Registry, dirs []string, log *logrus.Logger) (*Watcher, error) {
	if log == nil {
		log = logrus.New()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	watched := 0
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		watched++
	}
	log.Infof("Watching %d plugin directories for changes", watched)

	return &Watcher{
		registry: registry,
		watcher:  fsw,
		log:      log,
		done:     make(chan struct{}),
	}, nil
}

// Start begins handling filesystem events until Close is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevantEvent(event) {
				continue
			}
			w.log.Debugf("Plugin directory change: %s", event)
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			pending = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("Plugin watcher error: %v", err)
		case <-pending:
			pending = nil
			w.log.Info("Plugin directories changed, reloading")
			if err := w.registry.Reload(ctx); err != nil {
				w.log.Errorf("Reload after plugin change failed: %v", err)
			}
		}
	}
}

func relevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	// Manifest edits and plugin directory churn both warrant a reload.
	return base == ManifestFileName || filepath.Ext(base) == ""
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
