package plugin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Loader discovers plugin candidates from filesystem search directories and
// the package entry-point index. It never instantiates a plugin.
type Loader struct {
	dirs []string
	log  *logrus.Logger
}

// NewLoader creates a loader over the given search directories.
func NewLoader(dirs []string, log *logrus.Logger) *Loader {
	if log == nil {
		log = logrus.New()
	}
	return &Loader{dirs: dirs, log: log}
}

// Collect enumerates every plugin candidate. The returned slice fully
// replaces any previous generation's candidates. Sources that fail to resolve
// are reported in the error map, keyed by source, and do not block the rest.
func (l *Loader) Collect() ([]Builder, map[string]string) {
	var builders []Builder
	errs := make(map[string]string)

	for _, dir := range l.dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			l.log.Debugf("Plugin directory does not exist: %s", dir)
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			l.log.Warnf("Failed to read plugin directory %s: %v", dir, err)
			errs[dir] = (&DiscoveryError{Source: dir, Err: err}).Error()
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			pluginDir := filepath.Join(dir, entry.Name())
			builder, err := l.collectDir(pluginDir)
			if err != nil {
				l.log.Warnf("Failed to collect plugin from %s: %v", pluginDir, err)
				errs[pluginDir] = (&DiscoveryError{Source: pluginDir, Err: err}).Error()
				continue
			}
			builders = append(builders, builder)
		}
	}

	builders = append(builders, EntryPoints()...)

	l.log.Infof("Collected %d plugin candidates", len(builders))
	return builders, errs
}

func (l *Loader) collectDir(dir string) (Builder, error) {
	manifest, err := LoadManifestFromDir(dir)
	if err != nil {
		return nil, err
	}
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &manifestBuilder{desc: manifest.Descriptor(dir), entry: manifest.Entry}, nil
}

// Dirs returns the configured search directories.
func (l *Loader) Dirs() []string {
	return append([]string(nil), l.dirs...)
}
