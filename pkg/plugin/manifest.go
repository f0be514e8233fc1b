package plugin

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the manifest file looked up in each plugin directory.
const ManifestFileName = "plugin.yaml"

// Manifest is the declarative description of a locally-installed plugin. It
// binds a directory to a compiled-in factory via the entry name; the manifest
// carries everything the registry needs to know before running plugin code.
type Manifest struct {
	Name         string   `yaml:"name"`
	Slug         string   `yaml:"slug"`
	Version      string   `yaml:"version"`
	Author       string   `yaml:"author"`
	Description  string   `yaml:"description"`
	Entry        string   `yaml:"entry"`
	Capabilities []string `yaml:"capabilities"`
}

// LoadManifest loads and parses a plugin manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &manifest, nil
}

// LoadManifestFromDir loads the plugin.yaml manifest in dir.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestFileName))
}

// Validate checks required manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest is missing a name")
	}
	if m.Entry == "" {
		return fmt.Errorf("manifest %s is missing an entry name", m.Name)
	}
	return nil
}

// Descriptor builds the static descriptor for a manifest found in dir.
func (m *Manifest) Descriptor(dir string) Descriptor {
	caps := make([]Capability, 0, len(m.Capabilities))
	for _, c := range m.Capabilities {
		caps = append(caps, Capability(c))
	}
	return Descriptor{
		Name:         m.Name,
		Slug:         m.Slug,
		Version:      m.Version,
		Author:       m.Author,
		Description:  m.Description,
		Source:       SourceLocal,
		Module:       dir,
		Capabilities: caps,
	}
}

// manifestBuilder defers instantiation of a manifest-discovered plugin to its
// registered factory.
type manifestBuilder struct {
	desc  Descriptor
	entry string
}

func (b *manifestBuilder) Descriptor() Descriptor { return b.desc }

func (b *manifestBuilder) Build() (Plugin, error) {
	factory, ok := LookupFactory(b.entry)
	if !ok {
		return nil, fmt.Errorf("no factory registered for entry %q", b.entry)
	}
	return factory(b.desc)
}
