package apisurface

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var embeddedManifest []byte

// Manifest is the structured API surface artifact: symbol names grouped by
// manager section.
type Manifest struct {
	Version   int                 `yaml:"version"`
	Namespace string              `yaml:"namespace"`
	Sections  map[string][]string `yaml:"sections"`
}

// Symbols returns every symbol in the manifest, sections in lexical order.
func (m *Manifest) Symbols() []string {
	keys := make([]string, 0, len(m.Sections))
	for k := range m.Sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []string
	for _, k := range keys {
		out = append(out, m.Sections[k]...)
	}
	return out
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Version == 0 {
		m.Version = 1
	}
	return &m, nil
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// EmbeddedManifest returns the manifest compiled into the binary.
func EmbeddedManifest() *Manifest {
	m, err := ParseManifest(embeddedManifest)
	if err != nil {
		panic(err) // embedded asset is validated by tests
	}
	return m
}
