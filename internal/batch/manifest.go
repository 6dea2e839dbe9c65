package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest lists the primary/secondary recordings to compare in one batch run
type Manifest struct {
	Pairs []Pair `yaml:"pairs" json:"pairs"`
}

// Pair is one primary capture and the reference it may be an echo of
type Pair struct {
	Name      string `yaml:"name" json:"name"`
	Primary   string `yaml:"primary" json:"primary"`
	Secondary string `yaml:"secondary" json:"secondary"`
}

// LoadManifest reads a YAML manifest. Relative audio paths are resolved
// against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range manifest.Pairs {
		manifest.Pairs[i].Primary = resolve(base, manifest.Pairs[i].Primary)
		manifest.Pairs[i].Secondary = resolve(base, manifest.Pairs[i].Secondary)
	}

	return manifest, nil
}

// ParseManifest decodes and validates manifest YAML
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return &manifest, nil
}

// Validate checks that every pair is complete and names are unique
func (m *Manifest) Validate() error {
	if len(m.Pairs) == 0 {
		return fmt.Errorf("manifest has no pairs")
	}

	seen := make(map[string]int, len(m.Pairs))
	for i, p := range m.Pairs {
		if p.Name == "" {
			return fmt.Errorf("pair %d has no name", i)
		}
		if p.Primary == "" || p.Secondary == "" {
			return fmt.Errorf("pair %q needs both primary and secondary", p.Name)
		}
		if j, ok := seen[p.Name]; ok {
			return fmt.Errorf("pair name %q used by entries %d and %d", p.Name, j, i)
		}
		seen[p.Name] = i
	}

	return nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
