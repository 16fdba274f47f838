package version

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed manifests/*.yaml
var manifestFS embed.FS

// Property kinds a manifest may declare.
const (
	KindInteger = "integer"
	KindFloat   = "float"
	KindBoolean = "boolean"
	KindString  = "string"
)

// Manifest describes the twin property set of an agent version.
type Manifest struct {
	Version     string                 `yaml:"version"`
	Description string                 `yaml:"description"`
	Properties  map[string]PropertyDef `yaml:"properties"`
	Telemetry   []string               `yaml:"telemetry"`
}

// PropertyDef describes a single twin property.
type PropertyDef struct {
	Kind        string `yaml:"kind"`
	Mandatory   bool   `yaml:"mandatory"`
	Description string `yaml:"description"`
}

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*Manifest)
)

// ParseManifest parses a manifest from YAML bytes. The bindgen tool
// uses the same format for on-disk manifests.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("manifest missing version")
	}
	if len(m.Properties) == 0 {
		return nil, fmt.Errorf("manifest %q declares no properties", m.Version)
	}
	for name, def := range m.Properties {
		switch def.Kind {
		case KindInteger, KindFloat, KindBoolean, KindString:
		default:
			return nil, fmt.Errorf("property %q has unknown kind %q", name, def.Kind)
		}
	}
	return &m, nil
}

// LoadManifest loads an embedded manifest by version string (e.g. "1.0").
func LoadManifest(ver string) (*Manifest, error) {
	cacheMu.RLock()
	if m, ok := cache[ver]; ok {
		cacheMu.RUnlock()
		return m, nil
	}
	cacheMu.RUnlock()

	data, err := manifestFS.ReadFile("manifests/" + ver + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("manifest version %q not found: %w", ver, err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %q: %w", ver, err)
	}

	cacheMu.Lock()
	cache[ver] = m
	cacheMu.Unlock()

	return m, nil
}

// LoadCurrentManifest loads the manifest for the current agent version.
func LoadCurrentManifest() (*Manifest, error) {
	return LoadManifest(Current)
}

// AvailableManifests returns the version strings of all embedded
// manifests, sorted.
func AvailableManifests() ([]string, error) {
	entries, err := manifestFS.ReadDir("manifests")
	if err != nil {
		return nil, fmt.Errorf("reading manifests directory: %w", err)
	}

	var versions []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") {
			versions = append(versions, strings.TrimSuffix(name, ".yaml"))
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// MandatoryProperties returns the names of all mandatory properties,
// sorted.
func (m *Manifest) MandatoryProperties() []string {
	var out []string
	for name, def := range m.Properties {
		if def.Mandatory {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// PropertyNames returns all property names, sorted. The bindgen tool
// relies on this for deterministic output.
func (m *Manifest) PropertyNames() []string {
	out := make([]string, 0, len(m.Properties))
	for name := range m.Properties {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BoundProperty describes one registered binding for validation.
type BoundProperty struct {
	Name string
	Kind string
}

// ValidationResult holds the outcome of validating bindings against a
// manifest.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// ValidateBindings checks a set of registered bindings against the
// manifest. Missing mandatory properties and kind mismatches are
// errors; properties the manifest does not know are warnings.
func ValidateBindings(m *Manifest, bound []BoundProperty) ValidationResult {
	var result ValidationResult

	byName := make(map[string]string, len(bound))
	for _, b := range bound {
		byName[b.Name] = b.Kind
	}

	for name, def := range m.Properties {
		kind, present := byName[name]
		if !present {
			if def.Mandatory {
				result.Errors = append(result.Errors,
					fmt.Sprintf("mandatory property %s missing", name))
			}
			continue
		}
		if !strings.EqualFold(kind, def.Kind) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("property %s has kind %s, manifest expects %s",
					name, kind, def.Kind))
		}
	}

	for _, b := range bound {
		if _, known := m.Properties[b.Name]; !known {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("property %s not in manifest %s", b.Name, m.Version))
		}
	}

	sort.Strings(result.Errors)
	sort.Strings(result.Warnings)
	result.Valid = len(result.Errors) == 0
	return result
}
