package habitat

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Material holds the degradation and meteorite-impact properties of one
// structural material. Rates are per hour.
type Material struct {
	AgingRate      float64 `yaml:"aging_rate"`
	MinSmallImpact float64 `yaml:"min_small_impact"`
	MaxSmallImpact float64 `yaml:"max_small_impact"`
	MinLargeImpact float64 `yaml:"min_large_impact"`
	MaxLargeImpact float64 `yaml:"max_large_impact"`
	Description    string  `yaml:"description"`
}

// MaterialLibrary is the top-level material properties file.
type MaterialLibrary struct {
	Materials map[string]Material `yaml:"materials"`
}

// LoadMaterialLibrary reads and validates a YAML material library.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadMaterialLibrary(path string) (*MaterialLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading material library: %w", err)
	}
	var lib MaterialLibrary
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&lib); err != nil {
		return nil, fmt.Errorf("parsing material library: %w", err)
	}
	if err := lib.Validate(); err != nil {
		return nil, fmt.Errorf("material library %s: %w", path, err)
	}
	return &lib, nil
}

// Validate checks every material for finite, ordered, non-negative values.
func (l *MaterialLibrary) Validate() error {
	if len(l.Materials) == 0 {
		return fmt.Errorf("no materials defined")
	}
	for _, name := range l.Names() {
		if err := l.Materials[name].validate(); err != nil {
			return fmt.Errorf("material %q: %w", name, err)
		}
	}
	return nil
}

func (m Material) validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"aging_rate", m.AgingRate},
		{"min_small_impact", m.MinSmallImpact},
		{"max_small_impact", m.MaxSmallImpact},
		{"min_large_impact", m.MinLargeImpact},
		{"max_large_impact", m.MaxLargeImpact},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("%s must be a finite non-negative number, got %v", f.name, f.value)
		}
	}
	if m.MaxSmallImpact < m.MinSmallImpact {
		return fmt.Errorf("max_small_impact %v below min_small_impact %v", m.MaxSmallImpact, m.MinSmallImpact)
	}
	if m.MaxLargeImpact < m.MinLargeImpact {
		return fmt.Errorf("max_large_impact %v below min_large_impact %v", m.MaxLargeImpact, m.MinLargeImpact)
	}
	return nil
}

// Get returns the named material.
func (l *MaterialLibrary) Get(name string) (Material, error) {
	m, ok := l.Materials[name]
	if !ok {
		return Material{}, fmt.Errorf("material %q not found; available: %v", name, l.Names())
	}
	return m, nil
}

// Names returns the material names in sorted order.
func (l *MaterialLibrary) Names() []string {
	names := make([]string, 0, len(l.Materials))
	for name := range l.Materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
