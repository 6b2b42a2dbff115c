package cmd

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cdcm-sim/cdcm/sim/trace"
)

// ScenarioConfig is the YAML description of a habitat structure run.
type ScenarioConfig struct {
	Name     string          `yaml:"name"`
	Clock    ClockSection    `yaml:"clock"`
	Steps    int             `yaml:"steps"`
	Seed     int64           `yaml:"seed"`
	Material MaterialSection `yaml:"material"`
	Events   EventsSection   `yaml:"events"`
	Trace    TraceSection    `yaml:"trace"`
}

// ClockSection configures the simulation clock.
type ClockSection struct {
	DT    float64 `yaml:"dt"`
	T0    float64 `yaml:"t0"`
	Units string  `yaml:"units"`
}

// MaterialSection points at a material library and selects one entry.
// A relative file is resolved against the scenario file's directory.
type MaterialSection struct {
	File string `yaml:"file"`
	Name string `yaml:"name"`
}

// EventsSection configures the scripted events of the run.
type EventsSection struct {
	SmallImpactInterval float64        `yaml:"small_impact_interval"`
	LargeImpactInterval float64        `yaml:"large_impact_interval"`
	Shower              *ShowerSection `yaml:"meteorite_shower,omitempty"`
}

// ShowerSection is a meteorite shower window.
type ShowerSection struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// TraceSection selects which node histories are retained.
type TraceSection struct {
	Level string   `yaml:"level"`
	Paths []string `yaml:"paths"`
}

// LoadScenario reads a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadScenario(path string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var cfg ScenarioConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if cfg.Material.File != "" && !filepath.IsAbs(cfg.Material.File) {
		cfg.Material.File = filepath.Join(filepath.Dir(path), cfg.Material.File)
	}
	return &cfg, nil
}

// Validate checks that all fields in the scenario are valid.
func (c *ScenarioConfig) Validate() error {
	if err := validateFinitePositive("clock.dt", c.Clock.DT); err != nil {
		return err
	}
	if math.IsNaN(c.Clock.T0) || math.IsInf(c.Clock.T0, 0) {
		return fmt.Errorf("clock.t0 must be finite, got %v", c.Clock.T0)
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", c.Steps)
	}
	if c.Material.File == "" || c.Material.Name == "" {
		return fmt.Errorf("material.file and material.name are required")
	}
	for name, v := range map[string]float64{
		"events.small_impact_interval": c.Events.SmallImpactInterval,
		"events.large_impact_interval": c.Events.LargeImpactInterval,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%s must be a finite non-negative number, got %v", name, v)
		}
	}
	if sh := c.Events.Shower; sh != nil {
		if sh.End < sh.Start {
			return fmt.Errorf("events.meteorite_shower: end %v before start %v", sh.End, sh.Start)
		}
		if sh.Start < c.Clock.T0 {
			return fmt.Errorf("events.meteorite_shower: start %v before clock.t0 %v", sh.Start, c.Clock.T0)
		}
	}
	if !trace.IsValidTraceLevel(c.Trace.Level) {
		return fmt.Errorf("unknown trace.level %q; valid: none, tracked, all", c.Trace.Level)
	}
	return nil
}

func validateFinitePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%s must be a finite positive number, got %v", name, v)
	}
	return nil
}
