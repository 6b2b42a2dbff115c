package mechanism

import "github.com/cdcm-sim/cdcm/sim"

// ComponentConfig parameterizes MakeComponent.
type ComponentConfig struct {
	Description string
	Health      *HealthConfig // default: health starting at 1
	Rate        any           // nil, a number or a *sim.Node; see MakeHealthMechanism
	Nominal     *float64      // nominal functionality (default 1)
}

// Component is a sub-scope with a health node and a functionality equal to
// nominal times health, so it can be passed straight to MakeFunctionality.
type Component struct {
	Scope         *sim.Scope
	Health        *sim.Node
	Functionality *sim.Node
}

// MakeComponent builds the component scope name under parent.
func MakeComponent(parent *sim.Scope, name string, dt *sim.Node, cfg ComponentConfig) (*Component, error) {
	if cfg.Nominal == nil {
		cfg.Nominal = Float(1)
	}
	if cfg.Health == nil {
		cfg.Health = &HealthConfig{Nominal: 1}
	}
	c := &Component{}
	scope, err := parent.Build(name, func(s *sim.Scope) error {
		s.SetDescription(cfg.Description)
		h, err := MakeHealthMechanism(s, dt, cfg.Rate, *cfg.Health)
		if err != nil {
			return err
		}
		nominal, err := s.DeclareParameter("nominal_functionality", *cfg.Nominal)
		if err != nil {
			return err
		}
		f, err := MakeFunctionality(s, FunctionalityConfig{Nominal: cfg.Nominal}, nominal, h)
		if err != nil {
			return err
		}
		c.Health, c.Functionality = h, f
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.Scope = scope
	return c, nil
}
