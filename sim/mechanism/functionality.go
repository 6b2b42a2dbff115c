package mechanism

import (
	"fmt"

	"github.com/cdcm-sim/cdcm/sim"
)

// Product multiplies every input: independent-failure composition, where a
// single zero input zeroes the whole capability.
func Product() sim.Combinator {
	return sim.FloatFunc(func(xs ...float64) float64 {
		p := 1.0
		for _, x := range xs {
			p *= x
		}
		return p
	})
}

// Threshold is functional (1) only while every input exceeds tolerance.
func Threshold(tolerance float64) sim.Combinator {
	return sim.FloatFunc(func(xs ...float64) float64 {
		for _, x := range xs {
			if x <= tolerance {
				return 0
			}
		}
		return 1
	})
}

// Float returns a pointer to v, for the optional fields of the configs.
func Float(v float64) *float64 { return &v }

// FunctionalityConfig parameterizes MakeFunctionality.
type FunctionalityConfig struct {
	Name       string         // default sim.FunctionalityName
	Combinator sim.Combinator // default Product
	Nominal    *float64       // value before the first Forward (default 1)
	Track      bool
}

// MakeFunctionality declares a capability Variable in scope computed from
// upstream, where every element is either a *sim.Node or a *sim.Scope exposing
// a "functionality" node. With no upstream the node is a plain Variable at its
// nominal value.
func MakeFunctionality(scope *sim.Scope, cfg FunctionalityConfig, upstream ...any) (*sim.Node, error) {
	if cfg.Name == "" {
		cfg.Name = sim.FunctionalityName
	}
	nominal := 1.0
	if cfg.Nominal != nil {
		nominal = *cfg.Nominal
	}
	if cfg.Combinator == nil {
		cfg.Combinator = Product()
	}
	inputs := make([]sim.Binding, 0, len(upstream))
	for i, u := range upstream {
		n, err := functionalityOf(u)
		if err != nil {
			return nil, sim.NewConstructionError(sim.CodeType, scope.Path()+"."+cfg.Name, "argument %d: %v", i, err)
		}
		inputs = append(inputs, sim.Input(fmt.Sprintf("x%d", i), n))
	}
	opts := []sim.NodeOption{sim.WithDescription("functionality of the component")}
	if cfg.Track {
		opts = append(opts, sim.Tracked())
	}
	out, err := scope.DeclareVariable(cfg.Name, nominal, opts...)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return out, nil
	}
	if _, err := sim.DeclareFunction(out, cfg.Combinator, inputs); err != nil {
		return nil, err
	}
	return out, nil
}

func functionalityOf(u any) (*sim.Node, error) {
	switch v := u.(type) {
	case *sim.Node:
		if v != nil {
			return v, nil
		}
	case *sim.Scope:
		if v == nil {
			break
		}
		n, ok := v.Functionality()
		if !ok {
			return nil, fmt.Errorf("scope %s has no %q node", v.Path(), sim.FunctionalityName)
		}
		return n, nil
	}
	return nil, fmt.Errorf("need a node or a scope with a functionality, got %s", describe(u))
}
