package mechanism

import (
	"fmt"

	"github.com/cdcm-sim/cdcm/sim"
)

// HealthConfig parameterizes MakeContinuousHealthState and MakeHealthMechanism.
type HealthConfig struct {
	Name    string   // node name (default "health")
	Nominal float64  // initial health value
	Law     DecayLaw // decay law (default Linear)
	Bounds  *Bounds  // clip interval (default UnitBounds)
	Binary  bool     // boolean health Variable; only valid with a nil rate
	Track   bool     // retain history
}

func (c HealthConfig) withDefaults(name string) HealthConfig {
	if c.Name == "" {
		c.Name = name
	}
	if c.Law == nil {
		c.Law = Linear()
	}
	if c.Bounds == nil {
		b := UnitBounds
		c.Bounds = &b
	}
	return c
}

// MakeContinuousHealthState declares a health State in scope and its
// Transition next = clip(current - dt*g(rate)).
//
// rate is either a number, which becomes the Parameter "<name>_rate", or a
// *sim.Node whose live value (often a Function output) is read every step.
func MakeContinuousHealthState(scope *sim.Scope, dt *sim.Node, rate any, cfg HealthConfig) (*sim.Node, error) {
	cfg = cfg.withDefaults("health")
	if dt == nil {
		return nil, sim.NewConstructionError(sim.CodeArity, scope.Path(), "health %q needs a dt node", cfg.Name)
	}
	if cfg.Binary {
		return nil, sim.NewConstructionError(sim.CodeType, scope.Path()+"."+cfg.Name, "binary health states are not supported; use a nil rate for a binary health variable")
	}
	rateNode, err := rateNode(scope, cfg.Name, rate)
	if err != nil {
		return nil, err
	}
	opts := []sim.NodeOption{sim.WithDescription("continuous health state")}
	if cfg.Track {
		opts = append(opts, sim.Tracked())
	}
	state, err := scope.DeclareState(cfg.Name, cfg.Nominal, opts...)
	if err != nil {
		return nil, err
	}
	law, bounds := cfg.Law, *cfg.Bounds
	_, err = sim.DeclareTransition(state, func(in *sim.Inputs) (any, error) {
		return Step(law, bounds, in.Self(), in.Float("dt"), in.Float("rate")), nil
	}, []sim.Binding{
		sim.Input("dt", dt),
		sim.Input("rate", rateNode),
	}, sim.Named(cfg.Name+"_state_transition"))
	if err != nil {
		return nil, err
	}
	return state, nil
}

// MakeAgingMechanism is MakeContinuousHealthState for a node named "age".
func MakeAgingMechanism(scope *sim.Scope, dt *sim.Node, rate any, cfg HealthConfig) (*sim.Node, error) {
	cfg.Name = "age"
	return MakeContinuousHealthState(scope, dt, rate, cfg)
}

// MakeHealthMechanism declares a health node. A nil rate yields a plain
// health Variable (boolean when cfg.Binary) that events or drivers set
// directly; otherwise a continuous health State is built.
func MakeHealthMechanism(scope *sim.Scope, dt *sim.Node, rate any, cfg HealthConfig) (*sim.Node, error) {
	if rate != nil {
		return MakeContinuousHealthState(scope, dt, rate, cfg)
	}
	cfg = cfg.withDefaults("health")
	opts := []sim.NodeOption{sim.WithDescription("health variable")}
	if cfg.Binary {
		opts = append(opts, sim.Boolean())
	}
	if cfg.Track {
		opts = append(opts, sim.Tracked())
	}
	return scope.DeclareVariable(cfg.Name, cfg.Nominal, opts...)
}

func rateNode(scope *sim.Scope, name string, rate any) (*sim.Node, error) {
	switch r := rate.(type) {
	case *sim.Node:
		if r == nil {
			break
		}
		return r, nil
	case float64:
		return scope.DeclareParameter(name+"_rate", r, sim.WithDescription("health damage rate"))
	case int:
		return scope.DeclareParameter(name+"_rate", float64(r), sim.WithDescription("health damage rate"))
	}
	return nil, sim.NewConstructionError(sim.CodeType, scope.Path()+"."+name, "rate must be a number or a node, got %s", describe(rate))
}

func describe(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
