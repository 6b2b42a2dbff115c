package mechanism

import (
	"fmt"

	"github.com/cdcm-sim/cdcm/sim"
)

// ChangeValue returns an event action that sets node to v.
func ChangeValue(node *sim.Node, v any) sim.EventFunc {
	return func(*sim.Simulator) error { return node.Set(v) }
}

// ShowerWindow schedules flag to be set to 1 at start and back to 0 at end.
func ShowerWindow(s *sim.Simulator, flag *sim.Node, start, end float64) error {
	if end < start {
		return fmt.Errorf("shower window on %s: end %g before start %g", flag.Path(), end, start)
	}
	if err := s.Schedule(&sim.Event{At: start, Name: "shower_start", Scope: flag.Scope(), Action: ChangeValue(flag, 1)}); err != nil {
		return err
	}
	return s.Schedule(&sim.Event{At: end, Name: "shower_end", Scope: flag.Scope(), Action: ChangeValue(flag, 0)})
}

// ImpactConfig describes a recurring stochastic impact on a Variable.
type ImpactConfig struct {
	Name     string  // event name, also the RNG stream name
	Start    float64 // first occurrence
	Interval float64 // time between occurrences, > 0
	Min      float64 // impact magnitude drawn uniformly from [Min, Max)
	Max      float64
}

// RecurringImpact schedules target to receive a uniform draw every interval.
// The impact is reset to zero half a step later so that it acts on exactly one
// pass. Draws come from the simulator's per-event RNG stream.
func RecurringImpact(s *sim.Simulator, target *sim.Node, cfg ImpactConfig) error {
	if cfg.Max < cfg.Min {
		return fmt.Errorf("impact %s: max %g below min %g", cfg.Name, cfg.Max, cfg.Min)
	}
	rng := s.RNG().ForSubsystem(sim.SubsystemEvent(cfg.Name))
	return s.Every(cfg.Start, cfg.Interval, cfg.Name, func(s *sim.Simulator) error {
		magnitude := cfg.Min + rng.Float64()*(cfg.Max-cfg.Min)
		if err := target.Set(magnitude); err != nil {
			return err
		}
		reset := s.Now() + s.Clock().Delta()/2
		return s.Schedule(&sim.Event{At: reset, Name: cfg.Name + "_reset", Scope: target.Scope(), Action: ChangeValue(target, 0.0)})
	})
}
