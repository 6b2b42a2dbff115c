package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cdcm-sim/cdcm/sim"
	"github.com/cdcm-sim/cdcm/sim/habitat"
	"github.com/cdcm-sim/cdcm/sim/mechanism"
	"github.com/cdcm-sim/cdcm/sim/trace"
)

// scenario is a constructed, ready-to-step habitat run.
type scenario struct {
	cfg       *ScenarioConfig
	material  habitat.Material
	root      *sim.Scope
	sim       *sim.Simulator
	structure *habitat.Structure
	shower    *sim.Node
	trace     *trace.SimulationTrace
	recorder  *trace.Recorder
}

// buildScenario loads the material, assembles the habitat graph and schedules
// the scripted events. seed overrides the file's seed.
func buildScenario(cfg *ScenarioConfig, seed int64) (*scenario, error) {
	lib, err := habitat.LoadMaterialLibrary(cfg.Material.File)
	if err != nil {
		return nil, err
	}
	material, err := lib.Get(cfg.Material.Name)
	if err != nil {
		return nil, err
	}
	sc := &scenario{cfg: cfg, material: material}
	name := cfg.Name
	if name == "" {
		name = "habitat"
	}

	var clock *sim.Clock
	root, err := sim.Build(name, func(s *sim.Scope) error {
		var err error
		clock, err = sim.MakeClock(s, sim.ClockConfig{DT: cfg.Clock.DT, T0: cfg.Clock.T0, Units: cfg.Clock.Units})
		if err != nil {
			return err
		}
		_, err = s.Build("environment", func(env *sim.Scope) error {
			env.SetDescription("exterior conditions")
			shower, err := env.DeclareVariable("meteorite_shower", false, sim.Boolean(), sim.Tracked())
			sc.shower = shower
			return err
		})
		if err != nil {
			return err
		}
		sc.structure, err = habitat.MakeStructure(s, "structure", clock, habitat.StructureConfig{
			MaterialName: cfg.Material.Name,
			Material:     material,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	sc.root = root

	level := trace.TraceLevel(cfg.Trace.Level)
	if level == "" {
		level = trace.TraceLevelTracked
	}
	sc.trace = trace.NewSimulationTrace(trace.TraceConfig{Level: level, Paths: cfg.Trace.Paths})
	if sc.recorder, err = trace.NewRecorder(sc.trace, root); err != nil {
		return nil, err
	}

	sc.sim, err = sim.NewSimulator(root, sim.WithClock(clock), sim.WithSeed(seed), sim.WithObserver(sc.recorder))
	if err != nil {
		return nil, err
	}
	if err := habitat.ScheduleImpacts(sc.sim, sc.structure, material, habitat.ImpactSchedule{
		SmallInterval: cfg.Events.SmallImpactInterval,
		LargeInterval: cfg.Events.LargeImpactInterval,
	}); err != nil {
		return nil, err
	}
	if sh := cfg.Events.Shower; sh != nil {
		if err := mechanism.ShowerWindow(sc.sim, sc.shower, sh.Start, sh.End); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

// run steps the scenario and finalizes its trace.
func (sc *scenario) run(ctx context.Context, steps int) error {
	logrus.Infof("running %s: %d steps of %g %s with material %s",
		sc.root.Name(), steps, sc.cfg.Clock.DT, sc.cfg.Clock.Units, sc.cfg.Material.Name)
	err := sc.sim.Run(ctx, steps)
	sc.recorder.Finish(sc.sim)
	if err != nil {
		return fmt.Errorf("simulation stopped at t=%g: %w", sc.sim.Now(), err)
	}
	if n := len(sc.sim.EventErrors()); n > 0 {
		logrus.Warnf("%d scripted event(s) failed; see log for details", n)
	}
	return nil
}
