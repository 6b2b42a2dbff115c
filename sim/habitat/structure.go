// Package habitat contains reference habitat assemblies built on the sim
// construction API.
package habitat

import (
	"math"
	"strconv"

	"github.com/cdcm-sim/cdcm/sim"
	"github.com/cdcm-sim/cdcm/sim/mechanism"
)

// StructureConfig parameterizes MakeStructure.
type StructureConfig struct {
	MaterialName        string
	Material            Material
	NominalPressure     float64 // kPa retained while the shell holds (default 101.3)
	OutgassingTolerance float64 // impact resistance at or below which pressure is lost (default 0.1)
}

// Structure is the habitat shell: an aging outer layer and an impact
// resistance State worn down by meteorite impacts.
type Structure struct {
	Scope            *sim.Scope
	BaseRate         *sim.Node
	OuterLayer       *mechanism.Component
	SmallImpact      *sim.Node
	LargeImpact      *sim.Node
	ImpactResistance *sim.Node
	Pressure         *sim.Node
	Functionality    *sim.Node
}

// MakeStructure builds the structure scope name under parent.
func MakeStructure(parent *sim.Scope, name string, clock *sim.Clock, cfg StructureConfig) (*Structure, error) {
	if cfg.NominalPressure == 0 {
		cfg.NominalPressure = 101.3
	}
	if cfg.OutgassingTolerance == 0 {
		cfg.OutgassingTolerance = 0.1
	}
	st := &Structure{}
	scope, err := parent.Build(name, func(s *sim.Scope) error {
		s.SetDescription("habitat structure (" + cfg.MaterialName + ")")
		var err error
		st.BaseRate, err = s.DeclareSpec("P:material_base_rate:"+strconv.FormatFloat(cfg.Material.AgingRate, 'g', -1, 64)+":1/hour",
			sim.WithDescription("base degradation rate of "+cfg.MaterialName))
		if err != nil {
			return err
		}
		st.OuterLayer, err = mechanism.MakeComponent(s, "outer_layer", clock.DT(), mechanism.ComponentConfig{
			Description: "outer structural layer (base degradation)",
			Rate:        st.BaseRate,
			Health:      &mechanism.HealthConfig{Nominal: 1, Track: true},
		})
		if err != nil {
			return err
		}
		if st.SmallImpact, err = s.DeclareVariable("small_impact", 0.0, sim.Tracked(), sim.WithDescription("small meteorite impact this step")); err != nil {
			return err
		}
		if st.LargeImpact, err = s.DeclareVariable("large_impact", 0.0, sim.Tracked(), sim.WithDescription("large meteorite impact this step")); err != nil {
			return err
		}
		if st.ImpactResistance, err = s.DeclareState("impact_resistance", 1.0, sim.Tracked()); err != nil {
			return err
		}
		_, err = sim.DeclareTransition(st.ImpactResistance, func(in *sim.Inputs) (any, error) {
			return math.Max(0, in.Self()-in.Float("small")-in.Float("large")), nil
		}, []sim.Binding{
			sim.Input("small", st.SmallImpact),
			sim.Input("large", st.LargeImpact),
		}, sim.Named("update_impact_resistance"))
		if err != nil {
			return err
		}

		nominal, err := s.DeclareParameter("nominal_pressure", cfg.NominalPressure, sim.WithUnits("kPa"))
		if err != nil {
			return err
		}
		tolerance, err := s.DeclareParameter("outgassing_tolerance", cfg.OutgassingTolerance)
		if err != nil {
			return err
		}
		if st.Pressure, err = s.DeclareVariable("pressure", cfg.NominalPressure, sim.WithUnits("kPa"), sim.Tracked()); err != nil {
			return err
		}
		_, err = sim.DeclareFunction(st.Pressure, func(in *sim.Inputs) (any, error) {
			if in.Float("resistance") > in.Float("tolerance") {
				return in.Float("nominal"), nil
			}
			return 0.0, nil
		}, []sim.Binding{
			sim.Input("resistance", st.ImpactResistance),
			sim.Input("tolerance", tolerance),
			sim.Input("nominal", nominal),
		}, sim.Expect("resistance", "tolerance", "nominal"))
		if err != nil {
			return err
		}

		st.Functionality, err = mechanism.MakeFunctionality(s, mechanism.FunctionalityConfig{Track: true},
			st.OuterLayer.Scope, st.ImpactResistance)
		return err
	})
	if err != nil {
		return nil, err
	}
	st.Scope = scope
	return st, nil
}
