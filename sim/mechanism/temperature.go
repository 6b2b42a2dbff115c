package mechanism

import "github.com/cdcm-sim/cdcm/sim"

// TemperatureWindow is an inclusive [Min, Max] range.
type TemperatureWindow struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether t lies inside the window.
func (w TemperatureWindow) Contains(t float64) bool { return t >= w.Min && t <= w.Max }

// OutOfSurvivalRate is the age rate once temperature leaves the survival window.
const OutOfSurvivalRate = 1.0

// TemperatureScaledRate returns base inside the operating window, twice base
// outside it but inside the survival window, and OutOfSurvivalRate beyond.
func TemperatureScaledRate(temp, base float64, operating, survival TemperatureWindow) float64 {
	switch {
	case operating.Contains(temp):
		return base
	case survival.Contains(temp):
		return 2 * base
	default:
		return OutOfSurvivalRate
	}
}

// MakeTemperatureAgeRate declares the Variable "age_rate" in scope, computed
// every pass from the live temperature and base rate nodes.
func MakeTemperatureAgeRate(scope *sim.Scope, temperature, base *sim.Node, operating, survival TemperatureWindow) (*sim.Node, error) {
	rate, err := scope.DeclareVariable("age_rate", base.Float(), sim.WithDescription("temperature-scaled age rate"))
	if err != nil {
		return nil, err
	}
	_, err = sim.DeclareFunction(rate, func(in *sim.Inputs) (any, error) {
		return TemperatureScaledRate(in.Float("temperature"), in.Float("base"), operating, survival), nil
	}, []sim.Binding{
		sim.Input("temperature", temperature),
		sim.Input("base", base),
	})
	if err != nil {
		return nil, err
	}
	return rate, nil
}
