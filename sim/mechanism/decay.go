package mechanism

import "math"

// DecayLaw maps an instantaneous damage rate to the health lost per unit time.
type DecayLaw func(rate float64) float64

// Linear is the default law: g(rate) = rate.
func Linear() DecayLaw {
	return func(rate float64) float64 { return rate }
}

// Polynomial returns g(rate) = rate + rate^2 + ... + rate^order.
// Orders below 1 are treated as 1.
func Polynomial(order int) DecayLaw {
	if order < 1 {
		order = 1
	}
	return func(rate float64) float64 {
		sum := 0.0
		term := 1.0
		for i := 1; i <= order; i++ {
			term *= rate
			sum += term
		}
		return sum
	}
}

// Bounds is the closed interval health is clipped to.
type Bounds struct {
	Lower float64
	Upper float64
}

// UnitBounds is the default [0, 1] interval.
var UnitBounds = Bounds{Lower: 0, Upper: 1}

// Clip clamps x into [Lower, Upper].
func (b Bounds) Clip(x float64) float64 {
	return math.Min(b.Upper, math.Max(b.Lower, x))
}

// Step computes clip(current - dt*g(rate)).
func Step(law DecayLaw, bounds Bounds, current, dt, rate float64) float64 {
	return bounds.Clip(current - dt*law(rate))
}
