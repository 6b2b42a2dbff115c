package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdcm-sim/cdcm/sim/internal/testutil"
)

// newTestSimulator builds a root scope with a clock, lets build declare the
// rest of the graph and returns a simulator over it.
func newTestSimulator(t *testing.T, dt float64, build func(s *Scope, c *Clock) error, opts ...Option) *Simulator {
	t.Helper()
	var clock *Clock
	root, err := Build("root", func(s *Scope) error {
		c, err := MakeClock(s, ClockConfig{DT: dt, Units: "hours"})
		if err != nil {
			return err
		}
		clock = c
		return build(s, c)
	})
	require.NoError(t, err)
	sim, err := NewSimulator(root, append([]Option{WithClock(clock)}, opts...)...)
	require.NoError(t, err)
	return sim
}

func declareCharge(s *Scope) (*Node, error) {
	charge, err := s.DeclareState("charge", 100.0, Tracked())
	if err != nil {
		return nil, err
	}
	_, err = DeclareTransition(charge, func(in *Inputs) (any, error) {
		return math.Max(0, in.Self()-5), nil
	}, nil)
	return charge, err
}

func TestForward_RepeatedWithoutTransition_IsIdempotent(t *testing.T) {
	// GIVEN a chain of two Functions and a State fed by the second
	var a, b, c, level *Node
	sim := newTestSimulator(t, 1, func(s *Scope, _ *Clock) error {
		var err error
		if a, err = s.DeclareVariable("a", 3.0); err != nil {
			return err
		}
		if b, err = s.DeclareVariable("b", 0.0); err != nil {
			return err
		}
		if c, err = s.DeclareVariable("c", 0.0); err != nil {
			return err
		}
		if level, err = s.DeclareState("level", 10.0); err != nil {
			return err
		}
		// c is declared before b's producer on purpose: the plan must reorder.
		if _, err = DeclareFunction(c, FloatFunc(func(xs ...float64) float64 { return xs[0] + 1 }), []Binding{Input("b", b)}); err != nil {
			return err
		}
		if _, err = DeclareFunction(b, FloatFunc(func(xs ...float64) float64 { return 2 * xs[0] }), []Binding{Input("a", a)}); err != nil {
			return err
		}
		_, err = DeclareTransition(level, func(in *Inputs) (any, error) {
			return in.Self() - in.Float("c"), nil
		}, []Binding{Input("c", c)})
		return err
	})

	// WHEN Forward runs twice with no commit in between
	require.NoError(t, sim.Forward())
	first := []any{b.Value(), c.Value(), level.PendingValue()}
	require.NoError(t, sim.Forward())
	second := []any{b.Value(), c.Value(), level.PendingValue()}

	// THEN outputs and pending values are identical and already consistent
	assert.Equal(t, first, second)
	assert.Equal(t, 6.0, b.Value())
	assert.Equal(t, 7.0, c.Value())
	assert.Equal(t, 3.0, level.PendingValue())
}

func TestForward_LeavesStateCurrentValueUntouched(t *testing.T) {
	// GIVEN a draining charge State
	var charge *Node
	sim := newTestSimulator(t, 1, func(s *Scope, _ *Clock) error {
		var err error
		charge, err = declareCharge(s)
		return err
	})

	// WHEN only Forward runs
	require.NoError(t, sim.Forward())

	// THEN the current value is unchanged and the next value is pending
	assert.Equal(t, 100.0, charge.Value())
	assert.True(t, charge.HasPending())
	assert.Equal(t, 95.0, charge.PendingValue())

	// WHEN the paired Transition runs
	require.NoError(t, sim.Transition())

	// THEN the change becomes visible and nothing is pending
	assert.Equal(t, 95.0, charge.Value())
	assert.False(t, charge.HasPending())
}

func TestChargeScenario_ClipsAtZero(t *testing.T) {
	// GIVEN charge = 100 draining by 5 per step with dt = 1
	var charge *Node
	sim := newTestSimulator(t, 1, func(s *Scope, _ *Clock) error {
		var err error
		charge, err = declareCharge(s)
		return err
	})

	// WHEN stepping 21 times
	for i := 1; i <= 21; i++ {
		require.NoError(t, sim.Step())
		// THEN the value never goes negative
		assert.GreaterOrEqual(t, charge.Float(), 0.0, "step %d", i)
		if i == 20 {
			assert.Equal(t, 0.0, charge.Value(), "after step 20")
		}
	}
	assert.Equal(t, 0.0, charge.Value(), "after step 21")
	assert.Equal(t, 21.0, sim.Now())
}

func TestTransition_StatesReadEachOthersCurrentValue(t *testing.T) {
	// GIVEN two pooled States, each reading the other (one-step lag)
	var left, right *Node
	sim := newTestSimulator(t, 1, func(s *Scope, _ *Clock) error {
		var err error
		if left, err = s.DeclareState("left", 1.0); err != nil {
			return err
		}
		if right, err = s.DeclareState("right", 2.0); err != nil {
			return err
		}
		if _, err = DeclareTransition(left, func(in *Inputs) (any, error) { return in.Float("other"), nil }, []Binding{Input("other", right)}); err != nil {
			return err
		}
		_, err = DeclareTransition(right, func(in *Inputs) (any, error) { return in.Float("other"), nil }, []Binding{Input("other", left)})
		return err
	})

	// WHEN one step runs
	require.NoError(t, sim.Step())

	// THEN both saw the pre-step value of the other: a clean swap
	assert.Equal(t, 2.0, left.Value())
	assert.Equal(t, 1.0, right.Value())
}

func TestTransition_WithoutForward_ReturnsErrPhase(t *testing.T) {
	sim := newTestSimulator(t, 1, func(*Scope, *Clock) error { return nil })

	assert.ErrorIs(t, sim.Transition(), ErrPhase)
	require.NoError(t, sim.Forward())
	require.NoError(t, sim.Transition())
	assert.ErrorIs(t, sim.Transition(), ErrPhase, "a second commit needs a new Forward")
}

func TestForward_TransitionError_AbortsWithoutCommit(t *testing.T) {
	// GIVEN a counter State declared before a State whose transition can fail
	var trigger, counter, guarded *Node
	sim := newTestSimulator(t, 1, func(s *Scope, _ *Clock) error {
		var err error
		if trigger, err = s.DeclareVariable("trigger", 0.0); err != nil {
			return err
		}
		if counter, err = s.DeclareState("counter", 0.0); err != nil {
			return err
		}
		if guarded, err = s.DeclareState("guarded", 0.0); err != nil {
			return err
		}
		if _, err = DeclareTransition(counter, func(in *Inputs) (any, error) { return in.Self() + 1, nil }, nil); err != nil {
			return err
		}
		_, err = DeclareTransition(guarded, func(in *Inputs) (any, error) {
			if in.Bool("trigger") {
				return nil, errors.New("sensor fault")
			}
			return in.Self() + 1, nil
		}, []Binding{Input("trigger", trigger)})
		return err
	})
	require.NoError(t, sim.Step())

	// WHEN the second transition fails
	require.NoError(t, trigger.Set(1.0))
	err := sim.Step()

	// THEN the step aborts with an EvaluationError naming the State
	require.Error(t, err)
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "root.guarded", evalErr.Path)
	assert.Equal(t, "transition", evalErr.Kind)
	// AND no State was committed, not even the one evaluated first
	assert.Equal(t, 1.0, counter.Value())
	assert.False(t, counter.HasPending())
	assert.Equal(t, 1.0, sim.Now())
	assert.ErrorIs(t, sim.Transition(), ErrPhase)

	// WHEN the fault clears the run continues
	require.NoError(t, trigger.Set(0.0))
	require.NoError(t, sim.Step())
	assert.Equal(t, 2.0, counter.Value())
}

func TestForward_FunctionError_DiscardsPendingValues(t *testing.T) {
	// GIVEN a counter State and a Function that fails on demand
	var trigger, counter, ratio *Node
	sim := newTestSimulator(t, 1, func(s *Scope, _ *Clock) error {
		var err error
		if trigger, err = s.DeclareVariable("trigger", 0.0); err != nil {
			return err
		}
		if ratio, err = s.DeclareVariable("ratio", 0.0); err != nil {
			return err
		}
		if counter, err = s.DeclareState("counter", 0.0); err != nil {
			return err
		}
		if _, err = DeclareTransition(counter, func(in *Inputs) (any, error) { return in.Self() + 1, nil }, nil); err != nil {
			return err
		}
		_, err = DeclareFunction(ratio, func(in *Inputs) (any, error) {
			if in.Bool("trigger") {
				return nil, errors.New("division by zero")
			}
			return 0.5, nil
		}, []Binding{Input("trigger", trigger)})
		return err
	})
	require.NoError(t, sim.Forward())
	require.True(t, counter.HasPending())

	// WHEN the Function fails on a repeated Forward
	require.NoError(t, trigger.Set(1.0))
	err := sim.Forward()

	// THEN the step aborts with an EvaluationError naming the Function output
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "root.ratio", evalErr.Path)
	assert.Equal(t, "function", evalErr.Kind)
	// AND the pending value of the earlier Forward is gone
	assert.False(t, counter.HasPending())
	assert.ErrorIs(t, sim.Transition(), ErrPhase)
	assert.Equal(t, 0.0, counter.Value())
	assert.Equal(t, 0.0, sim.Now())
}

func TestForward_Panic_BecomesEvaluationError(t *testing.T) {
	var out *Node
	sim := newTestSimulator(t, 1, func(s *Scope, _ *Clock) error {
		var err error
		if out, err = s.DeclareVariable("out", 0.0); err != nil {
			return err
		}
		_, err = DeclareFunction(out, func(*Inputs) (any, error) { panic("boom") }, nil)
		return err
	})

	err := sim.Forward()

	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "function", evalErr.Kind)
	assert.Contains(t, err.Error(), "boom")
}

func TestForward_NonConformingReturn_IsEvaluationError(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"tuple", []any{1.0, "reason"}},
		{"slice", []float64{1, 2}},
		{"string", "ok"},
		{"nil", nil},
		{"NaN", math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out *Node
			sim := newTestSimulator(t, 1, func(s *Scope, _ *Clock) error {
				var err error
				if out, err = s.DeclareVariable("out", 0.0); err != nil {
					return err
				}
				_, err = DeclareFunction(out, func(*Inputs) (any, error) { return tt.value, nil }, nil)
				return err
			})

			err := sim.Forward()

			assert.True(t, IsEvaluationError(err))
			assert.ErrorIs(t, err, ErrNonConforming)
			assert.Equal(t, 0.0, out.Value())
		})
	}
}

func TestForward_UnknownInputName_IsEvaluationError(t *testing.T) {
	sim := newTestSimulator(t, 1, func(s *Scope, _ *Clock) error {
		x, err := s.DeclareVariable("x", 1.0)
		if err != nil {
			return err
		}
		out, err := s.DeclareVariable("out", 0.0)
		if err != nil {
			return err
		}
		_, err = DeclareFunction(out, func(in *Inputs) (any, error) { return in.Float("y"), nil }, []Binding{Input("x", x)})
		return err
	})

	err := sim.Forward()

	assert.True(t, IsEvaluationError(err))
	assert.Contains(t, err.Error(), `no input bound to "y"`)
}

func TestBoolean_NodeStoresZeroOrOne(t *testing.T) {
	var healthy, ok *Node
	sim := newTestSimulator(t, 1, func(s *Scope, _ *Clock) error {
		var err error
		if healthy, err = s.DeclareVariable("healthy", true, Boolean()); err != nil {
			return err
		}
		if ok, err = s.DeclareVariable("ok", false, Boolean()); err != nil {
			return err
		}
		_, err = DeclareFunction(ok, func(in *Inputs) (any, error) { return !in.Bool("h"), nil }, []Binding{Input("h", healthy)})
		return err
	})
	assert.Equal(t, 1.0, healthy.Value())

	require.NoError(t, healthy.Set(false))
	require.NoError(t, sim.Forward())

	assert.Equal(t, 0.0, healthy.Value())
	assert.Equal(t, 1.0, ok.Value())
}

func TestClock_AdvancesWithoutDrift(t *testing.T) {
	var clock *Clock
	sim := newTestSimulator(t, 0.1, func(_ *Scope, c *Clock) error {
		clock = c
		return nil
	})

	require.NoError(t, sim.Run(context.Background(), 1000))

	assert.Equal(t, int64(1000), clock.Step())
	assert.Equal(t, float64(1000)*clock.Delta(), sim.Now())
	testutil.AssertFloat64Equal(t, "t", 100, clock.T().Float(), 1e-12)
}

func TestClock_TIsReadableButNotWritable(t *testing.T) {
	var seen []float64
	sim := newTestSimulator(t, 2, func(s *Scope, c *Clock) error {
		out, err := s.DeclareVariable("now", 0.0)
		if err != nil {
			return err
		}
		_, err = DeclareFunction(out, func(in *Inputs) (any, error) {
			seen = append(seen, in.Float("t"))
			return in.Float("t"), nil
		}, []Binding{InputPath("t", "clock.t")})
		if err != nil {
			return err
		}
		_, err = DeclareTransition(c.T(), func(in *Inputs) (any, error) { return 0.0, nil }, nil)
		if !errors.Is(err, ErrWriterConflict) {
			return fmt.Errorf("expected writer conflict on clock.t, got %v", err)
		}
		return nil
	})

	require.NoError(t, sim.Run(context.Background(), 3))

	assert.Equal(t, []float64{0, 2, 4}, seen)
}

func TestRun_CancelledContext_StopsBetweenSteps(t *testing.T) {
	sim := newTestSimulator(t, 1, func(*Scope, *Clock) error { return nil })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sim.Run(ctx, 10)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0.0, sim.Now())
}

type countingObserver struct{ times []float64 }

func (o *countingObserver) Observe(s *Simulator) error {
	o.times = append(o.times, s.Now())
	return nil
}

func TestStep_NotifiesObserversBeforeCommit(t *testing.T) {
	obs := &countingObserver{}
	sim := newTestSimulator(t, 1, func(*Scope, *Clock) error { return nil }, WithObserver(obs))

	require.NoError(t, sim.Run(context.Background(), 3))

	assert.Equal(t, []float64{0, 1, 2}, obs.times)
}
