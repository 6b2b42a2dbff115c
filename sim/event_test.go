package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery_FiresOnlyAtMultiplesOfInterval(t *testing.T) {
	// GIVEN a recurring event every 100 hours starting at t=100
	sim := newTestSimulator(t, 1, func(*Scope, *Clock) error { return nil })
	var fired []float64
	require.NoError(t, sim.Every(100, 100, "inspection", func(s *Simulator) error {
		fired = append(fired, s.Now())
		return nil
	}))

	// WHEN running 350 one-hour steps
	require.NoError(t, sim.Run(context.Background(), 350))

	// THEN it fired at 100, 200 and 300 only
	assert.Equal(t, []float64{100, 200, 300}, fired)
	assert.Equal(t, 1, sim.Calendar().Len(), "the t=400 occurrence stays queued")
}

func TestEvery_FractionalStep_FiresOnEveryStep(t *testing.T) {
	// GIVEN dt=0.1, which has no exact binary representation, and an event every step
	sim := newTestSimulator(t, 0.1, func(*Scope, *Clock) error { return nil })
	var fired int64
	var late int
	require.NoError(t, sim.Every(0.1, 0.1, "tick", func(s *Simulator) error {
		fired++
		if s.Clock().Step() != fired {
			late++
		}
		return nil
	}))

	// WHEN running long enough for summed due times to drift from the clock
	require.NoError(t, sim.Run(context.Background(), 200000))

	// THEN every occurrence fired on its own step and the chain is intact
	assert.Equal(t, int64(199999), fired)
	assert.Zero(t, late)
	assert.Empty(t, sim.EventErrors())
	assert.Equal(t, 1, sim.Calendar().Len())
}

func TestEvents_EarlierCallbackVisibleBeforeLater(t *testing.T) {
	// GIVEN a Variable changed at t=2 and t=5, observed through a Function
	var mode, out *Node
	sim := newTestSimulator(t, 1, func(s *Scope, _ *Clock) error {
		var err error
		if mode, err = s.DeclareVariable("mode", 0.0); err != nil {
			return err
		}
		if out, err = s.DeclareVariable("out", 0.0); err != nil {
			return err
		}
		_, err = DeclareFunction(out, FloatFunc(func(xs ...float64) float64 { return 10 * xs[0] }), []Binding{Input("mode", mode)})
		return err
	})
	require.NoError(t, sim.AddEvent(5, "second", func(*Simulator) error { return mode.Set(2.0) }))
	require.NoError(t, sim.AddEvent(2, "first", func(*Simulator) error { return mode.Set(1.0) }))

	// WHEN stepping through t=0..6
	var seen []float64
	for i := 0; i < 7; i++ {
		require.NoError(t, sim.Forward())
		seen = append(seen, out.Float())
		require.NoError(t, sim.Transition())
	}

	// THEN each callback is visible from its own due time onward
	assert.Equal(t, []float64{0, 0, 10, 10, 10, 20, 20}, seen)
}

func TestEvents_TiesFireInInsertionOrder(t *testing.T) {
	sim := newTestSimulator(t, 1, func(*Scope, *Clock) error { return nil })
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		require.NoError(t, sim.AddEvent(3, name, func(*Simulator) error {
			order = append(order, name)
			return nil
		}))
	}

	require.NoError(t, sim.Run(context.Background(), 5))

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestEvents_ScheduledDuringDispatch_WaitForNextForward(t *testing.T) {
	// GIVEN an event at t=0 that schedules another one at the current time
	sim := newTestSimulator(t, 1, func(*Scope, *Clock) error { return nil })
	var fired []float64
	require.NoError(t, sim.AddEvent(0, "parent", func(s *Simulator) error {
		return s.AddEvent(s.Now(), "child", func(s *Simulator) error {
			fired = append(fired, s.Now())
			return nil
		})
	}))

	// WHEN Forward runs twice at t=0 and then the run continues
	require.NoError(t, sim.Forward())
	assert.Empty(t, fired, "child is not re-entered in the same dispatch")
	require.NoError(t, sim.Transition())
	require.NoError(t, sim.Step())

	// THEN the child fires on the next Forward, at t=1
	assert.Equal(t, []float64{1}, fired)
}

func TestEvents_CallbackError_DoesNotAbortStep(t *testing.T) {
	// GIVEN a failing event and a panicking event alongside a healthy State
	var charge *Node
	sim := newTestSimulator(t, 1, func(s *Scope, _ *Clock) error {
		var err error
		charge, err = declareCharge(s)
		return err
	})
	require.NoError(t, sim.AddEvent(1, "bad_script", func(*Simulator) error { return errors.New("typo in script") }))
	require.NoError(t, sim.AddEvent(1, "panicky_script", func(*Simulator) error { panic("nil map") }))
	var after bool
	require.NoError(t, sim.AddEvent(1, "good_script", func(*Simulator) error {
		after = true
		return nil
	}))

	// WHEN stepping across t=1
	require.NoError(t, sim.Run(context.Background(), 3))

	// THEN the step committed, later events still ran and both failures are retained
	assert.Equal(t, 85.0, charge.Value())
	assert.True(t, after)
	errs := sim.EventErrors()
	require.Len(t, errs, 2)
	assert.Equal(t, "bad_script", errs[0].Name)
	assert.Equal(t, 1.0, errs[0].ScheduledAt)
	assert.Equal(t, 1.0, errs[0].Now)
	assert.EqualError(t, errs[0].Unwrap(), "typo in script")
	assert.Equal(t, "panicky_script", errs[1].Name)
	assert.Contains(t, errs[1].Error(), "nil map")
}

func TestCalendar_DirectScheduleWithoutScope_FailureIsRetained(t *testing.T) {
	// GIVEN an event put straight on the calendar with no scope
	sim := newTestSimulator(t, 1, func(*Scope, *Clock) error { return nil })
	sim.Calendar().Schedule(&Event{At: 0, Name: "raw", Action: func(*Simulator) error { return errors.New("bad input") }})

	// WHEN its callback fails
	require.NoError(t, sim.Forward())

	// THEN the failure is kept like any other event error
	errs := sim.EventErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, "raw", errs[0].Name)
	require.NoError(t, sim.Transition())
}

func TestEvery_FailingOccurrence_KeepsChainAlive(t *testing.T) {
	sim := newTestSimulator(t, 1, func(*Scope, *Clock) error { return nil })
	count := 0
	require.NoError(t, sim.Every(1, 2, "flaky", func(*Simulator) error {
		count++
		return errors.New("flaky")
	}))

	require.NoError(t, sim.Run(context.Background(), 6))

	assert.Equal(t, 3, count, "fired at t=1, 3, 5")
	assert.Len(t, sim.EventErrors(), 3)
}

func TestAddEvent_InThePast_ReturnsScheduleError(t *testing.T) {
	// GIVEN a simulation at t=5
	sim := newTestSimulator(t, 1, func(*Scope, *Clock) error { return nil })
	require.NoError(t, sim.Run(context.Background(), 5))

	// WHEN scheduling retroactively
	err := sim.AddEvent(2, "late", func(*Simulator) error { return nil })

	// THEN a recoverable ScheduleError is reported
	var schedErr *ScheduleError
	require.ErrorAs(t, err, &schedErr)
	assert.Equal(t, 2.0, schedErr.At)
	assert.Equal(t, 5.0, schedErr.Now)
	assert.Equal(t, 0, sim.Calendar().Len())

	// AND scheduling at the current time is accepted
	assert.NoError(t, sim.AddEvent(5, "now", func(*Simulator) error { return nil }))
}

func TestAddEvent_InvalidArguments(t *testing.T) {
	sim := newTestSimulator(t, 1, func(*Scope, *Clock) error { return nil })

	assert.Error(t, sim.AddEvent(1, "no_action", nil))
	assert.Error(t, sim.Every(1, 0, "zero_interval", func(*Simulator) error { return nil }))
}

func TestCalendar_PopsInTimeThenInsertionOrder(t *testing.T) {
	c := NewCalendar()
	noop := func(*Simulator) error { return nil }
	c.Schedule(&Event{At: 3, Name: "late", Action: noop})
	c.Schedule(&Event{At: 1, Name: "early", Action: noop})
	c.Schedule(&Event{At: 3, Name: "late_second", Action: noop})

	var names []string
	for c.Len() > 0 {
		names = append(names, c.PopNext().Name)
	}

	assert.Equal(t, []string{"early", "late", "late_second"}, names)
	assert.Nil(t, c.Peek())
	assert.Nil(t, c.PopNext())
}
