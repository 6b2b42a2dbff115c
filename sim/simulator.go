package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

type phase int

const (
	phaseForward phase = iota // ready for Forward; nothing pending
	phaseCommit               // Forward succeeded; pending values await Transition
)

// Observer is notified after every successful Forward of Step/Run, before the
// commit. This is where history recorders sample tracked nodes.
type Observer interface {
	Observe(s *Simulator) error
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithClock uses a clock declared in the graph with MakeClock.
func WithClock(c *Clock) Option { return func(s *Simulator) { s.clock = c } }

// WithSeed seeds the partitioned RNG handed to scripted events.
func WithSeed(seed int64) Option {
	return func(s *Simulator) { s.rng = NewPartitionedRNG(NewSimulationKey(seed)) }
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

// Simulator is the stepper: it owns the evaluation plan of a scope tree, the
// shared clock and the event calendar, and drives the two-phase protocol
// Forward (events, Functions, Transitions) -> Transition (commit, tick).
//
// Thread-safety: NOT thread-safe. A graph is stepped from a single goroutine.
type Simulator struct {
	root        *Scope
	clock       *Clock
	plan        *plan
	calendar    *Calendar
	rng         *PartitionedRNG
	observers   []Observer
	phase       phase
	eventErrors []*EventError
}

// NewSimulator finalizes root, compiles its evaluation order and prepares the
// calendar. A cycle among Functions is reported as a ConstructionError.
func NewSimulator(root *Scope, opts ...Option) (*Simulator, error) {
	if root == nil {
		return nil, constructionErr(CodeArity, "", "nil root scope")
	}
	s := &Simulator{
		root:     root,
		calendar: NewCalendar(),
		rng:      NewPartitionedRNG(NewSimulationKey(42)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = newDetachedClock(1)
	}
	root.Finalize()
	p, err := compile(root)
	if err != nil {
		return nil, err
	}
	s.plan = p
	logrus.Debugf("simulator %s: %d functions, %d transitions, %d states",
		root.Path(), len(p.functions), len(p.transitions), len(p.states))
	return s, nil
}

func (s *Simulator) Root() *Scope { return s.root }
func (s *Simulator) Clock() *Clock { return s.clock }
func (s *Simulator) Calendar() *Calendar { return s.calendar }
func (s *Simulator) RNG() *PartitionedRNG { return s.rng }

// Now returns the current simulated time.
func (s *Simulator) Now() float64 { return s.clock.Now() }

// EventErrors returns the callback failures caught so far.
func (s *Simulator) EventErrors() []*EventError {
	return append([]*EventError(nil), s.eventErrors...)
}

// tolerance absorbs float error when comparing due times to the clock.
func (s *Simulator) tolerance() float64 { return 1e-9 * s.clock.Delta() }

// AddEvent schedules fn to run at simulated time at. Scheduling before the
// current time is rejected with a ScheduleError; at == Now is accepted and
// fires on the next Forward.
func (s *Simulator) AddEvent(at float64, name string, fn EventFunc) error {
	return s.Schedule(&Event{At: at, Name: name, Action: fn})
}

// Schedule inserts a fully specified event.
func (s *Simulator) Schedule(e *Event) error {
	if e == nil || e.Action == nil {
		return fmt.Errorf("event %q has no action", eventName(e))
	}
	now := s.Now()
	if math.IsNaN(e.At) || e.At < now-s.tolerance() {
		return &ScheduleError{Name: e.Name, At: e.At, Now: now}
	}
	if e.Scope == nil {
		e.Scope = s.root
	}
	s.calendar.Schedule(e)
	return nil
}

// Every schedules fn at start and then every interval. Occurrence k is due at
// start + k*interval, so due times do not accumulate rounding error. The next
// occurrence is registered before fn runs, so a failing occurrence does not end
// the chain.
func (s *Simulator) Every(start, interval float64, name string, fn EventFunc) error {
	if interval <= 0 {
		return fmt.Errorf("event %q: interval must be positive, got %g", name, interval)
	}
	var occurrence EventFunc
	var k int64
	occurrence = func(sim *Simulator) error {
		k++
		if err := sim.AddEvent(start+float64(k)*interval, name, occurrence); err != nil {
			return err
		}
		return fn(sim)
	}
	return s.AddEvent(start, name, occurrence)
}

// Forward dispatches due events, evaluates every Function in dependency order
// and every Transition, leaving State current values untouched. On an
// evaluation error all pending values are discarded and the step is aborted.
// Repeated Forward calls without Transition re-evaluate the same inputs.
func (s *Simulator) Forward() error {
	now := s.Now()
	logrus.Debugf("[t %.3f] forward", now)
	s.dispatch(now)
	s.discardPending()
	for _, f := range s.plan.functions {
		if err := f.eval(); err != nil {
			s.abort()
			return err
		}
	}
	for _, t := range s.plan.transitions {
		if err := t.eval(); err != nil {
			s.abort()
			return err
		}
	}
	s.phase = phaseCommit
	return nil
}

// Transition promotes every pending State value to current in one pass and
// advances the clock by dt. It fails with ErrPhase unless the last Forward
// succeeded.
func (s *Simulator) Transition() error {
	if s.phase != phaseCommit {
		return ErrPhase
	}
	for _, n := range s.plan.states {
		if n.hasPending {
			n.value = n.pending
			n.pending, n.hasPending = nil, false
		}
	}
	s.clock.advance()
	s.phase = phaseForward
	return nil
}

// Step runs Forward, the observers, then Transition.
func (s *Simulator) Step() error {
	if err := s.Forward(); err != nil {
		return err
	}
	for _, o := range s.observers {
		if err := o.Observe(s); err != nil {
			s.abort()
			return fmt.Errorf("observer at t=%g: %w", s.Now(), err)
		}
	}
	return s.Transition()
}

// Run performs n steps, stopping early between steps if ctx is done.
func (s *Simulator) Run(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	logrus.Infof("[t %.3f] simulation ran %d steps", s.Now(), n)
	return nil
}

// dispatch fires every event due at now. Events scheduled by a callback during
// this dispatch wait for the next Forward even if already due.
func (s *Simulator) dispatch(now float64) {
	limit := s.calendar.watermark()
	var held []*Event
	for {
		e := s.calendar.Peek()
		if e == nil || e.At > now+s.tolerance() {
			break
		}
		s.calendar.PopNext()
		if e.seq >= limit {
			held = append(held, e)
			continue
		}
		s.fire(e, now)
	}
	s.calendar.requeue(held)
}

func (s *Simulator) fire(e *Event, now float64) {
	logrus.Debugf("[t %.3f] event %q (scheduled at %g)", now, e.Name, e.At)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return e.Action(s)
	}()
	if err == nil {
		return
	}
	ee := &EventError{Name: e.Name, ScheduledAt: e.At, Now: now, Err: err}
	s.eventErrors = append(s.eventErrors, ee)
	scope := e.Scope
	if scope == nil {
		scope = s.root
	}
	logrus.WithFields(logrus.Fields{
		"event":        e.Name,
		"scheduled_at": e.At,
		"now":          now,
		"scope":        scope.Path(),
	}).Errorf("event callback failed: %v", err)
}

func (s *Simulator) discardPending() {
	for _, n := range s.plan.states {
		n.pending, n.hasPending = nil, false
	}
}

func (s *Simulator) abort() {
	s.discardPending()
	s.phase = phaseForward
}

func eventName(e *Event) string {
	if e == nil {
		return ""
	}
	return e.Name
}
