package sim

// ClockConfig parameterizes MakeClock.
type ClockConfig struct {
	DT    float64 // step size, must be > 0
	T0    float64 // simulated time at step 0
	Units string  // e.g. "hours"
}

// Clock is the shared simulated time of a run. It is exposed to the graph as a
// "clock" sub-scope holding a Parameter "dt" and a State "t"; the Simulator
// advances t on every commit to T0 + steps*DT, so t never accumulates
// floating-point drift.
type Clock struct {
	scope *Scope
	t     *Node
	dt    *Node
	t0    float64
	step  int64
}

// MakeClock declares the clock sub-scope under parent.
func MakeClock(parent *Scope, cfg ClockConfig) (*Clock, error) {
	if cfg.DT <= 0 {
		return nil, constructionErr(CodeInvalidValue, parent.Path()+".clock", "dt must be positive, got %g", cfg.DT)
	}
	c := &Clock{t0: cfg.T0}
	scope, err := parent.Build("clock", c.declare(cfg))
	if err != nil {
		return nil, err
	}
	c.scope = scope
	return c, nil
}

// newDetachedClock is used when a Simulator is created without a clock.
func newDetachedClock(dt float64) *Clock {
	c := &Clock{}
	s := NewScope("clock")
	if err := s.construct(c.declare(ClockConfig{DT: dt})); err != nil {
		panic(err)
	}
	c.scope = s
	return c
}

func (c *Clock) declare(cfg ClockConfig) func(*Scope) error {
	return func(s *Scope) error {
		dt, err := s.DeclareParameter("dt", cfg.DT, WithUnits(cfg.Units), WithDescription("simulation time step"))
		if err != nil {
			return err
		}
		t, err := s.DeclareState("t", cfg.T0, WithUnits(cfg.Units), WithDescription("simulated time"), Tracked())
		if err != nil {
			return err
		}
		t.clockDriven = true
		c.dt, c.t = dt, t
		return nil
	}
}

func (c *Clock) Scope() *Scope { return c.scope }
func (c *Clock) T() *Node { return c.t }
func (c *Clock) DT() *Node { return c.dt }

// Now returns the current simulated time.
func (c *Clock) Now() float64 { return c.t.Float() }

// Step returns the number of committed steps.
func (c *Clock) Step() int64 { return c.step }

// Delta returns the step size.
func (c *Clock) Delta() float64 { return c.dt.Float() }

func (c *Clock) advance() {
	c.step++
	c.t.value = c.t0 + float64(c.step)*c.Delta()
}
