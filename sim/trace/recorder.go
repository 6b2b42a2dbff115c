package trace

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/cdcm-sim/cdcm/sim"
)

// Recorder samples a fixed set of nodes on every step of a Simulator.
type Recorder struct {
	trace *SimulationTrace
	nodes []*sim.Node
}

// NewRecorder selects the nodes of root to record according to the trace
// configuration. Configured paths that do not resolve are a lookup error.
func NewRecorder(st *SimulationTrace, root *sim.Scope) (*Recorder, error) {
	r := &Recorder{trace: st}
	level := st.Config.Level
	if level == "" || level == TraceLevelNone {
		return r, nil
	}
	selected := make(map[*sim.Node]bool)
	root.Walk(func(n *sim.Node) {
		if n.Kind() == sim.KindOpaque {
			return
		}
		if level == TraceLevelAll || n.IsTracked() {
			selected[n] = true
			r.nodes = append(r.nodes, n)
		}
	})
	for _, p := range st.Config.Paths {
		n, err := root.Node(p)
		if err != nil {
			return nil, fmt.Errorf("trace path: %w", err)
		}
		if !selected[n] {
			selected[n] = true
			r.nodes = append(r.nodes, n)
		}
	}
	logrus.Debugf("trace: recording %d nodes at level %q", len(r.nodes), level)
	return r, nil
}

// Nodes returns the recorded nodes in sampling order.
func (r *Recorder) Nodes() []*sim.Node { return append([]*sim.Node(nil), r.nodes...) }

// Observe implements sim.Observer.
func (r *Recorder) Observe(s *sim.Simulator) error {
	step, now := s.Clock().Step(), s.Now()
	for _, n := range r.nodes {
		v := n.Float()
		if math.IsNaN(v) {
			return fmt.Errorf("trace: %s holds a non-numeric value %v", n.Path(), n.Value())
		}
		r.trace.RecordSample(SampleRecord{Step: step, Time: now, Path: n.Path(), Value: v})
	}
	return nil
}

// Finish copies the simulator's retained event failures into the trace.
func (r *Recorder) Finish(s *sim.Simulator) {
	for _, e := range s.EventErrors() {
		r.trace.RecordEventError(EventErrorRecord{
			Name:        e.Name,
			ScheduledAt: e.ScheduledAt,
			Now:         e.Now,
			Message:     e.Err.Error(),
		})
	}
}
