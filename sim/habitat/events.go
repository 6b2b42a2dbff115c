package habitat

import (
	"github.com/sirupsen/logrus"

	"github.com/cdcm-sim/cdcm/sim"
	"github.com/cdcm-sim/cdcm/sim/mechanism"
)

// ImpactSchedule sets how often each class of meteorite strikes the shell.
// A zero interval disables that class.
type ImpactSchedule struct {
	SmallInterval float64
	LargeInterval float64
}

// ScheduleImpacts registers the recurring small and large impact events of st.
// The first impact of each class lands one interval into the run.
func ScheduleImpacts(s *sim.Simulator, st *Structure, m Material, sched ImpactSchedule) error {
	start := s.Now()
	if sched.SmallInterval > 0 {
		if err := mechanism.RecurringImpact(s, st.SmallImpact, mechanism.ImpactConfig{
			Name:     "small_impact",
			Start:    start + sched.SmallInterval,
			Interval: sched.SmallInterval,
			Min:      m.MinSmallImpact,
			Max:      m.MaxSmallImpact,
		}); err != nil {
			return err
		}
	}
	if sched.LargeInterval > 0 {
		if err := mechanism.RecurringImpact(s, st.LargeImpact, mechanism.ImpactConfig{
			Name:     "large_impact",
			Start:    start + sched.LargeInterval,
			Interval: sched.LargeInterval,
			Min:      m.MinLargeImpact,
			Max:      m.MaxLargeImpact,
		}); err != nil {
			return err
		}
	}
	logrus.Debugf("habitat: impacts scheduled every %g (small) / %g (large)", sched.SmallInterval, sched.LargeInterval)
	return nil
}
