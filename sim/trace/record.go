// Package trace provides history recording for tracked graph nodes.
// The record types are pure data; Recorder is the sim.Observer that fills them.
package trace

// SampleRecord captures the value of one node at one step, taken after Forward
// and before the commit.
type SampleRecord struct {
	Step  int64
	Time  float64
	Path  string
	Value float64
}

// EventErrorRecord captures a calendar callback failure.
type EventErrorRecord struct {
	Name        string
	ScheduledAt float64
	Now         float64
	Message     string
}
