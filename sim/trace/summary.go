package trace

// NodeSummary aggregates the history of one node.
type NodeSummary struct {
	Samples int
	Initial float64
	Final   float64
	Min     float64
	Max     float64
}

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalSamples int
	Steps        int
	EventErrors  int
	Nodes        map[string]NodeSummary // node path → summary
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		Nodes: make(map[string]NodeSummary),
	}
	if st == nil {
		return summary
	}

	summary.TotalSamples = len(st.Samples)
	summary.EventErrors = len(st.EventErrors)
	steps := make(map[int64]bool)
	for _, s := range st.Samples {
		steps[s.Step] = true
		ns, ok := summary.Nodes[s.Path]
		if !ok {
			ns = NodeSummary{Initial: s.Value, Min: s.Value, Max: s.Value}
		}
		ns.Samples++
		ns.Final = s.Value
		if s.Value < ns.Min {
			ns.Min = s.Value
		}
		if s.Value > ns.Max {
			ns.Max = s.Value
		}
		summary.Nodes[s.Path] = ns
	}
	summary.Steps = len(steps)

	return summary
}
