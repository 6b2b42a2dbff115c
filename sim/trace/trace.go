package trace

// TraceLevel controls which nodes have their history retained.
type TraceLevel string

const (
	// TraceLevelNone disables recording (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelTracked records nodes declared with the track flag plus any
	// explicitly configured paths.
	TraceLevelTracked TraceLevel = "tracked"
	// TraceLevelAll records every numeric node of the graph.
	TraceLevelAll TraceLevel = "all"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:    true,
	TraceLevelTracked: true,
	TraceLevelAll:     true,
	"":                true, // empty: caller picks the default
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	Paths []string // extra node paths, relative to the root scope
}

// SimulationTrace collects node histories and event failures during a run.
type SimulationTrace struct {
	Config      TraceConfig
	Samples     []SampleRecord
	EventErrors []EventErrorRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:      config,
		Samples:     make([]SampleRecord, 0),
		EventErrors: make([]EventErrorRecord, 0),
	}
}

// RecordSample appends a node sample.
func (st *SimulationTrace) RecordSample(record SampleRecord) {
	st.Samples = append(st.Samples, record)
}

// RecordEventError appends an event failure.
func (st *SimulationTrace) RecordEventError(record EventErrorRecord) {
	st.EventErrors = append(st.EventErrors, record)
}

// Series returns the recorded values of path in step order.
func (st *SimulationTrace) Series(path string) []float64 {
	var out []float64
	for _, s := range st.Samples {
		if s.Path == path {
			out = append(out, s.Value)
		}
	}
	return out
}

// Paths returns the distinct recorded paths in first-seen order.
func (st *SimulationTrace) Paths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range st.Samples {
		if !seen[s.Path] {
			seen[s.Path] = true
			out = append(out, s.Path)
		}
	}
	return out
}
