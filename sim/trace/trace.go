package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every broker placement, submission and phase change.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects broker decision records during a run.
// Records from every broker land in the same trace, in dispatch order.
type SimulationTrace struct {
	Config      TraceConfig
	Placements  []PlacementRecord
	Submissions []SubmissionRecord
	Phases      []PhaseRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:      config,
		Placements:  make([]PlacementRecord, 0),
		Submissions: make([]SubmissionRecord, 0),
		Phases:      make([]PhaseRecord, 0),
	}
}

// Enabled reports whether records should be collected. Safe on nil.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

// RecordPlacement appends a VM creation outcome.
func (st *SimulationTrace) RecordPlacement(record PlacementRecord) {
	st.Placements = append(st.Placements, record)
}

// RecordSubmission appends a cloudlet submission.
func (st *SimulationTrace) RecordSubmission(record SubmissionRecord) {
	st.Submissions = append(st.Submissions, record)
}

// RecordPhase appends a broker phase change.
func (st *SimulationTrace) RecordPhase(record PhaseRecord) {
	st.Phases = append(st.Phases, record)
}
