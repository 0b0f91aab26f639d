package trace

import (
	"testing"
)

func TestSimulationTrace_RecordPlacement_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN a placement record is recorded
	st.RecordPlacement(PlacementRecord{
		Broker:       "broker_0",
		Clock:        0.2,
		VMID:         3,
		DatacenterID: 2,
		Success:      true,
		Round:        1,
	})

	// THEN the trace contains one placement record with correct data
	if len(st.Placements) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(st.Placements))
	}
	if st.Placements[0].VMID != 3 {
		t.Errorf("expected VM 3, got %d", st.Placements[0].VMID)
	}
	if !st.Placements[0].Success {
		t.Error("expected success=true")
	}
}

func TestSimulationTrace_RecordSubmission_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN a submission record is recorded
	st.RecordSubmission(SubmissionRecord{
		Broker:       "broker_0",
		Clock:        0.4,
		CloudletID:   7,
		VMID:         1,
		DatacenterID: 2,
	})

	// THEN the trace contains one submission record with correct data
	if len(st.Submissions) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(st.Submissions))
	}
	if st.Submissions[0].CloudletID != 7 {
		t.Errorf("expected cloudlet 7, got %d", st.Submissions[0].CloudletID)
	}
}

func TestSimulationTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN multiple records are added
	st.RecordPhase(PhaseRecord{Broker: "b", Clock: 0, From: "DISCOVERING", To: "PROVISIONING"})
	st.RecordPlacement(PlacementRecord{Broker: "b", Clock: 1, VMID: 0, Success: true})
	st.RecordPlacement(PlacementRecord{Broker: "b", Clock: 1, VMID: 1, Success: false})
	st.RecordPhase(PhaseRecord{Broker: "b", Clock: 1, From: "PROVISIONING", To: "SUBMITTING"})

	// THEN order is preserved
	if len(st.Placements) != 2 {
		t.Fatalf("expected 2 placements, got %d", len(st.Placements))
	}
	if st.Placements[0].VMID != 0 || st.Placements[1].VMID != 1 {
		t.Error("placement order not preserved")
	}
	if len(st.Phases) != 2 || st.Phases[1].To != "SUBMITTING" {
		t.Error("phase record mismatch")
	}
}

func TestSimulationTrace_Enabled(t *testing.T) {
	var nilTrace *SimulationTrace
	if nilTrace.Enabled() {
		t.Error("nil trace must not be enabled")
	}
	if NewSimulationTrace(TraceConfig{Level: TraceLevelNone}).Enabled() {
		t.Error("level none must not be enabled")
	}
	if !NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions}).Enabled() {
		t.Error("level decisions must be enabled")
	}
}

func TestIsValidTraceLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"decisions", true},
		{"", true}, // empty defaults to none
		{"detailed", false},
		{"foobar", false},
		{"NONE", false}, // case-sensitive
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := IsValidTraceLevel(tt.level); got != tt.valid {
				t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
			}
		})
	}
}
