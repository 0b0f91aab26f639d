// Package testutil provides shared test infrastructure for the simulator.
// It holds the golden dataset of example scenario outcomes and assertion
// helpers used by the sim/ test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one example scenario and the outcome it must reproduce.
type GoldenTestCase struct {
	Scenario string        `json:"scenario"` // relative to the repo root
	Metrics  GoldenMetrics `json:"metrics"`
}

// GoldenMetrics represents the expected results of a golden test case.
type GoldenMetrics struct {
	// Exact match metrics
	Succeeded          int `json:"succeeded"`
	Failed             int `json:"failed"`
	ProvisioningRounds int `json:"provisioning_rounds"`

	// Derived from the simulation clock
	Clock          float64 `json:"clock"`
	Makespan       float64 `json:"makespan"`
	MeanTurnaround float64 `json:"mean_turnaround"`

	Datacenters []GoldenDatacenter `json:"datacenters"`
}

// GoldenDatacenter holds the expected accounting of one datacenter.
type GoldenDatacenter struct {
	Name           string  `json:"name"`
	ProcessingCost float64 `json:"processing_cost"`
	VMCost         float64 `json:"vm_cost"`
	EnergyWh       float64 `json:"energy_wh"`
}

// RepoRoot returns the repository root, resolved relative to this source file.
func RepoRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to the repo root
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..")
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	path := filepath.Join(RepoRoot(t), "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
