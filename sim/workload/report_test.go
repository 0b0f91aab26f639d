package workload

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTwoDatacenters(t *testing.T, mutate func(*Scenario)) *Report {
	t.Helper()
	sc := mustParse(t, twoDatacenters)
	if mutate != nil {
		mutate(sc)
	}
	r, err := Build(sc, nil)
	require.NoError(t, err)
	return r.Execute()
}

func TestRunID_Deterministic(t *testing.T) {
	a := mustParse(t, twoDatacenters)
	b := mustParse(t, twoDatacenters)

	assert.Equal(t, RunID(a), RunID(b))
	_, err := uuid.Parse(RunID(a))
	assert.NoError(t, err)

	b.Seed++
	assert.NotEqual(t, RunID(a), RunID(b))
}

func TestNewReport_Aggregates(t *testing.T) {
	rep := runTwoDatacenters(t, nil)

	assert.Equal(t, "two-datacenters", rep.Scenario)
	assert.Equal(t, int64(42), rep.Seed)
	assert.Positive(t, rep.Events)
	assert.InDelta(t, 10.0, rep.Makespan, 1e-9)
	assert.InDelta(t, 10.0, rep.MeanTurnaround, 1e-9)

	// cloudlets are listed in id order
	require.Len(t, rep.Cloudlets, 6)
	for i, c := range rep.Cloudlets {
		assert.Equal(t, i, c.ID)
		assert.Equal(t, "alice", c.Broker)
		assert.Equal(t, "SUCCESS", c.Status)
		assert.InDelta(t, 10.0, c.CPUTime, 1e-9)
		assert.InDelta(t, 10.0, c.Cost, 1e-9)
	}

	require.Len(t, rep.Datacenters, 2)
	assert.Equal(t, DatacenterResult{Name: "small", Hosts: 1, RAM: 4096, ProcessingCost: 20}, rep.Datacenters[0])
	assert.Equal(t, 0, rep.Datacenters[1].VMs, "VMs are destroyed on wind-down")

	require.Len(t, rep.Brokers, 1)
	assert.Equal(t, BrokerResult{Name: "alice", Phase: "DONE", Rounds: 2, VMs: 3, Submitted: 6, Received: 6}, rep.Brokers[0])
	assert.Nil(t, rep.Trace)
}

func TestReport_Print(t *testing.T) {
	rep := runTwoDatacenters(t, func(sc *Scenario) { sc.Trace = "decisions" })

	var buf bytes.Buffer
	rep.Print(&buf)
	out := buf.String()

	assert.Contains(t, out, "=== Simulation Report ===")
	assert.Contains(t, out, "Run ID               : "+rep.RunID)
	assert.Contains(t, out, "Cloudlets            : 6 succeeded, 0 failed")
	assert.Contains(t, out, "Makespan             : 10.00")
	assert.Contains(t, out, "=== Cloudlets ===")
	assert.Contains(t, out, "=== Datacenters ===")
	assert.Contains(t, out, "4GiB")
	assert.Contains(t, out, "=== Brokers ===")
	assert.Contains(t, out, "=== Decision Trace ===")
	assert.Contains(t, out, "Provisioning Rounds  : 2")
}

func TestReport_Print_Aborted(t *testing.T) {
	// GIVEN VMs too large for any host
	rep := runTwoDatacenters(t, func(sc *Scenario) { sc.Brokers[0].VMs[0].PEs = 8 })

	var buf bytes.Buffer
	rep.Print(&buf)

	assert.True(t, rep.Brokers[0].Aborted)
	assert.Equal(t, 6, rep.Brokers[0].Pending)
	assert.Contains(t, buf.String(), "DONE (aborted)")
	assert.NotContains(t, buf.String(), "=== Cloudlets ===")
	assert.NotContains(t, buf.String(), "Makespan")
}

func TestReport_SaveJSON(t *testing.T) {
	rep := runTwoDatacenters(t, nil)
	path := filepath.Join(t.TempDir(), "report.json")

	require.NoError(t, rep.SaveJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.RunID, decoded.RunID)
	assert.Len(t, decoded.Cloudlets, 6)

	assert.Error(t, rep.SaveJSON(filepath.Join(t.TempDir(), "missing", "report.json")))
}
