package trace

import "strconv"

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalPlacements       int
	PlacedCount           int
	RejectedCount         int
	ProvisioningRounds    int
	TotalSubmissions      int
	BoundSubmissions      int
	UniqueDatacenters     int
	PlacementDistribution map[string]int // datacenter id → VMs created there
	SubmissionsPerVM      map[string]int // "broker/vm" → cloudlets submitted
	MaxVMLoad             int
	MeanVMLoad            float64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		PlacementDistribution: make(map[string]int),
		SubmissionsPerVM:      make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalPlacements = len(st.Placements)
	for _, p := range st.Placements {
		if p.Success {
			summary.PlacedCount++
			summary.PlacementDistribution[strconv.Itoa(p.DatacenterID)]++
		} else {
			summary.RejectedCount++
		}
	}
	summary.UniqueDatacenters = len(summary.PlacementDistribution)

	for _, ph := range st.Phases {
		if ph.To == "PROVISIONING" {
			summary.ProvisioningRounds++
		}
	}

	summary.TotalSubmissions = len(st.Submissions)
	for _, s := range st.Submissions {
		if s.Bound {
			summary.BoundSubmissions++
		}
		summary.SubmissionsPerVM[s.Broker+"/"+strconv.Itoa(s.VMID)]++
	}
	if len(summary.SubmissionsPerVM) > 0 {
		for _, n := range summary.SubmissionsPerVM {
			summary.MaxVMLoad = max(summary.MaxVMLoad, n)
		}
		summary.MeanVMLoad = float64(summary.TotalSubmissions) / float64(len(summary.SubmissionsPerVM))
	}

	return summary
}
