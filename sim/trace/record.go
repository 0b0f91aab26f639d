// Package trace provides decision-trace recording for broker negotiation analysis.
// This package has no dependencies on sim/ or its sub-packages; it stores pure data types.
package trace

// PlacementRecord captures the outcome of one VM creation request.
type PlacementRecord struct {
	Broker       string
	Clock        float64
	VMID         int
	DatacenterID int
	Success      bool
	Round        int // provisioning round the request belonged to, from 1
}

// SubmissionRecord captures a cloudlet handed to a VM.
type SubmissionRecord struct {
	Broker       string
	Clock        float64
	CloudletID   int
	VMID         int
	DatacenterID int
	Bound        bool // the user pinned the cloudlet to this VM
}

// PhaseRecord captures a broker phase change and what caused it.
type PhaseRecord struct {
	Broker string
	Clock  float64
	From   string
	To     string
	Reason string
}
