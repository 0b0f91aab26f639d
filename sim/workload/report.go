package workload

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	units "github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/cloudsim-go/cloudsim/sim/resource"
	"github.com/cloudsim-go/cloudsim/sim/trace"
)

// CloudletResult is the outcome of one cloudlet as its broker saw it.
type CloudletResult struct {
	Broker       string  `json:"broker"`
	ID           int     `json:"id"`
	VMID         int     `json:"vm_id"`
	DatacenterID int     `json:"datacenter_id"`
	Status       string  `json:"status"`
	Submit       float64 `json:"submit"`
	Start        float64 `json:"start"`
	Finish       float64 `json:"finish"`
	CPUTime      float64 `json:"cpu_time"`
	Cost         float64 `json:"cost"`
}

// DatacenterResult summarizes one datacenter at the end of a run.
type DatacenterResult struct {
	Name            string  `json:"name"`
	Hosts           int     `json:"hosts"`
	FailedHosts     int     `json:"failed_hosts"`
	VMs             int     `json:"vms"` // still placed when the run ended
	RAM             int64   `json:"ram_mb"`
	ProcessingCost  float64 `json:"processing_cost"`
	VMCost          float64 `json:"vm_cost"`
	EnergyWh        float64 `json:"energy_wh"`
	MigrationErrors int     `json:"migration_errors"`
}

// BrokerResult summarizes one broker at the end of a run.
type BrokerResult struct {
	Name      string `json:"name"`
	Phase     string `json:"phase"`
	Aborted   bool   `json:"aborted"`
	Rounds    int    `json:"rounds"`
	VMs       int    `json:"vms"`
	Submitted int    `json:"submitted"`
	Received  int    `json:"received"`
	Pending   int    `json:"pending"`
}

// Report aggregates the results of a run.
type Report struct {
	RunID          string              `json:"run_id"`
	Scenario       string              `json:"scenario"`
	Seed           int64               `json:"seed"`
	Clock          float64             `json:"clock"`
	Events         int64               `json:"events"`
	Succeeded      int                 `json:"succeeded"`
	Failed         int                 `json:"failed"`
	Makespan       float64             `json:"makespan"`
	MeanTurnaround float64             `json:"mean_turnaround"`
	Cloudlets      []CloudletResult    `json:"cloudlets"`
	Datacenters    []DatacenterResult  `json:"datacenters"`
	Brokers        []BrokerResult      `json:"brokers"`
	Trace          *trace.TraceSummary `json:"trace,omitempty"`
}

// RunID derives a stable identifier from the scenario content, so reruns of
// the same scenario and seed share it.
func RunID(sc *Scenario) string {
	data, err := yaml.Marshal(sc)
	if err != nil {
		data = []byte(fmt.Sprintf("%s/%d", sc.Name, sc.Seed))
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, data).String()
}

// NewReport collects the results of r, whose simulation ended at clock.
func NewReport(r *Run, clock float64) *Report {
	rep := &Report{
		RunID:    RunID(r.Scenario),
		Scenario: r.Scenario.Name,
		Seed:     r.Scenario.Seed,
		Clock:    clock,
		Events:   r.Sim.Dispatched(),
	}

	var turnaround float64
	for _, b := range r.Brokers {
		received := b.Received()
		for _, cl := range received {
			res := CloudletResult{
				Broker:       b.Name(),
				ID:           cl.ID(),
				VMID:         cl.VMID(),
				DatacenterID: cl.DatacenterID(),
				Status:       cl.Status().String(),
				Submit:       cl.SubmitTime(),
				Start:        cl.StartTime(),
				Finish:       cl.FinishTime(),
				CPUTime:      cl.ActualCPUTime(),
				Cost:         cl.ProcessingCost(),
			}
			if cl.Status() == resource.CloudletSuccess {
				rep.Succeeded++
				rep.Makespan = max(rep.Makespan, cl.FinishTime())
				turnaround += cl.FinishTime() - cl.SubmitTime()
			} else {
				rep.Failed++
			}
			rep.Cloudlets = append(rep.Cloudlets, res)
		}
		rep.Brokers = append(rep.Brokers, BrokerResult{
			Name:      b.Name(),
			Phase:     b.Phase().String(),
			Aborted:   b.Aborted(),
			Rounds:    b.Rounds(),
			VMs:       len(b.VMs()),
			Submitted: len(b.Submitted()),
			Received:  len(received),
			Pending:   len(b.Pending()),
		})
	}
	if rep.Succeeded > 0 {
		rep.MeanTurnaround = turnaround / float64(rep.Succeeded)
	}
	sort.SliceStable(rep.Cloudlets, func(i, j int) bool {
		a, b := rep.Cloudlets[i], rep.Cloudlets[j]
		if a.Broker != b.Broker {
			return a.Broker < b.Broker
		}
		return a.ID < b.ID
	})

	for _, d := range r.Datacenters {
		chars := d.Characteristics()
		var ram int64
		for _, h := range chars.Hosts {
			ram += int64(h.RAMProvisioner().Capacity())
		}
		rep.Datacenters = append(rep.Datacenters, DatacenterResult{
			Name:            d.Name(),
			Hosts:           len(chars.Hosts),
			FailedHosts:     chars.NumFailedHosts(),
			VMs:             len(d.VMs()),
			RAM:             ram,
			ProcessingCost:  d.ProcessingCost(),
			VMCost:          d.VMCost(),
			EnergyWh:        d.EnergyWh(),
			MigrationErrors: len(d.MigrationErrors()),
		})
	}

	if r.Trace != nil {
		rep.Trace = trace.Summarize(r.Trace)
	}
	return rep
}

// Print writes a human-readable report to w.
func (rep *Report) Print(w io.Writer) {
	_, _ = fmt.Fprintln(w, "=== Simulation Report ===")
	_, _ = fmt.Fprintf(w, "Run ID               : %s\n", rep.RunID)
	if rep.Scenario != "" {
		_, _ = fmt.Fprintf(w, "Scenario             : %s\n", rep.Scenario)
	}
	_, _ = fmt.Fprintf(w, "Seed                 : %d\n", rep.Seed)
	_, _ = fmt.Fprintf(w, "End Clock            : %.2f\n", rep.Clock)
	_, _ = fmt.Fprintf(w, "Events Dispatched    : %d\n", rep.Events)
	_, _ = fmt.Fprintf(w, "Cloudlets            : %d succeeded, %d failed\n", rep.Succeeded, rep.Failed)
	if rep.Succeeded > 0 {
		_, _ = fmt.Fprintf(w, "Makespan             : %.2f\n", rep.Makespan)
		_, _ = fmt.Fprintf(w, "Mean Turnaround      : %.2f\n", rep.MeanTurnaround)
	}

	if len(rep.Cloudlets) > 0 {
		_, _ = fmt.Fprintln(w, "\n=== Cloudlets ===")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "BROKER\tID\tSTATUS\tDC\tVM\tSTART\tFINISH\tCPU TIME\tCOST")
		for _, c := range rep.Cloudlets {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
				c.Broker, c.ID, c.Status, c.DatacenterID, c.VMID, c.Start, c.Finish, c.CPUTime, c.Cost)
		}
		tw.Flush() //nolint:errcheck,gosec
	}

	_, _ = fmt.Fprintln(w, "\n=== Datacenters ===")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tHOSTS\tFAILED\tRAM\tVMS\tPROCESSING COST\tVM COST\tENERGY (Wh)")
	for _, d := range rep.Datacenters {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%d\t%.2f\t%.2f\t%.3f\n",
			d.Name, d.Hosts, d.FailedHosts, units.BytesSize(float64(d.RAM)*units.MiB),
			d.VMs, d.ProcessingCost, d.VMCost, d.EnergyWh)
	}
	tw.Flush() //nolint:errcheck,gosec

	_, _ = fmt.Fprintln(w, "\n=== Brokers ===")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tPHASE\tROUNDS\tVMS\tSUBMITTED\tRECEIVED\tPENDING")
	for _, b := range rep.Brokers {
		phase := b.Phase
		if b.Aborted {
			phase += " (aborted)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			b.Name, phase, b.Rounds, b.VMs, b.Submitted, b.Received, b.Pending)
	}
	tw.Flush() //nolint:errcheck,gosec

	if rep.Trace != nil {
		_, _ = fmt.Fprintln(w, "\n=== Decision Trace ===")
		_, _ = fmt.Fprintf(w, "Placements           : %d (%d placed, %d rejected)\n",
			rep.Trace.TotalPlacements, rep.Trace.PlacedCount, rep.Trace.RejectedCount)
		_, _ = fmt.Fprintf(w, "Provisioning Rounds  : %d\n", rep.Trace.ProvisioningRounds)
		_, _ = fmt.Fprintf(w, "Submissions          : %d (%d bound)\n", rep.Trace.TotalSubmissions, rep.Trace.BoundSubmissions)
		_, _ = fmt.Fprintf(w, "Max VM Load          : %d\n", rep.Trace.MaxVMLoad)
		_, _ = fmt.Fprintf(w, "Mean VM Load         : %.2f\n", rep.Trace.MeanVMLoad)
	}
}

// SaveJSON writes the report to path as indented JSON.
func (rep *Report) SaveJSON(path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "writing report")
	}
	logrus.Infof("report written to %s", path)
	return nil
}
