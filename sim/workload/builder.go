package workload

import (
	"github.com/pkg/errors"
	"github.com/uber-go/tally/v4"

	"github.com/cloudsim-go/cloudsim/sim"
	"github.com/cloudsim-go/cloudsim/sim/broker"
	"github.com/cloudsim-go/cloudsim/sim/datacenter"
	"github.com/cloudsim-go/cloudsim/sim/power"
	"github.com/cloudsim-go/cloudsim/sim/resource"
	"github.com/cloudsim-go/cloudsim/sim/trace"
)

const defaultVMM = "Xen"

// Run is a scenario wired onto a simulator, ready to execute.
type Run struct {
	Scenario    *Scenario
	Sim         *sim.Simulator
	RNG         *sim.PartitionedRNG
	Datacenters []*datacenter.Datacenter
	Brokers     []*broker.Broker
	Trace       *trace.SimulationTrace
}

// Build validates sc and registers its datacenters and brokers on a fresh
// simulator. Counters are reported under scope, tagged by entity; a nil scope
// disables them.
func Build(sc *Scenario, scope tally.Scope) (*Run, error) {
	if err := sc.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	if scope == nil {
		scope = tally.NoopScope
	}

	var simOpts []sim.Option
	if sc.TerminateAt > 0 {
		simOpts = append(simOpts, sim.WithTerminateAt(sc.TerminateAt))
	}
	r := &Run{
		Scenario: sc,
		Sim:      sim.NewSimulator(simOpts...),
		RNG:      sim.NewPartitionedRNG(sim.NewSimulationKey(sc.Seed)),
	}
	if trace.TraceLevel(sc.Trace) == trace.TraceLevelDecisions {
		r.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	}

	for i := range sc.Datacenters {
		d, err := r.buildDatacenter(&sc.Datacenters[i], scope)
		if err != nil {
			return nil, err
		}
		r.Datacenters = append(r.Datacenters, d)
	}
	for i := range sc.Brokers {
		b, err := r.buildBroker(&sc.Brokers[i], scope)
		if err != nil {
			return nil, err
		}
		r.Brokers = append(r.Brokers, b)
	}

	// migrations name brokers, so they are scheduled once every broker has an id
	for i, spec := range sc.Datacenters {
		for _, m := range spec.Migrations {
			id, _ := r.Sim.EntityID(m.Broker)
			r.Datacenters[i].ScheduleMigration(id, m.VM, m.ToHost, m.At, m.Duration)
		}
	}
	return r, nil
}

func (r *Run) buildDatacenter(spec *DatacenterSpec, scope tally.Scope) (*datacenter.Datacenter, error) {
	var hosts []*resource.Host
	type failure struct {
		host int
		at   float64
	}
	var failures []failure
	for _, h := range spec.Hosts {
		for range count(h.Count) {
			id := len(hosts)
			hosts = append(hosts, resource.NewHost(id,
				resource.NewProvisioner(h.Provisioner, float64(h.RAM.MB())),
				resource.NewProvisioner(h.Provisioner, float64(h.BW)),
				h.Storage.MB(),
				resource.NewVMScheduler(h.VMScheduler, resource.NewPes(h.PEs, h.MIPS))))
			if h.FailAt != nil {
				failures = append(failures, failure{host: id, at: *h.FailAt})
			}
		}
	}

	vmm := spec.VMM
	if vmm == "" {
		vmm = defaultVMM
	}
	chars := &datacenter.Characteristics{
		Arch:         spec.Arch,
		OS:           spec.OS,
		VMM:          vmm,
		TimeZone:     spec.TimeZone,
		CostPerSec:   spec.Cost.PerSec,
		CostPerMem:   spec.Cost.PerMem,
		CostPerStore: spec.Cost.PerStorage,
		CostPerBW:    spec.Cost.PerBW,
		Hosts:        hosts,
	}
	d, err := datacenter.New(r.Sim, spec.Name, chars,
		datacenter.NewAllocationPolicy(spec.AllocationPolicy, hosts),
		datacenter.WithSchedulingInterval(r.Scenario.SchedulingInterval),
		datacenter.WithPowerModel(power.NewModel(spec.Power.Model, spec.Power.MaxPower, spec.Power.StaticFraction)),
		datacenter.WithMetrics(scope.Tagged(map[string]string{"datacenter": spec.Name})))
	if err != nil {
		return nil, err
	}
	for _, f := range failures {
		d.ScheduleHostFailure(f.host, f.at)
	}
	return d, nil
}

func (r *Run) buildBroker(spec *BrokerSpec, scope tally.Scope) (*broker.Broker, error) {
	b, err := broker.New(r.Sim, spec.Name,
		broker.WithMetrics(scope.Tagged(map[string]string{"broker": spec.Name})),
		broker.WithTrace(r.Trace))
	if err != nil {
		return nil, err
	}

	vmID := 0
	for _, v := range spec.VMs {
		vmm := v.VMM
		if vmm == "" {
			vmm = defaultVMM
		}
		for range count(v.Count) {
			b.SubmitVMs(resource.NewVM(vmID, b.ID(), v.MIPS, v.PEs, v.RAM.MB(), v.BW, v.Size.MB(), vmm,
				resource.NewCloudletScheduler(v.CloudletScheduler)))
			vmID++
		}
	}

	lengths := r.RNG.ForSubsystem(sim.SubsystemBroker(spec.Name))
	utilization := r.RNG.ForSubsystem(sim.SubsystemUtilization)
	cloudletID := 0
	for _, c := range spec.Cloudlets {
		sampler, err := NewSampler(c.Length, lengths)
		if err != nil {
			return nil, errors.Wrapf(err, "broker %s", spec.Name)
		}
		for range count(c.Count) {
			cl := resource.NewCloudlet(cloudletID, b.ID(), sampler.Sample(), c.PEs, c.FileSize, c.OutputSize,
				NewUtilizationModel(c.Utilization, utilization))
			if c.VM != nil {
				cl.BindToVM(*c.VM)
			}
			b.SubmitCloudlets(cl)
			cloudletID++
		}
	}
	return b, nil
}

// Execute runs the simulation to completion and reports on it.
func (r *Run) Execute() *Report {
	end := r.Sim.Run()
	return NewReport(r, end)
}
