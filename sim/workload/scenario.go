package workload

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/cloudsim-go/cloudsim/sim/datacenter"
	"github.com/cloudsim-go/cloudsim/sim/power"
	"github.com/cloudsim-go/cloudsim/sim/resource"
	"github.com/cloudsim-go/cloudsim/sim/trace"
)

// Scenario is a complete simulation setup: datacenters with their hosts, and
// brokers with the VMs and cloudlets they submit.
// Loaded from YAML via LoadScenario(path).
type Scenario struct {
	Name               string           `yaml:"name,omitempty"`
	Seed               int64            `yaml:"seed"`
	TerminateAt        float64          `yaml:"terminate_at,omitempty"`        // 0 = run until the queue drains
	SchedulingInterval float64          `yaml:"scheduling_interval,omitempty"` // 0 = wake up on completions only
	Trace              string           `yaml:"trace,omitempty"`               // none | decisions
	Datacenters        []DatacenterSpec `yaml:"datacenters"`
	Brokers            []BrokerSpec     `yaml:"brokers"`
}

// DatacenterSpec describes one datacenter.
type DatacenterSpec struct {
	Name             string          `yaml:"name"`
	Arch             string          `yaml:"arch,omitempty"`
	OS               string          `yaml:"os,omitempty"`
	VMM              string          `yaml:"vmm,omitempty"`
	TimeZone         float64         `yaml:"time_zone,omitempty"`
	Cost             CostSpec        `yaml:"cost,omitempty"`
	AllocationPolicy string          `yaml:"allocation_policy,omitempty"`
	Power            PowerSpec       `yaml:"power,omitempty"`
	Hosts            []HostSpec      `yaml:"hosts"`
	Migrations       []MigrationSpec `yaml:"migrations,omitempty"`
}

// CostSpec is a datacenter's price list.
type CostSpec struct {
	PerSec     float64 `yaml:"per_sec,omitempty"`
	PerMem     float64 `yaml:"per_mem,omitempty"`
	PerStorage float64 `yaml:"per_storage,omitempty"`
	PerBW      float64 `yaml:"per_bw,omitempty"`
}

// PowerSpec selects the power model of every host in a datacenter.
type PowerSpec struct {
	Model          string  `yaml:"model,omitempty"`
	MaxPower       float64 `yaml:"max_power,omitempty"`       // watts
	StaticFraction float64 `yaml:"static_fraction,omitempty"` // idle share of max_power
}

// HostSpec describes Count identical hosts.
type HostSpec struct {
	Count       int      `yaml:"count,omitempty"` // default 1
	PEs         int      `yaml:"pes"`
	MIPS        float64  `yaml:"mips"`
	RAM         Size     `yaml:"ram"`
	BW          int64    `yaml:"bw"` // Mbps
	Storage     Size     `yaml:"storage"`
	VMScheduler string   `yaml:"vm_scheduler,omitempty"`
	Provisioner string   `yaml:"provisioner,omitempty"`
	FailAt      *float64 `yaml:"fail_at,omitempty"`
}

// MigrationSpec moves a broker's VM to another host of the same datacenter.
type MigrationSpec struct {
	Broker   string  `yaml:"broker"`
	VM       int     `yaml:"vm"`
	ToHost   int     `yaml:"to_host"`
	At       float64 `yaml:"at"`
	Duration float64 `yaml:"duration"`
}

// BrokerSpec describes one broker and its workload.
type BrokerSpec struct {
	Name      string         `yaml:"name"`
	VMs       []VMSpec       `yaml:"vms"`
	Cloudlets []CloudletSpec `yaml:"cloudlets"`
}

// VMSpec describes Count identical VMs. Ids are assigned in declaration order
// per broker, from 0.
type VMSpec struct {
	Count             int     `yaml:"count,omitempty"`
	MIPS              float64 `yaml:"mips"`
	PEs               int     `yaml:"pes"`
	RAM               Size    `yaml:"ram"`
	BW                int64   `yaml:"bw"`
	Size              Size    `yaml:"size"`
	VMM               string  `yaml:"vmm,omitempty"`
	CloudletScheduler string  `yaml:"cloudlet_scheduler,omitempty"`
}

// CloudletSpec describes Count cloudlets whose lengths follow Length.
type CloudletSpec struct {
	Count       int             `yaml:"count,omitempty"`
	Length      DistSpec        `yaml:"length"` // million instructions
	PEs         int             `yaml:"pes"`
	FileSize    int64           `yaml:"file_size,omitempty"`
	OutputSize  int64           `yaml:"output_size,omitempty"`
	Utilization UtilizationSpec `yaml:"utilization,omitempty"`
	VM          *int            `yaml:"vm,omitempty"` // bind every cloudlet of the group to this VM id
}

// LoadScenario reads and strictly decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading scenario")
	}
	return ParseScenario(data)
}

// ParseScenario strictly decodes a scenario document. Unknown fields are errors.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, errors.Wrap(err, "parsing scenario")
	}
	return &sc, nil
}

func count(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

// Validate checks the whole scenario and reports every problem found.
func (s *Scenario) Validate() error {
	var err error
	if s.TerminateAt < 0 {
		err = multierr.Append(err, fmt.Errorf("terminate_at must be non-negative, got %f", s.TerminateAt))
	}
	if s.SchedulingInterval < 0 {
		err = multierr.Append(err, fmt.Errorf("scheduling_interval must be non-negative, got %f", s.SchedulingInterval))
	}
	if !trace.IsValidTraceLevel(s.Trace) {
		err = multierr.Append(err, fmt.Errorf("unknown trace level %q; valid: none, decisions", s.Trace))
	}
	if len(s.Datacenters) == 0 {
		err = multierr.Append(err, fmt.Errorf("at least one datacenter required"))
	}
	if len(s.Brokers) == 0 {
		err = multierr.Append(err, fmt.Errorf("at least one broker required"))
	}

	names := make(map[string]string)
	claim := func(kind, name string) {
		if name == "" {
			err = multierr.Append(err, fmt.Errorf("%s name cannot be empty", kind))
			return
		}
		if other, ok := names[name]; ok {
			err = multierr.Append(err, fmt.Errorf("%s name %q already used by a %s", kind, name, other))
			return
		}
		names[name] = kind
	}
	for i := range s.Datacenters {
		claim("datacenter", s.Datacenters[i].Name)
	}
	brokers := make(map[string]*BrokerSpec)
	for i := range s.Brokers {
		claim("broker", s.Brokers[i].Name)
		brokers[s.Brokers[i].Name] = &s.Brokers[i]
	}

	for i := range s.Datacenters {
		err = multierr.Append(err, s.Datacenters[i].validate(fmt.Sprintf("datacenter[%d]", i), brokers))
	}
	for i := range s.Brokers {
		err = multierr.Append(err, s.Brokers[i].validate(fmt.Sprintf("broker[%d]", i)))
	}
	return err
}

func (d *DatacenterSpec) validate(prefix string, brokers map[string]*BrokerSpec) error {
	var err error
	if !datacenter.IsValidAllocationPolicy(d.AllocationPolicy) {
		err = multierr.Append(err, fmt.Errorf("%s: unknown allocation_policy %q; valid: simple, first-fit", prefix, d.AllocationPolicy))
	}
	if !power.IsValidModel(d.Power.Model) {
		err = multierr.Append(err, fmt.Errorf("%s: unknown power model %q; valid: none, linear, zf", prefix, d.Power.Model))
	}
	if d.Power.Model == "linear" && d.Power.MaxPower <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s: linear power model needs a positive max_power", prefix))
	}
	if d.Power.StaticFraction < 0 || d.Power.StaticFraction > 1 {
		err = multierr.Append(err, fmt.Errorf("%s: static_fraction must be in [0, 1], got %f", prefix, d.Power.StaticFraction))
	}
	if d.Cost.PerSec < 0 || d.Cost.PerMem < 0 || d.Cost.PerStorage < 0 || d.Cost.PerBW < 0 {
		err = multierr.Append(err, fmt.Errorf("%s: costs must be non-negative", prefix))
	}
	if len(d.Hosts) == 0 {
		err = multierr.Append(err, fmt.Errorf("%s: at least one host required", prefix))
	}
	hosts := 0
	for i, h := range d.Hosts {
		err = multierr.Append(err, h.validate(fmt.Sprintf("%s.hosts[%d]", prefix, i)))
		hosts += count(h.Count)
	}
	for i, m := range d.Migrations {
		mp := fmt.Sprintf("%s.migrations[%d]", prefix, i)
		b, ok := brokers[m.Broker]
		switch {
		case !ok:
			err = multierr.Append(err, fmt.Errorf("%s: unknown broker %q", mp, m.Broker))
		case m.VM < 0 || m.VM >= b.numVMs():
			err = multierr.Append(err, fmt.Errorf("%s: broker %q has no VM %d", mp, m.Broker, m.VM))
		}
		if m.ToHost < 0 || m.ToHost >= hosts {
			err = multierr.Append(err, fmt.Errorf("%s: to_host %d out of range [0, %d)", mp, m.ToHost, hosts))
		}
		if m.At < 0 || m.Duration < 0 {
			err = multierr.Append(err, fmt.Errorf("%s: at and duration must be non-negative", mp))
		}
	}
	return err
}

func (h HostSpec) validate(prefix string) error {
	var err error
	if h.Count < 0 {
		err = multierr.Append(err, fmt.Errorf("%s: count must be non-negative, got %d", prefix, h.Count))
	}
	if h.PEs <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s: pes must be positive, got %d", prefix, h.PEs))
	}
	if h.MIPS <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s: mips must be positive, got %f", prefix, h.MIPS))
	}
	if h.RAM <= 0 || h.Storage <= 0 || h.BW <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s: ram, bw and storage must be positive", prefix))
	}
	if !resource.IsValidVMScheduler(h.VMScheduler) {
		err = multierr.Append(err, fmt.Errorf("%s: unknown vm_scheduler %q; valid: space-shared", prefix, h.VMScheduler))
	}
	if !resource.IsValidProvisioner(h.Provisioner) {
		err = multierr.Append(err, fmt.Errorf("%s: unknown provisioner %q; valid: simple", prefix, h.Provisioner))
	}
	if h.FailAt != nil && *h.FailAt < 0 {
		err = multierr.Append(err, fmt.Errorf("%s: fail_at must be non-negative, got %f", prefix, *h.FailAt))
	}
	return err
}

func (b *BrokerSpec) numVMs() int {
	n := 0
	for _, v := range b.VMs {
		n += count(v.Count)
	}
	return n
}

func (b *BrokerSpec) validate(prefix string) error {
	var err error
	for i, v := range b.VMs {
		vp := fmt.Sprintf("%s.vms[%d]", prefix, i)
		if v.Count < 0 {
			err = multierr.Append(err, fmt.Errorf("%s: count must be non-negative, got %d", vp, v.Count))
		}
		if v.PEs <= 0 || v.MIPS <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s: pes and mips must be positive", vp))
		}
		if v.RAM < 0 || v.BW < 0 || v.Size < 0 {
			err = multierr.Append(err, fmt.Errorf("%s: ram, bw and size must be non-negative", vp))
		}
		if !resource.IsValidCloudletScheduler(v.CloudletScheduler) {
			err = multierr.Append(err, fmt.Errorf("%s: unknown cloudlet_scheduler %q; valid: time-shared", vp, v.CloudletScheduler))
		}
	}
	for i, c := range b.Cloudlets {
		cp := fmt.Sprintf("%s.cloudlets[%d]", prefix, i)
		if c.Count < 0 {
			err = multierr.Append(err, fmt.Errorf("%s: count must be non-negative, got %d", cp, c.Count))
		}
		if c.PEs <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s: pes must be positive, got %d", cp, c.PEs))
		}
		if c.FileSize < 0 || c.OutputSize < 0 {
			err = multierr.Append(err, fmt.Errorf("%s: file_size and output_size must be non-negative", cp))
		}
		err = multierr.Append(err, c.Length.validate(cp+".length"))
		err = multierr.Append(err, c.Utilization.validate(cp+".utilization"))
		// binding to a VM that is never declared is allowed: the cloudlet stays pending
		if c.VM != nil && *c.VM < 0 {
			err = multierr.Append(err, fmt.Errorf("%s: vm must be non-negative, got %d", cp, *c.VM))
		}
	}
	return err
}
