// Package broker implements the datacenter broker: the entity that acts for
// a simulated user. It discovers datacenters, negotiates VM creation across
// them with failover, spreads cloudlets over the VMs it obtained and tears
// everything down when the work is back.
package broker

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"

	"github.com/cloudsim-go/cloudsim/sim"
	"github.com/cloudsim-go/cloudsim/sim/datacenter"
	"github.com/cloudsim-go/cloudsim/sim/resource"
	"github.com/cloudsim-go/cloudsim/sim/trace"
)

// Kernel is the part of the simulator a broker uses.
type Kernel interface {
	Clock() float64
	Send(src, dst int, delay float64, tag sim.Tag, data any)
	ResourceIDs() []int
	EntityName(id int) string
	Register(name string, e sim.Entity) (int, error)
}

// Option configures a Broker.
type Option func(*Broker)

// WithMetrics reports counters under scope.
func WithMetrics(scope tally.Scope) Option {
	return func(b *Broker) { b.metrics = newMetrics(scope) }
}

// WithTrace records placements, submissions and phase changes into st.
func WithTrace(st *trace.SimulationTrace) Option {
	return func(b *Broker) { b.trace = st }
}

// Broker negotiates VMs and runs cloudlets on behalf of one user.
type Broker struct {
	id     int
	name   string
	kernel Kernel
	phase  Phase

	vms     []*resource.VM
	created []*resource.VM
	vmToDC  map[int]int

	datacenterIDs   []int
	tried           []int
	characteristics map[int]*datacenter.Characteristics

	pending   []*resource.Cloudlet
	submitted []*resource.Cloudlet
	received  []*resource.Cloudlet

	requested int // create requests sent in the current round
	acks      int // acks received in the current round
	destroyed int
	inFlight  int
	round     int
	aborted   bool

	metrics *metrics
	trace   *trace.SimulationTrace
}

// New creates a broker and registers it with the kernel.
func New(k Kernel, name string, opts ...Option) (*Broker, error) {
	b := &Broker{
		name:            name,
		kernel:          k,
		phase:           Discovering,
		vmToDC:          make(map[int]int),
		characteristics: make(map[int]*datacenter.Characteristics),
		metrics:         newMetrics(tally.NoopScope),
	}
	for _, opt := range opts {
		opt(b)
	}
	id, err := k.Register(name, b)
	if err != nil {
		return nil, errors.Wrapf(err, "registering broker %q", name)
	}
	b.id = id
	return b, nil
}

func (b *Broker) ID() int       { return b.id }
func (b *Broker) Name() string  { return b.name }
func (b *Broker) Phase() Phase  { return b.phase }
func (b *Broker) Aborted() bool { return b.aborted }

// Destroyed is the number of VM destroy requests sent so far.
func (b *Broker) Destroyed() int { return b.destroyed }

// Rounds is the number of provisioning rounds so far.
func (b *Broker) Rounds() int { return b.round }

func (b *Broker) VMs() []*resource.VM             { return slices.Clone(b.vms) }
func (b *Broker) CreatedVMs() []*resource.VM      { return slices.Clone(b.created) }
func (b *Broker) Pending() []*resource.Cloudlet   { return slices.Clone(b.pending) }
func (b *Broker) Submitted() []*resource.Cloudlet { return slices.Clone(b.submitted) }
func (b *Broker) Received() []*resource.Cloudlet  { return slices.Clone(b.received) }
func (b *Broker) InFlight() int                   { return b.inFlight }

// DatacenterOf returns the datacenter a VM was created in. The entry
// survives the VM being destroyed.
func (b *Broker) DatacenterOf(vmID int) (int, bool) {
	dc, ok := b.vmToDC[vmID]
	return dc, ok
}

// Characteristics returns the reply of datacenter id, if one arrived.
func (b *Broker) Characteristics(id int) *datacenter.Characteristics {
	return b.characteristics[id]
}

// SubmitVMs queues VMs for creation. Call before the run starts.
func (b *Broker) SubmitVMs(vms ...*resource.VM) {
	b.vms = append(b.vms, vms...)
}

// SubmitCloudlets queues cloudlets for execution. Call before the run starts.
func (b *Broker) SubmitCloudlets(cloudlets ...*resource.Cloudlet) {
	b.pending = append(b.pending, cloudlets...)
}

// BindCloudletToVM pins a pending cloudlet to a VM id.
func (b *Broker) BindCloudletToVM(cloudletID, vmID int) error {
	for _, cl := range b.pending {
		if cl.ID() == cloudletID {
			cl.BindToVM(vmID)
			return nil
		}
	}
	return errors.Errorf("broker %s has no pending cloudlet #%d", b.name, cloudletID)
}

func (b *Broker) Start() {
	b.kernel.Send(b.id, b.id, 0, sim.TagResourceCharacteristicsRequest, nil)
}

func (b *Broker) Shutdown() {
	logrus.Infof("%.2f: %s: shutting down in phase %s, %d/%d cloudlets received",
		b.kernel.Clock(), b.name, b.phase, len(b.received), len(b.received)+len(b.pending)+b.inFlight)
}

// Handle dispatches one event.
func (b *Broker) Handle(ev *sim.Event) {
	switch ev.Tag() {
	case sim.TagResourceCharacteristicsRequest:
		b.processCharacteristicsRequest()
	case sim.TagResourceCharacteristics:
		b.processCharacteristics(ev)
	case sim.TagVMCreateAck:
		b.processVMCreate(ev)
	case sim.TagCloudletReturn:
		b.processCloudletReturn(ev)
	default:
		logrus.Warnf("%.2f: %s: dropping event with unknown tag %v", b.kernel.Clock(), b.name, ev.Tag())
	}
}

func (b *Broker) processCharacteristicsRequest() {
	b.datacenterIDs = b.kernel.ResourceIDs()
	b.characteristics = make(map[int]*datacenter.Characteristics)
	logrus.Infof("%.2f: %s: cloud resource list received with %d resource(s)",
		b.kernel.Clock(), b.name, len(b.datacenterIDs))
	if len(b.datacenterIDs) == 0 {
		b.abort("no datacenter is registered")
		return
	}
	for _, id := range b.datacenterIDs {
		b.kernel.Send(b.id, id, 0, sim.TagResourceCharacteristics, b.id)
	}
}

func (b *Broker) processCharacteristics(ev *sim.Event) {
	chars, ok := ev.Data().(*datacenter.Characteristics)
	if !ok {
		logrus.Warnf("%.2f: %s: characteristics reply without characteristics from %d",
			b.kernel.Clock(), b.name, ev.Source())
		return
	}
	b.characteristics[chars.ID] = chars
	if b.phase == Discovering && len(b.characteristics) == len(b.datacenterIDs) {
		b.tried = nil
		b.provision(b.datacenterIDs[0], "characteristics collected")
	}
}

// provision asks datacenterID for every VM that is not placed yet.
func (b *Broker) provision(datacenterID int, reason string) {
	b.transition(Provisioning, reason)
	b.round++
	b.metrics.provisioningRounds.Inc(1)

	dcName := b.kernel.EntityName(datacenterID)
	requested := 0
	for _, vm := range b.vms {
		if _, placed := b.vmToDC[vm.ID()]; placed {
			continue
		}
		logrus.Infof("%.2f: %s: trying to create VM #%d in %s", b.kernel.Clock(), b.name, vm.ID(), dcName)
		b.kernel.Send(b.id, datacenterID, 0, sim.TagVMCreateAck, vm)
		requested++
	}
	b.tried = append(b.tried, datacenterID)
	b.requested = requested
	b.acks = 0
	b.metrics.vmsRequested.Inc(int64(requested))

	if requested == 0 {
		b.act(b.decideAfterAck())
	}
}

func (b *Broker) processVMCreate(ev *sim.Event) {
	data, ok := ev.Data().([]int)
	if !ok || len(data) != 3 {
		logrus.Warnf("%.2f: %s: malformed VM create ack %v", b.kernel.Clock(), b.name, ev.Data())
		return
	}
	datacenterID, vmID, result := data[0], data[1], data[2]
	now := b.kernel.Clock()

	success := result == sim.True
	vm := b.vmByID(vmID)
	switch {
	case success && vm == nil:
		success = false
		logrus.Warnf("%.2f: %s: %s acknowledged unknown VM #%d", now, b.name, b.kernel.EntityName(datacenterID), vmID)
	case success:
		b.vmToDC[vmID] = datacenterID
		b.created = append(b.created, vm)
		b.metrics.vmsCreated.Inc(1)
		logrus.Infof("%.2f: %s: VM #%d has been created in %s", now, b.name, vmID, b.kernel.EntityName(datacenterID))
	default:
		b.metrics.vmsFailed.Inc(1)
		logrus.Infof("%.2f: %s: creation of VM #%d failed in %s", now, b.name, vmID, b.kernel.EntityName(datacenterID))
	}
	if b.trace.Enabled() {
		b.trace.RecordPlacement(trace.PlacementRecord{
			Broker:       b.name,
			Clock:        now,
			VMID:         vmID,
			DatacenterID: datacenterID,
			Success:      success,
			Round:        b.round,
		})
	}

	b.acks++
	if b.phase != Provisioning {
		return
	}
	b.act(b.decideAfterAck())
}

func (b *Broker) decideAfterAck() Action {
	return decideAfterAck(AckState{
		Created:        len(b.created),
		RequestedTotal: len(b.vms),
		Destroyed:      b.destroyed,
		Acks:           b.acks,
		Requested:      b.requested,
		UntriedLeft:    b.nextUntried() >= 0,
	})
}

func (b *Broker) act(action Action) {
	switch action {
	case Wait:
	case Submit:
		b.submitCloudlets()
	case ProvisionNext:
		b.provision(b.nextUntried(), "datacenter exhausted")
	case Abort:
		b.abort("none of the required VMs could be created")
	case Finish:
		logrus.Infof("%.2f: %s: all cloudlets executed, finishing", b.kernel.Clock(), b.name)
		b.clearDatacenters()
		b.finish("all cloudlets returned")
	case Restart:
		logrus.Infof("%.2f: %s: %d cloudlet(s) wait for VMs that were never created, starting over",
			b.kernel.Clock(), b.name, len(b.pending))
		b.metrics.restarts.Inc(1)
		b.clearDatacenters()
		// destroyed VMs keep their datacenter, so only never-created VMs are asked for again
		b.provision(b.datacenterIDs[0], "bound cloudlets waiting")
	default:
		panic(fmt.Sprintf("unhandled broker action %v", action))
	}
}

// nextUntried returns the first datacenter not tried in this negotiation, or -1.
func (b *Broker) nextUntried() int {
	for _, id := range b.datacenterIDs {
		if !slices.Contains(b.tried, id) {
			return id
		}
	}
	return -1
}

// submitCloudlets sends every pending cloudlet it can place. Unbound
// cloudlets go round robin over the created VMs; cloudlets bound to a VM
// that does not exist stay pending.
func (b *Broker) submitCloudlets() {
	b.transition(Submitting, fmt.Sprintf("%d of %d VMs created", len(b.created), len(b.vms)))
	now := b.kernel.Clock()

	vmIndex := 0
	var postponed []*resource.Cloudlet
	for _, cl := range b.pending {
		var vm *resource.VM
		bound := cl.IsBound()
		if bound {
			vm = b.createdByID(cl.VMID())
		} else if len(b.created) > 0 {
			vm = b.created[vmIndex]
		}
		if vm == nil {
			logrus.Infof("%.2f: %s: postponing execution of cloudlet #%d: bound VM not available",
				now, b.name, cl.ID())
			b.metrics.cloudletsPostponed.Inc(1)
			postponed = append(postponed, cl)
			continue
		}

		datacenterID := b.vmToDC[vm.ID()]
		logrus.Infof("%.2f: %s: sending cloudlet #%d to VM #%d", now, b.name, cl.ID(), vm.ID())
		cl.BindToVM(vm.ID())
		b.kernel.Send(b.id, datacenterID, 0, sim.TagCloudletSubmit, cl)
		b.inFlight++
		vmIndex = (vmIndex + 1) % len(b.created)
		b.submitted = append(b.submitted, cl)
		b.metrics.cloudletsSubmitted.Inc(1)
		if b.trace.Enabled() {
			b.trace.RecordSubmission(trace.SubmissionRecord{
				Broker:       b.name,
				Clock:        now,
				CloudletID:   cl.ID(),
				VMID:         vm.ID(),
				DatacenterID: datacenterID,
				Bound:        bound,
			})
		}
	}
	b.pending = postponed

	if b.inFlight > 0 {
		b.transition(Draining, fmt.Sprintf("%d cloudlet(s) in flight", b.inFlight))
		return
	}
	// nothing runs and nothing could be sent: no return will ever wake us up
	logrus.Warnf("%.2f: %s: no cloudlet could be submitted, %d left pending", now, b.name, len(b.pending))
	b.clearDatacenters()
	b.finish("nothing to run")
}

func (b *Broker) processCloudletReturn(ev *sim.Event) {
	cl, ok := ev.Data().(*resource.Cloudlet)
	if !ok {
		logrus.Warnf("%.2f: %s: cloudlet return without a cloudlet", b.kernel.Clock(), b.name)
		return
	}
	b.received = append(b.received, cl)
	b.inFlight--
	b.metrics.cloudletsReceived.Inc(1)
	logrus.Infof("%.2f: %s: cloudlet #%d received (%s)", b.kernel.Clock(), b.name, cl.ID(), cl.Status())

	if b.phase != Draining {
		return
	}
	b.act(decideAfterReturn(len(b.pending), b.inFlight))
}

// clearDatacenters sends one VM_DESTROY per created VM and empties the
// created list. The VM to datacenter map is left as is.
func (b *Broker) clearDatacenters() {
	for _, vm := range b.created {
		logrus.Infof("%.2f: %s: destroying VM #%d", b.kernel.Clock(), b.name, vm.ID())
		b.kernel.Send(b.id, b.vmToDC[vm.ID()], 0, sim.TagVMDestroy, vm)
		b.destroyed++
		b.metrics.vmsDestroyed.Inc(1)
	}
	b.created = nil
}

func (b *Broker) abort(reason string) {
	logrus.Warnf("%.2f: %s: %s, aborting", b.kernel.Clock(), b.name, reason)
	b.aborted = true
	b.metrics.aborts.Inc(1)
	b.finish(reason)
}

func (b *Broker) finish(reason string) {
	b.transition(Done, reason)
	b.kernel.Send(b.id, b.id, 0, sim.TagEndOfSimulation, nil)
}

func (b *Broker) transition(to Phase, reason string) {
	from := b.phase
	if err := validTransition(from, to); err != nil {
		panic(fmt.Sprintf("broker %s: %v (%s)", b.name, err, reason))
	}
	b.phase = to
	logrus.Infof("%.2f: %s: %s -> %s: %s", b.kernel.Clock(), b.name, from, to, reason)
	if b.trace.Enabled() {
		b.trace.RecordPhase(trace.PhaseRecord{
			Broker: b.name,
			Clock:  b.kernel.Clock(),
			From:   from.String(),
			To:     to.String(),
			Reason: reason,
		})
	}
}

func (b *Broker) vmByID(id int) *resource.VM {
	for _, vm := range b.vms {
		if vm.ID() == id {
			return vm
		}
	}
	return nil
}

func (b *Broker) createdByID(id int) *resource.VM {
	for _, vm := range b.created {
		if vm.ID() == id {
			return vm
		}
	}
	return nil
}
