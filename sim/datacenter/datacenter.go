// Package datacenter implements the datacenter entity: the receiving end of
// the broker protocol. It owns a set of hosts, places VMs on them through an
// AllocationPolicy, runs submitted cloudlets and returns them when done.
package datacenter

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"

	"github.com/cloudsim-go/cloudsim/sim"
	"github.com/cloudsim-go/cloudsim/sim/power"
	"github.com/cloudsim-go/cloudsim/sim/resource"
)

// Kernel is the part of the simulator a datacenter uses.
type Kernel interface {
	Clock() float64
	Send(src, dst int, delay float64, tag sim.Tag, data any)
	Cancel(src int, pred func(*sim.Event) bool) *sim.Event
	Register(name string, e sim.Entity) (int, error)
	RegisterResource(id int) error
}

// MigrationRequest is the payload of a VM_MIGRATE event: move VM to Host.
type MigrationRequest struct {
	VM   *resource.VM
	Host *resource.Host
}

// hostFailure and migrationOrder are scheduled self-events carried on
// VM_DATACENTER_EVENT. A tick carries no payload.
type hostFailure struct {
	hostID int
}

type migrationOrder struct {
	userID, vmID int
	hostID       int
	duration     float64
}

// Option configures a Datacenter.
type Option func(*Datacenter)

// WithSchedulingInterval makes the datacenter wake up at least every
// interval while cloudlets are running.
func WithSchedulingInterval(interval float64) Option {
	return func(d *Datacenter) { d.schedulingInterval = interval }
}

// WithPowerModel meters every host's energy with model.
func WithPowerModel(model power.Model) Option {
	return func(d *Datacenter) { d.powerModel = model }
}

// WithMetrics reports counters under scope.
func WithMetrics(scope tally.Scope) Option {
	return func(d *Datacenter) { d.metrics = newMetrics(scope) }
}

// Datacenter is a simulation entity owning a set of hosts.
type Datacenter struct {
	id     int
	name   string
	kernel Kernel

	chars  *Characteristics
	policy AllocationPolicy
	vms    []*resource.VM

	schedulingInterval float64
	powerModel         power.Model
	meters             []*power.Meter
	metrics            *metrics

	processingCost  float64
	vmCost          float64
	migrationErrors []error
}

// New creates a datacenter and registers it with the kernel as a resource.
func New(k Kernel, name string, chars *Characteristics, policy AllocationPolicy, opts ...Option) (*Datacenter, error) {
	if chars == nil || len(chars.Hosts) == 0 {
		return nil, errors.Errorf("datacenter %q has no hosts", name)
	}
	if policy == nil {
		policy = NewAllocationPolicy("", chars.Hosts)
	}
	d := &Datacenter{
		name:    name,
		kernel:  k,
		chars:   chars,
		policy:  policy,
		metrics: newMetrics(tally.NoopScope),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.meters = make([]*power.Meter, len(chars.Hosts))
	for i := range d.meters {
		d.meters[i] = power.NewMeter(d.powerModel)
	}

	id, err := k.Register(name, d)
	if err != nil {
		return nil, errors.Wrapf(err, "registering datacenter %q", name)
	}
	d.id = id
	chars.ID = id
	chars.Name = name
	if err := k.RegisterResource(id); err != nil {
		return nil, errors.Wrapf(err, "registering datacenter %q as a resource", name)
	}
	return d, nil
}

func (d *Datacenter) ID() int                           { return d.id }
func (d *Datacenter) Name() string                      { return d.name }
func (d *Datacenter) Characteristics() *Characteristics { return d.chars }
func (d *Datacenter) Policy() AllocationPolicy          { return d.policy }

// VMs returns the VMs currently running here.
func (d *Datacenter) VMs() []*resource.VM { return append([]*resource.VM(nil), d.vms...) }

// ProcessingCost is the CPU time charged for every returned cloudlet.
func (d *Datacenter) ProcessingCost() float64 { return d.processingCost }

// VMCost is the up-front price of every VM created here.
func (d *Datacenter) VMCost() float64 { return d.vmCost }

// MigrationErrors returns every migration that could not be reserved.
func (d *Datacenter) MigrationErrors() []error { return d.migrationErrors }

// EnergyWh is the energy drawn by all hosts so far.
func (d *Datacenter) EnergyWh() float64 {
	total := 0.0
	for _, m := range d.meters {
		total += m.WattHours()
	}
	return total
}

// ScheduleHostFailure fails host hostID at absolute time at.
func (d *Datacenter) ScheduleHostFailure(hostID int, at float64) {
	d.kernel.Send(d.id, d.id, max(0, at-d.kernel.Clock()), sim.TagVMDatacenterEvent, hostFailure{hostID: hostID})
}

// ScheduleMigration starts moving a user's VM to host hostID at absolute time
// at; the move completes duration later.
func (d *Datacenter) ScheduleMigration(userID, vmID, hostID int, at, duration float64) {
	d.kernel.Send(d.id, d.id, max(0, at-d.kernel.Clock()), sim.TagVMDatacenterEvent,
		migrationOrder{userID: userID, vmID: vmID, hostID: hostID, duration: duration})
}

func (d *Datacenter) Start() {
	logrus.Infof("%.2f: %s: ready with %d hosts", d.kernel.Clock(), d.name, len(d.chars.Hosts))
}

func (d *Datacenter) Shutdown() {
	d.recordEnergy(d.kernel.Clock())
	logrus.Infof("%.2f: %s: shutting down", d.kernel.Clock(), d.name)
}

// Handle dispatches one event.
func (d *Datacenter) Handle(ev *sim.Event) {
	switch ev.Tag() {
	case sim.TagResourceCharacteristics:
		d.processCharacteristicsRequest(ev)
	case sim.TagVMCreate:
		d.processVMCreate(ev, false)
	case sim.TagVMCreateAck:
		d.processVMCreate(ev, true)
	case sim.TagVMDestroy:
		d.processVMDestroy(ev, false)
	case sim.TagVMDestroyAck:
		d.processVMDestroy(ev, true)
	case sim.TagVMMigrate:
		d.processVMMigrate(ev)
	case sim.TagCloudletSubmit:
		d.processCloudletSubmit(ev)
	case sim.TagVMDatacenterEvent:
		d.processDatacenterEvent(ev)
	default:
		logrus.Warnf("%.2f: %s: dropping event with unknown tag %v", d.kernel.Clock(), d.name, ev.Tag())
	}
}

func (d *Datacenter) processCharacteristicsRequest(ev *sim.Event) {
	brokerID, ok := ev.Data().(int)
	if !ok {
		brokerID = ev.Source()
	}
	d.kernel.Send(d.id, brokerID, 0, sim.TagResourceCharacteristics, d.chars)
}

func (d *Datacenter) processVMCreate(ev *sim.Event, ack bool) {
	vm, ok := ev.Data().(*resource.VM)
	if !ok {
		logrus.Warnf("%.2f: %s: VM create without a VM payload", d.kernel.Clock(), d.name)
		return
	}
	now := d.kernel.Clock()
	d.updateProcessing()

	created := d.policy.AllocateHostForVM(vm)
	if created {
		d.vms = append(d.vms, vm)
		d.vmCost += d.chars.VMCost(vm)
		d.metrics.vmCreated.Inc(1)
		host := d.policy.HostOf(vm)
		vm.UpdateProcessing(now, host.Scheduler().AllocatedMIPS(vm.Key()))
		logrus.Debugf("%.2f: %s: VM #%d of user %d placed on host #%d", now, d.name, vm.ID(), vm.UserID(), host.ID())
	} else {
		d.metrics.vmRejected.Inc(1)
	}
	if ack {
		flag := sim.False
		if created {
			flag = sim.True
		}
		d.kernel.Send(d.id, vm.UserID(), 0, sim.TagVMCreateAck, []int{d.id, vm.ID(), flag})
	}
}

func (d *Datacenter) processVMDestroy(ev *sim.Event, ack bool) {
	vm, ok := ev.Data().(*resource.VM)
	if !ok {
		logrus.Warnf("%.2f: %s: VM destroy without a VM payload", d.kernel.Clock(), d.name)
		return
	}
	d.updateProcessing()
	if d.destroy(vm) {
		d.metrics.vmDestroyed.Inc(1)
	}
	if ack {
		d.kernel.Send(d.id, vm.UserID(), 0, sim.TagVMDestroyAck, []int{d.id, vm.ID(), sim.True})
	}
	d.updateProcessing()
}

// destroy fails and returns whatever still runs on vm, then frees its host.
func (d *Datacenter) destroy(vm *resource.VM) bool {
	idx := d.indexOfVM(vm.Key())
	if idx < 0 {
		return false
	}
	vm.CloudletScheduler().FailAll(d.kernel.Clock())
	d.returnCloudlets(vm)
	if vm.InMigration() {
		d.cancelMigration(vm)
	}
	d.policy.DeallocateHostForVM(vm)
	d.vms = append(d.vms[:idx], d.vms[idx+1:]...)
	return true
}

// cancelMigration drops the reservation vm holds on its migration target.
func (d *Datacenter) cancelMigration(vm *resource.VM) {
	for _, h := range d.chars.Hosts {
		h.RemoveMigratingInVM(vm)
	}
	if source := d.policy.HostOf(vm); source != nil {
		source.Scheduler().UnmarkMigratingOut(vm.Key())
	}
	logrus.Infof("%.2f: %s: migration of VM #%d of user %d cancelled", d.kernel.Clock(), d.name, vm.ID(), vm.UserID())
}

func (d *Datacenter) processCloudletSubmit(ev *sim.Event) {
	cl, ok := ev.Data().(*resource.Cloudlet)
	if !ok {
		logrus.Warnf("%.2f: %s: cloudlet submit without a cloudlet payload", d.kernel.Clock(), d.name)
		return
	}
	now := d.kernel.Clock()
	d.updateProcessing()

	if cl.Status() == resource.CloudletSuccess {
		d.kernel.Send(d.id, cl.UserID(), 0, sim.TagCloudletReturn, cl)
		return
	}
	cl.AssignTo(d.id, now, d.chars.CostPerSec)

	idx := d.indexOfVM(resource.VMKey{UserID: cl.UserID(), ID: cl.VMID()})
	var host *resource.Host
	if idx >= 0 {
		host = d.policy.HostOf(d.vms[idx])
	}
	if host == nil || host.Failed() {
		logrus.Warnf("%.2f: %s: cloudlet #%d cannot run on VM #%d", now, d.name, cl.ID(), cl.VMID())
		cl.Fail(now)
		d.metrics.cloudletsFailed.Inc(1)
		d.kernel.Send(d.id, cl.UserID(), 0, sim.TagCloudletReturn, cl)
		return
	}
	d.vms[idx].CloudletScheduler().Submit(cl, now)
	d.metrics.cloudletsSubmitted.Inc(1)
	d.updateProcessing()
}

func (d *Datacenter) processDatacenterEvent(ev *sim.Event) {
	switch order := ev.Data().(type) {
	case nil:
		d.updateProcessing()
	case hostFailure:
		d.failHost(order.hostID)
	case migrationOrder:
		d.startMigration(order)
	default:
		logrus.Warnf("%.2f: %s: unexpected internal event payload %T", d.kernel.Clock(), d.name, order)
	}
}

// updateProcessing advances every host to now, returns finished cloudlets to
// their brokers and replaces the pending tick with one at the next completion.
func (d *Datacenter) updateProcessing() {
	now := d.kernel.Clock()
	next := math.Inf(1)
	for _, h := range d.chars.Hosts {
		next = min(next, h.UpdateVMsProcessing(now))
	}
	d.returnFinished()
	d.recordEnergy(now)
	if d.schedulingInterval > 0 && d.running() > 0 {
		next = min(next, now+d.schedulingInterval)
	}
	d.scheduleNextTick(next)
}

func (d *Datacenter) scheduleNextTick(at float64) {
	now := d.kernel.Clock()
	d.kernel.Cancel(d.id, isTick)
	if math.IsInf(at, 1) {
		return
	}
	d.kernel.Send(d.id, d.id, max(0, at-now), sim.TagVMDatacenterEvent, nil)
}

func isTick(ev *sim.Event) bool {
	return ev.Tag() == sim.TagVMDatacenterEvent && ev.Data() == nil
}

func (d *Datacenter) returnFinished() {
	for _, vm := range d.vms {
		d.returnCloudlets(vm)
	}
}

func (d *Datacenter) returnCloudlets(vm *resource.VM) {
	for _, cl := range vm.CloudletScheduler().TakeFinished() {
		if cl.Status() == resource.CloudletSuccess {
			d.processingCost += cl.ProcessingCost()
			d.metrics.cloudletsReturned.Inc(1)
		} else {
			d.metrics.cloudletsFailed.Inc(1)
		}
		d.kernel.Send(d.id, cl.UserID(), 0, sim.TagCloudletReturn, cl)
	}
}

func (d *Datacenter) running() int {
	n := 0
	for _, vm := range d.vms {
		n += vm.CloudletScheduler().Running()
	}
	return n
}

func (d *Datacenter) recordEnergy(now float64) {
	for i, h := range d.chars.Hosts {
		if err := d.meters[i].Record(now, h.CPUUtilization(now), h.RAMUtilization()); err != nil {
			logrus.Warnf("%.2f: %s: energy of host #%d: %v", now, d.name, h.ID(), err)
		}
	}
}

// failHost marks a host failed and fails every cloudlet running on it.
// Its VMs stay placed but accept no more work.
func (d *Datacenter) failHost(hostID int) {
	host := d.hostByID(hostID)
	if host == nil {
		logrus.Warnf("%.2f: %s: cannot fail unknown host #%d", d.kernel.Clock(), d.name, hostID)
		return
	}
	now := d.kernel.Clock()
	d.updateProcessing()
	host.SetFailed(true)
	for _, vm := range host.VMs() {
		vm.CloudletScheduler().FailAll(now)
	}
	d.metrics.hostFailures.Inc(1)
	logrus.Infof("%.2f: %s: host #%d failed", now, d.name, hostID)
	d.updateProcessing()
}

func (d *Datacenter) startMigration(order migrationOrder) {
	idx := d.indexOfVM(resource.VMKey{UserID: order.userID, ID: order.vmID})
	target := d.hostByID(order.hostID)
	if idx < 0 || target == nil {
		logrus.Warnf("%.2f: %s: cannot migrate VM #%d of user %d to host #%d", d.kernel.Clock(), d.name,
			order.vmID, order.userID, order.hostID)
		return
	}
	if err := d.Migrate(d.vms[idx], target, order.duration); err != nil {
		logrus.Warnf("%.2f: %s: %v", d.kernel.Clock(), d.name, err)
	}
}

// Migrate reserves vm's resources on target now and completes the move after
// delay. A reservation failure is returned (and recorded) as a
// *resource.MigrationError; the simulation carries on.
func (d *Datacenter) Migrate(vm *resource.VM, target *resource.Host, delay float64) error {
	source := d.policy.HostOf(vm)
	if source == nil {
		return errors.Errorf("VM %s is not placed in %s", vm.Key(), d.name)
	}
	if source == target {
		return errors.Errorf("VM %s is already on host #%d", vm.Key(), target.ID())
	}
	if target.Failed() {
		return errors.Errorf("host #%d is failed", target.ID())
	}
	d.updateProcessing()
	if err := target.AddMigratingInVM(vm, d.kernel.Clock()); err != nil {
		d.migrationErrors = append(d.migrationErrors, err)
		d.metrics.migrationFailures.Inc(1)
		return err
	}
	source.Scheduler().MarkMigratingOut(vm.Key())
	d.kernel.Send(d.id, d.id, delay, sim.TagVMMigrate, &MigrationRequest{VM: vm, Host: target})
	return nil
}

func (d *Datacenter) processVMMigrate(ev *sim.Event) {
	req, ok := ev.Data().(*MigrationRequest)
	if !ok {
		logrus.Warnf("%.2f: %s: VM migrate without a migration payload", d.kernel.Clock(), d.name)
		return
	}
	now := d.kernel.Clock()
	d.updateProcessing()

	vm, target := req.VM, req.Host
	target.RemoveMigratingInVM(vm)
	if d.indexOfVM(vm.Key()) < 0 {
		logrus.Warnf("%.2f: %s: VM #%d of user %d is gone, dropping its migration", now, d.name, vm.ID(), vm.UserID())
		return
	}
	if source := d.policy.HostOf(vm); source != nil {
		source.Scheduler().UnmarkMigratingOut(vm.Key())
	}
	d.policy.DeallocateHostForVM(vm)
	if !d.policy.AllocateHostForVMOn(vm, target) {
		err := errors.Errorf("VM %s could not land on host #%d", vm.Key(), target.ID())
		d.migrationErrors = append(d.migrationErrors, err)
		d.metrics.migrationFailures.Inc(1)
		logrus.Errorf("%.2f: %s: %v", now, d.name, err)
		if idx := d.indexOfVM(vm.Key()); idx >= 0 {
			vm.CloudletScheduler().FailAll(now)
			d.returnCloudlets(vm)
			d.vms = append(d.vms[:idx], d.vms[idx+1:]...)
		}
	} else {
		d.metrics.migrations.Inc(1)
		logrus.Infof("%.2f: %s: VM #%d of user %d migrated to host #%d", now, d.name, vm.ID(), vm.UserID(), target.ID())
	}
	d.updateProcessing()
}

func (d *Datacenter) indexOfVM(key resource.VMKey) int {
	for i, vm := range d.vms {
		if vm.Key() == key {
			return i
		}
	}
	return -1
}

func (d *Datacenter) hostByID(id int) *resource.Host {
	for _, h := range d.chars.Hosts {
		if h.ID() == id {
			return h
		}
	}
	return nil
}
