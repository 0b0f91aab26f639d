package resource

import (
	"math"
	"slices"

	"github.com/sirupsen/logrus"
)

// Host is a physical machine. It owns its PEs (through the VM scheduler),
// its RAM and bandwidth provisioners and its storage, and places VMs on them
// as all-or-nothing transactions.
type Host struct {
	id          int
	storage     int64
	ram         Provisioner
	bw          Provisioner
	scheduler   VMScheduler
	vms         []*VM
	migratingIn []*VM
	failed      bool
}

// NewHost creates a host over the scheduler's PEs.
func NewHost(id int, ram, bw Provisioner, storage int64, scheduler VMScheduler) *Host {
	return &Host{
		id:        id,
		storage:   storage,
		ram:       ram,
		bw:        bw,
		scheduler: scheduler,
	}
}

func (h *Host) ID() int                     { return h.id }
func (h *Host) Storage() int64              { return h.storage }
func (h *Host) RAMProvisioner() Provisioner { return h.ram }
func (h *Host) BWProvisioner() Provisioner  { return h.bw }
func (h *Host) Scheduler() VMScheduler      { return h.scheduler }
func (h *Host) PEs() []*Pe                  { return h.scheduler.PEs() }
func (h *Host) NumPEs() int                 { return len(h.scheduler.PEs()) }
func (h *Host) TotalMIPS() float64          { return totalMIPS(h.scheduler.PEs()) }
func (h *Host) AvailableMIPS() float64      { return h.scheduler.AvailableMIPS() }
func (h *Host) MaxAvailableMIPS() float64   { return h.scheduler.MaxAvailableMIPS() }
func (h *Host) Failed() bool                { return h.failed }

// VMs returns the resident VMs, including those migrating in.
func (h *Host) VMs() []*VM { return slices.Clone(h.vms) }

// MigratingIn returns the VMs reserved here by an ongoing migration.
func (h *Host) MigratingIn() []*VM { return slices.Clone(h.migratingIn) }

// VM finds a resident VM by id and owner.
func (h *Host) VM(id, userID int) *VM {
	for _, vm := range h.vms {
		if vm.id == id && vm.userID == userID {
			return vm
		}
	}
	return nil
}

// NumFreePEs counts PEs whose status is free.
func (h *Host) NumFreePEs() int {
	n := 0
	for _, pe := range h.scheduler.PEs() {
		if pe.Status() == PeFree {
			n++
		}
	}
	return n
}

// IsSuitableForVM reports whether vm would fit right now, without changing
// anything.
func (h *Host) IsSuitableForVM(vm *VM) bool {
	return h.scheduler.PECapacity() >= vm.RequestedMaxMIPS() &&
		h.scheduler.AvailableMIPS() >= vm.RequestedTotalMIPS() &&
		h.ram.IsSuitable(vm.Key(), float64(vm.ram)) &&
		h.bw.IsSuitable(vm.Key(), float64(vm.bw))
}

// CreateVM places vm on this host, taking storage, RAM, bandwidth and PEs in
// that order. If any step fails the steps already taken by this call are
// undone and false is returned.
func (h *Host) CreateVM(vm *VM) bool {
	if vm.hostID != NoHost {
		logrus.Warnf("[Host #%d] VM #%d is already placed on host #%d", h.id, vm.id, vm.hostID)
		return false
	}
	if resource, ok := h.reserve(vm); !ok {
		logrus.Warnf("[Host #%d] Allocation of VM #%d failed by %s", h.id, vm.id, resource)
		return false
	}
	h.vms = append(h.vms, vm)
	vm.hostID = h.id
	return true
}

// reserve runs the four allocation steps for vm. On failure it returns the
// resource that ran out, with every earlier step released.
func (h *Host) reserve(vm *VM) (string, bool) {
	key := vm.Key()
	if h.storage < vm.size {
		return "storage", false
	}
	if !h.ram.Allocate(key, float64(vm.ram)) {
		return "RAM", false
	}
	if !h.bw.Allocate(key, float64(vm.bw)) {
		h.ram.Deallocate(key)
		return "BW", false
	}
	if !h.scheduler.AllocatePEs(key, vm.RequestedMIPS()) {
		h.ram.Deallocate(key)
		h.bw.Deallocate(key)
		return "MIPS", false
	}
	h.storage -= vm.size
	return "", true
}

// release gives back everything reserve took for vm.
func (h *Host) release(vm *VM) {
	key := vm.Key()
	h.ram.Deallocate(key)
	h.bw.Deallocate(key)
	h.scheduler.DeallocatePEs(key)
	h.storage += vm.size
}

// DestroyVM releases vm's resources and detaches it. VMs not resident here
// are ignored.
func (h *Host) DestroyVM(vm *VM) {
	if vm == nil {
		return
	}
	idx := slices.Index(h.vms, vm)
	if idx < 0 {
		return
	}
	h.release(vm)
	h.vms = slices.Delete(h.vms, idx, idx+1)
	if vm.hostID == h.id {
		vm.hostID = NoHost
	}
}

// DestroyAllVMs releases every ledger, detaches every resident VM and drops
// the migrating-in reservations.
func (h *Host) DestroyAllVMs() {
	h.ram.DeallocateAll()
	h.bw.DeallocateAll()
	h.scheduler.DeallocateAll()
	for _, vm := range h.vms {
		h.storage += vm.size
		if vm.hostID == h.id {
			vm.hostID = NoHost
		}
	}
	for _, vm := range h.migratingIn {
		h.scheduler.UnmarkMigratingIn(vm.Key())
		vm.inMigration = false
	}
	h.vms = nil
	h.migratingIn = nil
}

// UpdateVMsProcessing advances every VM placed here to now. It returns the
// earliest next completion time across them, or +Inf if none is pending.
func (h *Host) UpdateVMsProcessing(now float64) float64 {
	next := math.Inf(1)
	for _, vm := range h.vms {
		// a VM migrating in keeps running on its source until it lands here
		if vm.hostID != h.id {
			continue
		}
		t := vm.UpdateProcessing(now, h.scheduler.AllocatedMIPS(vm.Key()))
		if t > 0 && t < next {
			next = t
		}
	}
	return next
}

// AddMigratingInVM reserves vm's resources here ahead of a migration. The
// reservation follows the same steps as CreateVM; if one fails everything is
// undone and a *MigrationError is returned.
func (h *Host) AddMigratingInVM(vm *VM, now float64) error {
	if slices.Contains(h.migratingIn, vm) {
		return nil
	}
	key := vm.Key()
	h.scheduler.MarkMigratingIn(key)
	if resource, ok := h.reserve(vm); !ok {
		h.scheduler.UnmarkMigratingIn(key)
		err := &MigrationError{VM: key, HostID: h.id, Resource: resource}
		logrus.Errorf("[Host #%d] %v", h.id, err)
		return err
	}
	vm.inMigration = true
	h.migratingIn = append(h.migratingIn, vm)
	h.vms = append(h.vms, vm)
	h.UpdateVMsProcessing(now)
	return nil
}

// RemoveMigratingInVM drops the reservation made by AddMigratingInVM.
func (h *Host) RemoveMigratingInVM(vm *VM) {
	idx := slices.Index(h.migratingIn, vm)
	if idx < 0 {
		return
	}
	h.release(vm)
	h.migratingIn = slices.Delete(h.migratingIn, idx, idx+1)
	if i := slices.Index(h.vms, vm); i >= 0 {
		h.vms = slices.Delete(h.vms, i, i+1)
	}
	h.scheduler.UnmarkMigratingIn(vm.Key())
	vm.inMigration = false
}

// ReallocateMigratingInVMs books the migrating-in VMs again after the ledgers
// were cleared.
func (h *Host) ReallocateMigratingInVMs() {
	for _, vm := range h.migratingIn {
		key := vm.Key()
		if !slices.Contains(h.vms, vm) {
			h.vms = append(h.vms, vm)
		}
		h.scheduler.MarkMigratingIn(key)
		h.ram.Allocate(key, float64(vm.ram))
		h.bw.Allocate(key, float64(vm.bw))
		h.scheduler.AllocatePEs(key, vm.RequestedMIPS())
		h.storage -= vm.size
	}
}

// SetFailed marks the host and all of its PEs failed, or free again on
// recovery. Resident VMs are left in place.
func (h *Host) SetFailed(failed bool) {
	h.failed = failed
	status := PeFree
	if failed {
		status = PeFailed
	}
	for _, pe := range h.scheduler.PEs() {
		pe.SetStatus(status)
	}
}

// SetPEStatus sets the status of the PE with the given id.
func (h *Host) SetPEStatus(peID int, status PeStatus) bool {
	for _, pe := range h.scheduler.PEs() {
		if pe.ID() == peID {
			pe.SetStatus(status)
			return true
		}
	}
	return false
}

// CPUUtilization is the busy fraction of the host's MIPS at now.
func (h *Host) CPUUtilization(now float64) float64 {
	total := h.TotalMIPS()
	if total == 0 {
		return 0
	}
	used := 0.0
	for _, vm := range h.vms {
		if vm.hostID != h.id {
			continue
		}
		used += vm.CPUUtilization(now) * h.scheduler.TotalAllocatedMIPS(vm.Key())
	}
	return min(1, used/total)
}

// RAMUtilization is the allocated fraction of the host's RAM.
func (h *Host) RAMUtilization() float64 {
	if h.ram.Capacity() == 0 {
		return 0
	}
	return (h.ram.Capacity() - h.ram.Available()) / h.ram.Capacity()
}
