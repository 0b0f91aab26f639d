package resource

import (
	"fmt"
	"slices"
)

// NoHost is the host id of a VM that is not placed anywhere.
const NoHost = -1

// VM is a virtual machine requesting numPEs virtual PEs of mips each, plus
// RAM (MB), bandwidth (Mbps) and an image of size MB.
type VM struct {
	id        int
	userID    int
	mips      float64
	numPEs    int
	ram       int64
	bw        int64
	size      int64
	vmm       string
	scheduler CloudletScheduler

	// lookup-only back-reference, never ownership
	hostID      int
	inMigration bool
}

// NewVM creates an unplaced VM. A nil scheduler selects time-shared.
func NewVM(id, userID int, mips float64, numPEs int, ram, bw, size int64, vmm string, scheduler CloudletScheduler) *VM {
	if scheduler == nil {
		scheduler = NewTimeSharedScheduler()
	}
	return &VM{
		id:        id,
		userID:    userID,
		mips:      mips,
		numPEs:    numPEs,
		ram:       ram,
		bw:        bw,
		size:      size,
		vmm:       vmm,
		scheduler: scheduler,
		hostID:    NoHost,
	}
}

func (v *VM) ID() int                              { return v.id }
func (v *VM) UserID() int                          { return v.userID }
func (v *VM) Key() VMKey                           { return VMKey{UserID: v.userID, ID: v.id} }
func (v *VM) MIPS() float64                        { return v.mips }
func (v *VM) NumPEs() int                          { return v.numPEs }
func (v *VM) RAM() int64                           { return v.ram }
func (v *VM) BW() int64                            { return v.bw }
func (v *VM) Size() int64                          { return v.size }
func (v *VM) VMM() string                          { return v.vmm }
func (v *VM) HostID() int                          { return v.hostID }
func (v *VM) InMigration() bool                    { return v.inMigration }
func (v *VM) CloudletScheduler() CloudletScheduler { return v.scheduler }

// RequestedMIPS is one share of MIPS per virtual PE.
func (v *VM) RequestedMIPS() []float64 {
	return slices.Repeat([]float64{v.mips}, v.numPEs)
}

// RequestedMaxMIPS is the largest single share.
func (v *VM) RequestedMaxMIPS() float64 {
	if v.numPEs == 0 {
		return 0
	}
	return v.mips
}

// RequestedTotalMIPS is the sum of all shares.
func (v *VM) RequestedTotalMIPS() float64 {
	return v.mips * float64(v.numPEs)
}

// UpdateProcessing advances the VM's cloudlets to now on the granted shares.
// Returns the absolute time of the next completion, or 0.
func (v *VM) UpdateProcessing(now float64, shares []float64) float64 {
	return v.scheduler.UpdateProcessing(now, shares)
}

// CPUUtilization is the busy fraction of the VM's virtual PEs at now.
func (v *VM) CPUUtilization(now float64) float64 {
	if v.numPEs == 0 {
		return 0
	}
	return min(1, v.scheduler.BusyPEs(now)/float64(v.numPEs))
}

func (v *VM) String() string {
	return fmt.Sprintf("VM#%d(user=%d, %dx%.0f MIPS)", v.id, v.userID, v.numPEs, v.mips)
}
