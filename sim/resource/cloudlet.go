package resource

import "fmt"

// CloudletStatus is the execution state of a cloudlet.
type CloudletStatus int

const (
	CloudletCreated CloudletStatus = iota
	CloudletReady
	CloudletQueued
	CloudletInExec
	CloudletSuccess
	CloudletFailed
	CloudletCanceled
)

var cloudletStatusNames = map[CloudletStatus]string{
	CloudletCreated:  "CREATED",
	CloudletReady:    "READY",
	CloudletQueued:   "QUEUED",
	CloudletInExec:   "INEXEC",
	CloudletSuccess:  "SUCCESS",
	CloudletFailed:   "FAILED",
	CloudletCanceled: "CANCELED",
}

func (s CloudletStatus) String() string {
	if name, ok := cloudletStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CloudletStatus(%d)", int(s))
}

// Unbound is the VM id of a cloudlet the broker may place on any VM.
const Unbound = -1

// UtilizationModel gives the fraction of requested capacity a cloudlet uses
// at a given time, in [0, 1].
type UtilizationModel interface {
	Utilization(t float64) float64
}

// UtilizationModelFull always uses everything it was granted.
type UtilizationModelFull struct{}

func (UtilizationModelFull) Utilization(float64) float64 { return 1 }

// Cloudlet is a unit of work of a given length in million instructions.
type Cloudlet struct {
	id         int
	userID     int
	length     float64
	numPEs     int
	fileSize   int64
	outputSize int64
	vmID       int
	cpuModel   UtilizationModel

	status       CloudletStatus
	remaining    float64
	datacenterID int
	costPerSec   float64
	submitTime   float64
	startTime    float64
	finishTime   float64
}

// NewCloudlet creates an unbound cloudlet. A nil utilization model means full
// utilization.
func NewCloudlet(id, userID int, length float64, numPEs int, fileSize, outputSize int64, cpu UtilizationModel) *Cloudlet {
	if numPEs < 1 {
		numPEs = 1
	}
	if cpu == nil {
		cpu = UtilizationModelFull{}
	}
	return &Cloudlet{
		id:           id,
		userID:       userID,
		length:       length,
		numPEs:       numPEs,
		fileSize:     fileSize,
		outputSize:   outputSize,
		vmID:         Unbound,
		cpuModel:     cpu,
		status:       CloudletCreated,
		remaining:    length,
		datacenterID: -1,
		startTime:    -1,
		finishTime:   -1,
	}
}

func (c *Cloudlet) ID() int                    { return c.id }
func (c *Cloudlet) UserID() int                { return c.userID }
func (c *Cloudlet) Length() float64            { return c.length }
func (c *Cloudlet) NumPEs() int                { return c.numPEs }
func (c *Cloudlet) FileSize() int64            { return c.fileSize }
func (c *Cloudlet) OutputSize() int64          { return c.outputSize }
func (c *Cloudlet) VMID() int                  { return c.vmID }
func (c *Cloudlet) Status() CloudletStatus     { return c.status }
func (c *Cloudlet) Remaining() float64         { return c.remaining }
func (c *Cloudlet) DatacenterID() int          { return c.datacenterID }
func (c *Cloudlet) SubmitTime() float64        { return c.submitTime }
func (c *Cloudlet) StartTime() float64         { return c.startTime }
func (c *Cloudlet) FinishTime() float64        { return c.finishTime }
func (c *Cloudlet) CPUModel() UtilizationModel { return c.cpuModel }

// BindToVM pins the cloudlet to a VM id; Unbound releases the pin.
func (c *Cloudlet) BindToVM(vmID int) { c.vmID = vmID }

// IsBound reports whether the cloudlet is pinned to a VM.
func (c *Cloudlet) IsBound() bool { return c.vmID != Unbound }

// AssignTo records the datacenter that accepted the cloudlet and its price.
func (c *Cloudlet) AssignTo(datacenterID int, now, costPerSec float64) {
	c.datacenterID = datacenterID
	c.submitTime = now
	c.costPerSec = costPerSec
}

// Fail marks the cloudlet as failed at now.
func (c *Cloudlet) Fail(now float64) {
	c.status = CloudletFailed
	c.finishTime = now
}

// ActualCPUTime is the time between start and finish, or 0 if not finished.
func (c *Cloudlet) ActualCPUTime() float64 {
	if c.finishTime < 0 || c.startTime < 0 {
		return 0
	}
	return c.finishTime - c.startTime
}

// ProcessingCost is the CPU time charged at the datacenter's rate.
func (c *Cloudlet) ProcessingCost() float64 {
	return c.ActualCPUTime() * c.costPerSec
}

func (c *Cloudlet) String() string {
	return fmt.Sprintf("Cloudlet#%d(user=%d, vm=%d, %s)", c.id, c.userID, c.vmID, c.status)
}
