package datacenter

import (
	"github.com/cloudsim-go/cloudsim/sim/resource"
)

// Characteristics describes a datacenter to brokers: what it runs on, what it
// charges and which hosts it owns. A pointer to it is the payload of the
// RESOURCE_CHARACTERISTICS reply.
type Characteristics struct {
	ID           int
	Name         string
	Arch         string
	OS           string
	VMM          string
	TimeZone     float64
	CostPerSec   float64 // per CPU second
	CostPerMem   float64 // per MB of RAM
	CostPerStore float64 // per MB of storage
	CostPerBW    float64 // per Mb of bandwidth
	Hosts        []*resource.Host
}

// NumPEs is the number of PEs across all hosts.
func (c *Characteristics) NumPEs() int {
	n := 0
	for _, h := range c.Hosts {
		n += h.NumPEs()
	}
	return n
}

// NumFreePEs is the number of PEs whose status is free.
func (c *Characteristics) NumFreePEs() int {
	n := 0
	for _, h := range c.Hosts {
		n += h.NumFreePEs()
	}
	return n
}

// MIPSOfOnePE is the rating of the first PE of the first host, or 0.
func (c *Characteristics) MIPSOfOnePE() float64 {
	if len(c.Hosts) == 0 || len(c.Hosts[0].PEs()) == 0 {
		return 0
	}
	return c.Hosts[0].PEs()[0].MIPS()
}

// TotalMIPS is the rated capacity of the datacenter.
func (c *Characteristics) TotalMIPS() float64 {
	total := 0.0
	for _, h := range c.Hosts {
		total += h.TotalMIPS()
	}
	return total
}

// NumFailedHosts counts hosts marked failed.
func (c *Characteristics) NumFailedHosts() int {
	n := 0
	for _, h := range c.Hosts {
		if h.Failed() {
			n++
		}
	}
	return n
}

// VMCost is the up-front price of a VM's RAM, image and bandwidth.
func (c *Characteristics) VMCost(vm *resource.VM) float64 {
	return float64(vm.RAM())*c.CostPerMem + float64(vm.Size())*c.CostPerStore + float64(vm.BW())*c.CostPerBW
}
