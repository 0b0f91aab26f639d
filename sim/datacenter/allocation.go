package datacenter

import (
	"fmt"
	"math"

	"github.com/cloudsim-go/cloudsim/sim/resource"
)

// AllocationPolicy picks the host a VM is created on and remembers the
// placement. Failed hosts are never chosen.
type AllocationPolicy interface {
	// AllocateHostForVM places vm on some host.
	AllocateHostForVM(vm *resource.VM) bool
	// AllocateHostForVMOn places vm on host.
	AllocateHostForVMOn(vm *resource.VM, host *resource.Host) bool
	DeallocateHostForVM(vm *resource.VM)
	HostOf(vm *resource.VM) *resource.Host
	Hosts() []*resource.Host
}

// ValidAllocationPolicies is the set of recognized VM allocation policy names.
var ValidAllocationPolicies = map[string]bool{"": true, "simple": true, "first-fit": true}

// IsValidAllocationPolicy reports whether name is a recognized allocation policy.
func IsValidAllocationPolicy(name string) bool {
	return ValidAllocationPolicies[name]
}

// NewAllocationPolicy creates an allocation policy by name over hosts.
// An empty string selects "simple". Panics on unrecognized names.
func NewAllocationPolicy(name string, hosts []*resource.Host) AllocationPolicy {
	if !IsValidAllocationPolicy(name) {
		panic(fmt.Sprintf("unknown allocation policy %q", name))
	}
	switch name {
	case "", "simple":
		return NewSimplePolicy(hosts)
	case "first-fit":
		return NewFirstFitPolicy(hosts)
	default:
		panic(fmt.Sprintf("unhandled allocation policy %q", name))
	}
}

// placements is the VM → host table shared by the policies.
type placements struct {
	hosts []*resource.Host
	table map[resource.VMKey]*resource.Host
}

func newPlacements(hosts []*resource.Host) placements {
	return placements{hosts: hosts, table: make(map[resource.VMKey]*resource.Host)}
}

func (p *placements) Hosts() []*resource.Host { return p.hosts }

func (p *placements) HostOf(vm *resource.VM) *resource.Host {
	return p.table[vm.Key()]
}

func (p *placements) placeOn(vm *resource.VM, host *resource.Host) bool {
	if host == nil || host.Failed() {
		return false
	}
	if _, placed := p.table[vm.Key()]; placed {
		return false
	}
	if !host.CreateVM(vm) {
		return false
	}
	p.table[vm.Key()] = host
	return true
}

func (p *placements) release(vm *resource.VM) *resource.Host {
	host, ok := p.table[vm.Key()]
	if !ok {
		return nil
	}
	delete(p.table, vm.Key())
	host.DestroyVM(vm)
	return host
}

// SimplePolicy places a VM on the host with the most free PEs, moving on to
// the next best host each time creation fails.
type SimplePolicy struct {
	placements
	freePEs []int
	usedPEs map[resource.VMKey]int
}

// NewSimplePolicy creates a SimplePolicy with every PE free.
func NewSimplePolicy(hosts []*resource.Host) *SimplePolicy {
	free := make([]int, len(hosts))
	for i, h := range hosts {
		free[i] = h.NumPEs()
	}
	return &SimplePolicy{
		placements: newPlacements(hosts),
		freePEs:    free,
		usedPEs:    make(map[resource.VMKey]int),
	}
}

func (p *SimplePolicy) AllocateHostForVM(vm *resource.VM) bool {
	if _, placed := p.table[vm.Key()]; placed {
		return false
	}
	candidates := append([]int(nil), p.freePEs...)
	for i, h := range p.hosts {
		if h.Failed() {
			candidates[i] = math.MinInt
		}
	}
	for range p.hosts {
		idx := -1
		for i, free := range candidates {
			if free == math.MinInt {
				continue
			}
			if idx < 0 || free > candidates[idx] {
				idx = i
			}
		}
		if idx < 0 {
			return false
		}
		if p.placeOn(vm, p.hosts[idx]) {
			p.usedPEs[vm.Key()] = vm.NumPEs()
			p.freePEs[idx] -= vm.NumPEs()
			return true
		}
		candidates[idx] = math.MinInt
	}
	return false
}

func (p *SimplePolicy) AllocateHostForVMOn(vm *resource.VM, host *resource.Host) bool {
	idx := p.indexOf(host)
	if idx < 0 || !p.placeOn(vm, host) {
		return false
	}
	p.usedPEs[vm.Key()] = vm.NumPEs()
	p.freePEs[idx] -= vm.NumPEs()
	return true
}

func (p *SimplePolicy) DeallocateHostForVM(vm *resource.VM) {
	host := p.release(vm)
	if host == nil {
		return
	}
	p.freePEs[p.indexOf(host)] += p.usedPEs[vm.Key()]
	delete(p.usedPEs, vm.Key())
}

// FreePEs returns the policy's count of unassigned PEs per host.
func (p *SimplePolicy) FreePEs() []int {
	return append([]int(nil), p.freePEs...)
}

func (p *SimplePolicy) indexOf(host *resource.Host) int {
	for i, h := range p.hosts {
		if h == host {
			return i
		}
	}
	return -1
}

// FirstFitPolicy places a VM on the first host, in declaration order, that
// accepts it.
type FirstFitPolicy struct {
	placements
}

// NewFirstFitPolicy creates a FirstFitPolicy.
func NewFirstFitPolicy(hosts []*resource.Host) *FirstFitPolicy {
	return &FirstFitPolicy{placements: newPlacements(hosts)}
}

func (p *FirstFitPolicy) AllocateHostForVM(vm *resource.VM) bool {
	for _, h := range p.hosts {
		if p.placeOn(vm, h) {
			return true
		}
	}
	return false
}

func (p *FirstFitPolicy) AllocateHostForVMOn(vm *resource.VM, host *resource.Host) bool {
	for _, h := range p.hosts {
		if h == host {
			return p.placeOn(vm, host)
		}
	}
	return false
}

func (p *FirstFitPolicy) DeallocateHostForVM(vm *resource.VM) {
	p.release(vm)
}
