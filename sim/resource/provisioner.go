package resource

import "fmt"

// Provisioner hands out a scalar host resource (RAM in MB, bandwidth in Mbps)
// to VMs. Implementations must leave their ledger untouched on a failed
// Allocate.
type Provisioner interface {
	// Allocate sets key's holding to amount, replacing any previous holding.
	Allocate(key VMKey, amount float64) bool
	Deallocate(key VMKey)
	DeallocateAll()
	// IsSuitable reports whether Allocate(key, amount) would succeed, without
	// changing anything.
	IsSuitable(key VMKey, amount float64) bool
	Allocated(key VMKey) float64
	Available() float64
	Capacity() float64
}

// ValidProvisioners is the set of recognized provisioner names.
var ValidProvisioners = map[string]bool{"": true, "simple": true}

// IsValidProvisioner reports whether name is a recognized provisioner.
func IsValidProvisioner(name string) bool {
	return ValidProvisioners[name]
}

// NewProvisioner creates a provisioner by name. An empty string selects
// "simple". Panics on unrecognized names.
func NewProvisioner(name string, capacity float64) Provisioner {
	if !IsValidProvisioner(name) {
		panic(fmt.Sprintf("unknown provisioner %q", name))
	}
	switch name {
	case "", "simple":
		return NewSimpleProvisioner(capacity)
	default:
		panic(fmt.Sprintf("unhandled provisioner %q", name))
	}
}

// SimpleProvisioner grants whatever is asked for as long as it fits.
type SimpleProvisioner struct {
	ledger *Ledger
}

// NewSimpleProvisioner creates a SimpleProvisioner with the given capacity.
func NewSimpleProvisioner(capacity float64) *SimpleProvisioner {
	return &SimpleProvisioner{ledger: NewLedger(capacity)}
}

func (p *SimpleProvisioner) Allocate(key VMKey, amount float64) bool {
	return p.ledger.Replace(key, []float64{amount})
}

func (p *SimpleProvisioner) Deallocate(key VMKey) {
	p.ledger.Release(key)
}

func (p *SimpleProvisioner) DeallocateAll() {
	p.ledger.ReleaseAll()
}

func (p *SimpleProvisioner) IsSuitable(key VMKey, amount float64) bool {
	return amount >= 0 && p.ledger.Available()+p.ledger.TotalAllocated(key) >= amount
}

func (p *SimpleProvisioner) Allocated(key VMKey) float64 {
	return p.ledger.TotalAllocated(key)
}

func (p *SimpleProvisioner) Available() float64 { return p.ledger.Available() }
func (p *SimpleProvisioner) Capacity() float64  { return p.ledger.Capacity() }
