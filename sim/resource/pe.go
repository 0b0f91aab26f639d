package resource

import "fmt"

// PeStatus is the host-managed state of a processing element. It is
// independent of how much of the PE's ledger is allocated.
type PeStatus int

const (
	PeFree PeStatus = iota + 1
	PeBusy
	PeFailed
)

func (s PeStatus) String() string {
	switch s {
	case PeFree:
		return "FREE"
	case PeBusy:
		return "BUSY"
	case PeFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("PeStatus(%d)", int(s))
	}
}

// PeProvisioner hands out a PE's MIPS to virtual PEs of VMs.
type PeProvisioner struct {
	ledger *Ledger
}

// NewPeProvisioner creates a provisioner for a PE rated at mips.
func NewPeProvisioner(mips float64) *PeProvisioner {
	return &PeProvisioner{ledger: NewLedger(mips)}
}

// AllocateMIPS books one more virtual PE share for key.
func (p *PeProvisioner) AllocateMIPS(key VMKey, mips float64) bool {
	return p.ledger.Allocate(key, mips)
}

// ReplaceMIPS replaces key's shares on this PE.
func (p *PeProvisioner) ReplaceMIPS(key VMKey, mips []float64) bool {
	return p.ledger.Replace(key, mips)
}

// DeallocateMIPS releases everything key holds on this PE.
func (p *PeProvisioner) DeallocateMIPS(key VMKey) {
	p.ledger.Release(key)
}

// DeallocateAll releases every VM's shares.
func (p *PeProvisioner) DeallocateAll() {
	p.ledger.ReleaseAll()
}

func (p *PeProvisioner) MIPS() float64          { return p.ledger.Capacity() }
func (p *PeProvisioner) AvailableMIPS() float64 { return p.ledger.Available() }
func (p *PeProvisioner) Utilization() float64   { return p.ledger.Utilization() }

// AllocatedMIPS returns key's shares on this PE, or nil.
func (p *PeProvisioner) AllocatedMIPS(key VMKey) []float64 {
	return p.ledger.Allocated(key)
}

// AllocatedMIPSForVirtualPE returns the share of key's virtual PE vpe, or 0.
func (p *PeProvisioner) AllocatedMIPSForVirtualPE(key VMKey, vpe int) float64 {
	return p.ledger.AllocatedAt(key, vpe)
}

func (p *PeProvisioner) TotalAllocatedMIPS(key VMKey) float64 {
	return p.ledger.TotalAllocated(key)
}

// Pe is one physical processing element of a host.
type Pe struct {
	id          int
	status      PeStatus
	provisioner *PeProvisioner
}

// NewPe creates a free PE rated at mips.
func NewPe(id int, mips float64) *Pe {
	return &Pe{id: id, status: PeFree, provisioner: NewPeProvisioner(mips)}
}

// NewPes creates n free PEs with ids 0..n-1, all rated at mips.
func NewPes(n int, mips float64) []*Pe {
	pes := make([]*Pe, n)
	for i := range pes {
		pes[i] = NewPe(i, mips)
	}
	return pes
}

func (p *Pe) ID() int                     { return p.id }
func (p *Pe) MIPS() float64               { return p.provisioner.MIPS() }
func (p *Pe) Status() PeStatus            { return p.status }
func (p *Pe) SetStatus(s PeStatus)        { p.status = s }
func (p *Pe) Provisioner() *PeProvisioner { return p.provisioner }

func (p *Pe) String() string {
	return fmt.Sprintf("Pe#%d(%.0f MIPS, %s)", p.id, p.MIPS(), p.status)
}

func totalMIPS(pes []*Pe) float64 {
	total := 0.0
	for _, pe := range pes {
		total += pe.MIPS()
	}
	return total
}
