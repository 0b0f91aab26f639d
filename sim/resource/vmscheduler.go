package resource

import (
	"fmt"
	"slices"
)

// VMScheduler maps the per-virtual-PE MIPS shares a VM requests onto a
// host's physical PEs.
type VMScheduler interface {
	// AllocatePEs grants shares to key. A failed call changes nothing.
	AllocatePEs(key VMKey, shares []float64) bool
	// DeallocatePEs reverses AllocatePEs for key. Unknown keys are ignored.
	DeallocatePEs(key VMKey)
	DeallocateAll()

	AllocatedMIPS(key VMKey) []float64
	TotalAllocatedMIPS(key VMKey) float64
	PEsFor(key VMKey) []*Pe
	AvailableMIPS() float64
	MaxAvailableMIPS() float64
	// PECapacity is the rating of one PE. PEs on a host are homogeneous.
	PECapacity() float64
	PEs() []*Pe

	MarkMigratingIn(key VMKey)
	UnmarkMigratingIn(key VMKey)
	IsMigratingIn(key VMKey) bool
	MarkMigratingOut(key VMKey)
	UnmarkMigratingOut(key VMKey)
	IsMigratingOut(key VMKey) bool
}

// ValidVMSchedulers is the set of recognized VM scheduler names.
var ValidVMSchedulers = map[string]bool{"": true, "space-shared": true}

// IsValidVMScheduler reports whether name is a recognized VM scheduler.
func IsValidVMScheduler(name string) bool {
	return ValidVMSchedulers[name]
}

// NewVMScheduler creates a VM scheduler by name over pes. An empty string
// selects "space-shared". Panics on unrecognized names.
func NewVMScheduler(name string, pes []*Pe) VMScheduler {
	if !IsValidVMScheduler(name) {
		panic(fmt.Sprintf("unknown VM scheduler %q", name))
	}
	switch name {
	case "", "space-shared":
		return NewSpaceSharedScheduler(pes)
	default:
		panic(fmt.Sprintf("unhandled VM scheduler %q", name))
	}
}

// schedulerState is the bookkeeping every policy shares: which PEs and
// shares each VM holds and how much MIPS is left on the host.
type schedulerState struct {
	pes          []*Pe
	peMap        map[VMKey][]*Pe
	mipsMap      map[VMKey][]float64
	available    float64
	migratingIn  map[VMKey]struct{}
	migratingOut map[VMKey]struct{}
}

func newSchedulerState(pes []*Pe) schedulerState {
	return schedulerState{
		pes:          pes,
		peMap:        make(map[VMKey][]*Pe),
		mipsMap:      make(map[VMKey][]float64),
		available:    totalMIPS(pes),
		migratingIn:  make(map[VMKey]struct{}),
		migratingOut: make(map[VMKey]struct{}),
	}
}

func (s *schedulerState) AllocatedMIPS(key VMKey) []float64 {
	return slices.Clone(s.mipsMap[key])
}

func (s *schedulerState) TotalAllocatedMIPS(key VMKey) float64 {
	total := 0.0
	for _, m := range s.mipsMap[key] {
		total += m
	}
	return total
}

func (s *schedulerState) PEsFor(key VMKey) []*Pe {
	return slices.Clone(s.peMap[key])
}

func (s *schedulerState) AvailableMIPS() float64 { return s.available }

func (s *schedulerState) MaxAvailableMIPS() float64 {
	best := 0.0
	for _, pe := range s.pes {
		best = max(best, pe.Provisioner().AvailableMIPS())
	}
	return best
}

func (s *schedulerState) PECapacity() float64 {
	if len(s.pes) == 0 {
		return 0
	}
	return s.pes[0].MIPS()
}

func (s *schedulerState) PEs() []*Pe { return s.pes }

func (s *schedulerState) MarkMigratingIn(key VMKey)    { s.migratingIn[key] = struct{}{} }
func (s *schedulerState) UnmarkMigratingIn(key VMKey)  { delete(s.migratingIn, key) }
func (s *schedulerState) MarkMigratingOut(key VMKey)   { s.migratingOut[key] = struct{}{} }
func (s *schedulerState) UnmarkMigratingOut(key VMKey) { delete(s.migratingOut, key) }

func (s *schedulerState) IsMigratingIn(key VMKey) bool {
	_, ok := s.migratingIn[key]
	return ok
}

func (s *schedulerState) IsMigratingOut(key VMKey) bool {
	_, ok := s.migratingOut[key]
	return ok
}

func (s *schedulerState) resetLedgers() {
	clear(s.peMap)
	clear(s.mipsMap)
	s.available = totalMIPS(s.pes)
	for _, pe := range s.pes {
		pe.Provisioner().DeallocateAll()
	}
}
