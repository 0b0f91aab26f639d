package resource

import (
	"github.com/sirupsen/logrus"
)

// SpaceSharedScheduler gives each virtual PE a physical PE of its own.
// A PE serves at most one VM at a time.
type SpaceSharedScheduler struct {
	schedulerState
	freePEs []*Pe
}

// NewSpaceSharedScheduler creates a scheduler with every PE free.
func NewSpaceSharedScheduler(pes []*Pe) *SpaceSharedScheduler {
	return &SpaceSharedScheduler{
		schedulerState: newSchedulerState(pes),
		freePEs:        append([]*Pe(nil), pes...),
	}
}

// AllocatePEs walks the free pool once from the left. Each share takes the
// next PE, at or after the current position, rated at least at the share;
// a PE passed over is never revisited. Nothing is mutated unless every share
// is matched.
func (s *SpaceSharedScheduler) AllocatePEs(key VMKey, shares []float64) bool {
	if _, held := s.peMap[key]; held {
		logrus.Warnf("space-shared: VM %s already holds PEs", key)
		return false
	}
	if len(s.freePEs) < len(shares) {
		return false
	}

	picked := make([]int, 0, len(shares))
	next := 0
	for _, share := range shares {
		for next < len(s.freePEs) && s.freePEs[next].MIPS() < share {
			next++
		}
		if next == len(s.freePEs) {
			return false
		}
		picked = append(picked, next)
		next++
	}

	selected := make([]*Pe, len(picked))
	total := 0.0
	for i, idx := range picked {
		pe := s.freePEs[idx]
		selected[i] = pe
		total += shares[i]
		pe.Provisioner().AllocateMIPS(key, shares[i])
	}
	s.freePEs = removeIndices(s.freePEs, picked)
	s.peMap[key] = selected
	s.mipsMap[key] = append([]float64(nil), shares...)
	s.available -= total
	return true
}

// DeallocatePEs returns key's PEs to the end of the free pool.
func (s *SpaceSharedScheduler) DeallocatePEs(key VMKey) {
	pes, ok := s.peMap[key]
	if !ok {
		return
	}
	for _, pe := range pes {
		pe.Provisioner().DeallocateMIPS(key)
	}
	s.freePEs = append(s.freePEs, pes...)
	s.available += s.TotalAllocatedMIPS(key)
	delete(s.peMap, key)
	delete(s.mipsMap, key)
}

// DeallocateAll frees every PE, restoring the original pool order.
func (s *SpaceSharedScheduler) DeallocateAll() {
	s.resetLedgers()
	s.freePEs = append(s.freePEs[:0], s.pes...)
}

// FreePEs returns the PEs not assigned to any VM, in pool order.
func (s *SpaceSharedScheduler) FreePEs() []*Pe {
	return append([]*Pe(nil), s.freePEs...)
}

// removeIndices drops the elements at the given ascending indices.
func removeIndices(pes []*Pe, idx []int) []*Pe {
	out := make([]*Pe, 0, len(pes)-len(idx))
	j := 0
	for i, pe := range pes {
		if j < len(idx) && idx[j] == i {
			j++
			continue
		}
		out = append(out, pe)
	}
	return out
}
