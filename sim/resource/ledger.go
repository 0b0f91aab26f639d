package resource

import (
	"fmt"
	"sort"
)

// VMKey identifies a VM across every ledger on a host. VM ids are only unique
// per user, so the owning user is part of the key.
type VMKey struct {
	UserID int
	ID     int
}

func (k VMKey) String() string {
	return fmt.Sprintf("%d-%d", k.UserID, k.ID)
}

// Ledger tracks how much of a fixed capacity is handed out to each VM.
// A VM may hold several slices (one per virtual PE mapped to the same source).
//
// After every operation: Available() + Σ TotalAllocated(k) == Capacity().
type Ledger struct {
	capacity  float64
	available float64
	slices    map[VMKey][]float64
}

// NewLedger creates an empty ledger. Panics on negative capacity.
func NewLedger(capacity float64) *Ledger {
	if capacity < 0 {
		panic(fmt.Sprintf("NewLedger: negative capacity %v", capacity))
	}
	return &Ledger{
		capacity:  capacity,
		available: capacity,
		slices:    make(map[VMKey][]float64),
	}
}

// Capacity returns the total capacity.
func (l *Ledger) Capacity() float64 { return l.capacity }

// Available returns the capacity not held by any VM.
func (l *Ledger) Available() float64 { return l.available }

// Allocate appends a slice of amount to key's holding.
// Fails without mutation if amount exceeds what is available.
func (l *Ledger) Allocate(key VMKey, amount float64) bool {
	if amount < 0 || amount > l.available {
		return false
	}
	l.slices[key] = append(l.slices[key], amount)
	l.available -= amount
	return true
}

// Replace swaps key's whole holding for amounts in a single step, so the
// previous holding counts as available for the new one. Fails without
// mutation if the new total does not fit.
func (l *Ledger) Replace(key VMKey, amounts []float64) bool {
	previous := l.TotalAllocated(key)
	newTotal := 0.0
	for _, a := range amounts {
		if a < 0 {
			return false
		}
		newTotal += a
	}
	if l.available+previous < newTotal {
		return false
	}
	l.available = l.available + previous - newTotal
	if len(amounts) == 0 {
		delete(l.slices, key)
		return true
	}
	l.slices[key] = append([]float64(nil), amounts...)
	return true
}

// Release returns every slice held by key and drops its row.
// Returns the amount released (0 if key held nothing).
func (l *Ledger) Release(key VMKey) float64 {
	total := l.TotalAllocated(key)
	if _, ok := l.slices[key]; !ok {
		return 0
	}
	l.available += total
	delete(l.slices, key)
	return total
}

// ReleaseAll empties the ledger.
func (l *Ledger) ReleaseAll() {
	clear(l.slices)
	l.available = l.capacity
}

// Allocated returns a copy of key's slices, or nil if it holds nothing.
func (l *Ledger) Allocated(key VMKey) []float64 {
	s, ok := l.slices[key]
	if !ok {
		return nil
	}
	return append([]float64(nil), s...)
}

// AllocatedAt returns key's i-th slice, or 0 if there is none.
func (l *Ledger) AllocatedAt(key VMKey, i int) float64 {
	s := l.slices[key]
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

// TotalAllocated returns the sum of key's slices.
func (l *Ledger) TotalAllocated(key VMKey) float64 {
	total := 0.0
	for _, a := range l.slices[key] {
		total += a
	}
	return total
}

// Holders returns the keys with a live allocation, sorted for determinism.
func (l *Ledger) Holders() []VMKey {
	keys := make([]VMKey, 0, len(l.slices))
	for k := range l.slices {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].UserID != keys[j].UserID {
			return keys[i].UserID < keys[j].UserID
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

// Utilization is the fraction of capacity in use, floored at 0.
func (l *Ledger) Utilization() float64 {
	if l.capacity == 0 {
		return 0
	}
	return max(0, (l.capacity-l.available)/l.capacity)
}
