package resource

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumLive(l *Ledger) float64 {
	total := 0.0
	for _, k := range l.Holders() {
		total += l.TotalAllocated(k)
	}
	return total
}

func TestLedger_Allocate_AppendsSlicesAndDebits(t *testing.T) {
	l := NewLedger(1000)
	k := VMKey{UserID: 1, ID: 0}

	require.True(t, l.Allocate(k, 300))
	require.True(t, l.Allocate(k, 200))

	assert.Equal(t, []float64{300, 200}, l.Allocated(k))
	assert.Equal(t, 500.0, l.Available())
	assert.Equal(t, 200.0, l.AllocatedAt(k, 1))
	assert.Equal(t, 0.0, l.AllocatedAt(k, 2))
	assert.InDelta(t, 0.5, l.Utilization(), 1e-12)
}

func TestLedger_Allocate_OverAvailableFailsUnchanged(t *testing.T) {
	l := NewLedger(100)
	k := VMKey{UserID: 1, ID: 0}
	require.True(t, l.Allocate(k, 60))

	assert.False(t, l.Allocate(k, 41))
	assert.Equal(t, 40.0, l.Available())
	assert.Equal(t, []float64{60}, l.Allocated(k))
}

func TestLedger_Replace_DoesNotDoubleCountPreviousHolding(t *testing.T) {
	// GIVEN a VM holding 600 of 1000
	l := NewLedger(1000)
	k := VMKey{UserID: 1, ID: 0}
	require.True(t, l.Allocate(k, 600))

	// WHEN it replaces its holding with 900 (more than the 400 free)
	ok := l.Replace(k, []float64{500, 400})

	// THEN it succeeds because its own 600 is counted as available
	require.True(t, ok)
	assert.Equal(t, 100.0, l.Available())
	assert.Equal(t, 900.0, l.TotalAllocated(k))
}

func TestLedger_Replace_TooLargeFailsUnchanged(t *testing.T) {
	l := NewLedger(1000)
	a := VMKey{UserID: 1, ID: 0}
	b := VMKey{UserID: 1, ID: 1}
	require.True(t, l.Allocate(a, 600))
	require.True(t, l.Allocate(b, 300))

	assert.False(t, l.Replace(a, []float64{701}))
	assert.Equal(t, 100.0, l.Available())
	assert.Equal(t, []float64{600}, l.Allocated(a))
}

func TestLedger_Release(t *testing.T) {
	l := NewLedger(500)
	k := VMKey{UserID: 2, ID: 7}
	require.True(t, l.Allocate(k, 100))
	require.True(t, l.Allocate(k, 150))

	assert.Equal(t, 250.0, l.Release(k))
	assert.Equal(t, 500.0, l.Available())
	assert.Nil(t, l.Allocated(k))
	assert.Equal(t, 0.0, l.Release(k))
	assert.Empty(t, l.Holders())
}

func TestLedger_Conservation_RandomSequence(t *testing.T) {
	// GIVEN a ledger and a seeded sequence of allocate/replace/release calls
	const capacity = 10000.0
	l := NewLedger(capacity)
	rng := rand.New(rand.NewPCG(7, 11))
	keys := []VMKey{{1, 0}, {1, 1}, {2, 0}, {3, 5}}

	for step := 0; step < 2000; step++ {
		k := keys[rng.IntN(len(keys))]
		switch rng.IntN(4) {
		case 0, 1:
			l.Allocate(k, float64(rng.IntN(3000)))
		case 2:
			l.Replace(k, []float64{float64(rng.IntN(2000)), float64(rng.IntN(2000))})
		case 3:
			l.Release(k)
		}

		// THEN available stays in range and conserves capacity after every call
		require.GreaterOrEqual(t, l.Available(), 0.0, "step %d", step)
		require.LessOrEqual(t, l.Available(), capacity, "step %d", step)
		require.Equal(t, capacity, l.Available()+sumLive(l), "step %d", step)
	}

	l.ReleaseAll()
	assert.Equal(t, capacity, l.Available())
}

func TestLedger_Utilization_ZeroCapacity(t *testing.T) {
	assert.Equal(t, 0.0, NewLedger(0).Utilization())
}

func TestSimpleProvisioner_ReplaceSemantics(t *testing.T) {
	p := NewProvisioner("simple", 2048)
	k := VMKey{UserID: 1, ID: 0}

	require.True(t, p.Allocate(k, 1024))
	require.True(t, p.Allocate(k, 2048), "own holding counts toward the new amount")
	assert.Equal(t, 0.0, p.Available())
	assert.Equal(t, 2048.0, p.Allocated(k))

	other := VMKey{UserID: 1, ID: 1}
	assert.False(t, p.IsSuitable(other, 1))
	assert.True(t, p.IsSuitable(k, 2048))

	p.Deallocate(k)
	assert.Equal(t, 2048.0, p.Available())
}

func TestNewProvisioner_UnknownPanics(t *testing.T) {
	assert.Panics(t, func() { NewProvisioner("best-effort", 1) })
}

func TestPeProvisioner_VirtualPEShares(t *testing.T) {
	pe := NewPe(3, 1000)
	k := VMKey{UserID: 1, ID: 2}

	require.True(t, pe.Provisioner().AllocateMIPS(k, 250))
	require.True(t, pe.Provisioner().AllocateMIPS(k, 250))
	assert.Equal(t, 250.0, pe.Provisioner().AllocatedMIPSForVirtualPE(k, 1))
	assert.Equal(t, 500.0, pe.Provisioner().TotalAllocatedMIPS(k))

	require.True(t, pe.Provisioner().ReplaceMIPS(k, []float64{900}))
	assert.Equal(t, 100.0, pe.Provisioner().AvailableMIPS())

	pe.Provisioner().DeallocateMIPS(k)
	assert.Equal(t, 1000.0, pe.Provisioner().AvailableMIPS())
	assert.Equal(t, PeFree, pe.Status(), "ledger changes never touch status")
}
