package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsim-go/cloudsim/sim"
	"github.com/cloudsim-go/cloudsim/sim/datacenter"
	"github.com/cloudsim-go/cloudsim/sim/resource"
)

func newDatacenter(t *testing.T, s *sim.Simulator, name string, pes int) *datacenter.Datacenter {
	t.Helper()
	host := resource.NewHost(0,
		resource.NewProvisioner("simple", 4096),
		resource.NewProvisioner("simple", 10000),
		100000,
		resource.NewVMScheduler("space-shared", resource.NewPes(pes, 1000)))
	chars := &datacenter.Characteristics{Arch: "x86", OS: "Linux", VMM: "Xen", CostPerSec: 1, Hosts: []*resource.Host{host}}
	d, err := datacenter.New(s, name, chars, nil)
	require.NoError(t, err)
	return d
}

func TestBroker_EndToEnd(t *testing.T) {
	s := sim.NewSimulator()
	small := newDatacenter(t, s, "small", 1)
	large := newDatacenter(t, s, "large", 4)

	b, err := New(s, "alice")
	require.NoError(t, err)
	for i := range 3 {
		b.SubmitVMs(resource.NewVM(i, b.ID(), 1000, 1, 512, 1000, 10000, "Xen", nil))
	}
	for i := range 6 {
		b.SubmitCloudlets(resource.NewCloudlet(i, b.ID(), 5000, 1, 300, 300, nil))
	}

	end := s.Run()

	// GIVEN the small datacenter only fits one VM, the other two land on the large one
	dc, placed := b.DatacenterOf(0)
	assert.True(t, placed, "mapping outlives the destroyed VM")
	assert.Equal(t, small.ID(), dc)
	assert.Equal(t, Done, b.Phase())
	assert.Equal(t, 2, b.Rounds())
	assert.Equal(t, 3, b.Destroyed())

	// THEN every cloudlet shares its VM with one other and finishes at t=10
	require.Len(t, b.Received(), 6)
	for _, cl := range b.Received() {
		assert.Equal(t, resource.CloudletSuccess, cl.Status())
		assert.InDelta(t, 10.0, cl.FinishTime(), 1e-9)
	}
	assert.InDelta(t, 10.0, end, 1e-9)
	assert.Equal(t, sim.StateFinished, s.State(b.ID()))

	// AND the datacenters were emptied
	assert.Empty(t, small.VMs())
	assert.Empty(t, large.VMs())
	assert.InDelta(t, 20.0, small.ProcessingCost(), 1e-9)
	assert.InDelta(t, 40.0, large.ProcessingCost(), 1e-9)
}
