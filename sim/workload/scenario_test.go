package workload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const twoDatacenters = `
name: two-datacenters
seed: 42
datacenters:
  - name: small
    arch: x86
    os: Linux
    cost: {per_sec: 1}
    hosts:
      - {pes: 1, mips: 1000, ram: 4GiB, bw: 10000, storage: 100000}
  - name: large
    arch: x86
    os: Linux
    cost: {per_sec: 1}
    power: {model: linear, max_power: 250, static_fraction: 0.7}
    hosts:
      - {pes: 4, mips: 1000, ram: 4GiB, bw: 10000, storage: 100000}
brokers:
  - name: alice
    vms:
      - {count: 3, mips: 1000, pes: 1, ram: 512MiB, bw: 1000, size: 10000}
    cloudlets:
      - count: 6
        length: {type: constant, params: {value: 5000}}
        pes: 1
        file_size: 300
        output_size: 300
`

func mustParse(t *testing.T, doc string) *Scenario {
	t.Helper()
	sc, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	return sc
}

func TestParseScenario(t *testing.T) {
	sc := mustParse(t, twoDatacenters)

	assert.Equal(t, "two-datacenters", sc.Name)
	assert.Equal(t, int64(42), sc.Seed)
	require.Len(t, sc.Datacenters, 2)
	assert.Equal(t, Size(4096), sc.Datacenters[0].Hosts[0].RAM)
	assert.Equal(t, "linear", sc.Datacenters[1].Power.Model)
	require.Len(t, sc.Brokers, 1)
	assert.Equal(t, Size(512), sc.Brokers[0].VMs[0].RAM)
	assert.Equal(t, 3, sc.Brokers[0].numVMs())
	assert.NoError(t, sc.Validate())
}

func TestParseScenario_UnknownFieldRejected(t *testing.T) {
	_, err := ParseScenario([]byte("seed: 1\nhosts_per_dc: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hosts_per_dc")
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(twoDatacenters), 0o644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "two-datacenters", sc.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestScenario_Validate_ReportsEveryProblem(t *testing.T) {
	// GIVEN a scenario with several independent mistakes
	sc := mustParse(t, `
seed: 1
trace: verbose
datacenters:
  - name: dc
    allocation_policy: best-fit
    hosts:
      - {pes: 0, mips: 1000, ram: 1024, bw: 100, storage: 1000}
    migrations:
      - {broker: bob, vm: 0, to_host: 0, at: 1, duration: 1}
brokers:
  - name: dc
    vms:
      - {mips: 1000, pes: 1, ram: 128, bw: 10, size: 10}
    cloudlets:
      - length: {type: gaussian, params: {mean: 100}}
        pes: 1
`)

	// WHEN it is validated
	err := sc.Validate()

	// THEN each problem is reported separately
	require.Error(t, err)
	errs := multierr.Errors(err)
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	assert.Len(t, errs, 6, "%v", msgs)
	assert.Contains(t, err.Error(), `unknown trace level "verbose"`)
	assert.Contains(t, err.Error(), `broker name "dc" already used by a datacenter`)
	assert.Contains(t, err.Error(), `unknown allocation_policy "best-fit"`)
	assert.Contains(t, err.Error(), "pes must be positive")
	assert.Contains(t, err.Error(), `unknown broker "bob"`)
	assert.Contains(t, err.Error(), "requires params.std_dev")
}

func TestScenario_Validate_MigrationTargets(t *testing.T) {
	sc := mustParse(t, twoDatacenters)
	sc.Datacenters[1].Migrations = []MigrationSpec{
		{Broker: "alice", VM: 3, ToHost: 0, At: 1},
		{Broker: "alice", VM: 0, ToHost: 1, At: 1},
	}

	err := sc.Validate()

	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), `broker "alice" has no VM 3`)
	assert.Contains(t, err.Error(), "to_host 1 out of range [0, 1)")
}

func TestScenario_Validate_Empty(t *testing.T) {
	err := (&Scenario{}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one datacenter required")
	assert.Contains(t, err.Error(), "at least one broker required")
}
