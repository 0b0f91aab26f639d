// Package sim provides the discrete-event simulation kernel for cloudsim.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - event.go: Event records and the Tag vocabulary entities talk in
//   - queue.go: EventQueue, the time-ordered store of future events
//   - simulator.go: entity registry, Send/Cancel, and the dispatch loop
//
// # Architecture
//
// The kernel knows nothing about clouds. Domain entities live in sub-packages
// and talk to each other only through events:
//   - sim/resource/: PEs, capacity ledgers, VM schedulers, hosts, VMs, cloudlets
//   - sim/datacenter/: the datacenter entity and its VM allocation policies
//   - sim/broker/: the broker entity negotiating VMs and cloudlets for a user
//   - sim/power/: host power models used for energy accounting
//   - sim/trace/: broker decision records
//   - sim/workload/: YAML scenarios, sampling distributions, run reports
//
// # Determinism
//
// There is one goroutine and one clock. Events due at the same time are
// dispatched in the order they were sent, and randomness comes only from
// PartitionedRNG streams derived from the scenario seed, so a scenario and a
// seed always produce the same run.
package sim
