// Package resource models the capacity of a host: processing elements and
// their MIPS ledgers, RAM and bandwidth provisioners, the VM scheduler that
// maps virtual PEs onto physical ones, and the VMs and cloudlets that consume
// them.
//
// Every ledger is keyed by VMKey and owned by exactly one Host. Nothing here
// is safe for concurrent use; the simulation kernel runs one handler at a time.
package resource
