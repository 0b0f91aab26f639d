package datacenter

import (
	"github.com/uber-go/tally/v4"
)

// metrics tracks VM and cloudlet traffic through a datacenter.
type metrics struct {
	vmCreated   tally.Counter
	vmRejected  tally.Counter
	vmDestroyed tally.Counter

	cloudletsSubmitted tally.Counter
	cloudletsReturned  tally.Counter
	cloudletsFailed    tally.Counter

	migrations        tally.Counter
	migrationFailures tally.Counter
	hostFailures      tally.Counter
}

func newMetrics(scope tally.Scope) *metrics {
	return &metrics{
		vmCreated:   scope.Counter("vm_created"),
		vmRejected:  scope.Counter("vm_rejected"),
		vmDestroyed: scope.Counter("vm_destroyed"),

		cloudletsSubmitted: scope.Counter("cloudlets_submitted"),
		cloudletsReturned:  scope.Counter("cloudlets_returned"),
		cloudletsFailed:    scope.Counter("cloudlets_failed"),

		migrations:        scope.Counter("migrations"),
		migrationFailures: scope.Counter("migration_failures"),
		hostFailures:      scope.Counter("host_failures"),
	}
}
