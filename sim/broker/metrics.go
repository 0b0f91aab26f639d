package broker

import (
	"github.com/uber-go/tally/v4"
)

// metrics tracks a broker's negotiation.
type metrics struct {
	vmsRequested       tally.Counter
	vmsCreated         tally.Counter
	vmsFailed          tally.Counter
	vmsDestroyed       tally.Counter
	provisioningRounds tally.Counter

	cloudletsSubmitted tally.Counter
	cloudletsReceived  tally.Counter
	cloudletsPostponed tally.Counter

	restarts tally.Counter
	aborts   tally.Counter
}

func newMetrics(scope tally.Scope) *metrics {
	return &metrics{
		vmsRequested:       scope.Counter("vms_requested"),
		vmsCreated:         scope.Counter("vms_created"),
		vmsFailed:          scope.Counter("vms_failed"),
		vmsDestroyed:       scope.Counter("vms_destroyed"),
		provisioningRounds: scope.Counter("provisioning_rounds"),

		cloudletsSubmitted: scope.Counter("cloudlets_submitted"),
		cloudletsReceived:  scope.Counter("cloudlets_received"),
		cloudletsPostponed: scope.Counter("cloudlets_postponed"),

		restarts: scope.Counter("restarts"),
		aborts:   scope.Counter("aborts"),
	}
}
