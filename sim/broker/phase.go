package broker

import (
	"github.com/pkg/errors"
)

// Phase is the negotiation stage a broker is in.
type Phase int

const (
	// Discovering: characteristics requested, waiting for every reply.
	Discovering Phase = iota
	// Provisioning: create requests sent to one datacenter, waiting for acks.
	Provisioning
	// Submitting: assigning pending cloudlets to created VMs.
	Submitting
	// Draining: cloudlets in flight, waiting for returns.
	Draining
	// Done: VMs destroyed (or never created) and END_OF_SIMULATION sent.
	Done
)

var phaseNames = map[Phase]string{
	Discovering:  "DISCOVERING",
	Provisioning: "PROVISIONING",
	Submitting:   "SUBMITTING",
	Draining:     "DRAINING",
	Done:         "DONE",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "UNKNOWN"
}

// rule lists the phases reachable from one phase.
type rule struct {
	from Phase
	to   []Phase
}

// rules is the broker's transition table. Provisioning loops on itself when
// the next datacenter is tried, and Draining goes back to Provisioning when
// bound cloudlets wait for VMs that were never created.
var rules = map[Phase]*rule{
	Discovering: {
		from: Discovering,
		to:   []Phase{Provisioning, Done},
	},
	Provisioning: {
		from: Provisioning,
		to:   []Phase{Provisioning, Submitting, Done},
	},
	Submitting: {
		from: Submitting,
		to:   []Phase{Draining, Done},
	},
	Draining: {
		from: Draining,
		to:   []Phase{Provisioning, Done},
	},
}

// validTransition returns an error unless the table allows from → to.
func validTransition(from, to Phase) error {
	r, ok := rules[from]
	if !ok || r.from != from {
		return errors.Errorf("invalid transition [from %s to %s]", from, to)
	}
	for _, dest := range r.to {
		if dest == to {
			return nil
		}
	}
	return errors.Errorf("invalid transition [from %s to %s]", from, to)
}

// Action is what a broker does next after an acknowledgement or a return.
type Action int

const (
	// Wait for more events.
	Wait Action = iota
	// Submit pending cloudlets to the created fleet.
	Submit
	// ProvisionNext sends the missing VMs to the next untried datacenter.
	ProvisionNext
	// Abort ends the run: no VM could be created anywhere.
	Abort
	// Finish destroys every VM and ends the run.
	Finish
	// Restart destroys every VM and provisions again from the first datacenter.
	Restart
)

var actionNames = map[Action]string{
	Wait:          "wait",
	Submit:        "submit",
	ProvisionNext: "provision-next",
	Abort:         "abort",
	Finish:        "finish",
	Restart:       "restart",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// AckState is what decideAfterAck looks at.
type AckState struct {
	Created        int // VMs created so far
	RequestedTotal int // VMs submitted to the broker
	Destroyed      int
	Acks           int // acks received this round
	Requested      int // create requests sent this round
	UntriedLeft    bool
}

// decideAfterAck applies the rules that follow a VM create acknowledgement.
func decideAfterAck(s AckState) Action {
	if s.Created == s.RequestedTotal-s.Destroyed {
		return Submit
	}
	if s.Acks < s.Requested {
		return Wait
	}
	switch {
	case s.UntriedLeft:
		return ProvisionNext
	case s.Created > 0:
		return Submit
	default:
		return Abort
	}
}

// decideAfterReturn applies the rules that follow a cloudlet return.
func decideAfterReturn(pending, inFlight int) Action {
	if inFlight > 0 {
		return Wait
	}
	if pending == 0 {
		return Finish
	}
	return Restart
}
