package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "DISCOVERING", Discovering.String())
	assert.Equal(t, "PROVISIONING", Provisioning.String())
	assert.Equal(t, "SUBMITTING", Submitting.String())
	assert.Equal(t, "DRAINING", Draining.String())
	assert.Equal(t, "DONE", Done.String())
	assert.Equal(t, "UNKNOWN", Phase(42).String())
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to Phase
		valid    bool
	}{
		{Discovering, Provisioning, true},
		{Discovering, Done, true},
		{Discovering, Submitting, false},
		{Provisioning, Provisioning, true},
		{Provisioning, Submitting, true},
		{Provisioning, Done, true},
		{Provisioning, Draining, false},
		{Submitting, Draining, true},
		{Submitting, Done, true},
		{Submitting, Provisioning, false},
		{Draining, Provisioning, true},
		{Draining, Done, true},
		{Draining, Draining, false},
		{Done, Provisioning, false},
		{Done, Done, false},
	}
	for _, tc := range tests {
		err := validTransition(tc.from, tc.to)
		if tc.valid {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			assert.Error(t, err, "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestDecideAfterAck(t *testing.T) {
	tests := []struct {
		name  string
		state AckState
		want  Action
	}{
		{
			name:  "whole fleet created",
			state: AckState{Created: 3, RequestedTotal: 3, Acks: 3, Requested: 3, UntriedLeft: true},
			want:  Submit,
		},
		{
			name:  "destroyed VMs are not waited for",
			state: AckState{Created: 2, RequestedTotal: 3, Destroyed: 1, Acks: 2, Requested: 3},
			want:  Submit,
		},
		{
			name:  "acks outstanding",
			state: AckState{Created: 1, RequestedTotal: 3, Acks: 2, Requested: 3, UntriedLeft: true},
			want:  Wait,
		},
		{
			name:  "datacenter exhausted, another left",
			state: AckState{Created: 1, RequestedTotal: 3, Acks: 3, Requested: 3, UntriedLeft: true},
			want:  ProvisionNext,
		},
		{
			name:  "every datacenter tried, partial fleet",
			state: AckState{Created: 1, RequestedTotal: 3, Acks: 2, Requested: 2},
			want:  Submit,
		},
		{
			name:  "every datacenter tried, nothing created",
			state: AckState{Created: 0, RequestedTotal: 3, Acks: 3, Requested: 3},
			want:  Abort,
		},
		{
			name:  "empty fleet",
			state: AckState{},
			want:  Submit,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decideAfterAck(tc.state))
		})
	}
}

func TestDecideAfterReturn(t *testing.T) {
	assert.Equal(t, Wait, decideAfterReturn(0, 1))
	assert.Equal(t, Wait, decideAfterReturn(4, 2))
	assert.Equal(t, Finish, decideAfterReturn(0, 0))
	assert.Equal(t, Restart, decideAfterReturn(2, 0))
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "provision-next", ProvisionNext.String())
	assert.Equal(t, "unknown", Action(-1).String())
}
