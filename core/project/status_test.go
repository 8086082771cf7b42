package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     bool
	}{
		{name: "lead forward", from: StatusLead, to: StatusQuoted, want: true},
		{name: "lead skip", from: StatusLead, to: StatusApproved, want: false},
		{name: "lead on hold", from: StatusLead, to: StatusOnHold, want: true},
		{name: "quoted backward", from: StatusQuoted, to: StatusLead, want: true},
		{name: "development forward", from: StatusDevelopment, to: StatusTesting, want: true},
		{name: "development backward", from: StatusDevelopment, to: StatusPlanning, want: true},
		{name: "development skip", from: StatusDevelopment, to: StatusClientReview, want: false},
		{name: "client review complete", from: StatusClientReview, to: StatusCompleted, want: true},
		{name: "completed reverts to client review", from: StatusCompleted, to: StatusClientReview, want: true},
		{name: "completed cannot hold", from: StatusCompleted, to: StatusOnHold, want: false},
		{name: "on hold resume", from: StatusOnHold, to: StatusDevelopment, want: true},
		{name: "on hold cannot complete", from: StatusOnHold, to: StatusCompleted, want: false},
		{name: "unknown status", from: "bogus", to: StatusLead, want: false},
		{name: "same status is a no-op", from: StatusLead, to: StatusLead, want: true},
		{name: "same unknown status", from: "bogus", to: "bogus", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestProgressFor(t *testing.T) {
	assert.Equal(t, 0, ProgressFor(StatusLead, 42))
	assert.Equal(t, 5, ProgressFor(StatusQuoted, 0))
	assert.Equal(t, 50, ProgressFor(StatusDevelopment, 0))
	assert.Equal(t, 100, ProgressFor(StatusCompleted, 95))
	// on_hold keeps the current progress
	assert.Equal(t, 42, ProgressFor(StatusOnHold, 42))
}

func TestAllowedTransitions(t *testing.T) {
	assert.ElementsMatch(t, []string{StatusQuoted, StatusOnHold}, AllowedTransitions(StatusLead))
	assert.ElementsMatch(t, []string{StatusClientReview}, AllowedTransitions(StatusCompleted))
	assert.Len(t, AllowedTransitions(StatusOnHold), 7)
}
