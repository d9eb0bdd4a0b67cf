package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{"PendingToConfirmed", StatusPending, StatusConfirmed, true},
		{"ConfirmedToPreparing", StatusConfirmed, StatusPreparing, true},
		{"PreparingToReady", StatusPreparing, StatusReady, true},
		{"ReadyToCompleted", StatusReady, StatusCompleted, true},
		{"PendingSkipsToReady", StatusPending, StatusReady, false},
		{"NoStepBackwards", StatusReady, StatusPreparing, false},
		{"CancelFromPending", StatusPending, StatusCancelled, true},
		{"CancelFromReady", StatusReady, StatusCancelled, true},
		{"CancelFromCompleted", StatusCompleted, StatusCancelled, false},
		{"CancelFromCancelled", StatusCancelled, StatusCancelled, false},
		{"NothingAfterCompleted", StatusCompleted, StatusConfirmed, false},
		{"UnknownTarget", StatusPending, Status("shipped"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to))
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusReady.Terminal())
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, Status("shipped").Valid())
}
