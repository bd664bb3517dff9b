package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"forward one step", StatusPending, StatusDepositing, true},
		{"forward jump", StatusPending, StatusConfirming, true},
		{"forward to completed", StatusBridging, StatusCompleted, true},
		{"pending straight to completed", StatusPending, StatusCompleted, true},
		{"regression", StatusBridging, StatusConfirming, false},
		{"self transition", StatusConfirming, StatusConfirming, false},
		{"fail from pending", StatusPending, StatusFailed, true},
		{"fail from bridging", StatusBridging, StatusFailed, true},
		{"completed is terminal", StatusCompleted, StatusFailed, false},
		{"failed is terminal", StatusFailed, StatusPending, false},
		{"failed cannot complete", StatusFailed, StatusCompleted, false},
		{"unknown target", StatusPending, Status("settled"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusBridging.Terminal())
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusDepositing, StatusConfirming, StatusBridging, StatusCompleted, StatusFailed} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Status("settled").Valid())
	assert.False(t, Status("").Valid())
}
