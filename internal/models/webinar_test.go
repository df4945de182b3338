package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebinarStatus_Valid(t *testing.T) {
	for _, s := range []WebinarStatus{StatusScheduled, StatusWaiting, StatusInProgress, StatusEnded} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, WebinarStatus("cancelled").Valid())
	assert.False(t, WebinarStatus("").Valid())
}

func TestWebinarStatus_CanAdvanceTo(t *testing.T) {
	tests := []struct {
		from, to WebinarStatus
		want     bool
	}{
		{StatusScheduled, StatusWaiting, true},
		{StatusScheduled, StatusInProgress, true},
		{StatusScheduled, StatusEnded, true},
		{StatusWaiting, StatusInProgress, true},
		{StatusInProgress, StatusEnded, true},

		// No self-transitions, no going back.
		{StatusScheduled, StatusScheduled, false},
		{StatusWaiting, StatusScheduled, false},
		{StatusInProgress, StatusWaiting, false},
		{StatusEnded, StatusInProgress, false},
		{StatusEnded, StatusEnded, false},

		{StatusScheduled, WebinarStatus("cancelled"), false},
		{WebinarStatus(""), StatusEnded, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}
