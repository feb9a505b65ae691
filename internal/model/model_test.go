package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:45")
	require.NoError(t, err)

	assert.Equal(t, 9, tod.Hour())
	assert.Equal(t, 45, tod.Minute())
	assert.Equal(t, "09:45", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestTimeOfDay_On(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got := NewTimeOfDay(9, 0).On(date, loc)

	assert.Equal(t, time.Date(2024, 6, 1, 9, 0, 0, 0, loc), got)
	assert.Equal(t, 7, got.UTC().Hour())
}

func TestTimeOfDay_JSON(t *testing.T) {
	slot := Slot{ID: 1, StartTime: NewTimeOfDay(8, 30), EndTime: NewTimeOfDay(10, 0)}

	data, err := json.Marshal(slot)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"start_time":"08:30"`)

	var back Slot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, slot.StartTime, back.StartTime)
	assert.Equal(t, slot.EndTime, back.EndTime)
}

func TestBookingStatus(t *testing.T) {
	tests := []struct {
		status   BookingStatus
		terminal bool
		active   bool
	}{
		{BookingStatusBooked, false, true},
		{BookingStatusCheckedIn, false, true},
		{BookingStatusCheckedOut, true, true},
		{BookingStatusCanceled, true, false},
		{BookingStatusAutoCanceled, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.Valid())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.active, tt.status.IsActive())
		})
	}

	assert.False(t, BookingStatus("pending").Valid())
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	got := DateOf(time.Date(2024, 6, 1, 1, 30, 0, 0, loc))

	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestPasswordReset_IsValid(t *testing.T) {
	now := time.Now()
	reset := &PasswordReset{ExpiresAt: now.Add(time.Minute)}

	assert.True(t, reset.IsValid(now))
	assert.False(t, reset.IsValid(now.Add(2*time.Minute)))

	reset.UsedAt = &now
	assert.False(t, reset.IsValid(now))
}
