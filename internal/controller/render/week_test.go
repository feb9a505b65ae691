package render

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday", time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC), time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)},
		{"saturday", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 27, 0, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2024, 6, 9, 23, 0, 0, 0, time.UTC), time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStart(tt.in))
		})
	}
}

func TestRoomWeek(t *testing.T) {
	room := &model.Room{ID: 1, Name: "A-101", Capacity: 4, Status: model.RoomStatusActive}
	slots := []*model.Slot{
		{ID: 1, Ordinal: 1, Status: model.SlotStatusActive, StartTime: model.NewTimeOfDay(9, 0), EndTime: model.NewTimeOfDay(11, 0)},
		{ID: 2, Ordinal: 2, Status: model.SlotStatusInactive, StartTime: model.NewTimeOfDay(13, 0), EndTime: model.NewTimeOfDay(15, 30)},
	}
	day := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	bookings := []*model.Booking{
		{ID: 1, RoomID: 1, SlotID: 1, Date: day, Status: model.BookingStatusBooked},
		{ID: 2, RoomID: 2, SlotID: 1, Date: day, Status: model.BookingStatusBooked},
	}

	data, err := RoomWeek(WeekInput{
		Room:     room,
		Start:    day,
		Slots:    slots,
		Bookings: bookings,
		Now:      day.Add(10 * time.Hour),
	})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, imageWidth, img.Bounds().Dx())
	assert.Equal(t, imageHeight, img.Bounds().Dy())
}

func TestRoomWeek_RequiresRoom(t *testing.T) {
	_, err := RoomWeek(WeekInput{})
	assert.Error(t, err)
}

func TestIndexBookings(t *testing.T) {
	monday := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	bookings := []*model.Booking{
		{ID: 1, RoomID: 1, SlotID: 1, Date: monday, Status: model.BookingStatusCheckedIn},
		{ID: 2, RoomID: 1, SlotID: 2, Date: monday, Status: model.BookingStatusCanceled},
		{ID: 3, RoomID: 1, SlotID: 1, Date: monday.AddDate(0, 0, 7), Status: model.BookingStatusBooked},
		{ID: 4, RoomID: 9, SlotID: 1, Date: monday, Status: model.BookingStatusBooked},
	}

	idx := indexBookings(bookings, 1, monday)
	require.Len(t, idx, 1)
	assert.Equal(t, int64(1), idx[cellKey{date: "2024-06-03", slotID: 1}].ID)
	assert.Equal(t, cellCheckedIn, stateOf(model.BookingStatusCheckedIn))
}

func TestCalculateHourRange(t *testing.T) {
	hr := calculateHourRange(nil)
	assert.Equal(t, hourRange{start: 7, end: 21, total: 14}, hr)

	hr = calculateHourRange([]*model.Slot{
		{StartTime: model.NewTimeOfDay(22, 0), EndTime: model.NewTimeOfDay(23, 30)},
	})
	assert.Equal(t, 24, hr.end)
	assert.Equal(t, 21, hr.start)
}
