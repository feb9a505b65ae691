package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsBookings() []*model.Booking {
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }
	return []*model.Booking{
		{RoomID: 1, Date: day(5, 30), Status: model.BookingStatusCheckedOut}, // 2024-W22
		{RoomID: 1, Date: day(5, 31), Status: model.BookingStatusAutoCanceled},
		{RoomID: 2, Date: day(6, 1), Status: model.BookingStatusCanceled},
		{RoomID: 2, Date: day(6, 3), Status: model.BookingStatusBooked}, // 2024-W23
		{RoomID: 1, Date: day(6, 4), Status: model.BookingStatusCheckedIn},
	}
}

func TestGroupByWeek(t *testing.T) {
	weeks := GroupByWeek(statsBookings())

	require.Len(t, weeks, 2)
	assert.Equal(t, 22, weeks[0].Week)
	assert.Equal(t, 3, weeks[0].Counts.Total)
	assert.Equal(t, 1, weeks[0].Counts.AutoCanceled)
	assert.Equal(t, 23, weeks[1].Week)
	assert.Equal(t, 2, weeks[1].Counts.Total)
}

func TestGroupByMonth(t *testing.T) {
	months := GroupByMonth(statsBookings())

	require.Len(t, months, 2)
	assert.Equal(t, time.May, months[0].Month)
	assert.Equal(t, 2, months[0].Counts.Total)
	assert.Equal(t, time.June, months[1].Month)
	assert.Equal(t, 1, months[1].Counts.Canceled)
}

func TestRoomUsage(t *testing.T) {
	rooms := RoomUsage(statsBookings())

	require.Len(t, rooms, 2)
	assert.Equal(t, int64(1), rooms[0].RoomID)
	assert.Equal(t, 3, rooms[0].Counts.Total)
	assert.InDelta(t, 1.0/3.0, rooms[0].NoShowRate, 0.0001)
	assert.Equal(t, int64(2), rooms[1].RoomID)
	assert.Zero(t, rooms[1].NoShowRate)
}

func TestGroupingEmpty(t *testing.T) {
	assert.Empty(t, GroupByWeek(nil))
	assert.Empty(t, GroupByMonth(nil))
	assert.Empty(t, RoomUsage(nil))
}

func TestStatsService_Summary(t *testing.T) {
	bookings := newFakeBookings(nil, statsBookings()...)
	svc := NewStatsService(bookings)

	summary, err := svc.Summary(context.Background(),
		time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Counts.Total)
	assert.Len(t, summary.Months, 1)

	_, err = svc.Summary(context.Background(), time.Now(), time.Now().AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStatsService_Summary_RangeLimit(t *testing.T) {
	svc := NewStatsService(newFakeBookings(nil, statsBookings()...))
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		to      time.Time
		wantErr bool
	}{
		{"single day", from, false},
		{"leap year end", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{"a year and a day", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"five years", from.AddDate(5, 0, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Summary(context.Background(), from, tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}
