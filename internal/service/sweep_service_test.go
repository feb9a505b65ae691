package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepService_ExpireOverdue_NoShow(t *testing.T) {
	f := newFixture()
	b := f.addBooking(&model.Booking{CreatorID: 1, RoomID: 1, SlotID: 1, ParticipantIDs: []int64{1, 2}})
	f.clock = at(testDay, 9, 20)

	expired, err := f.sweep.ExpireOverdue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, expired)
	assert.Equal(t, model.BookingStatusAutoCanceled, b.Status)
	assert.Equal(t, 95, f.users.byID[1].Reputation)
	assert.Equal(t, 100, f.users.byID[2].Reputation)
	require.Len(t, f.users.ledger, 1)
	assert.Equal(t, ReasonNoShow, f.users.ledger[0].Reason)
}

func TestSweepService_ExpireOverdue_IsIdempotent(t *testing.T) {
	f := newFixture()
	f.addBooking(&model.Booking{CreatorID: 1, RoomID: 1, SlotID: 1, ParticipantIDs: []int64{1}})
	f.clock = at(testDay, 9, 20)

	for i := 0; i < 3; i++ {
		_, err := f.sweep.ExpireOverdue(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 95, f.users.byID[1].Reputation)
	assert.Len(t, f.users.ledger, 1)
}

func TestSweepService_ExpireOverdue_LeavesOtherBookings(t *testing.T) {
	f := newFixture()
	withinGrace := f.addBooking(&model.Booking{CreatorID: 1, RoomID: 1, SlotID: 2, ParticipantIDs: []int64{1}})
	checkedIn := f.addBooking(&model.Booking{CreatorID: 2, RoomID: 2, SlotID: 1, Status: model.BookingStatusCheckedIn})
	checkedOut := f.addBooking(&model.Booking{CreatorID: 2, RoomID: 1, SlotID: 1, Status: model.BookingStatusCheckedOut,
		Date: testDay.AddDate(0, 0, -1)})
	canceled := f.addBooking(&model.Booking{CreatorID: 3, RoomID: 3, SlotID: 1, Status: model.BookingStatusCanceled})
	tomorrow := f.addBooking(&model.Booking{CreatorID: 3, RoomID: 1, SlotID: 1, Date: testDay.AddDate(0, 0, 1)})

	f.clock = at(testDay, 13, 10)

	expired, err := f.sweep.ExpireOverdue(context.Background())
	require.NoError(t, err)

	assert.Zero(t, expired)
	assert.Equal(t, model.BookingStatusBooked, withinGrace.Status)
	assert.Equal(t, model.BookingStatusCheckedIn, checkedIn.Status)
	assert.Equal(t, model.BookingStatusCheckedOut, checkedOut.Status)
	assert.Equal(t, model.BookingStatusCanceled, canceled.Status)
	assert.Equal(t, model.BookingStatusBooked, tomorrow.Status)
	assert.Empty(t, f.users.ledger)
}

func TestSweepService_ExpireOverdue_ExpiresPastDays(t *testing.T) {
	f := newFixture()
	yesterday := f.addBooking(&model.Booking{CreatorID: 2, RoomID: 1, SlotID: 2, Date: testDay.AddDate(0, 0, -1)})
	f.clock = at(testDay, 7, 0)

	expired, err := f.sweep.ExpireOverdue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, expired)
	assert.Equal(t, model.BookingStatusAutoCanceled, yesterday.Status)
	assert.Equal(t, 95, f.users.byID[2].Reputation)
}

func TestSweepService_ExpireOverdue_IsolatesFailures(t *testing.T) {
	f := newFixture()
	broken := f.addBooking(&model.Booking{CreatorID: 1, RoomID: 1, SlotID: 1})
	healthy := f.addBooking(&model.Booking{CreatorID: 2, RoomID: 2, SlotID: 1})
	f.bookings.failTransi[broken.ID] = errors.New("deadlock detected")
	f.clock = at(testDay, 9, 30)

	expired, err := f.sweep.ExpireOverdue(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.Equal(t, 1, expired)
	assert.Equal(t, model.BookingStatusBooked, broken.Status)
	assert.Equal(t, model.BookingStatusAutoCanceled, healthy.Status)
	assert.Equal(t, 100, f.users.byID[1].Reputation)
	assert.Equal(t, 95, f.users.byID[2].Reputation)
}

func TestSweepService_ExpireOverdue_ZeroPenalty(t *testing.T) {
	f := newFixture()
	f.rules.ReputationPenalty = 0
	f.sweep.rules = f.rules
	b := f.addBooking(&model.Booking{CreatorID: 1, RoomID: 1, SlotID: 1})
	f.clock = at(testDay, 10, 0)

	_, err := f.sweep.ExpireOverdue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusAutoCanceled, b.Status)
	assert.Empty(t, f.users.ledger)
}

func TestSweepService_SendReminders(t *testing.T) {
	f := newFixture()
	soon := f.addBooking(&model.Booking{CreatorID: 10, RoomID: 1, SlotID: 1, ParticipantIDs: []int64{1, 2}})
	later := f.addBooking(&model.Booking{CreatorID: 3, RoomID: 2, SlotID: 2, ParticipantIDs: []int64{3}})
	f.clock = at(testDay, 8, 40)

	sent, err := f.sweep.SendReminders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.True(t, soon.ReminderSent)
	assert.False(t, later.ReminderSent)

	var recipients []int64
	for _, m := range f.notifier.sent {
		recipients = append(recipients, m.UserID)
		assert.Contains(t, m.Body, "2024-06-01 09:00")
	}
	assert.ElementsMatch(t, []int64{10, 1, 2}, recipients)

	sent, err = f.sweep.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, f.notifier.sent, 3)
}

func TestSweepService_SendReminders_DeliveryFailureIsReported(t *testing.T) {
	f := newFixture()
	b := f.addBooking(&model.Booking{CreatorID: 1, RoomID: 1, SlotID: 1, ParticipantIDs: []int64{1}})
	f.notifier.err = errors.New("smtp: 421 service not available")
	f.clock = at(testDay, 8, 45)

	_, err := f.sweep.SendReminders(context.Background())

	require.Error(t, err)
	assert.True(t, b.ReminderSent, "reminders are not retried")
}
