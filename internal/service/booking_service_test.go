package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/config"
	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func requirePolicy(t *testing.T, err error, contains string) {
	t.Helper()
	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Reason, contains)
}

func TestBookingService_Create_Success(t *testing.T) {
	f := newFixture()

	booking, err := f.booking.Create(context.Background(), 1, CreateBookingInput{
		Date:             testDay,
		RoomID:           2,
		SlotID:           1,
		Reason:           "  group project  ",
		ParticipantCodes: []string{"S001", "S002"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusBooked, booking.Status)
	assert.Equal(t, []int64{1, 2}, booking.ParticipantIDs)
	assert.Equal(t, "group project", booking.Reason)
	assert.Equal(t, int64(1), booking.CreatorID)
	assert.Len(t, f.bookings.byID, 1)
	assert.Equal(t, 1, f.tx.calls)
}

func TestBookingService_Create_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *fixture)
		input    CreateBookingInput
		contains string
	}{
		{
			name:     "room capacity exceeded",
			input:    CreateBookingInput{RoomID: 1, SlotID: 1, ParticipantCodes: []string{"S001", "S002", "S003"}},
			contains: "holds at most 2 people, 3 requested",
		},
		{
			name:     "reputation below minimum names the student",
			input:    CreateBookingInput{RoomID: 2, SlotID: 1, ParticipantCodes: []string{"S001", "S004"}},
			contains: "Student S004 has reputation 5",
		},
		{
			name:     "duplicate participant",
			input:    CreateBookingInput{RoomID: 2, SlotID: 1, ParticipantCodes: []string{"S001", "S002", "S001"}},
			contains: "S001 is listed more than once",
		},
		{
			name: "room already held",
			setup: func(f *fixture) {
				f.addBooking(&model.Booking{CreatorID: 3, RoomID: 1, SlotID: 1, ParticipantIDs: []int64{3}})
			},
			input:    CreateBookingInput{RoomID: 1, SlotID: 1, ParticipantCodes: []string{"S001"}},
			contains: "Room A-101 is unavailable at slot 1",
		},
		{
			name:     "inactive slot",
			input:    CreateBookingInput{RoomID: 2, SlotID: 3, ParticipantCodes: []string{"S001"}},
			contains: "Slot 3 is not open",
		},
		{
			name:     "room under maintenance",
			input:    CreateBookingInput{RoomID: 3, SlotID: 1, ParticipantCodes: []string{"S001"}},
			contains: "B-201 is maintenance",
		},
		{
			name:     "participant is not a student",
			input:    CreateBookingInput{RoomID: 2, SlotID: 1, ParticipantCodes: []string{"L010"}},
			contains: "L010 is not a student",
		},
		{
			name: "daily quota reached",
			setup: func(f *fixture) {
				f.addBooking(&model.Booking{CreatorID: 1, RoomID: 2, SlotID: 1, ParticipantIDs: []int64{1}})
				f.addBooking(&model.Booking{CreatorID: 1, RoomID: 2, SlotID: 2, ParticipantIDs: []int64{1}})
			},
			input:    CreateBookingInput{RoomID: 1, SlotID: 1, ParticipantCodes: []string{"S001"}},
			contains: "S001 already has 2 bookings on 2024-06-01",
		},
		{
			name: "weekly booking days reached",
			setup: func(f *fixture) {
				for d := 1; d <= 4; d++ {
					f.addBooking(&model.Booking{
						CreatorID: 2, RoomID: 2, SlotID: 1,
						Date:           testDay.AddDate(0, 0, -d),
						Status:         model.BookingStatusCheckedOut,
						ParticipantIDs: []int64{2},
					})
				}
			},
			input:    CreateBookingInput{RoomID: 1, SlotID: 1, ParticipantCodes: []string{"S001", "S002"}},
			contains: "S002 already booked rooms on 4 days",
		},
		{
			name: "slot already started",
			setup: func(f *fixture) {
				f.clock = at(testDay, 9, 5)
			},
			input:    CreateBookingInput{RoomID: 2, SlotID: 1, ParticipantCodes: []string{"S001"}},
			contains: "has already started",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}
			before := len(f.bookings.byID)
			tt.input.Date = testDay

			booking, err := f.booking.Create(context.Background(), 1, tt.input)

			assert.Nil(t, booking)
			requirePolicy(t, err, tt.contains)
			assert.Len(t, f.bookings.byID, before, "no booking may be persisted")
		})
	}
}

func TestBookingService_Create_FirstViolationWins(t *testing.T) {
	f := newFixture()

	// both over capacity and carrying a low-reputation student: capacity is checked first
	_, err := f.booking.Create(context.Background(), 1, CreateBookingInput{
		Date: testDay, RoomID: 1, SlotID: 1, ParticipantCodes: []string{"S004", "S001", "S002"},
	})
	requirePolicy(t, err, "holds at most 2")

	// participants are checked in order
	_, err = f.booking.Create(context.Background(), 1, CreateBookingInput{
		Date: testDay, RoomID: 2, SlotID: 1, ParticipantCodes: []string{"S004", "L010"},
	})
	requirePolicy(t, err, "S004")
}

func TestBookingService_Create_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.booking.Create(context.Background(), 1, CreateBookingInput{
		Date: testDay, RoomID: 2, SlotID: 99, ParticipantCodes: []string{"S001"},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.booking.Create(context.Background(), 1, CreateBookingInput{
		Date: testDay, RoomID: 99, SlotID: 1, ParticipantCodes: []string{"S001"},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.booking.Create(context.Background(), 1, CreateBookingInput{
		Date: testDay, RoomID: 2, SlotID: 1, ParticipantCodes: []string{"S999"},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsPolicyViolation(err))
}

func TestBookingService_Create_EmptyParticipants(t *testing.T) {
	f := newFixture()

	_, err := f.booking.Create(context.Background(), 1, CreateBookingInput{Date: testDay, RoomID: 2, SlotID: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBookingService_Create_SameDayDoesNotCountAsNewWeeklyDay(t *testing.T) {
	f := newFixture()
	for d := 1; d <= 3; d++ {
		f.addBooking(&model.Booking{
			CreatorID: 1, RoomID: 2, SlotID: 1,
			Date:           testDay.AddDate(0, 0, -d),
			ParticipantIDs: []int64{1},
		})
	}
	f.addBooking(&model.Booking{CreatorID: 1, RoomID: 2, SlotID: 2, ParticipantIDs: []int64{1}})

	booking, err := f.booking.Create(context.Background(), 1, CreateBookingInput{
		Date: testDay, RoomID: 1, SlotID: 1, ParticipantCodes: []string{"S001"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusBooked, booking.Status)
}

func TestBookingService_Create_CanceledBookingFreesRoom(t *testing.T) {
	f := newFixture()
	f.addBooking(&model.Booking{
		CreatorID: 3, RoomID: 1, SlotID: 1,
		Status:         model.BookingStatusCanceled,
		ParticipantIDs: []int64{3},
	})

	_, err := f.booking.Create(context.Background(), 1, CreateBookingInput{
		Date: testDay, RoomID: 1, SlotID: 1, ParticipantCodes: []string{"S001"},
	})
	assert.NoError(t, err)
}

func TestBookingService_Create_UniqueViolationIsPolicyConflict(t *testing.T) {
	f := newFixture()
	f.bookings.createErr = &pgconn.PgError{Code: "23505"}

	_, err := f.booking.Create(context.Background(), 1, CreateBookingInput{
		Date: testDay, RoomID: 1, SlotID: 1, ParticipantCodes: []string{"S001"},
	})

	requirePolicy(t, err, "Room A-101 is unavailable at slot 1")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBookingService_Create_StorageErrorPropagates(t *testing.T) {
	f := newFixture()
	f.bookings.createErr = errors.New("connection reset")

	_, err := f.booking.Create(context.Background(), 1, CreateBookingInput{
		Date: testDay, RoomID: 1, SlotID: 1, ParticipantCodes: []string{"S001"},
	})

	require.Error(t, err)
	assert.False(t, IsPolicyViolation(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestBookingService_CheckIn_Window(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		ok   bool
	}{
		{"ten minutes early", at(testDay, 8, 50), true},
		{"window opens", at(testDay, 8, 45), true},
		{"window closes", at(testDay, 9, 15), true},
		{"half an hour early", at(testDay, 8, 30), false},
		{"after grace", at(testDay, 9, 16), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			b := f.addBooking(&model.Booking{CreatorID: 1, RoomID: 1, SlotID: 1, ParticipantIDs: []int64{1}})
			f.clock = tt.now

			got, err := f.booking.CheckIn(context.Background(), b.ID)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, model.BookingStatusCheckedIn, got.Status)
				require.NotNil(t, b.CheckedInAt)
				assert.Equal(t, tt.now, *b.CheckedInAt)
				return
			}
			requirePolicy(t, err, "Check-in is allowed between 2024-06-01 08:45 and 2024-06-01 09:15")
			assert.Equal(t, model.BookingStatusBooked, b.Status)
		})
	}
}

func TestBookingService_CheckIn_InvalidState(t *testing.T) {
	f := newFixture()
	f.clock = at(testDay, 9, 0)
	checked := f.addBooking(&model.Booking{CreatorID: 1, RoomID: 1, SlotID: 1, Status: model.BookingStatusCheckedIn})
	canceled := f.addBooking(&model.Booking{CreatorID: 1, RoomID: 2, SlotID: 1, Status: model.BookingStatusCanceled})

	_, err := f.booking.CheckIn(context.Background(), checked.ID)
	requirePolicy(t, err, "already checked in")

	_, err = f.booking.CheckIn(context.Background(), canceled.ID)
	requirePolicy(t, err, "cannot be checked in")

	_, err = f.booking.CheckIn(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingService_CheckOut(t *testing.T) {
	tests := []struct {
		name           string
		now            time.Time
		creatorRep     int
		wantErr        string
		wantReputation int
	}{
		{"too early", at(testDay, 10, 30), 100, "Check-out is allowed from 2024-06-01 10:45", 100},
		{"on time", at(testDay, 11, 10), 100, "", 100},
		{"at window end", at(testDay, 11, 15), 100, "", 100},
		{"late costs the penalty", at(testDay, 11, 30), 100, "", 95},
		{"penalty floors at zero", at(testDay, 12, 0), 3, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.users.byID[1].Reputation = tt.creatorRep
			b := f.addBooking(&model.Booking{
				CreatorID: 1, RoomID: 1, SlotID: 1,
				Status:         model.BookingStatusCheckedIn,
				ParticipantIDs: []int64{1, 2},
			})
			f.clock = tt.now

			got, err := f.booking.CheckOut(context.Background(), b.ID)
			if tt.wantErr != "" {
				requirePolicy(t, err, tt.wantErr)
				assert.Equal(t, model.BookingStatusCheckedIn, b.Status)
			} else {
				require.NoError(t, err)
				assert.Equal(t, model.BookingStatusCheckedOut, got.Status)
				require.NotNil(t, b.CheckedOutAt)
			}
			assert.Equal(t, tt.wantReputation, f.users.byID[1].Reputation)
			assert.Equal(t, 100, f.users.byID[2].Reputation, "only the creator is penalized")
		})
	}
}

func TestBookingService_CheckOut_PenaltyReportedAfterCommit(t *testing.T) {
	f := newFixture()
	b := f.addBooking(&model.Booking{
		CreatorID: 1, RoomID: 1, SlotID: 1,
		Status:         model.BookingStatusCheckedIn,
		ParticipantIDs: []int64{1},
	})
	f.clock = at(testDay, 11, 30)
	f.bookings.failTransi[b.ID] = errors.New("connection reset")

	_, err := f.booking.CheckOut(context.Background(), b.ID)
	require.Error(t, err)
	assert.Zero(t, f.logs.FilterMessage("Reputation adjusted").Len(), "rolled back penalty must not be reported")

	delete(f.bookings.failTransi, b.ID)
	_, err = f.booking.CheckOut(context.Background(), b.ID)
	require.NoError(t, err)

	adjusted := f.logs.FilterMessage("Reputation adjusted").All()
	require.Len(t, adjusted, 1)
	assert.Equal(t, ReasonLateCheckout, adjusted[0].ContextMap()["reason"])
}

func TestBookingService_CheckOut_InvalidState(t *testing.T) {
	f := newFixture()
	f.clock = at(testDay, 11, 0)
	booked := f.addBooking(&model.Booking{CreatorID: 1, RoomID: 1, SlotID: 1})
	done := f.addBooking(&model.Booking{CreatorID: 1, RoomID: 2, SlotID: 1, Status: model.BookingStatusCheckedOut})

	_, err := f.booking.CheckOut(context.Background(), booked.ID)
	requirePolicy(t, err, "cannot be checked out")

	_, err = f.booking.CheckOut(context.Background(), done.ID)
	requirePolicy(t, err, "already checked out")
}

func TestBookingService_Cancel(t *testing.T) {
	owner := student(1, "S001", 100)
	participant := student(2, "S002", 100)
	stranger := student(3, "S003", 100)
	staff := &model.User{ID: 10, Role: model.RoleStaff}

	tests := []struct {
		name     string
		actor    *model.User
		now      time.Time
		status   model.BookingStatus
		wantErr  string
		forbid   bool
		canceled bool
	}{
		{name: "owner with notice", actor: owner, now: at(testDay.AddDate(0, 0, -1), 12, 0), canceled: true},
		{name: "participant with notice", actor: participant, now: at(testDay, 6, 59), canceled: true},
		{name: "staff with notice", actor: staff, now: at(testDay, 7, 0), canceled: true},
		{name: "too late", actor: owner, now: at(testDay, 7, 30), wantErr: "at least 2 hours before"},
		{name: "stranger", actor: stranger, now: at(testDay, 6, 0), forbid: true},
		{name: "already canceled", actor: owner, now: at(testDay, 6, 0), status: model.BookingStatusCanceled, wantErr: "cannot be canceled", canceled: true},
		{name: "checked in", actor: staff, now: at(testDay, 6, 0), status: model.BookingStatusCheckedIn, wantErr: "cannot be canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			b := f.addBooking(&model.Booking{
				CreatorID: 1, RoomID: 1, SlotID: 1,
				Status:         tt.status,
				ParticipantIDs: []int64{1, 2},
			})
			f.clock = tt.now

			got, err := f.booking.Cancel(context.Background(), tt.actor, b.ID)
			switch {
			case tt.forbid:
				assert.ErrorIs(t, err, ErrForbidden)
			case tt.wantErr != "":
				requirePolicy(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, model.BookingStatusCanceled, got.Status)
			}
			assert.Equal(t, tt.canceled, b.Status == model.BookingStatusCanceled)
		})
	}
}

func TestBookingService_Cancel_MissingIsNoop(t *testing.T) {
	f := newFixture()

	got, err := f.booking.Cancel(context.Background(), student(1, "S001", 100), 404)
	assert.NoError(t, err)
	assert.Nil(t, got)

	orphan := &model.Booking{ID: 7, CreatorID: 1, RoomID: 1, SlotID: 42, Date: testDay, Status: model.BookingStatusBooked}
	f.bookings.byID[orphan.ID] = orphan

	got, err = f.booking.Cancel(context.Background(), student(1, "S001", 100), orphan.ID)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, model.BookingStatusBooked, orphan.Status)
}

func TestBookingService_Get_Visibility(t *testing.T) {
	f := newFixture()
	b := f.addBooking(&model.Booking{CreatorID: 1, RoomID: 1, SlotID: 1, ParticipantIDs: []int64{1, 2}})

	_, err := f.booking.Get(context.Background(), student(2, "S002", 100), b.ID)
	assert.NoError(t, err)

	_, err = f.booking.Get(context.Background(), student(3, "S003", 100), b.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBookingService_RulesAreInjected(t *testing.T) {
	f := newFixture().withRules(func(r *config.Rules) { r.MinReputation = 0 })

	_, err := f.booking.Create(context.Background(), 4, CreateBookingInput{
		Date: testDay, RoomID: 2, SlotID: 1, ParticipantCodes: []string{"S004"},
	})
	assert.NoError(t, err)
}
