package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/config"
	"github.com/Freeeeeet/studyroom_booking/internal/metrics"
	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/Freeeeeet/studyroom_booking/internal/repository/base"
	"go.uber.org/zap"
)

const windowLayout = "2006-01-02 15:04"

type CreateBookingInput struct {
	Date             time.Time
	RoomID           int64
	SlotID           int64
	Reason           string
	ParticipantCodes []string
}

type BookingService struct {
	tx         TxRunner
	users      UserStore
	rooms      RoomStore
	slots      SlotStore
	bookings   BookingStore
	reputation *ReputationService
	rules      config.Rules
	loc        *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

func NewBookingService(
	tx TxRunner,
	users UserStore,
	rooms RoomStore,
	slots SlotStore,
	bookings BookingStore,
	reputation *ReputationService,
	rules config.Rules,
	loc *time.Location,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:         tx,
		users:      users,
		rooms:      rooms,
		slots:      slots,
		bookings:   bookings,
		reputation: reputation,
		rules:      rules,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

// Create runs the admission checks in order and stores a booked booking.
// The first failed check is returned as a *PolicyError.
func (s *BookingService) Create(ctx context.Context, creatorID int64, in CreateBookingInput) (*model.Booking, error) {
	booking, err := s.admit(ctx, creatorID, in)
	switch {
	case err == nil:
		metrics.BookingAdmissions.WithLabelValues("accepted").Inc()
	case IsPolicyViolation(err):
		metrics.BookingAdmissions.WithLabelValues("rejected").Inc()
		s.logger.Info("Booking rejected",
			zap.Int64("creator_id", creatorID),
			zap.Int64("room_id", in.RoomID),
			zap.Int64("slot_id", in.SlotID),
			zap.String("reason", err.Error()),
		)
	default:
		metrics.BookingAdmissions.WithLabelValues("error").Inc()
	}
	return booking, err
}

func (s *BookingService) admit(ctx context.Context, creatorID int64, in CreateBookingInput) (*model.Booking, error) {
	if len(in.ParticipantCodes) == 0 {
		return nil, invalidInput("at least one participant is required")
	}
	if in.Date.IsZero() {
		return nil, invalidInput("date is required")
	}
	date := model.DateOf(in.Date)

	// 1. slot
	slot, err := s.slots.GetByID(ctx, in.SlotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, notFound("slot", in.SlotID)
	}
	if slot.Status != model.SlotStatusActive {
		return nil, violation("Slot %d is not open for booking", slot.Ordinal)
	}
	if !slot.StartOn(date, s.loc).After(s.now()) {
		return nil, violation("Slot %d on %s has already started", slot.Ordinal, date.Format("2006-01-02"))
	}

	// 2. room and capacity
	room, err := s.rooms.GetByID(ctx, in.RoomID)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if room == nil {
		return nil, notFound("room", in.RoomID)
	}
	if room.Status != model.RoomStatusActive {
		return nil, violation("Room %s is %s and cannot be booked", room.Name, room.Status)
	}
	if len(in.ParticipantCodes) > room.Capacity {
		return nil, violation("Room %s holds at most %d people, %d requested",
			room.Name, room.Capacity, len(in.ParticipantCodes))
	}

	// 3. participants
	participantIDs, err := s.checkParticipants(ctx, date, in.ParticipantCodes)
	if err != nil {
		return nil, err
	}

	// 4. occupancy
	active, err := s.bookings.ListByDateAndStatuses(ctx, date, model.ActiveBookingStatuses)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	for _, b := range active {
		if b.RoomID == room.ID && b.SlotID == slot.ID {
			return nil, roomUnavailable(room, slot, date)
		}
	}

	// 5. persist
	booking := &model.Booking{
		CreatorID:      creatorID,
		RoomID:         room.ID,
		SlotID:         slot.ID,
		Date:           date,
		Status:         model.BookingStatusBooked,
		Reason:         strings.TrimSpace(in.Reason),
		ParticipantIDs: participantIDs,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.bookings.Create(ctx, booking)
	})
	if err != nil {
		if base.IsUniqueViolation(err) {
			pe := roomUnavailable(room, slot, date)
			pe.Err = ErrConflict
			return nil, pe
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	booking.Slot = slot
	booking.Room = room

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("creator_id", creatorID),
		zap.Int64("room_id", room.ID),
		zap.Int64("slot_id", slot.ID),
		zap.Time("date", date),
		zap.Int("participants", len(participantIDs)),
	)

	return booking, nil
}

func (s *BookingService) checkParticipants(ctx context.Context, date time.Time, codes []string) ([]int64, error) {
	weekStart := date.AddDate(0, 0, -6)
	seen := make(map[int64]bool, len(codes))
	ids := make([]int64, 0, len(codes))

	for _, code := range codes {
		code = strings.TrimSpace(code)

		user, err := s.users.GetByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("get user by code: %w", err)
		}
		if user == nil {
			return nil, notFound("user with code", code)
		}
		if user.Role != model.RoleStudent {
			return nil, violation("User %s is not a student", code)
		}
		if user.Reputation < s.rules.MinReputation {
			return nil, violation("Student %s has reputation %d, at least %d is required to book",
				code, user.Reputation, s.rules.MinReputation)
		}

		daily, err := s.bookings.CountActiveForUserOnDate(ctx, user.ID, date)
		if err != nil {
			return nil, err
		}
		if daily >= s.rules.MaxDailyBookings {
			return nil, violation("Student %s already has %d bookings on %s, the limit is %d",
				code, daily, date.Format("2006-01-02"), s.rules.MaxDailyBookings)
		}

		days, err := s.bookings.CountActiveDaysForUser(ctx, user.ID, weekStart, date)
		if err != nil {
			return nil, err
		}
		// another booking on an already booked day does not add a day
		if daily == 0 && days >= s.rules.MaxWeeklyBookingDays {
			return nil, violation("Student %s already booked rooms on %d days this week, the limit is %d",
				code, days, s.rules.MaxWeeklyBookingDays)
		}

		if seen[user.ID] {
			return nil, violation("Student %s is listed more than once", code)
		}
		seen[user.ID] = true
		ids = append(ids, user.ID)
	}

	return ids, nil
}

func roomUnavailable(room *model.Room, slot *model.Slot, date time.Time) *PolicyError {
	return violation("Room %s is unavailable at slot %d on %s", room.Name, slot.Ordinal, date.Format("2006-01-02"))
}

// CheckIn marks arrival. Allowed within the grace window around slot start.
func (s *BookingService) CheckIn(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case model.BookingStatusBooked:
	case model.BookingStatusCheckedIn:
		return nil, violation("Booking %d is already checked in", bookingID)
	default:
		return nil, violation("Booking %d is %s and cannot be checked in", bookingID, booking.Status)
	}
	if booking.Slot == nil {
		return nil, notFound("slot", booking.SlotID)
	}

	now := s.now()
	start := booking.Slot.StartOn(booking.Date, s.loc)
	from, to := start.Add(-s.rules.CheckInGrace()), start.Add(s.rules.CheckInGrace())
	if now.Before(from) || now.After(to) {
		return nil, violation("Check-in is allowed between %s and %s",
			from.Format(windowLayout), to.Format(windowLayout))
	}

	ok, err := s.bookings.Transition(ctx, bookingID, model.BookingStatusBooked, model.BookingStatusCheckedIn, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, violation("Booking %d is no longer waiting for check-in", bookingID)
	}

	booking.Status = model.BookingStatusCheckedIn
	booking.CheckedInAt = &now
	metrics.BookingTransitions.WithLabelValues(string(booking.Status)).Inc()

	s.logger.Info("Booking checked in",
		zap.Int64("booking_id", bookingID),
		zap.Time("at", now),
	)

	return booking, nil
}

// CheckOut marks departure. Leaving after the grace window still succeeds but
// costs the creator the configured penalty.
func (s *BookingService) CheckOut(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case model.BookingStatusCheckedIn:
	case model.BookingStatusCheckedOut:
		return nil, violation("Booking %d is already checked out", bookingID)
	default:
		return nil, violation("Booking %d is %s and cannot be checked out", bookingID, booking.Status)
	}
	if booking.Slot == nil {
		return nil, notFound("slot", booking.SlotID)
	}

	now := s.now()
	end := booking.Slot.EndOn(booking.Date, s.loc)
	from, to := end.Add(-s.rules.CheckOutGrace()), end.Add(s.rules.CheckOutGrace())
	if now.Before(from) {
		return nil, violation("Check-out is allowed from %s", from.Format(windowLayout))
	}
	late := now.After(to)

	var penalty *model.ReputationChange
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		penalty = nil
		if late && s.rules.ReputationPenalty > 0 {
			change, err := s.reputation.apply(ctx, booking.CreatorID, -s.rules.ReputationPenalty, ReasonLateCheckout)
			if err != nil {
				return err
			}
			penalty = change
		}

		ok, err := s.bookings.Transition(ctx, bookingID, model.BookingStatusCheckedIn, model.BookingStatusCheckedOut, now)
		if err != nil {
			return err
		}
		if !ok {
			return violation("Booking %d is no longer checked in", bookingID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if penalty != nil {
		s.reputation.record(penalty)
	}

	booking.Status = model.BookingStatusCheckedOut
	booking.CheckedOutAt = &now
	metrics.BookingTransitions.WithLabelValues(string(booking.Status)).Inc()

	s.logger.Info("Booking checked out",
		zap.Int64("booking_id", bookingID),
		zap.Time("at", now),
		zap.Bool("late", late),
	)

	return booking, nil
}

// Cancel cancels a booking on behalf of actor. A missing booking or slot is a
// no-op and returns nil, nil.
func (s *BookingService) Cancel(ctx context.Context, actor *model.User, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil || booking.Slot == nil {
		return nil, nil
	}

	if !canManage(actor, booking) {
		return nil, fmt.Errorf("cancel booking %d: %w", bookingID, ErrForbidden)
	}
	if booking.Status != model.BookingStatusBooked {
		return nil, violation("Booking %d is %s and cannot be canceled", bookingID, booking.Status)
	}

	now := s.now()
	start := booking.Slot.StartOn(booking.Date, s.loc)
	if start.Sub(now) < s.rules.CancelMinNotice() {
		return nil, violation("Bookings must be canceled at least %d hours before the slot starts",
			s.rules.CancelMinNoticeHours)
	}

	ok, err := s.bookings.Transition(ctx, bookingID, model.BookingStatusBooked, model.BookingStatusCanceled, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, violation("Booking %d can no longer be canceled", bookingID)
	}

	booking.Status = model.BookingStatusCanceled
	metrics.BookingTransitions.WithLabelValues(string(booking.Status)).Inc()

	s.logger.Info("Booking canceled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actor.ID),
	)

	return booking, nil
}

func canManage(actor *model.User, booking *model.Booking) bool {
	if actor == nil {
		return false
	}
	return actor.Role.IsStaff() || actor.ID == booking.CreatorID || booking.HasParticipant(actor.ID)
}

// Get returns a booking visible to viewer.
func (s *BookingService) Get(ctx context.Context, viewer *model.User, bookingID int64) (*model.Booking, error) {
	booking, err := s.get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canManage(viewer, booking) {
		return nil, fmt.Errorf("booking %d: %w", bookingID, ErrForbidden)
	}
	return booking, nil
}

func (s *BookingService) get(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, notFound("booking", bookingID)
	}
	return booking, nil
}

// ListMine returns the user's bookings, newest first.
func (s *BookingService) ListMine(ctx context.Context, userID int64) ([]*model.Booking, error) {
	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	return bookings, nil
}

// ListByDate returns every booking dated on the given day.
func (s *BookingService) ListByDate(ctx context.Context, date time.Time) ([]*model.Booking, error) {
	day := model.DateOf(date)
	bookings, err := s.bookings.ListInRange(ctx, day, day)
	if err != nil {
		return nil, fmt.Errorf("list bookings by date: %w", err)
	}
	return bookings, nil
}

// ListForRoom returns the room's bookings dated within [from, to].
func (s *BookingService) ListForRoom(ctx context.Context, roomID int64, from, to time.Time) ([]*model.Booking, error) {
	bookings, err := s.bookings.ListByRoomInRange(ctx, roomID, model.DateOf(from), model.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("list room bookings: %w", err)
	}
	return bookings, nil
}
