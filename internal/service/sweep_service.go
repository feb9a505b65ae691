package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/config"
	"github.com/Freeeeeet/studyroom_booking/internal/metrics"
	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"go.uber.org/zap"
)

// SweepService runs the periodic booking maintenance: expiring no-shows and
// reminding participants of upcoming slots.
type SweepService struct {
	tx         TxRunner
	users      UserStore
	bookings   BookingStore
	reputation *ReputationService
	notifier   Notifier
	rules      config.Rules
	loc        *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

func NewSweepService(
	tx TxRunner,
	users UserStore,
	bookings BookingStore,
	reputation *ReputationService,
	notifier Notifier,
	rules config.Rules,
	loc *time.Location,
	logger *zap.Logger,
) *SweepService {
	return &SweepService{
		tx:         tx,
		users:      users,
		bookings:   bookings,
		reputation: reputation,
		notifier:   notifier,
		rules:      rules,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

// ExpireOverdue auto-cancels booked bookings whose check-in grace has passed
// and penalizes their creators. A booking that fails is logged and skipped;
// the returned error joins every such failure.
func (s *SweepService) ExpireOverdue(ctx context.Context) (int, error) {
	started := time.Now()
	now := s.now().In(s.loc)

	pending, err := s.bookings.ListPendingCheckIn(ctx, model.DateOf(now))
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("list pending bookings: %w", err)
	}

	var (
		expired int
		errs    []error
	)
	for _, b := range pending {
		if b.Slot == nil {
			continue
		}
		deadline := b.Slot.StartOn(b.Date, s.loc).Add(s.rules.CheckInGrace())
		if !now.After(deadline) {
			continue
		}

		done, err := s.expire(ctx, b, now)
		if err != nil {
			s.logger.Error("Failed to expire booking",
				zap.Int64("booking_id", b.ID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("booking %d: %w", b.ID, err))
			continue
		}
		if done {
			expired++
		}
	}

	metrics.SweepDuration.Observe(time.Since(started).Seconds())
	if len(errs) > 0 {
		metrics.SweepRuns.WithLabelValues("partial").Inc()
	} else {
		metrics.SweepRuns.WithLabelValues("ok").Inc()
	}

	if expired > 0 {
		s.logger.Info("Expired overdue bookings",
			zap.Int("expired", expired),
			zap.Int("scanned", len(pending)),
		)
	}

	return expired, errors.Join(errs...)
}

// expire reports false when another run already moved the booking on.
func (s *SweepService) expire(ctx context.Context, b *model.Booking, now time.Time) (bool, error) {
	var (
		done    bool
		penalty *model.ReputationChange
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		done, penalty = false, nil
		ok, err := s.bookings.Transition(ctx, b.ID, model.BookingStatusBooked, model.BookingStatusAutoCanceled, now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if s.rules.ReputationPenalty > 0 {
			change, err := s.reputation.apply(ctx, b.CreatorID, -s.rules.ReputationPenalty, ReasonNoShow)
			if err != nil {
				return err
			}
			penalty = change
		}
		done = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if penalty != nil {
		s.reputation.record(penalty)
	}
	if done {
		metrics.BookingTransitions.WithLabelValues(string(model.BookingStatusAutoCanceled)).Inc()
		s.logger.Info("Booking auto-canceled",
			zap.Int64("booking_id", b.ID),
			zap.Int64("creator_id", b.CreatorID),
		)
	}
	return done, nil
}

// SendReminders notifies creator and participants of booked slots starting
// within the reminder lead time. Each booking is reminded once; delivery
// failures are returned but not retried.
func (s *SweepService) SendReminders(ctx context.Context) (int, error) {
	now := s.now().In(s.loc)
	horizon := now.Add(s.rules.ReminderLead())

	candidates, err := s.bookings.ListReminderCandidates(ctx, model.DateOf(now), model.DateOf(horizon))
	if err != nil {
		return 0, fmt.Errorf("list reminder candidates: %w", err)
	}

	var (
		sent int
		errs []error
	)
	for _, b := range candidates {
		if b.Slot == nil {
			continue
		}
		start := b.Slot.StartOn(b.Date, s.loc)
		if !start.After(now) || start.After(horizon) {
			continue
		}

		if err := s.remind(ctx, b, start); err != nil {
			s.logger.Warn("Reminder delivery failed",
				zap.Int64("booking_id", b.ID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("booking %d: %w", b.ID, err))
		}

		ok, err := s.bookings.MarkReminderSent(ctx, b.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			sent++
			metrics.RemindersSent.Inc()
		}
	}

	return sent, errors.Join(errs...)
}

func (s *SweepService) remind(ctx context.Context, b *model.Booking, start time.Time) error {
	ids := append([]int64{b.CreatorID}, b.ParticipantIDs...)
	users, err := s.users.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return fmt.Errorf("get recipients: %w", err)
	}

	subject := "Study room booking reminder"
	body := fmt.Sprintf("Your study room booking #%d starts at %s. Please check in at the desk within %d minutes of the start.",
		b.ID, start.Format(windowLayout), s.rules.CheckInGraceMinutes)

	var errs []error
	for _, u := range users {
		if err := s.notifier.Notify(ctx, u, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("notify user %d: %w", u.ID, err))
		}
	}
	return errors.Join(errs...)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
