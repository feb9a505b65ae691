package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/metrics"
	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"go.uber.org/zap"
)

const (
	ReasonLateCheckout = "late check-out"
	ReasonNoShow       = "no check-in, booking auto-canceled"
	ReasonManual       = "manual adjustment"
)

type ReputationService struct {
	tx       TxRunner
	ledger   LedgerStore
	bookings BookingStore
	reports  ReportStore
	loc      *time.Location
	logger   *zap.Logger
}

func NewReputationService(
	tx TxRunner,
	ledger LedgerStore,
	bookings BookingStore,
	reports ReportStore,
	loc *time.Location,
	logger *zap.Logger,
) *ReputationService {
	return &ReputationService{
		tx:       tx,
		ledger:   ledger,
		bookings: bookings,
		reports:  reports,
		loc:      loc,
		logger:   logger,
	}
}

// Adjust applies delta to the user's reputation. The stored score never drops
// below zero; the ledger entry keeps the requested delta.
func (s *ReputationService) Adjust(ctx context.Context, userID int64, delta int, reason string) (*model.ReputationChange, error) {
	change, err := s.apply(ctx, userID, delta, reason)
	if err != nil {
		return nil, err
	}
	s.record(change)
	return change, nil
}

// apply writes the ledger entry only. Callers running it inside a
// transaction call record once the transaction has committed.
func (s *ReputationService) apply(ctx context.Context, userID int64, delta int, reason string) (*model.ReputationChange, error) {
	if reason == "" {
		reason = ReasonManual
	}

	change, err := s.ledger.AdjustReputation(ctx, userID, delta, reason)
	if err != nil {
		return nil, fmt.Errorf("adjust reputation: %w", err)
	}
	if change == nil {
		return nil, notFound("user", userID)
	}
	return change, nil
}

func (s *ReputationService) record(changes ...*model.ReputationChange) {
	for _, change := range changes {
		if change.Delta < 0 {
			metrics.ReputationPenalties.WithLabelValues(change.Reason).Inc()
		}

		s.logger.Info("Reputation adjusted",
			zap.Int64("user_id", change.UserID),
			zap.Int("delta", change.Delta),
			zap.Int("balance", change.BalanceAfter),
			zap.String("reason", change.Reason),
		)
	}
}

// History returns the latest ledger entries for the user, newest first.
func (s *ReputationService) History(ctx context.Context, userID int64, limit int) ([]*model.ReputationChange, error) {
	changes, err := s.ledger.ListReputationChanges(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("reputation history: %w", err)
	}
	return changes, nil
}

// PenalizeReportRelated applies delta to every participant of the bookings
// that held the reported room when the report was filed.
func (s *ReputationService) PenalizeReportRelated(ctx context.Context, reportID int64, delta int, reason string) ([]*model.ReputationChange, error) {
	if delta >= 0 {
		return nil, invalidInput("bulk penalty must be negative, got %d", delta)
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if report == nil {
		return nil, notFound("report", reportID)
	}

	userIDs, err := s.occupantsAt(ctx, report.RoomID, report.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, violation("No booking held room %d at %s", report.RoomID,
			report.CreatedAt.In(s.loc).Format("2006-01-02 15:04"))
	}

	if reason == "" {
		reason = fmt.Sprintf("report #%d", report.ID)
	}

	var changes []*model.ReputationChange
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		changes = changes[:0]
		for _, id := range userIDs {
			change, err := s.apply(ctx, id, delta, reason)
			if err != nil {
				return err
			}
			changes = append(changes, change)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(changes...)
	s.logger.Info("Report related students penalized",
		zap.Int64("report_id", reportID),
		zap.Int("students", len(changes)),
		zap.Int("delta", delta),
	)

	return changes, nil
}

// occupantsAt lists participants of active bookings whose slot covers at.
func (s *ReputationService) occupantsAt(ctx context.Context, roomID int64, at time.Time) ([]int64, error) {
	local := at.In(s.loc)
	date := model.DateOf(local)

	bookings, err := s.bookings.ListByRoomInRange(ctx, roomID, date, date)
	if err != nil {
		return nil, fmt.Errorf("list room bookings: %w", err)
	}

	seen := make(map[int64]struct{})
	for _, b := range bookings {
		if !b.Status.IsActive() || b.Slot == nil {
			continue
		}
		start := b.Slot.StartOn(b.Date, s.loc)
		end := b.Slot.EndOn(b.Date, s.loc)
		if local.Before(start) || !local.Before(end) {
			continue
		}
		for _, id := range b.ParticipantIDs {
			seen[id] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
