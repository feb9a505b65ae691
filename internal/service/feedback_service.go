package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/Freeeeeet/studyroom_booking/internal/repository/base"
	"go.uber.org/zap"
)

type RatingService struct {
	ratings  RatingStore
	bookings BookingStore
	logger   *zap.Logger
}

func NewRatingService(ratings RatingStore, bookings BookingStore, logger *zap.Logger) *RatingService {
	return &RatingService{ratings: ratings, bookings: bookings, logger: logger}
}

// Rate stores a participant's 1-5 score for a booking. Each participant may
// rate a booking once.
func (s *RatingService) Rate(ctx context.Context, studentID, bookingID int64, value int, comment string) (*model.Rating, error) {
	if value < 1 || value > 5 {
		return nil, invalidInput("rating must be between 1 and 5, got %d", value)
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, notFound("booking", bookingID)
	}
	if !booking.HasParticipant(studentID) {
		return nil, violation("Only participants of booking %d can rate it", bookingID)
	}

	exists, err := s.ratings.Exists(ctx, bookingID, studentID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, violation("Booking %d is already rated", bookingID)
	}

	rating := &model.Rating{
		BookingID: bookingID,
		StudentID: studentID,
		Value:     value,
		Comment:   strings.TrimSpace(comment),
	}
	if err := s.ratings.Create(ctx, rating); err != nil {
		if base.IsUniqueViolation(err) {
			return nil, &PolicyError{Reason: fmt.Sprintf("Booking %d is already rated", bookingID), Err: ErrConflict}
		}
		return nil, err
	}

	s.logger.Info("Booking rated",
		zap.Int64("booking_id", bookingID),
		zap.Int64("student_id", studentID),
		zap.Int("value", value),
	)

	return rating, nil
}

type RoomRatings struct {
	RoomID  int64           `json:"room_id"`
	Count   int             `json:"count"`
	Average float64         `json:"average"`
	Ratings []*model.Rating `json:"ratings"`
}

func (s *RatingService) ListForRoom(ctx context.Context, roomID int64) (*RoomRatings, error) {
	ratings, err := s.ratings.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list room ratings: %w", err)
	}

	out := &RoomRatings{RoomID: roomID, Count: len(ratings), Ratings: ratings}
	if len(ratings) > 0 {
		sum := 0
		for _, r := range ratings {
			sum += r.Value
		}
		out.Average = float64(sum) / float64(len(ratings))
	}
	return out, nil
}

type ReportService struct {
	reports ReportStore
	rooms   RoomStore
	logger  *zap.Logger
	now     func() time.Time
}

func NewReportService(reports ReportStore, rooms RoomStore, logger *zap.Logger) *ReportService {
	return &ReportService{reports: reports, rooms: rooms, logger: logger, now: time.Now}
}

// File records a complaint about a room.
func (s *ReportService) File(ctx context.Context, reporterID, roomID int64, content string) (*model.Report, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidInput("report content is empty")
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if room == nil {
		return nil, notFound("room", roomID)
	}

	report := &model.Report{
		ReporterID: reporterID,
		RoomID:     roomID,
		Content:    content,
		Status:     model.ReportStatusOpen,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info("Report filed",
		zap.Int64("report_id", report.ID),
		zap.Int64("room_id", roomID),
		zap.Int64("reporter_id", reporterID),
	)

	return report, nil
}

func (s *ReportService) List(ctx context.Context, status model.ReportStatus) ([]*model.Report, error) {
	return s.reports.List(ctx, status)
}

// Resolve closes an open report with the staff member's resolution note.
func (s *ReportService) Resolve(ctx context.Context, staffID, reportID int64, resolution string) (*model.Report, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if report == nil {
		return nil, notFound("report", reportID)
	}
	if !report.IsOpen() {
		return nil, violation("Report %d is already resolved", reportID)
	}

	now := s.now()
	ok, err := s.reports.Resolve(ctx, reportID, staffID, strings.TrimSpace(resolution), now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, violation("Report %d is already resolved", reportID)
	}

	report.Status = model.ReportStatusResolved
	report.Resolution = strings.TrimSpace(resolution)
	report.ResolvedBy = &staffID
	report.ResolvedAt = &now

	s.logger.Info("Report resolved",
		zap.Int64("report_id", reportID),
		zap.Int64("staff_id", staffID),
	)

	return report, nil
}
