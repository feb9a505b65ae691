package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/Freeeeeet/studyroom_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RatingRepository struct {
	*base.Repository
}

func NewRatingRepository(pool *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет оценку. Повторная оценка той же брони тем же студентом
// падает на уникальном индексе.
func (r *RatingRepository) Create(ctx context.Context, rating *model.Rating) error {
	query := `
		INSERT INTO ratings (booking_id, student_id, value, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.Conn(ctx).QueryRow(ctx, query, rating.BookingID, rating.StudentID, rating.Value, rating.Comment).
		Scan(&rating.ID, &rating.CreatedAt)
	if err != nil {
		return fmt.Errorf("create rating: %w", err)
	}
	return nil
}

func (r *RatingRepository) Exists(ctx context.Context, bookingID, studentID int64) (bool, error) {
	var exists bool
	err := r.Conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ratings WHERE booking_id = $1 AND student_id = $2)`,
		bookingID, studentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check rating exists: %w", err)
	}
	return exists, nil
}

// ListByRoom возвращает оценки всех броней комнаты, новые первыми
func (r *RatingRepository) ListByRoom(ctx context.Context, roomID int64) ([]*model.Rating, error) {
	query := `
		SELECT rt.id, rt.booking_id, rt.student_id, rt.value, rt.comment, rt.created_at
		FROM ratings rt
		JOIN bookings b ON b.id = rt.booking_id
		WHERE b.room_id = $1
		ORDER BY rt.created_at DESC
	`

	rows, err := r.Conn(ctx).Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("list ratings by room: %w", err)
	}
	defer rows.Close()

	var ratings []*model.Rating
	for rows.Next() {
		var rt model.Rating
		if err := rows.Scan(&rt.ID, &rt.BookingID, &rt.StudentID, &rt.Value, &rt.Comment, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, &rt)
	}

	return ratings, rows.Err()
}

type ReportRepository struct {
	*base.Repository
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{Repository: base.NewRepository(pool)}
}

const reportColumns = `id, reporter_id, room_id, content, status, resolution, resolved_by, created_at, resolved_at`

func scanReport(row pgx.Row) (*model.Report, error) {
	var rp model.Report
	err := row.Scan(
		&rp.ID,
		&rp.ReporterID,
		&rp.RoomID,
		&rp.Content,
		&rp.Status,
		&rp.Resolution,
		&rp.ResolvedBy,
		&rp.CreatedAt,
		&rp.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rp, nil
}

func (r *ReportRepository) Create(ctx context.Context, report *model.Report) error {
	query := `
		INSERT INTO reports (reporter_id, room_id, content, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.Conn(ctx).QueryRow(ctx, query, report.ReporterID, report.RoomID, report.Content, report.Status).
		Scan(&report.ID, &report.CreatedAt)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*model.Report, error) {
	report, err := scanReport(r.Conn(ctx).QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get report by id: %w", err)
	}
	return report, nil
}

// List возвращает жалобы с указанным статусом, или все при пустом статусе
func (r *ReportRepository) List(ctx context.Context, status model.ReportStatus) ([]*model.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC`

	rows, err := r.Conn(ctx).Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// Resolve закрывает открытую жалобу. Возвращает false, если она уже закрыта
func (r *ReportRepository) Resolve(ctx context.Context, id, staffID int64, resolution string, at time.Time) (bool, error) {
	affected, err := r.ExecAffected(ctx, `
		UPDATE reports
		SET status = $1, resolution = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $5 AND status = $6
	`, string(model.ReportStatusResolved), resolution, staffID, at, id, string(model.ReportStatusOpen))
	if err != nil {
		return false, fmt.Errorf("resolve report: %w", err)
	}
	return affected == 1, nil
}
