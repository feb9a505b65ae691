package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/Freeeeeet/studyroom_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// bookingSelect загружает бронь вместе с участниками и слотом
const bookingSelect = `
	SELECT b.id, b.creator_id, b.room_id, b.slot_id, b.date, b.status, b.reason, b.created_at,
	       b.checked_in_at, b.checked_out_at, b.reminder_sent,
	       COALESCE((
	           SELECT array_agg(p.user_id ORDER BY p.user_id)
	           FROM booking_participants p
	           WHERE p.booking_id = b.id
	       ), '{}') AS participant_ids,
	       s.id, s.ordinal, s.status, s.start_time, s.end_time
	FROM bookings b
	JOIN slots s ON s.id = b.slot_id
`

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		booking    model.Booking
		slot       model.Slot
		start, end pgtype.Time
	)
	err := row.Scan(
		&booking.ID,
		&booking.CreatorID,
		&booking.RoomID,
		&booking.SlotID,
		&booking.Date,
		&booking.Status,
		&booking.Reason,
		&booking.CreatedAt,
		&booking.CheckedInAt,
		&booking.CheckedOutAt,
		&booking.ReminderSent,
		&booking.ParticipantIDs,
		&slot.ID,
		&slot.Ordinal,
		&slot.Status,
		&start,
		&end,
	)
	if err != nil {
		return nil, err
	}

	slot.StartTime = fromPgTime(start)
	slot.EndTime = fromPgTime(end)
	booking.Slot = &slot
	booking.Date = model.DateOf(booking.Date)

	return &booking, nil
}

func (r *BookingRepository) list(ctx context.Context, op, where string, args ...any) ([]*model.Booking, error) {
	query := bookingSelect + ` WHERE ` + where + ` ORDER BY b.date, s.ordinal, b.id`

	rows, err := r.Conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan booking: %w", op, err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bookings, nil
}

// Create сохраняет бронь и её участников. Вызывать внутри транзакции
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (creator_id, room_id, slot_id, date, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.Conn(ctx).QueryRow(
		ctx, query,
		booking.CreatorID,
		booking.RoomID,
		booking.SlotID,
		booking.Date,
		booking.Status,
		booking.Reason,
	).Scan(&booking.ID, &booking.CreatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	if len(booking.ParticipantIDs) > 0 {
		_, err = r.Conn(ctx).Exec(ctx,
			`INSERT INTO booking_participants (booking_id, user_id) SELECT $1, unnest($2::bigint[])`,
			booking.ID, booking.ParticipantIDs,
		)
		if err != nil {
			return fmt.Errorf("create booking participants: %w", err)
		}
	}

	return nil
}

// GetByID получает бронирование по ID вместе со слотом и участниками
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	booking, err := scanBooking(r.Conn(ctx).QueryRow(ctx, bookingSelect+` WHERE b.id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// ListByDateAndStatuses возвращает брони на дату с одним из статусов
func (r *BookingRepository) ListByDateAndStatuses(ctx context.Context, date time.Time, statuses []model.BookingStatus) ([]*model.Booking, error) {
	return r.list(ctx, "list bookings by date", `b.date = $1 AND b.status = ANY($2)`,
		date, statusStrings(statuses))
}

// CountActiveForUserOnDate считает активные брони пользователя на дату
func (r *BookingRepository) CountActiveForUserOnDate(ctx context.Context, userID int64, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings b
		JOIN booking_participants p ON p.booking_id = b.id
		WHERE p.user_id = $1 AND b.date = $2 AND b.status = ANY($3)
	`

	var count int
	err := r.Conn(ctx).QueryRow(ctx, query, userID, date, statusStrings(model.ActiveBookingStatuses)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count daily bookings: %w", err)
	}
	return count, nil
}

// CountActiveDaysForUser считает различные дни в [from, to], в которые у
// пользователя есть активная бронь
func (r *BookingRepository) CountActiveDaysForUser(ctx context.Context, userID int64, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(DISTINCT b.date)
		FROM bookings b
		JOIN booking_participants p ON p.booking_id = b.id
		WHERE p.user_id = $1 AND b.date BETWEEN $2 AND $3 AND b.status = ANY($4)
	`

	var count int
	err := r.Conn(ctx).QueryRow(ctx, query, userID, from, to, statusStrings(model.ActiveBookingStatuses)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count booking days: %w", err)
	}
	return count, nil
}

// Transition переводит бронь из статуса from в to и проставляет время входа
// или выхода. Возвращает false, если бронь уже не в статусе from
func (r *BookingRepository) Transition(ctx context.Context, id int64, from, to model.BookingStatus, at time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $3,
		    checked_in_at  = CASE WHEN $3 = 'checked_in'  THEN $4::timestamptz ELSE checked_in_at END,
		    checked_out_at = CASE WHEN $3 = 'checked_out' THEN $4::timestamptz ELSE checked_out_at END
		WHERE id = $1
		  AND status = $2
		  AND (status <> 'booked' OR checked_in_at IS NULL)
	`

	affected, err := r.ExecAffected(ctx, query, id, string(from), string(to), at)
	if err != nil {
		return false, fmt.Errorf("transition booking %d to %s: %w", id, to, err)
	}
	return affected == 1, nil
}

// ListPendingCheckIn возвращает брони без отметки о входе на день и раньше
func (r *BookingRepository) ListPendingCheckIn(ctx context.Context, onOrBefore time.Time) ([]*model.Booking, error) {
	return r.list(ctx, "list pending check-in",
		`b.status = $1 AND b.checked_in_at IS NULL AND b.date <= $2`,
		string(model.BookingStatusBooked), onOrBefore)
}

// ListReminderCandidates возвращает брони в [from, to], по которым ещё не
// отправлено напоминание
func (r *BookingRepository) ListReminderCandidates(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	return r.list(ctx, "list reminder candidates",
		`b.status = $1 AND NOT b.reminder_sent AND b.date BETWEEN $2 AND $3`,
		string(model.BookingStatusBooked), from, to)
}

// MarkReminderSent возвращает false, если флаг уже стоял
func (r *BookingRepository) MarkReminderSent(ctx context.Context, id int64) (bool, error) {
	affected, err := r.ExecAffected(ctx,
		`UPDATE bookings SET reminder_sent = true WHERE id = $1 AND NOT reminder_sent`, id)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	return affected == 1, nil
}

// ListByUser возвращает брони, где пользователь создатель или участник, новые первыми
func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Booking, error) {
	bookings, err := r.list(ctx, "list bookings by user", `
		b.creator_id = $1 OR EXISTS (
			SELECT 1 FROM booking_participants p WHERE p.booking_id = b.id AND p.user_id = $1
		)`, userID)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(bookings)-1; i < j; i, j = i+1, j-1 {
		bookings[i], bookings[j] = bookings[j], bookings[i]
	}
	return bookings, nil
}

// ListInRange возвращает все брони с датой в [from, to]
func (r *BookingRepository) ListInRange(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	return r.list(ctx, "list bookings in range", `b.date BETWEEN $1 AND $2`, from, to)
}

// ListByRoomInRange возвращает брони одной комнаты с датой в [from, to]
func (r *BookingRepository) ListByRoomInRange(ctx context.Context, roomID int64, from, to time.Time) ([]*model.Booking, error) {
	return r.list(ctx, "list bookings by room", `b.room_id = $1 AND b.date BETWEEN $2 AND $3`, roomID, from, to)
}
