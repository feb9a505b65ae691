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

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

func toPgTime(t model.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t.Duration() / time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) model.TimeOfDay {
	return model.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var (
		slot       model.Slot
		start, end pgtype.Time
	)
	if err := row.Scan(&slot.ID, &slot.Ordinal, &slot.Status, &start, &end); err != nil {
		return nil, err
	}
	slot.StartTime = fromPgTime(start)
	slot.EndTime = fromPgTime(end)
	return &slot, nil
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (ordinal, status, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.Conn(ctx).QueryRow(
		ctx, query,
		slot.Ordinal,
		slot.Status,
		toPgTime(slot.StartTime),
		toPgTime(slot.EndTime),
	).Scan(&slot.ID)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT id, ordinal, status, start_time, end_time FROM slots WHERE id = $1`

	slot, err := scanSlot(r.Conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// List возвращает слоты в порядке дня
func (r *SlotRepository) List(ctx context.Context) ([]*model.Slot, error) {
	query := `SELECT id, ordinal, status, start_time, end_time FROM slots ORDER BY ordinal`

	rows, err := r.Conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

// UpdateStatus обновляет статус слота
func (r *SlotRepository) UpdateStatus(ctx context.Context, slotID int64, status model.SlotStatus) error {
	affected, err := r.ExecAffected(ctx, `UPDATE slots SET status = $1 WHERE id = $2`, status, slotID)
	if err != nil {
		return fmt.Errorf("update slot status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("slot %d not found", slotID)
	}
	return nil
}
