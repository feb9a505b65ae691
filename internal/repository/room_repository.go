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

type RoomRepository struct {
	*base.Repository
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{Repository: base.NewRepository(pool)}
}

func scanRoom(row pgx.Row) (*model.Room, error) {
	var room model.Room
	if err := row.Scan(&room.ID, &room.Name, &room.Capacity, &room.Status, &room.CreatedAt); err != nil {
		return nil, err
	}
	return &room, nil
}

func collectRooms(rows pgx.Rows) ([]*model.Room, error) {
	defer rows.Close()

	var rooms []*model.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// Create создаёт новую комнату
func (r *RoomRepository) Create(ctx context.Context, room *model.Room) error {
	query := `
		INSERT INTO rooms (name, capacity, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.Conn(ctx).QueryRow(ctx, query, room.Name, room.Capacity, room.Status).
		Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	return nil
}

// GetByID получает комнату по ID
func (r *RoomRepository) GetByID(ctx context.Context, id int64) (*model.Room, error) {
	query := `SELECT id, name, capacity, status, created_at FROM rooms WHERE id = $1`

	room, err := scanRoom(r.Conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get room by id: %w", err)
	}

	return room, nil
}

func (r *RoomRepository) List(ctx context.Context) ([]*model.Room, error) {
	query := `SELECT id, name, capacity, status, created_at FROM rooms ORDER BY name`

	rows, err := r.Conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return collectRooms(rows)
}

// Update сохраняет имя, вместимость и статус комнаты
func (r *RoomRepository) Update(ctx context.Context, room *model.Room) error {
	affected, err := r.ExecAffected(ctx,
		`UPDATE rooms SET name = $1, capacity = $2, status = $3 WHERE id = $4`,
		room.Name, room.Capacity, room.Status, room.ID,
	)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("room %d not found", room.ID)
	}
	return nil
}

// ListFree возвращает активные комнаты без активной брони на слот в эту дату
func (r *RoomRepository) ListFree(ctx context.Context, date time.Time, slotID int64) ([]*model.Room, error) {
	query := `
		SELECT r.id, r.name, r.capacity, r.status, r.created_at
		FROM rooms r
		WHERE r.status = $1
		  AND NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.room_id = r.id
			  AND b.slot_id = $2
			  AND b.date = $3
			  AND b.status = ANY($4)
		  )
		ORDER BY r.name
	`

	rows, err := r.Conn(ctx).Query(ctx, query,
		model.RoomStatusActive, slotID, date, statusStrings(model.ActiveBookingStatuses))
	if err != nil {
		return nil, fmt.Errorf("list free rooms: %w", err)
	}
	return collectRooms(rows)
}

func statusStrings(statuses []model.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
