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

// RoomService manages rooms and the daily slot grid.
type RoomService struct {
	rooms  RoomStore
	slots  SlotStore
	logger *zap.Logger
}

func NewRoomService(rooms RoomStore, slots SlotStore, logger *zap.Logger) *RoomService {
	return &RoomService{rooms: rooms, slots: slots, logger: logger}
}

type RoomInput struct {
	Name     string
	Capacity int
	Status   model.RoomStatus
}

func (in RoomInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalidInput("room name is empty")
	}
	if in.Capacity <= 0 {
		return invalidInput("room capacity must be positive, got %d", in.Capacity)
	}
	if in.Status != "" && !in.Status.Valid() {
		return invalidInput("unknown room status %q", in.Status)
	}
	return nil
}

func (s *RoomService) CreateRoom(ctx context.Context, in RoomInput) (*model.Room, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = model.RoomStatusPending
	}

	room := &model.Room{Name: strings.TrimSpace(in.Name), Capacity: in.Capacity, Status: in.Status}
	if err := s.rooms.Create(ctx, room); err != nil {
		if base.IsUniqueViolation(err) {
			return nil, fmt.Errorf("room %q already exists: %w", room.Name, ErrConflict)
		}
		return nil, err
	}

	s.logger.Info("Room created", zap.Int64("room_id", room.ID), zap.String("name", room.Name))
	return room, nil
}

func (s *RoomService) UpdateRoom(ctx context.Context, roomID int64, in RoomInput) (*model.Room, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	room.Name = strings.TrimSpace(in.Name)
	room.Capacity = in.Capacity
	if in.Status != "" {
		room.Status = in.Status
	}

	if err := s.rooms.Update(ctx, room); err != nil {
		if base.IsUniqueViolation(err) {
			return nil, fmt.Errorf("room %q already exists: %w", room.Name, ErrConflict)
		}
		return nil, err
	}

	s.logger.Info("Room updated",
		zap.Int64("room_id", room.ID),
		zap.String("status", string(room.Status)),
		zap.Int("capacity", room.Capacity),
	)
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomID int64) (*model.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if room == nil {
		return nil, notFound("room", roomID)
	}
	return room, nil
}

func (s *RoomService) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return s.rooms.List(ctx)
}

// FreeRooms lists active rooms with no active booking for the slot on date.
func (s *RoomService) FreeRooms(ctx context.Context, date time.Time, slotID int64) ([]*model.Room, error) {
	if _, err := s.GetSlot(ctx, slotID); err != nil {
		return nil, err
	}
	return s.rooms.ListFree(ctx, model.DateOf(date), slotID)
}

func (s *RoomService) CreateSlot(ctx context.Context, ordinal int, start, end model.TimeOfDay) (*model.Slot, error) {
	if ordinal <= 0 {
		return nil, invalidInput("slot ordinal must be positive, got %d", ordinal)
	}
	if start >= end {
		return nil, invalidInput("slot must start before it ends, got %s-%s", start, end)
	}
	if end.Duration() > 24*time.Hour {
		return nil, invalidInput("slot end %s is past midnight", end)
	}

	slot := &model.Slot{Ordinal: ordinal, Status: model.SlotStatusActive, StartTime: start, EndTime: end}
	if err := s.slots.Create(ctx, slot); err != nil {
		if base.IsUniqueViolation(err) {
			return nil, fmt.Errorf("slot %d already exists: %w", ordinal, ErrConflict)
		}
		return nil, err
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int("ordinal", ordinal),
		zap.Stringer("start", start),
		zap.Stringer("end", end),
	)
	return slot, nil
}

func (s *RoomService) GetSlot(ctx context.Context, slotID int64) (*model.Slot, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, notFound("slot", slotID)
	}
	return slot, nil
}

func (s *RoomService) ListSlots(ctx context.Context) ([]*model.Slot, error) {
	return s.slots.List(ctx)
}

func (s *RoomService) SetSlotStatus(ctx context.Context, slotID int64, status model.SlotStatus) error {
	if status != model.SlotStatusActive && status != model.SlotStatusInactive {
		return invalidInput("unknown slot status %q", status)
	}
	if _, err := s.GetSlot(ctx, slotID); err != nil {
		return err
	}
	if err := s.slots.UpdateStatus(ctx, slotID, status); err != nil {
		return err
	}

	s.logger.Info("Slot status changed", zap.Int64("slot_id", slotID), zap.String("status", string(status)))
	return nil
}
