package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"go.uber.org/zap"
)

// Users поиск аккаунтов, нужный боту
type Users interface {
	LinkTelegram(ctx context.Context, code string, chatID int64) (*model.User, error)
	UserByChat(ctx context.Context, chatID int64) (*model.User, error)
}

// Bookings жизненный цикл броней со стороны бота
type Bookings interface {
	ListMine(ctx context.Context, userID int64) ([]*model.Booking, error)
	ListByDate(ctx context.Context, date time.Time) ([]*model.Booking, error)
	ListForRoom(ctx context.Context, roomID int64, from, to time.Time) ([]*model.Booking, error)
	Cancel(ctx context.Context, actor *model.User, bookingID int64) (*model.Booking, error)
	CheckIn(ctx context.Context, bookingID int64) (*model.Booking, error)
}

type Rooms interface {
	GetRoom(ctx context.Context, roomID int64) (*model.Room, error)
	ListRooms(ctx context.Context) ([]*model.Room, error)
	ListSlots(ctx context.Context) ([]*model.Slot, error)
}

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	users    Users
	bookings Bookings
	rooms    Rooms
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(users Users, bookings Bookings, rooms Rooms, loc *time.Location, logger *zap.Logger) *Handlers {
	if loc == nil {
		loc = time.UTC
	}
	return &Handlers{
		users:    users,
		bookings: bookings,
		rooms:    rooms,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// reply ответ команды. Если задан Photo, отправляется картинка, а Text
// становится подписью
type reply struct {
	Text     string
	Keyboard [][]button
	Photo    []byte
}

type button struct {
	Text string
	Data string
}
