package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
)

// The interfaces below list what each service needs from storage. The pgx
// repositories satisfy them; tests use in-memory fakes.

type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByCode(ctx context.Context, code string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
	List(ctx context.Context, role model.Role) ([]*model.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	SetTelegramChatID(ctx context.Context, code string, chatID int64) (*model.User, error)
	GetByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error)
	CreatePasswordReset(ctx context.Context, reset *model.PasswordReset) error
	GetPasswordReset(ctx context.Context, token string) (*model.PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, token string, at time.Time) (bool, error)
}

type LedgerStore interface {
	AdjustReputation(ctx context.Context, userID int64, delta int, reason string) (*model.ReputationChange, error)
	ListReputationChanges(ctx context.Context, userID int64, limit int) ([]*model.ReputationChange, error)
}

type RoomStore interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id int64) (*model.Room, error)
	List(ctx context.Context) ([]*model.Room, error)
	Update(ctx context.Context, room *model.Room) error
	ListFree(ctx context.Context, date time.Time, slotID int64) ([]*model.Room, error)
}

type SlotStore interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	List(ctx context.Context) ([]*model.Slot, error)
	UpdateStatus(ctx context.Context, slotID int64, status model.SlotStatus) error
}

type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	ListByDateAndStatuses(ctx context.Context, date time.Time, statuses []model.BookingStatus) ([]*model.Booking, error)
	CountActiveForUserOnDate(ctx context.Context, userID int64, date time.Time) (int, error)
	CountActiveDaysForUser(ctx context.Context, userID int64, from, to time.Time) (int, error)
	Transition(ctx context.Context, id int64, from, to model.BookingStatus, at time.Time) (bool, error)
	ListPendingCheckIn(ctx context.Context, onOrBefore time.Time) ([]*model.Booking, error)
	ListReminderCandidates(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
	MarkReminderSent(ctx context.Context, id int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Booking, error)
	ListInRange(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
	ListByRoomInRange(ctx context.Context, roomID int64, from, to time.Time) ([]*model.Booking, error)
}

type RatingStore interface {
	Create(ctx context.Context, rating *model.Rating) error
	Exists(ctx context.Context, bookingID, studentID int64) (bool, error)
	ListByRoom(ctx context.Context, roomID int64) ([]*model.Rating, error)
}

type ReportStore interface {
	Create(ctx context.Context, report *model.Report) error
	GetByID(ctx context.Context, id int64) (*model.Report, error)
	List(ctx context.Context, status model.ReportStatus) ([]*model.Report, error)
	Resolve(ctx context.Context, id, staffID int64, resolution string, at time.Time) (bool, error)
}

// Notifier delivers a short message to a user over whatever channels they have.
type Notifier interface {
	Notify(ctx context.Context, user *model.User, subject, body string) error
}
