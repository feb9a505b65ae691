package httpapi

import (
	"context"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/Freeeeeet/studyroom_booking/internal/service"
)

// Handlers depend on these narrow views of the services so tests can stub them.

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	Authenticate(ctx context.Context, token string) (*model.User, error)
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context, role model.Role) ([]*model.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type BookingAPI interface {
	Create(ctx context.Context, creatorID int64, in service.CreateBookingInput) (*model.Booking, error)
	CheckIn(ctx context.Context, bookingID int64) (*model.Booking, error)
	CheckOut(ctx context.Context, bookingID int64) (*model.Booking, error)
	Cancel(ctx context.Context, actor *model.User, bookingID int64) (*model.Booking, error)
	Get(ctx context.Context, viewer *model.User, bookingID int64) (*model.Booking, error)
	ListMine(ctx context.Context, userID int64) ([]*model.Booking, error)
	ListByDate(ctx context.Context, date time.Time) ([]*model.Booking, error)
	ListForRoom(ctx context.Context, roomID int64, from, to time.Time) ([]*model.Booking, error)
}

type RoomAPI interface {
	CreateRoom(ctx context.Context, in service.RoomInput) (*model.Room, error)
	UpdateRoom(ctx context.Context, roomID int64, in service.RoomInput) (*model.Room, error)
	GetRoom(ctx context.Context, roomID int64) (*model.Room, error)
	ListRooms(ctx context.Context) ([]*model.Room, error)
	FreeRooms(ctx context.Context, date time.Time, slotID int64) ([]*model.Room, error)
	CreateSlot(ctx context.Context, ordinal int, start, end model.TimeOfDay) (*model.Slot, error)
	ListSlots(ctx context.Context) ([]*model.Slot, error)
	SetSlotStatus(ctx context.Context, slotID int64, status model.SlotStatus) error
}

type RatingAPI interface {
	Rate(ctx context.Context, studentID, bookingID int64, value int, comment string) (*model.Rating, error)
	ListForRoom(ctx context.Context, roomID int64) (*service.RoomRatings, error)
}

type ReportAPI interface {
	File(ctx context.Context, reporterID, roomID int64, content string) (*model.Report, error)
	List(ctx context.Context, status model.ReportStatus) ([]*model.Report, error)
	Resolve(ctx context.Context, staffID, reportID int64, resolution string) (*model.Report, error)
}

type ReputationAPI interface {
	Adjust(ctx context.Context, userID int64, delta int, reason string) (*model.ReputationChange, error)
	History(ctx context.Context, userID int64, limit int) ([]*model.ReputationChange, error)
	PenalizeReportRelated(ctx context.Context, reportID int64, delta int, reason string) ([]*model.ReputationChange, error)
}

type StatsAPI interface {
	Summary(ctx context.Context, from, to time.Time) (*service.Summary, error)
}
