package httpapi

import "github.com/Freeeeeet/studyroom_booking/internal/model"

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type passwordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type passwordResetConfirm struct {
	Token    string `json:"token" binding:"required,uuid"`
	Password string `json:"password" binding:"required,min=8"`
}

type createBookingRequest struct {
	Date             string   `json:"date" binding:"required,ymd"`
	RoomID           int64    `json:"room_id" binding:"required,gt=0"`
	SlotID           int64    `json:"slot_id" binding:"required,gt=0"`
	Reason           string   `json:"reason" binding:"max=500"`
	ParticipantCodes []string `json:"participant_codes" binding:"required,min=1,dive,required"`
}

type roomRequest struct {
	Name     string           `json:"name" binding:"required,max=100"`
	Capacity int              `json:"capacity" binding:"required,gt=0"`
	Status   model.RoomStatus `json:"status"`
}

type slotRequest struct {
	Ordinal   int    `json:"ordinal" binding:"required,gt=0"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time" binding:"required,hhmm"`
}

type slotStatusRequest struct {
	Status model.SlotStatus `json:"status" binding:"required,oneof=active inactive"`
}

type ratingRequest struct {
	BookingID int64  `json:"booking_id" binding:"required,gt=0"`
	Value     int    `json:"value" binding:"required,min=1,max=5"`
	Comment   string `json:"comment" binding:"max=1000"`
}

type reportRequest struct {
	RoomID  int64  `json:"room_id" binding:"required,gt=0"`
	Content string `json:"content" binding:"required,max=2000"`
}

type resolveRequest struct {
	Resolution string `json:"resolution" binding:"max=2000"`
}

type penalizeRequest struct {
	Delta  int    `json:"delta" binding:"required,lt=0"`
	Reason string `json:"reason" binding:"max=200"`
}

type adjustRequest struct {
	Delta  int    `json:"delta" binding:"required,ne=0"`
	Reason string `json:"reason" binding:"required,max=200"`
}

type createUserRequest struct {
	Code     string `json:"code" binding:"required,max=32"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required,max=200"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,role"`
}
