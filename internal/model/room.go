package model

import "time"

type RoomStatus string

const (
	RoomStatusPending     RoomStatus = "pending"
	RoomStatusActive      RoomStatus = "active"
	RoomStatusMaintenance RoomStatus = "maintenance"
	RoomStatusInactive    RoomStatus = "inactive"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomStatusPending, RoomStatusActive, RoomStatusMaintenance, RoomStatusInactive:
		return true
	}
	return false
}

type Room struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Capacity  int        `json:"capacity"`
	Status    RoomStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}
