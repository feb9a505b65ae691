package model

import "time"

type BookingStatus string

const (
	BookingStatusBooked       BookingStatus = "booked"        // Created by admission, waiting for check-in
	BookingStatusCheckedIn    BookingStatus = "checked_in"    // Staff confirmed arrival
	BookingStatusCheckedOut   BookingStatus = "checked_out"   // Room handed back
	BookingStatusCanceled     BookingStatus = "canceled"      // Canceled by owner or staff
	BookingStatusAutoCanceled BookingStatus = "auto_canceled" // Expired without check-in
)

// ActiveBookingStatuses are the statuses that hold a (room, slot, date) triple.
var ActiveBookingStatuses = []BookingStatus{
	BookingStatusBooked,
	BookingStatusCheckedIn,
	BookingStatusCheckedOut,
}

// IsTerminal reports whether no further transitions are allowed.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCheckedOut, BookingStatusCanceled, BookingStatusAutoCanceled:
		return true
	}
	return false
}

// IsActive reports whether the status occupies its room/slot/date.
func (s BookingStatus) IsActive() bool {
	return s != BookingStatusCanceled && s != BookingStatusAutoCanceled
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusBooked, BookingStatusCheckedIn, BookingStatusCheckedOut,
		BookingStatusCanceled, BookingStatusAutoCanceled:
		return true
	}
	return false
}

type Booking struct {
	ID           int64         `json:"id"`
	CreatorID    int64         `json:"creator_id"`
	RoomID       int64         `json:"room_id"`
	SlotID       int64         `json:"slot_id"`
	Date         time.Time     `json:"date"` // midnight UTC, calendar day only
	Status       BookingStatus `json:"status"`
	Reason       string        `json:"reason"`
	CreatedAt    time.Time     `json:"created_at"`
	CheckedInAt  *time.Time    `json:"checked_in_at"`
	CheckedOutAt *time.Time    `json:"checked_out_at"`
	ReminderSent bool          `json:"reminder_sent"`

	ParticipantIDs []int64 `json:"participant_ids"`

	// Not stored in bookings, filled by joins when needed
	Slot    *Slot   `json:"slot,omitempty"`
	Room    *Room   `json:"room,omitempty"`
	Creator *User   `json:"creator,omitempty"`
	Members []*User `json:"members,omitempty"`
}

// HasParticipant reports whether userID is listed as a participant.
func (b *Booking) HasParticipant(userID int64) bool {
	for _, id := range b.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// DateOf truncates t to its calendar day, expressed as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
