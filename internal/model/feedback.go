package model

import "time"

// Rating is a participant's score for a booked room session.
type Rating struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	StudentID int64     `json:"student_id"`
	Value     int       `json:"value"` // 1..5
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type ReportStatus string

const (
	ReportStatusOpen     ReportStatus = "open"
	ReportStatusResolved ReportStatus = "resolved"
)

// Report is a complaint about a room (noise, damage, misuse).
type Report struct {
	ID         int64        `json:"id"`
	ReporterID int64        `json:"reporter_id"`
	RoomID     int64        `json:"room_id"`
	Content    string       `json:"content"`
	Status     ReportStatus `json:"status"`
	Resolution string       `json:"resolution"`
	ResolvedBy *int64       `json:"resolved_by"`
	CreatedAt  time.Time    `json:"created_at"`
	ResolvedAt *time.Time   `json:"resolved_at"`
}

// IsOpen checks if the report still waits for staff
func (r *Report) IsOpen() bool {
	return r.Status == ReportStatusOpen
}
