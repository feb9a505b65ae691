package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
)

// StatusCounts tallies bookings per status.
type StatusCounts struct {
	Total        int `json:"total"`
	Booked       int `json:"booked"`
	CheckedIn    int `json:"checked_in"`
	CheckedOut   int `json:"checked_out"`
	Canceled     int `json:"canceled"`
	AutoCanceled int `json:"auto_canceled"`
}

func (c *StatusCounts) add(status model.BookingStatus) {
	c.Total++
	switch status {
	case model.BookingStatusBooked:
		c.Booked++
	case model.BookingStatusCheckedIn:
		c.CheckedIn++
	case model.BookingStatusCheckedOut:
		c.CheckedOut++
	case model.BookingStatusCanceled:
		c.Canceled++
	case model.BookingStatusAutoCanceled:
		c.AutoCanceled++
	}
}

type WeekStats struct {
	Year   int          `json:"year"`
	Week   int          `json:"week"` // ISO week
	Counts StatusCounts `json:"counts"`
}

type MonthStats struct {
	Year   int          `json:"year"`
	Month  time.Month   `json:"month"`
	Counts StatusCounts `json:"counts"`
}

type RoomUsageStats struct {
	RoomID int64        `json:"room_id"`
	Counts StatusCounts `json:"counts"`
	// NoShowRate is auto-canceled over all non-canceled bookings.
	NoShowRate float64 `json:"no_show_rate"`
}

type Summary struct {
	From   time.Time        `json:"from"`
	To     time.Time        `json:"to"`
	Counts StatusCounts     `json:"counts"`
	Weeks  []WeekStats      `json:"weeks"`
	Months []MonthStats     `json:"months"`
	Rooms  []RoomUsageStats `json:"rooms"`
}

// GroupByWeek buckets bookings by ISO week of their date, oldest first.
func GroupByWeek(bookings []*model.Booking) []WeekStats {
	idx := make(map[[2]int]*WeekStats)
	for _, b := range bookings {
		y, w := b.Date.ISOWeek()
		key := [2]int{y, w}
		ws, ok := idx[key]
		if !ok {
			ws = &WeekStats{Year: y, Week: w}
			idx[key] = ws
		}
		ws.Counts.add(b.Status)
	}

	out := make([]WeekStats, 0, len(idx))
	for _, ws := range idx {
		out = append(out, *ws)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Week < out[j].Week
	})
	return out
}

// GroupByMonth buckets bookings by calendar month, oldest first.
func GroupByMonth(bookings []*model.Booking) []MonthStats {
	idx := make(map[[2]int]*MonthStats)
	for _, b := range bookings {
		key := [2]int{b.Date.Year(), int(b.Date.Month())}
		ms, ok := idx[key]
		if !ok {
			ms = &MonthStats{Year: b.Date.Year(), Month: b.Date.Month()}
			idx[key] = ms
		}
		ms.Counts.add(b.Status)
	}

	out := make([]MonthStats, 0, len(idx))
	for _, ms := range idx {
		out = append(out, *ms)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// RoomUsage tallies bookings per room, ordered by room id.
func RoomUsage(bookings []*model.Booking) []RoomUsageStats {
	idx := make(map[int64]*RoomUsageStats)
	for _, b := range bookings {
		rs, ok := idx[b.RoomID]
		if !ok {
			rs = &RoomUsageStats{RoomID: b.RoomID}
			idx[b.RoomID] = rs
		}
		rs.Counts.add(b.Status)
	}

	out := make([]RoomUsageStats, 0, len(idx))
	for _, rs := range idx {
		held := rs.Counts.Total - rs.Counts.Canceled
		if held > 0 {
			rs.NoShowRate = float64(rs.Counts.AutoCanceled) / float64(held)
		}
		out = append(out, *rs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

// MaxStatsRange bounds a Summary request; the range is loaded in one query.
const MaxStatsRange = 366 * 24 * time.Hour

type StatsService struct {
	bookings BookingStore
}

func NewStatsService(bookings BookingStore) *StatsService {
	return &StatsService{bookings: bookings}
}

// Summary aggregates bookings dated within [from, to].
func (s *StatsService) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	from, to = model.DateOf(from), model.DateOf(to)
	if to.Before(from) {
		return nil, invalidInput("range end %s is before start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	if to.Sub(from) >= MaxStatsRange {
		return nil, invalidInput("range %s..%s is longer than a year", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	bookings, err := s.bookings.ListInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings for stats: %w", err)
	}

	summary := &Summary{
		From:   from,
		To:     to,
		Weeks:  GroupByWeek(bookings),
		Months: GroupByMonth(bookings),
		Rooms:  RoomUsage(bookings),
	}
	for _, b := range bookings {
		summary.Counts.add(b.Status)
	}
	return summary, nil
}
