package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/Freeeeeet/studyroom_booking/internal/service"
)

// BookingStatusDisplay содержит emoji и текст для отображения статуса
type BookingStatusDisplay struct {
	Emoji string
	Text  string
}

// GetBookingStatusDisplay возвращает emoji и текст для статуса бронирования
func GetBookingStatusDisplay(status model.BookingStatus) BookingStatusDisplay {
	displays := map[model.BookingStatus]BookingStatusDisplay{
		model.BookingStatusBooked:       {"📌", "Booked"},
		model.BookingStatusCheckedIn:    {"🟢", "Checked in"},
		model.BookingStatusCheckedOut:   {"✔️", "Finished"},
		model.BookingStatusCanceled:     {"❌", "Canceled"},
		model.BookingStatusAutoCanceled: {"⌛", "Expired (no show)"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return BookingStatusDisplay{"❓", "Unknown"}
}

// FormatBooking форматирует бронирование одной строкой
func FormatBooking(b *model.Booking) string {
	display := GetBookingStatusDisplay(b.Status)

	when := b.Date.Format("02.01.2006")
	if b.Slot != nil {
		when += fmt.Sprintf(" %s-%s", b.Slot.StartTime, b.Slot.EndTime)
	}

	return fmt.Sprintf("%s #%d room %d, %s, %s", display.Emoji, b.ID, b.RoomID, when, display.Text)
}

// commandArg возвращает текст после команды, "/cancel 12" -> "12"
func commandArg(text string) string {
	_, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(arg)
}

// userMessage превращает ошибку сервиса в текст, который можно показать в чате
func userMessage(err error) string {
	var pe *service.PolicyError
	switch {
	case errors.As(err, &pe):
		return "🚫 " + pe.Reason
	case errors.Is(err, service.ErrNotFound):
		return "❌ Not found."
	case errors.Is(err, service.ErrForbidden):
		return "❌ You are not allowed to do that."
	case errors.Is(err, service.ErrInvalidInput):
		return "❌ " + err.Error()
	default:
		return "❌ Something went wrong. Please try again later."
	}
}
