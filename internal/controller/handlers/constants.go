package handlers

// Префиксы callback data для inline кнопок
const (
	CancelBooking  = "cancel_booking:"  // cancel_booking:123
	ConfirmCancel  = "confirm_cancel:"  // confirm_cancel:123
	CheckInBooking = "checkin_booking:" // checkin_booking:123
)

// Лимиты вывода
const (
	maxBookingsShown = 10
	maxTodayShown    = 30
)
