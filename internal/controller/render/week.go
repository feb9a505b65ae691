package render

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Размеры и отступы
const (
	imageWidth       = 1100
	imageHeight      = 700
	headerHeight     = 80
	leftLabelsWidth  = 60
	legendWidth      = 140
	dayPaddingX      = 6
	minSlotHeight    = 8.0
	slotBorderRadius = 6.0
	shadowOffset     = 3.0
	daysInWeek       = 7
	hourPaddingTop   = 1
	hourPaddingBot   = 1
	defaultMinHour   = 8
	defaultMaxHour   = 20
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	slotFreeColor       = color.RGBA{133, 193, 85, 220}
	slotBookedColor     = color.RGBA{255, 182, 193, 255}
	slotCheckedInColor  = color.RGBA{120, 170, 230, 230}
	slotFinishedColor   = color.RGBA{158, 158, 158, 200}
	slotInactiveColor   = color.RGBA{220, 220, 220, 200}
	slotTextColor       = color.RGBA{20, 24, 28, 230}
	slotBookedTextColor = color.RGBA{120, 40, 50, 255}
	slotShadowColor     = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

// WeekInput описывает неделю одной комнаты. Брони вне недели и других комнат
// игнорируются
type WeekInput struct {
	Room     *model.Room
	Start    time.Time // any day of the week, Monday is derived
	Slots    []*model.Slot
	Bookings []*model.Booking
	Location *time.Location
	Now      time.Time
}

type hourRange struct {
	start int
	end   int
	total int
}

type cellState int

const (
	cellFree cellState = iota
	cellBooked
	cellCheckedIn
	cellFinished
	cellInactive
)

// RoomWeek рисует недельную сетку занятости комнаты в PNG
func RoomWeek(in WeekInput) ([]byte, error) {
	if in.Room == nil {
		return nil, fmt.Errorf("room is required")
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	monday := WeekStart(in.Start)
	occupied := indexBookings(in.Bookings, in.Room.ID, monday)
	hours := calculateHourRange(in.Slots)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / daysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, in.Room, monday)
	drawHourLabels(dc, hours, cellHeight)

	today := model.DateOf(in.Now.In(loc))
	for i := 0; i < daysInWeek; i++ {
		date := monday.AddDate(0, 0, i)
		x := float64(leftLabelsWidth + i*dayWidth)
		y := float64(headerHeight)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, i, date.Equal(today))
		drawDayHeader(dc, date, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)

		for _, slot := range in.Slots {
			state := cellFree
			if slot.Status != model.SlotStatusActive {
				state = cellInactive
			} else if b, ok := occupied[cellKey{date: date.Format(time.DateOnly), slotID: slot.ID}]; ok {
				state = stateOf(b.Status)
			}
			drawSlot(dc, slot, state, x, y, dayWidth, hours, cellHeight)
		}
	}

	if !today.Before(monday) && today.Before(monday.AddDate(0, 0, daysInWeek)) {
		drawCurrentTimeLine(dc, in.Now.In(loc), hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// WeekStart возвращает понедельник недели t как календарную дату
func WeekStart(t time.Time) time.Time {
	d := model.DateOf(t)
	offset := int(d.Weekday()) - 1
	if d.Weekday() == time.Sunday {
		offset = 6
	}
	return d.AddDate(0, 0, -offset)
}

type cellKey struct {
	date   string
	slotID int64
}

func indexBookings(bookings []*model.Booking, roomID int64, monday time.Time) map[cellKey]*model.Booking {
	end := monday.AddDate(0, 0, daysInWeek)
	out := make(map[cellKey]*model.Booking)
	for _, b := range bookings {
		if b.RoomID != roomID || !b.Status.IsActive() {
			continue
		}
		if b.Date.Before(monday) || !b.Date.Before(end) {
			continue
		}
		out[cellKey{date: b.Date.Format(time.DateOnly), slotID: b.SlotID}] = b
	}
	return out
}

func stateOf(s model.BookingStatus) cellState {
	switch s {
	case model.BookingStatusBooked:
		return cellBooked
	case model.BookingStatusCheckedIn:
		return cellCheckedIn
	default:
		return cellFinished
	}
}

// calculateHourRange определяет диапазон часов для отображения
func calculateHourRange(slots []*model.Slot) hourRange {
	minHour, maxHour := 24, 0
	for _, s := range slots {
		startH := s.StartTime.Hour()
		endH := s.EndTime.Hour()
		if s.EndTime.Minute() > 0 {
			endH++
		}
		minHour = min(minHour, startH)
		maxHour = max(maxHour, endH)
	}
	if minHour == 24 {
		minHour, maxHour = defaultMinHour, defaultMaxHour
	}

	start := max(minHour-hourPaddingTop, 0)
	end := min(maxHour+hourPaddingBot, 24)
	return hourRange{start: start, end: end, total: end - start}
}

func drawHeader(dc *gg.Context, room *model.Room, monday time.Time) {
	sunday := monday.AddDate(0, 0, daysInWeek-1)
	title := fmt.Sprintf("Room %s (capacity %d)  %s - %s",
		room.Name, room.Capacity, monday.Format("02 Jan"), sunday.Format("02 Jan 2006"))

	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, float64(leftLabelsWidth), float64(headerHeight)/4, 0, 0.5)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	dc.SetColor(hourLabelColor)
	for i := 0; i <= hours.total; i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		label := fmt.Sprintf("%02d:00", hours.start+i)
		dc.DrawStringAnchored(label, float64(leftLabelsWidth)-8, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

func drawDayHeader(dc *gg.Context, date time.Time, x, y float64, dayWidth int) {
	dc.SetColor(textColor)
	cx := x + float64(dayWidth)/2
	dc.DrawStringAnchored(date.Format("02.01"), cx, y-28, 0.5, 0.5)
	dc.DrawStringAnchored(date.Weekday().String()[:3], cx, y-12, 0.5, 0.5)
}

func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)
	for i := 0; i <= hours.total; i++ {
		hy := y + float64(i)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

// drawSlot рисует один слот дня
func drawSlot(dc *gg.Context, slot *model.Slot, state cellState, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	startH := slot.StartTime.Duration().Hours()
	endH := slot.EndTime.Duration().Hours()

	slotY := y + (startH-float64(hours.start))*cellHeight
	slotHeight := max((endH-startH)*cellHeight, minSlotHeight)
	slotWidth := float64(dayWidth) - float64(dayPaddingX*2)
	fill := stateColor(state)

	dc.SetColor(slotShadowColor)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, slotY+2+shadowOffset, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, slotY+2, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(darkenColor(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+dayPaddingX, slotY+2, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Stroke()

	txt := slotTextColor
	if state == cellBooked {
		txt = slotBookedTextColor
	}
	dc.SetColor(txt)
	dc.DrawStringAnchored(slot.StartTime.String(), x+dayPaddingX+6, slotY+16, 0, 0)
}

func stateColor(s cellState) color.RGBA {
	switch s {
	case cellBooked:
		return slotBookedColor
	case cellCheckedIn:
		return slotCheckedInColor
	case cellFinished:
		return slotFinishedColor
	case cellInactive:
		return slotInactiveColor
	default:
		return slotFreeColor
	}
}

// darkenColor затемняет цвет на указанный множитель
func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func drawCurrentTimeLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	h := float64(now.Hour()) + float64(now.Minute())/60.0
	if h < float64(hours.start) || h > float64(hours.end) {
		return
	}
	y := float64(headerHeight) + (h-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), y, float64(leftLabelsWidth+daysInWeek*dayWidth), y)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, dayWidth int) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Free", slotFreeColor},
		{"Booked", slotBookedColor},
		{"Checked in", slotCheckedInColor},
		{"Finished", slotFinishedColor},
		{"Closed", slotInactiveColor},
	}

	const boxW, boxH = 20.0, 14.0
	lx := float64(leftLabelsWidth + daysInWeek*dayWidth + 10)
	ly := float64(imageHeight) - 160.0

	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(lx, ly, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.label, lx+boxW+8, ly+boxH/2, 0, 0.5)
		ly += boxH + 14
	}
}
