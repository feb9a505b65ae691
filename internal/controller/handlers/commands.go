package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/studyroom_booking/internal/controller/render"
	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "📚 Study room bot\n\n" +
	"/start <code> - link this chat to your account\n" +
	"/mybookings - your upcoming and past bookings\n" +
	"/cancel <id> - cancel a booking\n" +
	"/rooms - list rooms\n" +
	"/week <room id> - room occupancy for this week\n" +
	"/help - this message\n\n" +
	"For staff:\n" +
	"/today - today's bookings\n" +
	"/checkin <id> - confirm arrival"

// HandleStart обрабатывает команду /start <code>
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	h.send(ctx, b, chatID, h.startReply(ctx, chatID, commandArg(update.Message.Text)))
}

func (h *Handlers) startReply(ctx context.Context, chatID int64, code string) reply {
	if code == "" {
		return reply{Text: "👋 Hi! Send /start <your student or staff code> to link this chat.\n\n" + helpText}
	}

	user, err := h.users.LinkTelegram(ctx, code, chatID)
	if err != nil {
		h.logger.Error("Failed to link telegram chat", zap.String("code", code), zap.Error(err))
		return reply{Text: userMessage(err)}
	}

	h.logger.Info("Telegram chat linked", zap.Int64("user_id", user.ID), zap.Int64("chat_id", chatID))
	return reply{Text: fmt.Sprintf("👋 Hi, %s! Reminders will arrive here.\nReputation: %d\n\n%s",
		user.FullName, user.Reputation, helpText)}
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.send(ctx, b, update.Message.Chat.ID, reply{Text: helpText})
}

// HandleMyBookings обрабатывает команду /mybookings
func (h *Handlers) HandleMyBookings(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	user, ok := h.requireUser(ctx, b, chatID)
	if !ok {
		return
	}
	h.send(ctx, b, chatID, h.myBookingsReply(ctx, user))
}

func (h *Handlers) myBookingsReply(ctx context.Context, user *model.User) reply {
	bookings, err := h.bookings.ListMine(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list bookings", zap.Int64("user_id", user.ID), zap.Error(err))
		return reply{Text: userMessage(err)}
	}
	if len(bookings) == 0 {
		return reply{Text: "📭 You have no bookings yet."}
	}

	var sb strings.Builder
	sb.WriteString("📅 Your bookings:\n\n")

	var kb [][]button
	for i, bk := range bookings {
		if i == maxBookingsShown {
			fmt.Fprintf(&sb, "\n…and %d more", len(bookings)-maxBookingsShown)
			break
		}
		sb.WriteString(FormatBooking(bk))
		sb.WriteString("\n")

		if bk.Status == model.BookingStatusBooked {
			kb = append(kb, []button{{
				Text: fmt.Sprintf("❌ Cancel #%d", bk.ID),
				Data: CancelBooking + strconv.FormatInt(bk.ID, 10),
			}})
		}
	}
	return reply{Text: sb.String(), Keyboard: kb}
}

// HandleCancel обрабатывает команду /cancel <id>
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	user, ok := h.requireUser(ctx, b, chatID)
	if !ok {
		return
	}
	h.send(ctx, b, chatID, h.cancelReply(ctx, user, commandArg(update.Message.Text)))
}

func (h *Handlers) cancelReply(ctx context.Context, user *model.User, arg string) reply {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return reply{Text: "Usage: /cancel <booking id>"}
	}

	booking, err := h.bookings.Cancel(ctx, user, id)
	if err != nil {
		return reply{Text: userMessage(err)}
	}
	if booking == nil {
		return reply{Text: fmt.Sprintf("❌ Booking #%d not found.", id)}
	}
	return reply{Text: fmt.Sprintf("✅ Booking #%d canceled.", id)}
}

// HandleRooms обрабатывает команду /rooms
func (h *Handlers) HandleRooms(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.send(ctx, b, update.Message.Chat.ID, h.roomsReply(ctx))
}

func (h *Handlers) roomsReply(ctx context.Context) reply {
	rooms, err := h.rooms.ListRooms(ctx)
	if err != nil {
		h.logger.Error("Failed to list rooms", zap.Error(err))
		return reply{Text: userMessage(err)}
	}
	if len(rooms) == 0 {
		return reply{Text: "No rooms configured yet."}
	}

	var sb strings.Builder
	sb.WriteString("🏫 Rooms:\n\n")
	for _, r := range rooms {
		fmt.Fprintf(&sb, "%d. %s, up to %d people (%s)\n", r.ID, r.Name, r.Capacity, r.Status)
	}
	return reply{Text: sb.String()}
}

// HandleWeek отправляет картинку занятости комнаты на текущую неделю
func (h *Handlers) HandleWeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.send(ctx, b, update.Message.Chat.ID, h.weekReply(ctx, commandArg(update.Message.Text)))
}

func (h *Handlers) weekReply(ctx context.Context, arg string) reply {
	roomID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || roomID <= 0 {
		return reply{Text: "Usage: /week <room id>"}
	}

	room, err := h.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return reply{Text: userMessage(err)}
	}
	slots, err := h.rooms.ListSlots(ctx)
	if err != nil {
		return reply{Text: userMessage(err)}
	}

	now := h.now()
	monday := render.WeekStart(now.In(h.loc))
	bookings, err := h.bookings.ListForRoom(ctx, roomID, monday, monday.AddDate(0, 0, 6))
	if err != nil {
		return reply{Text: userMessage(err)}
	}

	png, err := render.RoomWeek(render.WeekInput{
		Room:     room,
		Start:    monday,
		Slots:    slots,
		Bookings: bookings,
		Location: h.loc,
		Now:      now,
	})
	if err != nil {
		h.logger.Error("Failed to render week", zap.Int64("room_id", roomID), zap.Error(err))
		return reply{Text: userMessage(err)}
	}
	return reply{Text: fmt.Sprintf("📅 %s, week of %s", room.Name, monday.Format("02.01.2006")), Photo: png}
}

// HandleToday обрабатывает команду /today (только для сотрудников)
func (h *Handlers) HandleToday(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	user, ok := h.requireUser(ctx, b, chatID)
	if !ok {
		return
	}
	h.send(ctx, b, chatID, h.todayReply(ctx, user))
}

func (h *Handlers) todayReply(ctx context.Context, user *model.User) reply {
	if !user.Role.IsStaff() {
		return reply{Text: "❌ This command is for library staff."}
	}

	today := model.DateOf(h.now().In(h.loc))
	bookings, err := h.bookings.ListByDate(ctx, today)
	if err != nil {
		h.logger.Error("Failed to list today's bookings", zap.Error(err))
		return reply{Text: userMessage(err)}
	}
	if len(bookings) == 0 {
		return reply{Text: "📭 No bookings today."}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Bookings on %s:\n\n", today.Format("02.01.2006"))

	var kb [][]button
	for i, bk := range bookings {
		if i == maxTodayShown {
			fmt.Fprintf(&sb, "\n…and %d more", len(bookings)-maxTodayShown)
			break
		}
		sb.WriteString(FormatBooking(bk))
		sb.WriteString("\n")

		if bk.Status == model.BookingStatusBooked {
			kb = append(kb, []button{{
				Text: fmt.Sprintf("✅ Check in #%d", bk.ID),
				Data: CheckInBooking + strconv.FormatInt(bk.ID, 10),
			}})
		}
	}
	return reply{Text: sb.String(), Keyboard: kb}
}

// HandleCheckIn обрабатывает команду /checkin <id>
func (h *Handlers) HandleCheckIn(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	user, ok := h.requireUser(ctx, b, chatID)
	if !ok {
		return
	}
	h.send(ctx, b, chatID, h.checkInReply(ctx, user, commandArg(update.Message.Text)))
}

func (h *Handlers) checkInReply(ctx context.Context, user *model.User, arg string) reply {
	if !user.Role.IsStaff() {
		return reply{Text: "❌ This command is for library staff."}
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return reply{Text: "Usage: /checkin <booking id>"}
	}

	if _, err := h.bookings.CheckIn(ctx, id); err != nil {
		return reply{Text: userMessage(err)}
	}
	h.logger.Info("Checked in via bot", zap.Int64("booking_id", id), zap.Int64("staff_id", user.ID))
	return reply{Text: fmt.Sprintf("✅ Booking #%d checked in.", id)}
}
