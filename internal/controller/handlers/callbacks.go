package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleCallbackQuery обрабатывает нажатия на inline кнопки
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	cq := update.CallbackQuery

	// Убираем "часики" на кнопке в любом случае
	defer func() {
		if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID}); err != nil {
			h.logger.Warn("Failed to answer callback", zap.Error(err))
		}
	}()

	chatID := cq.From.ID
	if cq.Message.Message != nil {
		chatID = cq.Message.Message.Chat.ID
	}

	user, ok := h.requireUser(ctx, b, chatID)
	if !ok {
		return
	}

	h.send(ctx, b, chatID, h.callbackReply(ctx, user, cq.Data))
}

func (h *Handlers) callbackReply(ctx context.Context, user *model.User, data string) reply {
	switch {
	case strings.HasPrefix(data, CancelBooking):
		id := strings.TrimPrefix(data, CancelBooking)
		return reply{
			Text: fmt.Sprintf("Cancel booking #%s?", id),
			Keyboard: [][]button{{
				{Text: "Yes, cancel", Data: ConfirmCancel + id},
			}},
		}
	case strings.HasPrefix(data, ConfirmCancel):
		return h.cancelReply(ctx, user, strings.TrimPrefix(data, ConfirmCancel))
	case strings.HasPrefix(data, CheckInBooking):
		return h.checkInReply(ctx, user, strings.TrimPrefix(data, CheckInBooking))
	default:
		h.logger.Warn("Unknown callback data", zap.String("data", data))
		return reply{Text: "❓ Unknown action."}
	}
}
