package handlers

import (
	"bytes"
	"context"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireUser находит пользователя по chat id
// Возвращает user и true если OK, иначе отправляет подсказку
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, chatID int64) (*model.User, bool) {
	user, err := h.users.UserByChat(ctx, chatID)
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("chat_id", chatID), zap.Error(err))
		h.send(ctx, b, chatID, reply{Text: "❌ Something went wrong. Please try again later."})
		return nil, false
	}
	if user == nil {
		h.send(ctx, b, chatID, reply{Text: "❌ This chat is not linked yet. Send /start <your student code>."})
		return nil, false
	}
	return user, true
}

// send отправляет ответ и логирует если не удалось
func (h *Handlers) send(ctx context.Context, b *bot.Bot, chatID int64, r reply) {
	var markup models.ReplyMarkup
	if len(r.Keyboard) > 0 {
		markup = inlineKeyboard(r.Keyboard)
	}

	var err error
	if r.Photo != nil {
		_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(r.Photo)},
			Caption:     r.Text,
			ReplyMarkup: markup,
		})
	} else {
		_, err = b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        r.Text,
			ReplyMarkup: markup,
		})
	}
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

func inlineKeyboard(rows [][]button) *models.InlineKeyboardMarkup {
	kb := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		line := make([]models.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			line = append(line, models.InlineKeyboardButton{Text: btn.Text, CallbackData: btn.Data})
		}
		kb = append(kb, line)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: kb}
}
