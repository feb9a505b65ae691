package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageSender is the part of *bot.Bot used for delivery.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram sends to users who linked a chat through the bot.
type Telegram struct {
	sender MessageSender
}

func NewTelegram(sender MessageSender) *Telegram {
	return &Telegram{sender: sender}
}

func (t *Telegram) Notify(ctx context.Context, user *model.User, subject, body string) error {
	if user.TelegramChatID == nil {
		return ErrUnreachable
	}

	_, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    *user.TelegramChatID,
		Text:      fmt.Sprintf("<b>%s</b>\n\n%s", html.EscapeString(subject), html.EscapeString(body)),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("telegram send to user %d: %w", user.ID, err)
	}
	return nil
}
