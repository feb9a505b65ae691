// Package notify delivers short user-facing messages over Telegram and email.
package notify

import (
	"context"
	"errors"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"go.uber.org/zap"
)

// ErrUnreachable is returned by a channel the user has no address for.
var ErrUnreachable = errors.New("user unreachable on this channel")

type Notifier interface {
	Notify(ctx context.Context, user *model.User, subject, body string) error
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(context.Context, *model.User, string, string) error { return nil }

// Multi sends through every channel. Channels that cannot reach the user are
// skipped; other failures are joined.
type Multi struct {
	channels []Notifier
	logger   *zap.Logger
}

func NewMulti(logger *zap.Logger, channels ...Notifier) *Multi {
	return &Multi{channels: channels, logger: logger}
}

func (m *Multi) Notify(ctx context.Context, user *model.User, subject, body string) error {
	var (
		errs      []error
		delivered int
	)
	for _, ch := range m.channels {
		err := ch.Notify(ctx, user, subject, body)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrUnreachable):
		default:
			errs = append(errs, err)
		}
	}

	if delivered == 0 && len(errs) == 0 {
		m.logger.Debug("No channel reaches user", zap.Int64("user_id", user.ID))
	}
	return errors.Join(errs...)
}
