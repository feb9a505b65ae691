package notify

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/config"
	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 30 * time.Second

// Email sends plain-text mail through an SMTP relay.
type Email struct {
	cfg    config.SMTPConfig
	client *mail.Client
	send   func(ctx context.Context, msg *mail.Msg) error
	now    func() time.Time
}

func NewEmail(cfg config.SMTPConfig) (*Email, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(deadlineDialer(cfg.Timeout)),
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	e := &Email{cfg: cfg, client: client, now: time.Now}
	e.send = func(ctx context.Context, msg *mail.Msg) error {
		return e.client.DialAndSendWithContext(ctx, msg)
	}
	return e, nil
}

func (e *Email) Notify(ctx context.Context, user *model.User, subject, body string) error {
	if user.Email == "" {
		return ErrUnreachable
	}

	msg, err := e.message(user.Email, subject, body)
	if err != nil {
		return fmt.Errorf("compose mail to user %d: %w", user.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	if err := e.send(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to user %d: %w", user.ID, err)
	}
	return nil
}

func (e *Email) message(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(e.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(strings.NewReplacer("\r", "", "\n", " ").Replace(subject))
	msg.SetDateWithValue(e.now())
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// deadlineDialer bounds the whole SMTP conversation by the ctx deadline or timeout.
func deadlineDialer(timeout time.Duration) mail.DialContextFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}

		deadline := time.Now().Add(timeout)
		if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
			deadline = dl
		}
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}
