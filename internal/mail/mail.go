// Package mail dispatches plain-text emails through a configurable driver.
package mail

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/preston-56/lms-backend/internal/config"
)

var (
	ErrNoRecipient   = errors.New("mail: recipient required")
	ErrUnknownDriver = errors.New("mail: unknown driver")
)

// Message is a single plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends one message and blocks until the driver accepted or refused it.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the Mailer selected by cfg.Driver.
func New(cfg config.MailConfig, logger *zap.Logger) (Mailer, error) {
	switch cfg.Driver {
	case "", "console":
		return NewConsoleMailer(cfg.From, logger), nil
	case "smtp":
		return NewSMTPMailer(cfg), nil
	case "sendgrid":
		if cfg.SendgridAPIKey == "" {
			return nil, errors.New("mail: SENDGRID_API_KEY not set")
		}
		return NewSendgridMailer(cfg), nil
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, errors.New("mail: RESEND_API_KEY not set")
		}
		return NewResendMailer(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func validate(msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	if _, err := netmail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("mail: invalid recipient %q: %w", msg.To, err)
	}
	return nil
}
