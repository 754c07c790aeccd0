package mail

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/preston-56/lms-backend/internal/config"
)

// SMTPMailer delivers through an SMTP relay with STARTTLS.
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer builds an SMTP mailer from config.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.from, m.fromName)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	// gomail has no context support; the send keeps running in the
	// background if ctx ends first.
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
