package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/preston-56/lms-backend/internal/config"
)

// ResendMailer delivers through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

var _ Mailer = (*ResendMailer)(nil)

// NewResendMailer builds a Resend mailer from config.
func NewResendMailer(cfg config.MailConfig) *ResendMailer {
	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}
	return &ResendMailer{client: resend.NewClient(cfg.ResendAPIKey), from: from}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
