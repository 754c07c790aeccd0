package service

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/preston-56/lms-backend/internal/config"
	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/mail"
	"github.com/preston-56/lms-backend/internal/repository"
)

const reminderTemplate = `Hello {{.Name}},

We noticed you haven't been active on the learning platform since {{.LastActive}}.

Your courses are waiting for you. Log in and pick up where you left off!

Best regards,
{{.Sender}}
`

var reminderTmpl = template.Must(template.New("reminder").Parse(reminderTemplate))

// NotificationMessage is the text stored on the Notification row.
func NotificationMessage(at time.Time) string {
	return "Inactivity notification sent on " + at.Format("2006-01-02")
}

// Notifier emails one inactive user and stages the bookkeeping rows.
type Notifier struct {
	mailer     mail.Mailer
	subject    string
	sender     string
	deactivate bool
}

// NewNotifier builds a notifier. deactivate mirrors SchedulerConfig.DeactivateOnNotify.
func NewNotifier(mailer mail.Mailer, mailCfg config.MailConfig, deactivate bool) *Notifier {
	subject := mailCfg.Subject
	if subject == "" {
		subject = "We miss you in your online courses!"
	}
	sender := mailCfg.FromName
	if sender == "" {
		sender = "The LMS Team"
	}
	return &Notifier{mailer: mailer, subject: subject, sender: sender, deactivate: deactivate}
}

// Deactivates reports whether notified users are also marked inactive.
func (n *Notifier) Deactivates() bool { return n.deactivate }

// Notify sends the reminder and, only once the mail layer accepted it,
// writes the Notification, EmailLog and last_notification update through sess.
// ctx bounds the send only; the writes outlive its deadline so that a sent
// reminder is always recorded.
func (n *Notifier) Notify(ctx context.Context, sess repository.Session, user domain.User, now time.Time) error {
	body, err := n.render(user)
	if err != nil {
		return err
	}

	if err := n.mailer.Send(ctx, mail.Message{To: user.Email, Subject: n.subject, Body: body}); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	ctx, cancel := storeContext(ctx)
	defer cancel()

	uid := user.ID
	if err := sess.Notifications().Create(ctx, &domain.Notification{
		UserID:  &uid,
		Message: NotificationMessage(now),
		SentAt:  now,
	}); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	if err := sess.Users().MarkNotified(ctx, user.ID, now, n.deactivate); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	if err := sess.EmailLogs().Create(ctx, &domain.EmailLog{
		Recipient: user.Email,
		Subject:   n.subject,
		Body:      body,
		SentAt:    now,
	}); err != nil {
		return fmt.Errorf("create email log: %w", err)
	}
	return nil
}

func (n *Notifier) render(user domain.User) (string, error) {
	lastActive := "a while"
	if user.LastActive != nil {
		lastActive = user.LastActive.Format("January 2, 2006")
	}
	name := user.Name
	if name == "" {
		name = "there"
	}

	var buf bytes.Buffer
	err := reminderTmpl.Execute(&buf, struct {
		Name, LastActive, Sender string
	}{name, lastActive, n.sender})
	if err != nil {
		return "", fmt.Errorf("render reminder: %w", err)
	}
	return buf.String(), nil
}
