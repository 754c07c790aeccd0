package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/mail"
	"github.com/preston-56/lms-backend/internal/repository"
	apperrors "github.com/preston-56/lms-backend/pkg/util"
)

// EmailService sends ad-hoc emails on behalf of staff and logs them.
type EmailService struct {
	mailer mail.Mailer
	logs   repository.EmailLogRepository
	logger *zap.Logger
}

// NewEmailService builds the service.
func NewEmailService(mailer mail.Mailer, logs repository.EmailLogRepository, logger *zap.Logger) *EmailService {
	return &EmailService{mailer: mailer, logs: logs, logger: logger.Named("email")}
}

// Send dispatches the message and writes an EmailLog row once the mail layer accepted it.
func (s *EmailService) Send(ctx context.Context, to, subject, body string) (*domain.EmailLog, error) {
	to = strings.TrimSpace(to)
	if to == "" || strings.TrimSpace(subject) == "" {
		return nil, apperrors.NewValidationError("recipient and subject are required", nil)
	}
	if err := s.mailer.Send(ctx, mail.Message{To: to, Subject: subject, Body: body}); err != nil {
		s.logger.Error("send email", zap.String("to", to), zap.Error(err))
		return nil, apperrors.NewDomainError("EMAIL_FAILED", fmt.Sprintf("could not send email: %v", err), 502, nil)
	}
	entry := &domain.EmailLog{Recipient: to, Subject: subject, Body: body, SentAt: time.Now().UTC()}
	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
