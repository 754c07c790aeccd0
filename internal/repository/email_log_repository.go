package repository

import (
	"context"
	"time"

	"github.com/preston-56/lms-backend/internal/domain"
)

// EmailLogRepository records outbound emails.
type EmailLogRepository interface {
	Create(ctx context.Context, log *domain.EmailLog) error
}

type emailLogRepository struct {
	db DBTX
}

// NewEmailLogRepository constructs repository.
func NewEmailLogRepository(db DBTX) EmailLogRepository {
	return &emailLogRepository{db: db}
}

func (r *emailLogRepository) Create(ctx context.Context, log *domain.EmailLog) error {
	const query = `
        INSERT INTO email_logs (recipient, subject, body, sent_at)
        VALUES ($1, $2, $3, COALESCE($4::timestamptz, NOW()))
        RETURNING id, sent_at`
	return r.db.QueryRow(ctx, query, log.Recipient, log.Subject, log.Body, nullableTime(log.SentAt)).Scan(&log.ID, &log.SentAt)
}

// nullableTime maps the zero time to NULL so the column default applies.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
