package repository

import (
	"context"
	"time"

	"github.com/preston-56/lms-backend/internal/domain"
)

// NotificationRepository stores notification records. Rows are append-only.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, skip, limit int) ([]domain.Notification, error)
	ListByUser(ctx context.Context, userID string, skip, limit int) ([]domain.Notification, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type notificationRepository struct {
	db DBTX
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, message, sent_at)
        VALUES ($1, $2, COALESCE($3::timestamptz, NOW()))
        RETURNING id, sent_at`
	return r.db.QueryRow(ctx, query, n.UserID, n.Message, nullableTime(n.SentAt)).Scan(&n.ID, &n.SentAt)
}

func (r *notificationRepository) List(ctx context.Context, skip, limit int) ([]domain.Notification, error) {
	const query = `
        SELECT id, user_id, message, sent_at
        FROM notifications ORDER BY sent_at DESC OFFSET $1 LIMIT $2`
	return r.list(ctx, query, skip, limit)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, skip, limit int) ([]domain.Notification, error) {
	const query = `
        SELECT id, user_id, message, sent_at
        FROM notifications WHERE user_id=$1 ORDER BY sent_at DESC OFFSET $2 LIMIT $3`
	return r.list(ctx, query, userID, skip, limit)
}

func (r *notificationRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE sent_at >= $1`
	var count int
	err := r.db.QueryRow(ctx, query, since).Scan(&count)
	return count, err
}

func (r *notificationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Notification, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.SentAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
