package dto

import (
	"time"

	"github.com/preston-56/lms-backend/internal/domain"
)

// CreateNotificationRequest payload for operator notifications.
type CreateNotificationRequest struct {
	UserID  *string `json:"user_id"`
	Message string  `json:"message"`
}

// NotificationResponse is the public view of a notification.
type NotificationResponse struct {
	ID      string    `json:"id"`
	UserID  *string   `json:"user_id"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// NewNotificationResponses maps domain notifications.
func NewNotificationResponses(items []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{ID: n.ID, UserID: n.UserID, Message: n.Message, SentAt: n.SentAt})
	}
	return out
}
