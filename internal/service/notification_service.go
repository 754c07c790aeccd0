package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/repository"
	apperrors "github.com/preston-56/lms-backend/pkg/util"
)

const maxPageSize = 100

// NotificationService exposes stored notifications to the API.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
}

// NewNotificationService creates the service.
func NewNotificationService(notifications repository.NotificationRepository, users repository.UserRepository) *NotificationService {
	return &NotificationService{notifications: notifications, users: users}
}

// List returns every notification, newest first.
func (s *NotificationService) List(ctx context.Context, skip, limit int) ([]domain.Notification, error) {
	skip, limit = page(skip, limit)
	return s.notifications.List(ctx, skip, limit)
}

// ListForUser returns the notifications addressed to one user.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, skip, limit int) ([]domain.Notification, error) {
	skip, limit = page(skip, limit)
	return s.notifications.ListByUser(ctx, userID, skip, limit)
}

// Create records an operator-authored notification. A nil userID is a broadcast.
func (s *NotificationService) Create(ctx context.Context, userID *string, message string) (*domain.Notification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message is required", nil)
	}
	if userID != nil {
		if _, err := uuid.Parse(*userID); err != nil {
			return nil, apperrors.NewValidationError("user_id must be a UUID", map[string]any{"user_id": *userID})
		}
		if _, err := s.users.GetByID(ctx, *userID); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	n := &domain.Notification{UserID: userID, Message: message, SentAt: time.Now().UTC()}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func page(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	return skip, limit
}
