package service

import (
	"context"
	"fmt"
	"time"

	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/repository"
)

// InactivityCutoff returns the instant before which last_active counts as stale.
func InactivityCutoff(now time.Time, threshold time.Duration) time.Time {
	return now.Add(-threshold)
}

// IsInactive reports whether the user qualifies for an inactivity reminder.
// Users that never recorded activity do not qualify.
func IsInactive(user domain.User, cutoff time.Time) bool {
	if !user.IsActive || user.LastActive == nil {
		return false
	}
	return user.LastActive.Before(cutoff)
}

// FindInactiveUsers runs the inactivity query against users.
func FindInactiveUsers(ctx context.Context, users repository.UserRepository, now time.Time, threshold time.Duration) ([]domain.User, error) {
	cutoff := InactivityCutoff(now, threshold)
	candidates, err := users.ListInactive(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list inactive users: %w", err)
	}
	out := candidates[:0]
	for _, u := range candidates {
		if IsInactive(u, cutoff) {
			out = append(out, u)
		}
	}
	return out, nil
}
