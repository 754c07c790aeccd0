package domain

import "time"

// User is an LMS account. LastActive and LastNotification are nullable.
type User struct {
	ID               string
	Name             string
	Email            string
	Role             Role
	PasswordHash     string
	LastActive       *time.Time
	IsActive         bool
	LastNotification *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DaysSince returns whole days elapsed between t and now, or -1 when t is nil.
func DaysSince(t *time.Time, now time.Time) int {
	if t == nil {
		return -1
	}
	return int(now.Sub(*t).Hours() / 24)
}
