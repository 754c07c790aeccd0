package domain

import (
	"strings"
	"time"
)

// Role differentiates admins, instructors and students.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// ParseRole normalizes a role name, defaulting unknown values to student.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleInstructor:
		return RoleInstructor
	default:
		return RoleStudent
	}
}

// Token represents issued access token metadata.
type Token struct {
	Value     string
	UserID    string
	Role      Role
	ExpiresAt time.Time
}
