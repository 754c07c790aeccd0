package dto

import (
	"time"

	"github.com/preston-56/lms-backend/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Role             domain.Role `json:"role"`
	IsActive         bool        `json:"is_active"`
	LastActive       *time.Time  `json:"last_active"`
	LastNotification *time.Time  `json:"last_notification"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             u.Role,
		IsActive:         u.IsActive,
		LastActive:       u.LastActive,
		LastNotification: u.LastNotification,
	}
}
