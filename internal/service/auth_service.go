package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/preston-56/lms-backend/internal/auth"
	"github.com/preston-56/lms-backend/internal/config"
	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/repository"
	apperrors "github.com/preston-56/lms-backend/pkg/util"
)

// AuthService coordinates login and account provisioning.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	now        func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokenMgr: tokens, bcryptCost: cfg.BcryptCost, now: time.Now}
}

// Login authenticates a user by email and password. An account deactivated by
// an inactivity reminder is reactivated by a successful login; any other
// inactive account is refused.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, domain.Token, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, domain.Token{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.IsActive {
		if user.LastNotification == nil {
			return nil, domain.Token{}, apperrors.NewForbidden("inactive user")
		}
		at := s.now().UTC()
		if err := s.users.Reactivate(ctx, user.ID, at); err != nil {
			return nil, domain.Token{}, fmt.Errorf("reactivate user: %w", err)
		}
		user.IsActive = true
		user.LastActive = &at
	}
	token, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, domain.Token{}, err
	}
	return user, token, nil
}

// CreateUser provisions an account with a hashed password.
func (s *AuthService) CreateUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
