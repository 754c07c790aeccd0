package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/repository"
	apperrors "github.com/preston-56/lms-backend/pkg/util"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)

	tok, err := tm.GenerateToken("user-1", domain.RoleInstructor)
	require.NoError(t, err)

	claims, err := tm.ParseToken(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, domain.RoleInstructor, claims.Role)

	_, err = NewTokenManager("other", time.Minute).ParseToken(tok.Value)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := tm.GenerateToken("user-1", domain.RoleStudent)
	require.NoError(t, err)
	_, err = tm.ParseToken(tok.Value)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

type stubUsers struct {
	repository.UserRepository
	users   map[string]*domain.User
	touched []string
}

func (s *stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (s *stubUsers) TouchLastActive(_ context.Context, id string, _ time.Time) error {
	s.touched = append(s.touched, id)
	return nil
}

func newTestApp(tm *TokenManager, users *stubUsers, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).SendString(de.Code)
	}})
	mw := NewAuthMiddleware(tm, users, zap.NewNop())
	app.Get("/x", mw.Handle, guard, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(string(p.Role))
	})
	return app
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	recent := time.Now()
	users := &stubUsers{users: map[string]*domain.User{
		"admin":   {ID: "admin", Role: domain.RoleAdmin, IsActive: true},
		"student": {ID: "student", Role: domain.RoleStudent, IsActive: true, LastActive: &recent},
		"gone":    {ID: "gone", Role: domain.RoleStudent, IsActive: false},
	}}
	app := newTestApp(tm, users, RequireAdmin())

	token := func(id string, role domain.Role) string {
		tok, err := tm.GenerateToken(id, role)
		require.NoError(t, err)
		return "Bearer " + tok.Value
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"unknown user", token("nobody", domain.RoleAdmin), http.StatusUnauthorized},
		{"inactive user", token("gone", domain.RoleStudent), http.StatusForbidden},
		{"wrong role", token("student", domain.RoleStudent), http.StatusForbidden},
		{"admin", token("admin", domain.RoleAdmin), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	// admin had no last_active and was touched; student was active a moment ago
	assert.Contains(t, users.touched, "admin")
	assert.NotContains(t, users.touched, "student")
}
