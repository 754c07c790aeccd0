package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/preston-56/lms-backend/internal/domain"
)

// UserRepository defines persistence access for LMS users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// ListInactive returns active users whose last_active is before cutoff.
	// Users without last_active are never returned.
	ListInactive(ctx context.Context, cutoff time.Time) ([]domain.User, error)
	MarkNotified(ctx context.Context, id string, at time.Time, deactivate bool) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	// Reactivate sets is_active and records at as the latest activity.
	Reactivate(ctx context.Context, id string, at time.Time) error
	CountActivity(ctx context.Context, cutoff, recentSince time.Time) (domain.UserCounts, error)
	ListRecentlyActive(ctx context.Context, limit int) ([]domain.User, error)
	SampleInactive(ctx context.Context, cutoff time.Time, limit int) ([]domain.User, error)
}

const userColumns = `id, name, email, role, password_hash, last_active, is_active, last_notification, created_at, updated_at`

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, role, password_hash, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, last_active, created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		string(user.Role),
		user.PasswordHash,
		user.IsActive,
	).Scan(&user.ID, &user.LastActive, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *userRepository) ListInactive(ctx context.Context, cutoff time.Time) ([]domain.User, error) {
	query := `SELECT ` + userColumns + `
        FROM users
        WHERE is_active = TRUE AND last_active IS NOT NULL AND last_active < $1`
	return r.list(ctx, query, cutoff)
}

func (r *userRepository) MarkNotified(ctx context.Context, id string, at time.Time, deactivate bool) error {
	const query = `
        UPDATE users
        SET last_notification=$1,
            is_active = CASE WHEN $2::boolean THEN FALSE ELSE is_active END,
            updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.db.Exec(ctx, query, at, deactivate, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET last_active=$1 WHERE id=$2`
	_, err := r.db.Exec(ctx, query, at, id)
	return err
}

func (r *userRepository) Reactivate(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET is_active=TRUE, last_active=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) CountActivity(ctx context.Context, cutoff, recentSince time.Time) (domain.UserCounts, error) {
	const query = `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE is_active),
            COUNT(*) FILTER (WHERE NOT is_active),
            COUNT(*) FILTER (WHERE last_active IS NULL),
            COUNT(*) FILTER (WHERE is_active AND last_active < $1),
            COUNT(*) FILTER (WHERE last_active >= $2)
        FROM users`

	var counts domain.UserCounts
	err := r.db.QueryRow(ctx, query, cutoff, recentSince).Scan(
		&counts.TotalUsers,
		&counts.ActiveUsers,
		&counts.InactiveUsers,
		&counts.UsersMissingLastActive,
		&counts.PotentialInactiveUsers,
		&counts.RecentlyActiveUsers,
	)
	return counts, err
}

func (r *userRepository) ListRecentlyActive(ctx context.Context, limit int) ([]domain.User, error) {
	query := `SELECT ` + userColumns + `
        FROM users
        WHERE last_active IS NOT NULL
        ORDER BY last_active DESC
        LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *userRepository) SampleInactive(ctx context.Context, cutoff time.Time, limit int) ([]domain.User, error) {
	query := `SELECT ` + userColumns + `
        FROM users
        WHERE is_active = TRUE AND last_active < $1
        ORDER BY last_active ASC
        LIMIT $2`
	return r.list(ctx, query, cutoff, limit)
}

func (r *userRepository) list(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.PasswordHash,
		&user.LastActive,
		&user.IsActive,
		&user.LastNotification,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
