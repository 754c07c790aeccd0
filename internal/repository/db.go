package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so repositories run
// unchanged inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Session is one unit of work. Writes become visible on Commit; Begin opens
// a nested session backed by a savepoint.
type Session interface {
	Users() UserRepository
	Notifications() NotificationRepository
	EmailLogs() EmailLogRepository
	Begin(ctx context.Context) (Session, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWork opens sessions.
type UnitOfWork interface {
	Begin(ctx context.Context) (Session, error)
}

var errNoDatabase = errors.New("postgres pool not configured")

// Conn returns pool as a DBTX. A nil pool yields a DBTX that fails every call.
func Conn(pool *pgxpool.Pool) DBTX {
	if pool == nil {
		return noDatabase{}
	}
	return pool
}

type noDatabase struct{}

func (noDatabase) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errNoDatabase
}

func (noDatabase) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errNoDatabase
}

func (noDatabase) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{err: errNoDatabase}
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type pgUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork returns a Postgres-backed unit of work.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgUnitOfWork{pool: pool}
}

func (u *pgUnitOfWork) Begin(ctx context.Context) (Session, error) {
	if u.pool == nil {
		return nil, errNoDatabase
	}
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return newPgSession(tx), nil
}

type pgSession struct {
	tx            pgx.Tx
	users         UserRepository
	notifications NotificationRepository
	emailLogs     EmailLogRepository
}

func newPgSession(tx pgx.Tx) *pgSession {
	return &pgSession{
		tx:            tx,
		users:         NewUserRepository(tx),
		notifications: NewNotificationRepository(tx),
		emailLogs:     NewEmailLogRepository(tx),
	}
}

func (s *pgSession) Users() UserRepository                 { return s.users }
func (s *pgSession) Notifications() NotificationRepository { return s.notifications }
func (s *pgSession) EmailLogs() EmailLogRepository         { return s.emailLogs }

func (s *pgSession) Begin(ctx context.Context) (Session, error) {
	nested, err := s.tx.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return newPgSession(nested), nil
}

func (s *pgSession) Commit(ctx context.Context) error {
	return s.tx.Commit(ctx)
}

// Rollback is a no-op after a successful Commit.
func (s *pgSession) Rollback(ctx context.Context) error {
	if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
