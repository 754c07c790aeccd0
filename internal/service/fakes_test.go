package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/mail"
	"github.com/preston-56/lms-backend/internal/repository"
)

// memStore is an in-memory database. Writes made through a memSession are
// staged and only applied when the outermost session commits.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*domain.User
	notifications []domain.Notification
	emailLogs     []domain.EmailLog
	commitErr     error
	commits       int
	// broken mimics a connection closed by a cancelled statement.
	broken        bool
}

func newMemStore(users ...domain.User) *memStore {
	s := &memStore{users: make(map[string]*domain.User)}
	for i := range users {
		u := users[i]
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		s.users[u.ID] = &u
	}
	return s
}

func (s *memStore) Begin(context.Context) (repository.Session, error) {
	return &memSession{store: s}, nil
}

func (s *memStore) notificationsFor(userID string) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.notifications {
		if n.UserID != nil && *n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (s *memStore) user(id string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

type memSession struct {
	store  *memStore
	parent *memSession
	ops    []func(*memStore)
	done   bool
}

// stage queues op. A write issued with a done context breaks the
// connection, after which the outermost commit fails.
func (s *memSession) stage(ctx context.Context, op func(*memStore)) error {
	if err := ctx.Err(); err != nil {
		s.store.mu.Lock()
		s.store.broken = true
		s.store.mu.Unlock()
		return err
	}
	s.ops = append(s.ops, op)
	return nil
}

func (s *memSession) Users() repository.UserRepository { return memUsers{sess: s} }
func (s *memSession) Notifications() repository.NotificationRepository {
	return memNotifications{sess: s}
}
func (s *memSession) EmailLogs() repository.EmailLogRepository { return memEmailLogs{sess: s} }

func (s *memSession) Begin(ctx context.Context) (repository.Session, error) {
	if err := s.stage(ctx, func(*memStore) {}); err != nil {
		return nil, err
	}
	return &memSession{store: s.store, parent: s}, nil
}

func (s *memSession) Commit(ctx context.Context) error {
	if s.done {
		return errors.New("session closed")
	}
	s.done = true
	if s.parent != nil {
		if err := s.stage(ctx, func(*memStore) {}); err != nil {
			return err
		}
		s.parent.ops = append(s.parent.ops, s.ops...)
		return nil
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.store.broken {
		return errors.New("conn closed")
	}
	if s.store.commitErr != nil {
		return s.store.commitErr
	}
	for _, op := range s.ops {
		op(s.store)
	}
	s.store.commits++
	return nil
}

func (s *memSession) Rollback(context.Context) error {
	s.done = true
	s.ops = nil
	return nil
}

// memUsers implements the parts of UserRepository the pipeline touches.
type memUsers struct {
	repository.UserRepository
	sess *memSession
}

func (r memUsers) ListInactive(_ context.Context, cutoff time.Time) ([]domain.User, error) {
	r.sess.store.mu.Lock()
	defer r.sess.store.mu.Unlock()
	var out []domain.User
	for _, u := range r.sess.store.users {
		if u.IsActive && u.LastActive != nil && u.LastActive.Before(cutoff) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r memUsers) MarkNotified(ctx context.Context, id string, at time.Time, deactivate bool) error {
	return r.sess.stage(ctx, func(s *memStore) {
		u := s.users[id]
		u.LastNotification = &at
		if deactivate {
			u.IsActive = false
		}
	})
}

type memNotifications struct {
	repository.NotificationRepository
	sess *memSession
}

func (r memNotifications) Create(ctx context.Context, n *domain.Notification) error {
	row := *n
	row.ID = uuid.NewString()
	return r.sess.stage(ctx, func(s *memStore) { s.notifications = append(s.notifications, row) })
}

type memEmailLogs struct {
	sess *memSession
}

func (r memEmailLogs) Create(ctx context.Context, l *domain.EmailLog) error {
	row := *l
	return r.sess.stage(ctx, func(s *memStore) { s.emailLogs = append(s.emailLogs, row) })
}

// fakeMailer fails for the recipients listed in failFor. afterSend runs
// after every delivered message.
type fakeMailer struct {
	mu        sync.Mutex
	failFor   map[string]bool
	sent      []mail.Message
	afterSend func()
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	if m.failFor[msg.To] {
		m.mu.Unlock()
		return errors.New("smtp: 550 mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	hook := m.afterSend
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

type countingDiagnoser struct {
	calls int
}

func (d *countingDiagnoser) Diagnose(context.Context, time.Duration) (*domain.DiagnosticsResult, error) {
	d.calls++
	return &domain.DiagnosticsResult{}, nil
}

func daysAgo(now time.Time, days int) *time.Time {
	t := now.Add(-time.Duration(days) * 24 * time.Hour)
	return &t
}

// userTable is a map-backed UserRepository for the account services.
type userTable struct {
	repository.UserRepository
	mu          sync.Mutex
	byID        map[string]*domain.User
	reactivated []string
}

func newUserTable(users ...domain.User) *userTable {
	t := &userTable{byID: make(map[string]*domain.User)}
	for i := range users {
		u := users[i]
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		t.byID[u.ID] = &u
	}
	return t
}

func (t *userTable) Create(_ context.Context, u *domain.User) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	u.ID = uuid.NewString()
	row := *u
	t.byID[u.ID] = &row
	return nil
}

func (t *userTable) GetByID(_ context.Context, id string) (*domain.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	row := *u
	return &row, nil
}

func (t *userTable) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range t.byID {
		if u.Email == email {
			row := *u
			return &row, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (t *userTable) Reactivate(_ context.Context, id string, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.IsActive = true
	u.LastActive = &at
	t.reactivated = append(t.reactivated, id)
	return nil
}

// notificationLog records rows and the paging arguments it was asked for.
type notificationLog struct {
	repository.NotificationRepository
	rows            []domain.Notification
	skip, limit     int
	listedForUserID string
}

func (l *notificationLog) Create(_ context.Context, n *domain.Notification) error {
	n.ID = uuid.NewString()
	l.rows = append(l.rows, *n)
	return nil
}

func (l *notificationLog) List(_ context.Context, skip, limit int) ([]domain.Notification, error) {
	l.skip, l.limit = skip, limit
	return l.rows, nil
}

func (l *notificationLog) ListByUser(_ context.Context, userID string, skip, limit int) ([]domain.Notification, error) {
	l.skip, l.limit, l.listedForUserID = skip, limit, userID
	var out []domain.Notification
	for _, n := range l.rows {
		if n.UserID != nil && *n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

type emailLogSink struct {
	rows []domain.EmailLog
	err  error
}

func (s *emailLogSink) Create(_ context.Context, l *domain.EmailLog) error {
	if s.err != nil {
		return s.err
	}
	l.ID = uuid.NewString()
	s.rows = append(s.rows, *l)
	return nil
}
