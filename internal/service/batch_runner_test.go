package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/preston-56/lms-backend/internal/config"
	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/events"
	"github.com/preston-56/lms-backend/internal/repository"
)

var fixedNow = time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)

type runnerFixture struct {
	store     *memStore
	mailer    *fakeMailer
	diagnoser *countingDiagnoser
	runner    *BatchRunner
	events    []events.Event
}

func newRunnerFixture(t *testing.T, cfg config.SchedulerConfig, users ...domain.User) *runnerFixture {
	t.Helper()
	if cfg.InactivityThresholdDays == 0 {
		cfg.InactivityThresholdDays = config.DefaultInactivityThresholdDays
	}
	f := &runnerFixture{
		store:     newMemStore(users...),
		mailer:    &fakeMailer{failFor: map[string]bool{}},
		diagnoser: &countingDiagnoser{},
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventUserNotified, events.EventBatchCompleted} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.events = append(f.events, e)
			return nil
		})
	}
	f.runner = NewBatchRunner(cfg, BatchRunnerDependencies{
		UnitOfWork: f.store,
		Notifier:   NewNotifier(f.mailer, config.MailConfig{Subject: "We miss you in your online courses!"}, cfg.DeactivateOnNotify),
		Diagnoser:  f.diagnoser,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Clock:      func() time.Time { return fixedNow },
	})
	return f
}

func TestRunNotifiesOnlyInactiveUsers(t *testing.T) {
	f := newRunnerFixture(t, config.SchedulerConfig{},
		domain.User{ID: "a", Name: "Ada", Email: "a@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 20)},
		domain.User{ID: "b", Email: "b@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 5)},
		domain.User{ID: "c", Email: "c@example.com", IsActive: true},
	)

	res := f.runner.Run(context.Background(), domain.RunTriggerManual)

	assert.Equal(t, domain.RunStatusSuccess, res.Status)
	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, 1, res.Notified)
	assert.NoError(t, res.Err)

	notes := f.store.notificationsFor("a")
	require.Len(t, notes, 1)
	assert.Equal(t, "Inactivity notification sent on 2024-05-20", notes[0].Message)
	assert.Empty(t, f.store.notificationsFor("b"))
	assert.Empty(t, f.store.notificationsFor("c"))

	a := f.store.user("a")
	require.NotNil(t, a.LastNotification)
	assert.True(t, a.LastNotification.Equal(fixedNow))
	assert.True(t, a.IsActive)
	assert.Nil(t, f.store.user("b").LastNotification)
	assert.Nil(t, f.store.user("c").LastNotification)

	require.Len(t, f.store.emailLogs, 1)
	assert.Equal(t, "a@example.com", f.store.emailLogs[0].Recipient)
	require.Len(t, f.mailer.sent, 1)
	assert.Contains(t, f.mailer.sent[0].Body, "Hello Ada")

	assert.Equal(t, 0, f.diagnoser.calls)
	require.Len(t, f.events, 2)
	assert.Equal(t, events.EventUserNotified, f.events[0].Type)
	assert.Equal(t, events.EventBatchCompleted, f.events[1].Type)
}

func TestRunSkipsFailingUser(t *testing.T) {
	var users []domain.User
	for i := 0; i < 5; i++ {
		users = append(users, domain.User{
			ID:         fmt.Sprintf("u%d", i),
			Email:      fmt.Sprintf("u%d@example.com", i),
			IsActive:   true,
			LastActive: daysAgo(fixedNow, 30),
		})
	}
	f := newRunnerFixture(t, config.SchedulerConfig{}, users...)
	f.mailer.failFor["u2@example.com"] = true

	res := f.runner.Run(context.Background(), domain.RunTriggerScheduled)

	assert.Equal(t, domain.RunStatusSuccess, res.Status)
	assert.Equal(t, 5, res.Candidates)
	assert.Equal(t, 4, res.Notified)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, f.store.notificationsFor("u2"))
	assert.Nil(t, f.store.user("u2").LastNotification)
	assert.Len(t, f.store.notifications, 4)
	assert.Len(t, f.store.emailLogs, 4)
}

func TestRunWithoutCandidatesDiagnosesOnce(t *testing.T) {
	f := newRunnerFixture(t, config.SchedulerConfig{},
		domain.User{ID: "b", Email: "b@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 1)},
	)

	res := f.runner.Run(context.Background(), domain.RunTriggerScheduled)

	assert.Equal(t, domain.RunStatusSuccess, res.Status)
	assert.Equal(t, 0, res.Notified)
	assert.Equal(t, 1, f.diagnoser.calls)
	assert.NotNil(t, res.Report)
	assert.Equal(t, 0, f.store.commits)
}

func TestRunDiagnosesAfterNonEmptyRunWhenEnabled(t *testing.T) {
	f := newRunnerFixture(t, config.SchedulerConfig{DiagnosticsEnabled: true},
		domain.User{ID: "a", Email: "a@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 20)},
	)

	res := f.runner.Run(context.Background(), domain.RunTriggerManual)

	assert.Equal(t, 1, res.Notified)
	assert.Equal(t, 1, f.diagnoser.calls)
}

func TestRunCommitFailureReportsZero(t *testing.T) {
	f := newRunnerFixture(t, config.SchedulerConfig{},
		domain.User{ID: "a", Email: "a@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 20)},
		domain.User{ID: "d", Email: "d@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 40)},
	)
	f.store.commitErr = errors.New("connection reset")

	res := f.runner.Run(context.Background(), domain.RunTriggerManual)

	assert.Equal(t, domain.RunStatusFailed, res.Status)
	assert.Equal(t, 0, res.Notified)
	require.Error(t, res.Err)
	assert.Contains(t, res.Error, "connection reset")
	assert.Empty(t, f.store.notifications)
	assert.Nil(t, f.store.user("a").LastNotification)
}

func TestRunDeactivatesWhenConfigured(t *testing.T) {
	f := newRunnerFixture(t, config.SchedulerConfig{DeactivateOnNotify: true},
		domain.User{ID: "a", Email: "a@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 20)},
	)

	res := f.runner.Run(context.Background(), domain.RunTriggerManual)

	assert.Equal(t, 1, res.Notified)
	assert.False(t, f.store.user("a").IsActive)

	// a second run finds nobody left to notify
	again := f.runner.Run(context.Background(), domain.RunTriggerManual)
	assert.Equal(t, 0, again.Candidates)
}

func TestRunIsRepeatableWithoutDeactivation(t *testing.T) {
	f := newRunnerFixture(t, config.SchedulerConfig{},
		domain.User{ID: "a", Email: "a@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 20)},
	)

	first := f.runner.Run(context.Background(), domain.RunTriggerManual)
	second := f.runner.Run(context.Background(), domain.RunTriggerManual)

	assert.Equal(t, first.Candidates, second.Candidates)
	assert.Len(t, f.store.notificationsFor("a"), 2)
}

func TestRunStopsAtDeadline(t *testing.T) {
	f := newRunnerFixture(t, config.SchedulerConfig{},
		domain.User{ID: "a", Email: "a@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 20)},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.runner.Run(ctx, domain.RunTriggerManual)

	assert.Equal(t, domain.RunStatusPartial, res.Status)
	assert.Equal(t, 0, res.Notified)
}

func TestRunKeepsWorkDoneBeforeDeadline(t *testing.T) {
	f := newRunnerFixture(t, config.SchedulerConfig{},
		domain.User{ID: "a", Email: "a@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 20)},
		domain.User{ID: "d", Email: "d@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 40)},
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// the deadline fires right after the first reminder leaves
	f.mailer.afterSend = cancel

	res := f.runner.Run(ctx, domain.RunTriggerManual)

	assert.Equal(t, domain.RunStatusPartial, res.Status)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 1, res.Notified)
	assert.NoError(t, res.Err)
	assert.False(t, f.store.broken)
	assert.Equal(t, 1, f.store.commits)
	require.Len(t, f.mailer.sent, 1)
	require.Len(t, f.store.notifications, 1)
	require.Len(t, f.store.emailLogs, 1)
	assert.Equal(t, f.mailer.sent[0].To, f.store.emailLogs[0].Recipient)
}

type panickingUoW struct{}

func (panickingUoW) Begin(context.Context) (repository.Session, error) { panic("pool exploded") }

func TestRunRecoversFromPanic(t *testing.T) {
	runner := NewBatchRunner(config.SchedulerConfig{InactivityThresholdDays: 14}, BatchRunnerDependencies{
		UnitOfWork: panickingUoW{},
		Logger:     zap.NewNop(),
	})

	var res domain.RunResult
	require.NotPanics(t, func() { res = runner.Run(context.Background(), domain.RunTriggerScheduled) })
	assert.Equal(t, domain.RunStatusFailed, res.Status)
	assert.Contains(t, res.Error, "pool exploded")
	assert.False(t, res.FinishedAt.IsZero())
}
