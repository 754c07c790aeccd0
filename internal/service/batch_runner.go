package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preston-56/lms-backend/internal/config"
	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/events"
	"github.com/preston-56/lms-backend/internal/repository"
)

const (
	commitGrace      = 30 * time.Second
	statementTimeout = 15 * time.Second
)

// storeContext detaches ctx from its deadline for session writes. pgx closes
// a connection whose context expires mid-statement, which would lose the
// whole transaction.
func storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), statementTimeout)
}

// Diagnoser produces a diagnostics snapshot.
type Diagnoser interface {
	Diagnose(ctx context.Context, threshold time.Duration) (*domain.DiagnosticsResult, error)
}

// BatchRunner notifies every inactive user inside a single unit of work.
type BatchRunner struct {
	uow        repository.UnitOfWork
	notifier   *Notifier
	diagnoser  Diagnoser
	dispatcher events.Dispatcher
	cfg        config.SchedulerConfig
	logger     *zap.Logger
	clock      func() time.Time
}

// BatchRunnerDependencies groups collaborators of the batch runner.
type BatchRunnerDependencies struct {
	UnitOfWork repository.UnitOfWork
	Notifier   *Notifier
	Diagnoser  Diagnoser
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewBatchRunner builds the runner.
func NewBatchRunner(cfg config.SchedulerConfig, deps BatchRunnerDependencies) *BatchRunner {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchRunner{
		uow:        deps.UnitOfWork,
		notifier:   deps.Notifier,
		diagnoser:  deps.Diagnoser,
		dispatcher: deps.Dispatcher,
		cfg:        cfg,
		logger:     logger.Named("batch"),
		clock:      clock,
	}
}

// Run executes one batch and always returns a terminal result; it never panics.
func (r *BatchRunner) Run(ctx context.Context, trigger domain.RunTrigger) (result domain.RunResult) {
	result = domain.RunResult{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: r.clock(),
	}
	logger := r.logger.With(zap.String("run_id", result.RunID), zap.String("trigger", string(trigger)))

	defer func() {
		if rec := recover(); rec != nil {
			result.Status = domain.RunStatusFailed
			result.Notified = 0
			result.Err = fmt.Errorf("batch panic: %v", rec)
			logger.Error("batch run panicked", zap.Any("panic", rec), zap.Stack("stack"))
		}
		result.FinishedAt = r.clock()
		if result.Err != nil {
			result.Error = result.Err.Error()
		}
		r.publish(context.WithoutCancel(ctx), events.New(events.EventBatchCompleted, result.RunID, result.FinishedAt,
			events.BatchCompletedPayload{Result: result}), logger)
		logger.Info("batch run finished",
			zap.String("status", string(result.Status)),
			zap.Int("candidates", result.Candidates),
			zap.Int("notified", result.Notified),
			zap.Int("failed", result.Failed),
			zap.Duration("duration", result.Duration()),
		)
	}()

	runCtx := ctx
	if timeout := r.cfg.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sess, err := r.uow.Begin(runCtx)
	if err != nil {
		result.Status = domain.RunStatusFailed
		result.Err = fmt.Errorf("begin session: %w", err)
		logger.Error("could not open session", zap.Error(err))
		return result
	}
	defer func() { _ = sess.Rollback(context.WithoutCancel(ctx)) }()

	now := result.StartedAt
	candidates, err := FindInactiveUsers(runCtx, sess.Users(), now, r.cfg.Threshold())
	if err != nil {
		result.Status = domain.RunStatusFailed
		result.Err = err
		logger.Error("inactivity query failed", zap.Error(err))
		return result
	}
	result.Candidates = len(candidates)

	if len(candidates) == 0 {
		_ = sess.Rollback(runCtx)
		result.Status = domain.RunStatusSuccess
		logger.Info("no inactive users found", zap.Int("threshold_days", r.cfg.InactivityThresholdDays))
		result.Report = r.diagnose(runCtx, logger)
		return result
	}

	notified := make([]domain.User, 0, len(candidates))
	partial := false
	for _, user := range candidates {
		if runCtx.Err() != nil {
			partial = true
			logger.Warn("run deadline reached, stopping early",
				zap.Int("processed", len(notified)+result.Failed),
				zap.Int("remaining", len(candidates)-len(notified)-result.Failed))
			break
		}
		if err := r.notifyOne(runCtx, sess, user, now); err != nil {
			result.Failed++
			logger.Error("failed to notify user", zap.String("user_id", user.ID), zap.Error(err))
			continue
		}
		notified = append(notified, user)
	}

	commitCtx, cancelCommit := context.WithTimeout(context.WithoutCancel(ctx), commitGrace)
	defer cancelCommit()
	if err := sess.Commit(commitCtx); err != nil {
		result.Status = domain.RunStatusFailed
		result.Notified = 0
		result.Err = fmt.Errorf("commit batch: %w", err)
		logger.Error("batch commit failed, all changes rolled back", zap.Error(err))
		return result
	}

	result.Notified = len(notified)
	result.Status = domain.RunStatusSuccess
	if partial || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.Status = domain.RunStatusPartial
	}

	for _, u := range notified {
		r.publish(ctx, events.New(events.EventUserNotified, result.RunID, now, events.UserNotifiedPayload{
			UserID:      u.ID,
			Email:       u.Email,
			DaysIdle:    domain.DaysSince(u.LastActive, now),
			Deactivated: r.notifier.Deactivates(),
		}), logger)
	}

	if r.cfg.DiagnosticsEnabled {
		diagCtx := runCtx
		if runCtx.Err() != nil {
			diagCtx = commitCtx
		}
		result.Report = r.diagnose(diagCtx, logger)
	}
	return result
}

// notifyOne isolates one user in a nested session so a failed statement
// does not poison the outer transaction. Only the mail send observes ctx's
// deadline; savepoint statements run on a detached context.
func (r *BatchRunner) notifyOne(ctx context.Context, sess repository.Session, user domain.User, now time.Time) error {
	storeCtx, cancel := storeContext(ctx)
	defer cancel()

	nested, err := sess.Begin(storeCtx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}
	if err := r.notifier.Notify(ctx, nested, user, now); err != nil {
		_ = nested.Rollback(storeCtx)
		return err
	}
	if err := nested.Commit(storeCtx); err != nil {
		_ = nested.Rollback(storeCtx)
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (r *BatchRunner) diagnose(ctx context.Context, logger *zap.Logger) *domain.DiagnosticsResult {
	if r.diagnoser == nil {
		return nil
	}
	report, err := r.diagnoser.Diagnose(ctx, r.cfg.Threshold())
	if err != nil {
		logger.Warn("diagnostics failed", zap.Error(err))
		return nil
	}
	return report
}

func (r *BatchRunner) publish(ctx context.Context, evt events.Event, logger *zap.Logger) {
	if r.dispatcher == nil {
		return
	}
	if err := r.dispatcher.Publish(ctx, evt); err != nil {
		logger.Warn("event handler failed", zap.String("event", string(evt.Type)), zap.Error(err))
	}
}
