// Package scheduler owns the recurring inactivity notification job.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/preston-56/lms-backend/internal/config"
	"github.com/preston-56/lms-backend/internal/domain"
)

const (
	JobID           = "notify_inactive_students"
	JobName         = "Notify inactive students daily"
	DefaultSchedule = config.DefaultScheduleCron

	defaultLockTTL = time.Hour
)

var (
	ErrInvalidAction = errors.New("invalid scheduler action")
	ErrRunInProgress = errors.New("a notification run is already in progress")
	ErrNotRunning    = errors.New("scheduler is not running")
)

// State of the scheduler.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// Runner executes one batch.
type Runner interface {
	Run(ctx context.Context, trigger domain.RunTrigger) domain.RunResult
}

// JobInfo describes the registered job. NextRunTime is nil while paused.
type JobInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	NextRunTime *time.Time `json:"next_run_time"`
	Trigger     string     `json:"trigger"`
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Status  State             `json:"status"`
	Jobs    []JobInfo         `json:"jobs"`
	LastRun *domain.RunResult `json:"last_run,omitempty"`
}

// Scheduler drives Runner on a cron schedule and exposes lifecycle controls.
type Scheduler struct {
	runner   Runner
	lock     RunLock
	lockTTL  time.Duration
	logger   *zap.Logger
	parser   cron.Parser
	location *time.Location

	// lifecycle serializes Start/Stop/Pause/Resume/Restart.
	lifecycle sync.Mutex

	mu       sync.RWMutex
	state    State
	cron     *cron.Cron
	entryID  cron.EntryID
	expr     string
	schedule cron.Schedule
	baseCtx  context.Context
	lastRun  *domain.RunResult
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithLocation evaluates cron expressions in loc instead of time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.location = loc }
}

// New builds a stopped scheduler. A malformed cfg.Cron falls back to DefaultSchedule.
func New(cfg config.SchedulerConfig, runner Runner, lock RunLock, logger *zap.Logger, opts ...Option) *Scheduler {
	if lock == nil {
		lock = NewLocalLock()
	}
	s := &Scheduler{
		runner:   runner,
		lock:     lock,
		lockTTL:  defaultLockTTL,
		logger:   logger.Named("scheduler"),
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		location: time.Local,
		state:    StateStopped,
		baseCtx:  context.Background(),
	}
	if timeout := cfg.RunTimeout(); timeout > 0 {
		s.lockTTL = timeout + time.Minute
	}
	for _, opt := range opts {
		opt(s)
	}
	s.expr, s.schedule = s.parse(cfg.Cron)
	return s
}

// parse returns the effective expression and schedule for raw.
func (s *Scheduler) parse(raw string) (string, cron.Schedule) {
	expr := strings.Join(strings.Fields(raw), " ")
	if expr != "" {
		sched, err := s.parser.Parse(expr)
		if err == nil {
			return expr, sched
		}
		s.logger.Warn("invalid cron expression, using default",
			zap.String("cron", raw), zap.String("default", DefaultSchedule), zap.Error(err))
	}
	sched, err := s.parser.Parse(DefaultSchedule)
	if err != nil {
		panic(fmt.Sprintf("default schedule %q: %v", DefaultSchedule, err))
	}
	return DefaultSchedule, sched
}

// Start registers the job and starts the timer. Starting a started scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.startLocked(ctx)
}

func (s *Scheduler) startLocked(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStopped {
		return nil
	}

	cl := newCronLogger(s.logger)
	c := cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.entryID = c.Schedule(s.schedule, cron.FuncJob(s.fire))
	s.cron = c
	s.baseCtx = context.WithoutCancel(ctx)
	c.Start()
	s.state = StateRunning

	s.logger.Info("scheduler started", zap.String("job_id", JobID), zap.String("cron", s.expr))
	return nil
}

// Stop deregisters the job and waits for an in-flight scheduled run or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.stopLocked(ctx)
}

func (s *Scheduler) stopLocked(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	c.Remove(s.entryID)
	s.cron = nil
	s.state = StateStopped
	s.mu.Unlock()

	done := c.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out waiting for running job")
		return ctx.Err()
	}
}

// Pause keeps the schedule but stops firings.
func (s *Scheduler) Pause() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateStopped:
		return ErrNotRunning
	case StatePaused:
		return nil
	}
	s.cron.Remove(s.entryID)
	s.state = StatePaused
	s.logger.Info("scheduler paused")
	return nil
}

// Resume re-registers the job with its previous schedule.
func (s *Scheduler) Resume() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateStopped:
		return ErrNotRunning
	case StateRunning:
		return nil
	}
	s.entryID = s.cron.Schedule(s.schedule, cron.FuncJob(s.fire))
	s.state = StateRunning
	s.logger.Info("scheduler resumed")
	return nil
}

// Restart stops the scheduler if needed and starts it again with cronExpr
// (or the current expression when empty). It always ends running.
func (s *Scheduler) Restart(ctx context.Context, cronExpr string) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if err := s.stopLocked(ctx); err != nil {
		s.logger.Warn("restart continuing after stop error", zap.Error(err))
	}
	if strings.TrimSpace(cronExpr) != "" {
		expr, sched := s.parse(cronExpr)
		s.mu.Lock()
		s.expr, s.schedule = expr, sched
		s.mu.Unlock()
	}
	startCtx := s.base()
	return s.startLocked(startCtx)
}

// Expression returns the effective cron expression.
func (s *Scheduler) Expression() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expr
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status reports state and the registered job.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{Status: s.state, Jobs: []JobInfo{}, LastRun: s.lastRun}
	if s.state == StateStopped {
		return st
	}
	job := JobInfo{ID: JobID, Name: JobName, Trigger: "cron[" + s.expr + "]"}
	if s.state == StateRunning {
		next := s.cron.Entry(s.entryID).Next
		if next.IsZero() {
			next = s.schedule.Next(time.Now().In(s.location))
		}
		job.NextRunTime = &next
	}
	st.Jobs = append(st.Jobs, job)
	return st
}

// RunNow executes the batch on the caller's goroutine regardless of state.
func (s *Scheduler) RunNow(ctx context.Context, trigger domain.RunTrigger) (domain.RunResult, error) {
	return s.execute(ctx, trigger)
}

func (s *Scheduler) fire() {
	res, err := s.execute(s.base(), domain.RunTriggerScheduled)
	if errors.Is(err, ErrRunInProgress) {
		s.logger.Info("scheduled run skipped, another run holds the lock")
		return
	}
	if res.Status == domain.RunStatusFailed {
		s.logger.Error("scheduled run failed", zap.String("run_id", res.RunID), zap.String("error", res.Error))
	}
}

func (s *Scheduler) execute(ctx context.Context, trigger domain.RunTrigger) (domain.RunResult, error) {
	release, err := s.lock.Acquire(ctx, JobID, s.lockTTL)
	switch {
	case errors.Is(err, ErrLockHeld):
		return domain.RunResult{}, ErrRunInProgress
	case err != nil:
		s.logger.Warn("run lock unavailable, running unlocked", zap.Error(err))
		release = func() {}
	}
	defer release()

	res := s.runner.Run(ctx, trigger)

	s.mu.Lock()
	s.lastRun = &res
	s.mu.Unlock()
	return res, nil
}

func (s *Scheduler) base() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseCtx
}
