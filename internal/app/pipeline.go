// Package app wires the notification pipeline shared by the API server and lmsctl.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/preston-56/lms-backend/internal/config"
	"github.com/preston-56/lms-backend/internal/events"
	"github.com/preston-56/lms-backend/internal/mail"
	"github.com/preston-56/lms-backend/internal/observability"
	"github.com/preston-56/lms-backend/internal/persistence"
	"github.com/preston-56/lms-backend/internal/reports"
	"github.com/preston-56/lms-backend/internal/repository"
	"github.com/preston-56/lms-backend/internal/scheduler"
	"github.com/preston-56/lms-backend/internal/service"
	"github.com/preston-56/lms-backend/internal/worker"
)

// Pipeline holds the constructed collaborators of the notification job.
type Pipeline struct {
	Users         repository.UserRepository
	Notifications repository.NotificationRepository
	EmailLogs     repository.EmailLogRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Mailer        mail.Mailer
	Reports       *reports.FileStore
	Diagnostics   *service.DiagnosticsService
	Runner        *service.BatchRunner
	Scheduler     *scheduler.Scheduler
}

// NewPipeline builds every component of the notification pipeline.
// redis may be nil or unreachable, in which case an in-process run-lock is used.
func NewPipeline(cfg *config.Config, pg *persistence.Postgres, redis *persistence.Redis, logger *zap.Logger) (*Pipeline, error) {
	pool := pg.PoolHandle()
	db := repository.Conn(pool)

	mailer, err := mail.New(cfg.Mail, logger)
	if err != nil {
		return nil, fmt.Errorf("mail: %w", err)
	}

	p := &Pipeline{
		Users:         repository.NewUserRepository(db),
		Notifications: repository.NewNotificationRepository(db),
		EmailLogs:     repository.NewEmailLogRepository(db),
		Dispatcher:    events.NewInMemoryDispatcher(),
		Metrics:       observability.NewMetrics(),
		Mailer:        mailer,
		Reports:       reports.NewFileStore(cfg.Scheduler.ReportDir),
	}
	worker.StartActivityWorker(p.Dispatcher, p.Metrics, logger)

	p.Diagnostics = service.NewDiagnosticsService(service.DiagnosticsDependencies{
		Users:         p.Users,
		Notifications: p.Notifications,
		Store:         p.Reports,
		Dispatcher:    p.Dispatcher,
		Environment:   cfg.App.Env,
		Logger:        logger,
	})

	p.Runner = service.NewBatchRunner(cfg.Scheduler, service.BatchRunnerDependencies{
		UnitOfWork: repository.NewUnitOfWork(pool),
		Notifier:   service.NewNotifier(mailer, cfg.Mail, cfg.Scheduler.DeactivateOnNotify),
		Diagnoser:  p.Diagnostics,
		Dispatcher: p.Dispatcher,
		Logger:     logger,
	})

	p.Scheduler = scheduler.New(cfg.Scheduler, p.Runner, runLock(cfg.Scheduler, redis, logger), logger)
	return p, nil
}

func runLock(cfg config.SchedulerConfig, redis *persistence.Redis, logger *zap.Logger) scheduler.RunLock {
	if cfg.RunLock == "redis" {
		if redis != nil && redis.Reachable {
			return scheduler.NewRedisLock(redis.Client)
		}
		logger.Warn("redis unreachable, falling back to in-process run lock")
	}
	return scheduler.NewLocalLock()
}
