// Command lmsctl is the operator CLI for the inactivity notification job.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/preston-56/lms-backend/internal/app"
	"github.com/preston-56/lms-backend/internal/auth"
	"github.com/preston-56/lms-backend/internal/config"
	"github.com/preston-56/lms-backend/internal/observability"
	"github.com/preston-56/lms-backend/internal/persistence"
	"github.com/preston-56/lms-backend/internal/reports"
	"github.com/preston-56/lms-backend/internal/service"
)

func main() {
	if err := run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := &commandLine{
		out:       os.Stdout,
		reports:   reports.NewFileStore(cfg.Scheduler.ReportDir),
		threshold: cfg.Scheduler.Threshold(),
	}

	if needsDatabase(args) {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}

		var redis *persistence.Redis
		if cfg.Scheduler.RunLock == "redis" {
			redis = persistence.NewRedis(ctx, cfg.Redis, logger)
			defer redis.Close()
		}

		pipeline, err := app.NewPipeline(cfg, pg, redis, logger)
		if err != nil {
			return err
		}
		cli.runner = lockedRunner{pipeline: pipeline}
		cli.diagnoser = pipeline.Diagnostics
		cli.users = service.NewAuthService(cfg.Auth, pipeline.Users,
			auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()))
		logger.Debug("lmsctl connected", zap.String("command", args[1]))
	}

	return cli.run(ctx, args)
}
