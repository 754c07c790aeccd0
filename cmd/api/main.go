package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/preston-56/lms-backend/internal/api/http"
	"github.com/preston-56/lms-backend/internal/api/http/handlers"
	"github.com/preston-56/lms-backend/internal/app"
	"github.com/preston-56/lms-backend/internal/auth"
	"github.com/preston-56/lms-backend/internal/config"
	"github.com/preston-56/lms-backend/internal/observability"
	"github.com/preston-56/lms-backend/internal/persistence"
	"github.com/preston-56/lms-backend/internal/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pipeline, err := app.NewPipeline(cfg, pg, redis, logger)
	if err != nil {
		logger.Fatal("failed to build notification pipeline", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(cfg.Auth, pipeline.Users, tokens)
	authMiddleware := auth.NewAuthMiddleware(tokens, pipeline.Users, logger)

	fiberApp := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(fiberApp, logger, pipeline.Metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(fiberApp, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			map[string]handlers.Pinger{"postgres": pg},
			map[string]handlers.Pinger{"redis": redis}),
		Auth:           handlers.NewAuthHandler(authService),
		Scheduler:      handlers.NewSchedulerHandler(pipeline.Scheduler),
		Diagnostics:    handlers.NewDiagnosticsHandler(pipeline.Diagnostics, cfg.Scheduler),
		Reports:        handlers.NewReportsHandler(pipeline.Reports),
		Notifications:  handlers.NewNotificationsHandler(service.NewNotificationService(pipeline.Notifications, pipeline.Users)),
		Email:          handlers.NewEmailHandler(service.NewEmailService(pipeline.Mailer, pipeline.EmailLogs, logger)),
		AuthMiddleware: authMiddleware,
	})

	if cfg.Scheduler.Enabled {
		if err := pipeline.Scheduler.Start(ctx); err != nil {
			logger.Fatal("failed to start scheduler", zap.Error(err))
		}
	} else {
		logger.Info("scheduler disabled, manual triggers only")
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := fiberApp.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := pipeline.Scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
