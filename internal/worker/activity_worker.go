package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/preston-56/lms-backend/internal/events"
	"github.com/preston-56/lms-backend/internal/observability"
)

// StartActivityWorker subscribes metrics and audit logging to pipeline events.
func StartActivityWorker(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	logger = logger.Named("activity")

	dispatcher.Subscribe(events.EventBatchCompleted, func(_ context.Context, e events.Event) error {
		payload, ok := e.Payload.(events.BatchCompletedPayload)
		if !ok {
			return nil
		}
		metrics.RecordBatch(payload.Result)
		return nil
	})

	dispatcher.Subscribe(events.EventUserNotified, func(_ context.Context, e events.Event) error {
		payload, ok := e.Payload.(events.UserNotifiedPayload)
		if !ok {
			return nil
		}
		logger.Debug("user notified",
			zap.String("run_id", e.RunID),
			zap.String("user_id", payload.UserID),
			zap.Int("days_idle", payload.DaysIdle),
			zap.Bool("deactivated", payload.Deactivated),
		)
		return nil
	})

	dispatcher.Subscribe(events.EventDiagnosticsGenerated, func(_ context.Context, e events.Event) error {
		metrics.RecordDiagnostics()
		if payload, ok := e.Payload.(events.DiagnosticsGeneratedPayload); ok {
			logger.Info("diagnostics report written",
				zap.String("json", payload.Paths.JSON),
				zap.String("text", payload.Paths.Text))
		}
		return nil
	})
}
