package main

import (
	"context"

	"github.com/preston-56/lms-backend/internal/app"
	"github.com/preston-56/lms-backend/internal/domain"
)

// lockedRunner routes CLI runs through the scheduler so they share the
// run-lock with the API server's scheduled and manual runs.
type lockedRunner struct {
	pipeline *app.Pipeline
}

func (r lockedRunner) Run(ctx context.Context, trigger domain.RunTrigger) domain.RunResult {
	res, err := r.pipeline.Scheduler.RunNow(ctx, trigger)
	if err != nil {
		return domain.RunResult{Trigger: trigger, Status: domain.RunStatusFailed, Error: err.Error(), Err: err}
	}
	return res
}
