package dto

import "github.com/preston-56/lms-backend/internal/domain"

// SchedulerControlRequest selects a control action. Cron only applies to restart.
type SchedulerControlRequest struct {
	Action string `json:"action"`
	Cron   string `json:"cron,omitempty"`
}

// SchedulerControlResponse reports the outcome of a control action.
type SchedulerControlResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Scheduler string `json:"scheduler"`
}

// TriggerResponse reports a manual batch run.
type TriggerResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Count   int              `json:"count"`
	Run     domain.RunResult `json:"run"`
}
