package domain

import "time"

// RunTrigger identifies what started a batch run.
type RunTrigger string

const (
	RunTriggerScheduled RunTrigger = "scheduled"
	RunTriggerManual    RunTrigger = "manual"
	RunTriggerCLI       RunTrigger = "cli"
)

// RunStatus is the terminal state of a batch run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	// RunStatusPartial means the run deadline stopped the loop early.
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// RunResult describes the outcome of one batch run.
type RunResult struct {
	RunID      string             `json:"run_id"`
	Trigger    RunTrigger         `json:"trigger"`
	Status     RunStatus          `json:"status"`
	Candidates int                `json:"candidates"`
	Notified   int                `json:"notified"`
	Failed     int                `json:"failed"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Error      string             `json:"error,omitempty"`
	Report     *DiagnosticsResult `json:"report,omitempty"`
	Err        error              `json:"-"`
}

// Duration returns the wall time of the run.
func (r RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
