package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/preston-56/lms-backend/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserNotified         EventType = "user_notified"
	EventBatchCompleted       EventType = "batch_completed"
	EventDiagnosticsGenerated EventType = "diagnostics_generated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, runID string, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RunID:     runID,
		Timestamp: at,
		Payload:   payload,
	}
}

// UserNotifiedPayload payload.
type UserNotifiedPayload struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DaysIdle    int    `json:"days_idle"`
	Deactivated bool   `json:"deactivated"`
}

// BatchCompletedPayload payload.
type BatchCompletedPayload struct {
	Result domain.RunResult `json:"result"`
}

// DiagnosticsGeneratedPayload payload.
type DiagnosticsGeneratedPayload struct {
	Paths      domain.ReportLocation `json:"paths"`
	TotalUsers int                   `json:"total_users"`
}
