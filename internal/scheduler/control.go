package scheduler

import (
	"context"
	"fmt"
	"strings"
)

// Action is an operator control verb.
type Action string

const (
	ActionPause   Action = "pause"
	ActionResume  Action = "resume"
	ActionRestart Action = "restart"
)

// ValidActions lists the accepted control verbs.
func ValidActions() []string {
	return []string{string(ActionPause), string(ActionResume), string(ActionRestart)}
}

// ParseAction normalizes raw, returning ErrInvalidAction for unknown verbs.
func ParseAction(raw string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(raw))); a {
	case ActionPause, ActionResume, ActionRestart:
		return a, nil
	default:
		return "", fmt.Errorf("%w %q: valid actions are %s", ErrInvalidAction, raw, strings.Join(ValidActions(), ", "))
	}
}

// Control applies an operator action and returns a human readable outcome.
// cronExpr is only used by restart; empty keeps the current expression.
func (s *Scheduler) Control(ctx context.Context, raw, cronExpr string) (string, error) {
	action, err := ParseAction(raw)
	if err != nil {
		return "", err
	}
	switch action {
	case ActionPause:
		if err := s.Pause(); err != nil {
			return "", err
		}
		return "Scheduler paused", nil
	case ActionResume:
		if err := s.Resume(); err != nil {
			return "", err
		}
		return "Scheduler resumed", nil
	default:
		if err := s.Restart(ctx, cronExpr); err != nil {
			return "", err
		}
		return fmt.Sprintf("Scheduler restarted with schedule %q", s.Expression()), nil
	}
}
