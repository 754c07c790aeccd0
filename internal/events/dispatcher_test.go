package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string

	d.Subscribe(EventBatchCompleted, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventBatchCompleted, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventUserNotified, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), New(EventBatchCompleted, "run-1", time.Now(), nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestNewAssignsID(t *testing.T) {
	a := New(EventUserNotified, "r", time.Now(), UserNotifiedPayload{UserID: "u"})
	b := New(EventUserNotified, "r", time.Now(), nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	d := NewInMemoryDispatcher()
	reached := false

	d.Subscribe(EventDiagnosticsGenerated, func(context.Context, Event) error {
		panic("bad handler")
	})
	d.Subscribe(EventDiagnosticsGenerated, func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := d.Publish(context.Background(), New(EventDiagnosticsGenerated, "", time.Now(), nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad handler")
	assert.True(t, reached)
}
