package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/preston-56/lms-backend/internal/config"
)

func TestNewSelectsDriver(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name    string
		cfg     config.MailConfig
		want    any
		wantErr error
	}{
		{name: "default console", cfg: config.MailConfig{}, want: &ConsoleMailer{}},
		{name: "smtp", cfg: config.MailConfig{Driver: "smtp", SMTPHost: "localhost", SMTPPort: 25}, want: &SMTPMailer{}},
		{name: "sendgrid", cfg: config.MailConfig{Driver: "sendgrid", SendgridAPIKey: "k"}, want: &SendgridMailer{}},
		{name: "resend", cfg: config.MailConfig{Driver: "resend", ResendAPIKey: "k"}, want: &ResendMailer{}},
		{name: "unknown", cfg: config.MailConfig{Driver: "pigeon"}, wantErr: ErrUnknownDriver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.cfg, logger)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestNewRequiresAPIKeys(t *testing.T) {
	_, err := New(config.MailConfig{Driver: "sendgrid"}, zap.NewNop())
	assert.Error(t, err)
	_, err = New(config.MailConfig{Driver: "resend"}, zap.NewNop())
	assert.Error(t, err)
}

func TestConsoleMailerRecordsMessages(t *testing.T) {
	m := NewConsoleMailer("noreply@example.com", zap.NewNop())

	require.NoError(t, m.Send(context.Background(), Message{To: "ada@example.com", Subject: "hi", Body: "hello"}))
	err := m.Send(context.Background(), Message{To: "", Subject: "hi"})
	assert.True(t, errors.Is(err, ErrNoRecipient))
	assert.Error(t, m.Send(context.Background(), Message{To: "not-an-address"}))

	sent := m.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ada@example.com", sent[0].To)
}

func TestConsoleMailerHonoursCancelledContext(t *testing.T) {
	m := NewConsoleMailer("noreply@example.com", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.Send(ctx, Message{To: "ada@example.com"}), context.Canceled)
	assert.Empty(t, m.Sent())
}
