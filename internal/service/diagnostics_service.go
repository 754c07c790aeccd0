package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/events"
	"github.com/preston-56/lms-backend/internal/reports"
	"github.com/preston-56/lms-backend/internal/repository"
)

const (
	recentActivityLimit  = 10
	inactiveSampleLimit  = 5
	notificationLookback = 7 * 24 * time.Hour
)

const textReportTemplate = `LMS Activity Diagnosis Report
Generated: {{.Timestamp.Format "2006-01-02 15:04:05"}}
Environment: {{.Environment}}
{{rule 50 "="}}

USER STATISTICS
{{rule 20 "-"}}
Total users: {{.UserCounts.TotalUsers}}
Active users: {{.UserCounts.ActiveUsers}} ({{pct .Percentages.ActiveUsers}})
Inactive users: {{.UserCounts.InactiveUsers}}
Users missing last_active: {{.UserCounts.UsersMissingLastActive}}
Potential inactive users: {{.UserCounts.PotentialInactiveUsers}}
Users active in the last 7 days: {{.UserCounts.RecentlyActiveUsers}}

NOTIFICATION SETTINGS
{{rule 20 "-"}}
Inactivity threshold: {{.NotificationInfo.ThresholdDays}} days
Recent notifications (7 days): {{.NotificationInfo.RecentNotifications}}

{{if .Samples.InactiveSamples -}}
SAMPLE INACTIVE USERS
{{rule 20 "-"}}
{{range .Samples.InactiveSamples}}User {{.UserID}}: {{.DaysInactive}} days inactive, has email: {{.HasEmail}}
{{end}}{{else -}}
NO INACTIVE USERS FOUND
{{rule 20 "-"}}
No users meet the criteria for inactivity notification.
{{end}}
{{- if .Samples.RecentActivity}}
RECENT USER ACTIVITY
{{rule 20 "-"}}
{{range .Samples.RecentActivity}}User {{.UserID}}: {{.DaysSinceActive}} days since last active
{{end}}{{end}}
POSSIBLE ISSUES
{{rule 20 "-"}}
{{range issues .}}- {{.}}
{{end}}`

var textReportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"rule":   func(n int, s string) string { return strings.Repeat(s, n) },
	"pct":    func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"issues": possibleIssues,
}).Parse(textReportTemplate))

// DiagnosticsService produces activity snapshots for operators.
type DiagnosticsService struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	store         reports.Store
	dispatcher    events.Dispatcher
	environment   string
	logger        *zap.Logger
	clock         func() time.Time
}

// DiagnosticsDependencies groups collaborators of the diagnostics service.
type DiagnosticsDependencies struct {
	Users         repository.UserRepository
	Notifications repository.NotificationRepository
	Store         reports.Store
	Dispatcher    events.Dispatcher
	Environment   string
	Logger        *zap.Logger
	Clock         func() time.Time
}

// NewDiagnosticsService builds the service.
func NewDiagnosticsService(deps DiagnosticsDependencies) *DiagnosticsService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagnosticsService{
		users:         deps.Users,
		notifications: deps.Notifications,
		store:         deps.Store,
		dispatcher:    deps.Dispatcher,
		environment:   deps.Environment,
		logger:        logger.Named("diagnostics"),
		clock:         clock,
	}
}

// Diagnose gathers activity statistics and writes the JSON and text reports.
func (s *DiagnosticsService) Diagnose(ctx context.Context, threshold time.Duration) (*domain.DiagnosticsResult, error) {
	now := s.clock()
	summary, err := s.Summarize(ctx, now, threshold)
	if err != nil {
		return nil, err
	}

	jsonBody, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json report: %w", err)
	}
	textBody, err := RenderTextReport(summary)
	if err != nil {
		return nil, err
	}

	loc, err := s.store.Write(now, jsonBody, textBody)
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	s.logger.Info("activity diagnosis complete",
		zap.Int("total_users", summary.UserCounts.TotalUsers),
		zap.Int("active_users", summary.UserCounts.ActiveUsers),
		zap.Int("missing_last_active", summary.UserCounts.UsersMissingLastActive),
		zap.Int("potential_inactive", summary.UserCounts.PotentialInactiveUsers),
		zap.Int("recent_notifications", summary.NotificationInfo.RecentNotifications),
		zap.String("json_report", loc.JSON),
		zap.String("text_report", loc.Text),
	)

	if s.dispatcher != nil {
		evt := events.New(events.EventDiagnosticsGenerated, "", now, events.DiagnosticsGeneratedPayload{
			Paths:      loc,
			TotalUsers: summary.UserCounts.TotalUsers,
		})
		if err := s.dispatcher.Publish(ctx, evt); err != nil {
			s.logger.Warn("publish diagnostics event", zap.Error(err))
		}
	}

	return &domain.DiagnosticsResult{Summary: summary, ReportPaths: loc}, nil
}

// Summarize computes the snapshot without writing anything.
func (s *DiagnosticsService) Summarize(ctx context.Context, now time.Time, threshold time.Duration) (domain.ActivitySummary, error) {
	cutoff := InactivityCutoff(now, threshold)

	counts, err := s.users.CountActivity(ctx, cutoff, now.Add(-notificationLookback))
	if err != nil {
		return domain.ActivitySummary{}, fmt.Errorf("count users: %w", err)
	}
	recentNotifications, err := s.notifications.CountSince(ctx, now.Add(-notificationLookback))
	if err != nil {
		return domain.ActivitySummary{}, fmt.Errorf("count notifications: %w", err)
	}
	recent, err := s.users.ListRecentlyActive(ctx, recentActivityLimit)
	if err != nil {
		return domain.ActivitySummary{}, fmt.Errorf("list recent users: %w", err)
	}
	sample, err := s.users.SampleInactive(ctx, cutoff, inactiveSampleLimit)
	if err != nil {
		return domain.ActivitySummary{}, fmt.Errorf("sample inactive users: %w", err)
	}

	summary := domain.ActivitySummary{
		Timestamp:   now,
		Environment: s.environment,
		UserCounts:  counts,
		Percentages: domain.ActivityPercentages{
			ActiveUsers:            safePercent(counts.ActiveUsers, counts.TotalUsers),
			UsersMissingLastActive: safePercent(counts.UsersMissingLastActive, counts.TotalUsers),
			PotentialInactiveUsers: safePercent(counts.PotentialInactiveUsers, counts.TotalUsers),
		},
		NotificationInfo: domain.NotificationInfo{
			RecentNotifications: recentNotifications,
			ThresholdDays:       int(threshold / (24 * time.Hour)),
		},
		Samples: domain.ActivitySamples{
			RecentActivity:  make([]domain.RecentActivity, 0, len(recent)),
			InactiveSamples: make([]domain.InactiveSample, 0, len(sample)),
		},
	}
	for _, u := range recent {
		summary.Samples.RecentActivity = append(summary.Samples.RecentActivity, domain.RecentActivity{
			UserID:          u.ID,
			DaysSinceActive: domain.DaysSince(u.LastActive, now),
			IsActiveFlag:    u.IsActive,
		})
	}
	for _, u := range sample {
		summary.Samples.InactiveSamples = append(summary.Samples.InactiveSamples, domain.InactiveSample{
			UserID:       u.ID,
			DaysInactive: domain.DaysSince(u.LastActive, now),
			HasEmail:     strings.TrimSpace(u.Email) != "",
		})
	}
	return summary, nil
}

// RenderTextReport formats the human-readable report.
func RenderTextReport(summary domain.ActivitySummary) ([]byte, error) {
	var buf bytes.Buffer
	if err := textReportTmpl.Execute(&buf, summary); err != nil {
		return nil, fmt.Errorf("render text report: %w", err)
	}
	return buf.Bytes(), nil
}

func possibleIssues(s domain.ActivitySummary) []string {
	c := s.UserCounts
	var out []string
	if c.TotalUsers == 0 {
		out = append(out, "No users found in the database")
	}
	if c.UsersMissingLastActive > 0 {
		out = append(out, fmt.Sprintf("%d users (%.1f%%) are missing last_active timestamps",
			c.UsersMissingLastActive, s.Percentages.UsersMissingLastActive))
	}
	if c.PotentialInactiveUsers == 0 && c.TotalUsers > 0 {
		out = append(out, fmt.Sprintf("No users meet the inactivity threshold of %d days",
			s.NotificationInfo.ThresholdDays))
	}
	if len(out) == 0 {
		out = append(out, "None detected")
	}
	return out
}

func safePercent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
