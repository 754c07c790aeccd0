package service

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/reports"
	"github.com/preston-56/lms-backend/internal/repository"
)

type sliceUsers struct {
	repository.UserRepository
	users []domain.User
}

func (r sliceUsers) CountActivity(_ context.Context, cutoff, recentSince time.Time) (domain.UserCounts, error) {
	var c domain.UserCounts
	for _, u := range r.users {
		c.TotalUsers++
		if u.IsActive {
			c.ActiveUsers++
		} else {
			c.InactiveUsers++
		}
		if u.LastActive == nil {
			c.UsersMissingLastActive++
			continue
		}
		if u.IsActive && u.LastActive.Before(cutoff) {
			c.PotentialInactiveUsers++
		}
		if !u.LastActive.Before(recentSince) {
			c.RecentlyActiveUsers++
		}
	}
	return c, nil
}

func (r sliceUsers) ListRecentlyActive(_ context.Context, limit int) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if u.LastActive != nil {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActive.After(*out[j].LastActive) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r sliceUsers) SampleInactive(_ context.Context, cutoff time.Time, limit int) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if IsInactive(u, cutoff) && len(out) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

type countingNotifications struct {
	repository.NotificationRepository
	count int
}

func (r countingNotifications) CountSince(context.Context, time.Time) (int, error) {
	return r.count, nil
}

func newDiagnostics(t *testing.T, users []domain.User, recent int) (*DiagnosticsService, string) {
	t.Helper()
	dir := t.TempDir()
	return NewDiagnosticsService(DiagnosticsDependencies{
		Users:         sliceUsers{users: users},
		Notifications: countingNotifications{count: recent},
		Store:         reports.NewFileStore(dir),
		Environment:   "test",
		Logger:        zap.NewNop(),
		Clock:         func() time.Time { return fixedNow },
	}), dir
}

func TestDiagnoseEmptyTable(t *testing.T) {
	svc, _ := newDiagnostics(t, nil, 0)

	res, err := svc.Diagnose(context.Background(), 14*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Summary.UserCounts.TotalUsers)
	assert.Zero(t, res.Summary.Percentages.ActiveUsers)
	assert.Zero(t, res.Summary.Percentages.UsersMissingLastActive)
	assert.Zero(t, res.Summary.Percentages.PotentialInactiveUsers)

	text, err := os.ReadFile(res.ReportPaths.Text)
	require.NoError(t, err)
	assert.Contains(t, string(text), "LMS Activity Diagnosis Report")
	assert.Contains(t, string(text), "NO INACTIVE USERS FOUND")
	assert.Contains(t, string(text), "- No users found in the database")

	raw, err := os.ReadFile(res.ReportPaths.JSON)
	require.NoError(t, err)
	var decoded domain.ActivitySummary
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 14, decoded.NotificationInfo.ThresholdDays)
	assert.Equal(t, "test", decoded.Environment)
}

func TestDiagnoseCountsAndSamples(t *testing.T) {
	users := []domain.User{
		{ID: "a", Email: "a@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 20)},
		{ID: "b", Email: "b@example.com", IsActive: true, LastActive: daysAgo(fixedNow, 2)},
		{ID: "c", Email: "", IsActive: true},
		{ID: "d", Email: "d@example.com", IsActive: false, LastActive: daysAgo(fixedNow, 40)},
	}
	svc, _ := newDiagnostics(t, users, 3)

	res, err := svc.Diagnose(context.Background(), 14*24*time.Hour)
	require.NoError(t, err)
	s := res.Summary

	assert.Equal(t, domain.UserCounts{
		TotalUsers:             4,
		ActiveUsers:            3,
		InactiveUsers:          1,
		UsersMissingLastActive: 1,
		PotentialInactiveUsers: 1,
		RecentlyActiveUsers:    1,
	}, s.UserCounts)
	assert.InDelta(t, 75.0, s.Percentages.ActiveUsers, 0.001)
	assert.InDelta(t, 25.0, s.Percentages.UsersMissingLastActive, 0.001)
	assert.Equal(t, 3, s.NotificationInfo.RecentNotifications)

	require.Len(t, s.Samples.InactiveSamples, 1)
	assert.Equal(t, domain.InactiveSample{UserID: "a", DaysInactive: 20, HasEmail: true}, s.Samples.InactiveSamples[0])
	require.Len(t, s.Samples.RecentActivity, 3)
	assert.Equal(t, "b", s.Samples.RecentActivity[0].UserID)

	text, err := os.ReadFile(res.ReportPaths.Text)
	require.NoError(t, err)
	assert.Contains(t, string(text), "SAMPLE INACTIVE USERS")
	assert.Contains(t, string(text), "User a: 20 days inactive, has email: true")
	assert.Contains(t, string(text), "RECENT USER ACTIVITY")
	assert.Contains(t, string(text), "1 users (25.0%) are missing last_active timestamps")
}

func TestSafePercent(t *testing.T) {
	assert.Zero(t, safePercent(5, 0))
	assert.InDelta(t, 50.0, safePercent(1, 2), 0.0001)
}
