package domain

import "time"

// UserCounts aggregates user activity counters used by diagnostics.
type UserCounts struct {
	TotalUsers             int `json:"total_users"`
	ActiveUsers            int `json:"active_users"`
	InactiveUsers          int `json:"inactive_users"`
	UsersMissingLastActive int `json:"users_missing_last_active"`
	PotentialInactiveUsers int `json:"potential_inactive_users"`
	RecentlyActiveUsers    int `json:"users_with_recent_activity"`
}

// ActivityPercentages holds ratios derived from UserCounts, in percent.
type ActivityPercentages struct {
	ActiveUsers            float64 `json:"active_users"`
	UsersMissingLastActive float64 `json:"users_missing_last_active"`
	PotentialInactiveUsers float64 `json:"potential_inactive_users"`
}

// NotificationInfo summarizes recent notification activity.
type NotificationInfo struct {
	RecentNotifications int `json:"recent_notifications"`
	ThresholdDays       int `json:"threshold_days"`
}

// RecentActivity is a snippet of a recently active user.
type RecentActivity struct {
	UserID          string `json:"user_id"`
	DaysSinceActive int    `json:"days_since_active"`
	IsActiveFlag    bool   `json:"is_active_flag"`
}

// InactiveSample is a snippet of a user eligible for notification.
type InactiveSample struct {
	UserID       string `json:"user_id"`
	DaysInactive int    `json:"days_inactive"`
	HasEmail     bool   `json:"has_email"`
}

// ActivitySamples groups the user snippets of a report.
type ActivitySamples struct {
	RecentActivity  []RecentActivity `json:"recent_activity"`
	InactiveSamples []InactiveSample `json:"inactive_samples"`
}

// ActivitySummary is the point-in-time diagnostics snapshot.
type ActivitySummary struct {
	Timestamp        time.Time           `json:"timestamp"`
	Environment      string              `json:"environment"`
	UserCounts       UserCounts          `json:"user_counts"`
	Percentages      ActivityPercentages `json:"percentages"`
	NotificationInfo NotificationInfo    `json:"notification_info"`
	Samples          ActivitySamples     `json:"samples"`
}

// ReportLocation points at the artifacts of one diagnostics run.
type ReportLocation struct {
	JSON string `json:"json"`
	Text string `json:"text"`
}

// DiagnosticsResult is returned by a diagnostics run.
type DiagnosticsResult struct {
	Summary     ActivitySummary `json:"summary"`
	ReportPaths ReportLocation  `json:"report_paths"`
}
