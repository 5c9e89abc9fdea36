package model

import (
	"time"
)

// CheckStatus is the outcome of a single check
type CheckStatus string

const (
	CheckSucceeded CheckStatus = "succeeded"
	CheckFailed    CheckStatus = "failed"
)

// CheckResult is the outcome of one probe execution
type CheckResult struct {
	Success         bool        `json:"success"`
	Status          CheckStatus `json:"status"`
	ResponseTimeMs  int64       `json:"response_time_ms"`
	Error           string      `json:"error,omitempty"`
	HTTPCode        *int        `json:"http_code,omitempty"`        // website only
	MissingKeywords []string    `json:"missing_keywords,omitempty"` // website only
	StartedAt       time.Time   `json:"started_at"`
}

// Succeeded builds a successful result
func Succeeded(startedAt time.Time, elapsed time.Duration) CheckResult {
	return CheckResult{
		Success:        true,
		Status:         CheckSucceeded,
		ResponseTimeMs: ElapsedMs(elapsed),
		StartedAt:      startedAt,
	}
}

// Failed builds a failed result carrying a human-readable cause
func Failed(startedAt time.Time, elapsed time.Duration, message string) CheckResult {
	return CheckResult{
		Success:        false,
		Status:         CheckFailed,
		ResponseTimeMs: ElapsedMs(elapsed),
		Error:          message,
		StartedAt:      startedAt,
	}
}

// ElapsedMs rounds to the nearest millisecond and never goes negative
func ElapsedMs(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Round(time.Millisecond).Milliseconds()
}

// MonitorLog is one persisted check outcome. Records are append-only.
type MonitorLog struct {
	ID             int64       `json:"id,omitempty" bson:"-"`
	MonitorID      int64       `json:"monitor_id" bson:"monitor_id"`
	StartedAt      time.Time   `json:"started_at" bson:"started_at"`
	Status         CheckStatus `json:"status" bson:"status"`
	ResponseTimeMs int64       `json:"response_time_ms" bson:"response_time_ms"`
	CreatedAt      time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" bson:"updated_at"`
}

// NewMonitorLog projects a result into a log record. All three timestamps are
// the check start in UTC at second precision.
func NewMonitorLog(monitorID int64, result CheckResult) *MonitorLog {
	started := result.StartedAt.UTC().Truncate(time.Second)
	return &MonitorLog{
		MonitorID:      monitorID,
		StartedAt:      started,
		Status:         result.Status,
		ResponseTimeMs: result.ResponseTimeMs,
		CreatedAt:      started,
		UpdatedAt:      started,
	}
}

// MonitorUpdate is a manual re-check request for a monitor
type MonitorUpdate struct {
	MonitorID  int64     `json:"monitor_id" bson:"_id"`
	MustUpdate bool      `json:"must_update" bson:"must_update"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// Outcome pairs a monitor with the result of one of its checks
type Outcome struct {
	Monitor   *Monitor
	Result    CheckResult
	Persisted bool
}
