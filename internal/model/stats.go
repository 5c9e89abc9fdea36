package model

import "time"

// StatsSnapshot is a point-in-time copy of the checker's running statistics
type StatsSnapshot struct {
	TotalChecks       int64     `json:"total_checks"`
	SuccessfulChecks  int64     `json:"successful_checks"`
	FailedChecks      int64     `json:"failed_checks"`
	SuccessRate       float64   `json:"success_rate"`
	AvgResponseTimeMs float64   `json:"avg_response_time_ms"`
	TrackedMonitors   int       `json:"tracked_monitors"`
	MemoryBytes       uint64    `json:"memory_bytes"`
	Memory            string    `json:"memory"`
	UptimeSeconds     int64     `json:"uptime_seconds"`
	CapturedAt        time.Time `json:"captured_at"`
}
