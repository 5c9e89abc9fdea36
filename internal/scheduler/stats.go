package scheduler

import (
	"github.com/dandantas/pulse/internal/model"
)

// Stats accumulates check outcomes in memory. Owned by the scheduler loop.
type Stats struct {
	TotalChecks       int64
	SuccessfulChecks  int64
	FailedChecks      int64
	AvgResponseTimeMs float64
}

// Update folds a batch of outcomes into the running totals and mean
func (s *Stats) Update(outcomes []model.Outcome) {
	for _, o := range outcomes {
		s.Record(o.Result)
	}
}

// Record folds one result into the running totals and mean
func (s *Stats) Record(result model.CheckResult) {
	s.TotalChecks++
	if result.Success {
		s.SuccessfulChecks++
	} else {
		s.FailedChecks++
	}

	n := float64(s.TotalChecks)
	s.AvgResponseTimeMs = (s.AvgResponseTimeMs*(n-1) + float64(result.ResponseTimeMs)) / n
}

// SuccessRate returns the percentage of successful checks
func (s *Stats) SuccessRate() float64 {
	if s.TotalChecks == 0 {
		return 0
	}
	return float64(s.SuccessfulChecks) / float64(s.TotalChecks) * 100
}
