package worker

import (
	"context"
)

// Job represents a unit of persistence work
type Job struct {
	MonitorID     int64
	CorrelationID string
	Context       context.Context
	Run           func(ctx context.Context) error
	Done          chan<- Result // If nil, the result is discarded
}

// Result represents the outcome of a job
type Result struct {
	MonitorID     int64
	CorrelationID string
	Error         error
}
