package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/events"
	"github.com/dandantas/pulse/internal/model"
	"github.com/dandantas/pulse/internal/worker"
	"github.com/dandantas/pulse/pkg/middleware"
)

// ResultSink persists check outcomes as log records
type ResultSink struct {
	logs      database.LogStore
	pool      *worker.WorkerPool
	publisher events.Publisher
}

// NewResultSink creates a sink writing through the persistence worker pool
func NewResultSink(logs database.LogStore, pool *worker.WorkerPool, publisher events.Publisher) *ResultSink {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &ResultSink{
		logs:      logs,
		pool:      pool,
		publisher: publisher,
	}
}

// Persist appends the outcome's log record on the worker pool and waits for
// the write to finish. A failed write is logged and returned; it is never
// retried.
func (s *ResultSink) Persist(ctx context.Context, outcome model.Outcome, source string) error {
	correlationID := middleware.GetCorrelationID(ctx)
	log := model.NewMonitorLog(outcome.Monitor.ID, outcome.Result)

	err := s.pool.SubmitWait(worker.Job{
		MonitorID:     outcome.Monitor.ID,
		CorrelationID: correlationID,
		Context:       context.WithoutCancel(ctx),
		Run: func(ctx context.Context) error {
			if err := s.logs.Append(ctx, log); err != nil {
				return err
			}

			event := events.NewResultEvent(outcome.Monitor, outcome.Result, source, correlationID)
			if err := s.publisher.Publish(ctx, event); err != nil {
				slog.Warn("Failed to publish result event",
					"monitor_id", outcome.Monitor.ID,
					"correlation_id", correlationID,
					"error", err,
				)
			}
			return nil
		},
	})
	if err != nil {
		slog.Error("Failed to persist check result",
			"monitor_id", outcome.Monitor.ID,
			"status", outcome.Result.Status,
			"correlation_id", correlationID,
			"error", err,
		)
		return fmt.Errorf("failed to persist result for monitor %d: %w", outcome.Monitor.ID, err)
	}

	return nil
}
