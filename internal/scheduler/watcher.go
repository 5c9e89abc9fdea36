package scheduler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/events"
	"github.com/dandantas/pulse/internal/model"
	"github.com/dandantas/pulse/pkg/middleware"
)

// Watcher drains manual re-check requests
type Watcher struct {
	monitors database.MonitorStore
	updates  database.UpdateStore
	schedule *Schedule
	sink     Sink
	probes   map[model.MonitorType]Probe
}

// NewWatcher creates a watcher that checks flagged monitors with probes
func NewWatcher(
	monitors database.MonitorStore,
	updates database.UpdateStore,
	schedule *Schedule,
	sink Sink,
	probes map[model.MonitorType]Probe,
) *Watcher {
	return &Watcher{
		monitors: monitors,
		updates:  updates,
		schedule: schedule,
		sink:     sink,
		probes:   probes,
	}
}

// Poll processes every flagged monitor in turn and returns the outcomes that
// were checked. A flag is cleared only after its result was persisted, so an
// interrupted request is picked up again on the next poll.
func (w *Watcher) Poll(ctx context.Context) []model.Outcome {
	ids, err := w.updates.ListFlagged(ctx)
	if err != nil {
		slog.Error("Failed to list update requests", "error", err)
		return nil
	}

	if len(ids) == 0 {
		return nil
	}

	slog.Debug("Processing update requests", "count", len(ids))

	outcomes := make([]model.Outcome, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		reqCtx := middleware.WithCorrelationID(ctx, uuid.New().String())
		if outcome, ok := w.process(reqCtx, id); ok {
			outcomes = append(outcomes, outcome)
		}
	}

	return outcomes
}

func (w *Watcher) process(ctx context.Context, id int64) (model.Outcome, bool) {
	correlationID := middleware.GetCorrelationID(ctx)

	monitor, err := w.monitors.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		slog.Warn("Update requested for unknown monitor",
			"monitor_id", id,
			"correlation_id", correlationID,
		)
		w.clear(ctx, id)
		return model.Outcome{}, false
	}
	if err != nil {
		slog.Error("Failed to load monitor for update",
			"monitor_id", id,
			"correlation_id", correlationID,
			"error", err,
		)
		return model.Outcome{}, false
	}

	if err := monitor.Validate(); err != nil {
		slog.Warn("Update requested for invalid monitor",
			"monitor_id", id,
			"correlation_id", correlationID,
			"error", err,
		)
		w.clear(ctx, id)
		return model.Outcome{}, false
	}

	p, ok := w.probes[monitor.Type]
	if !ok {
		slog.Warn("No probe registered for monitor type",
			"monitor_id", id,
			"type", monitor.Type,
			"correlation_id", correlationID,
		)
		w.clear(ctx, id)
		return model.Outcome{}, false
	}

	result, ok := runCheck(ctx, p, monitor, nil)
	if !ok {
		w.clear(ctx, id)
		return model.Outcome{}, false
	}
	// left flagged so the request runs again after restart
	if ctx.Err() != nil {
		slog.Debug("Discarding manual check interrupted by shutdown",
			"monitor_id", id,
			"correlation_id", correlationID,
		)
		return model.Outcome{}, false
	}

	outcome := model.Outcome{Monitor: monitor, Result: result}
	if err := w.sink.Persist(ctx, outcome, events.SourceManual); err != nil {
		return outcome, false
	}
	outcome.Persisted = true

	w.clear(ctx, id)

	slog.Info("Manual check completed",
		"monitor_id", id,
		"status", result.Status,
		"response_time_ms", result.ResponseTimeMs,
		"correlation_id", correlationID,
	)

	if !w.schedule.Refresh(monitor) {
		next, err := w.schedule.ComputeNextDue(ctx, monitor)
		if err != nil {
			slog.Error("Failed to compute next due time",
				"monitor_id", id,
				"correlation_id", correlationID,
				"error", err,
			)
			next = result.StartedAt.UTC().Add(monitor.Interval())
		}
		w.schedule.Track(monitor, next)
		slog.Info("Started tracking monitor",
			"monitor_id", id,
			"type", monitor.Type,
			"next_due", next,
		)
	}

	return outcome, true
}

func (w *Watcher) clear(ctx context.Context, id int64) {
	if err := w.updates.Clear(ctx, id); err != nil {
		slog.Error("Failed to clear update request",
			"monitor_id", id,
			"correlation_id", middleware.GetCorrelationID(ctx),
			"error", err,
		)
	}
}
