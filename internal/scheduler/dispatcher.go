package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dandantas/pulse/internal/events"
	"github.com/dandantas/pulse/internal/model"
	"github.com/dandantas/pulse/internal/probe"
	"github.com/dandantas/pulse/pkg/middleware"
)

// Sink persists check outcomes
type Sink interface {
	Persist(ctx context.Context, outcome model.Outcome, source string) error
}

// Probe binds a prober to its per-check timeout and concurrency cap
type Probe struct {
	Prober      probe.Prober
	Timeout     time.Duration
	Concurrency int
}

// Dispatcher runs batches of checks with a bound on checks in flight
type Dispatcher struct {
	sink Sink
}

// NewDispatcher creates a dispatcher persisting through sink
func NewDispatcher(sink Sink) *Dispatcher {
	return &Dispatcher{sink: sink}
}

// Dispatch checks every monitor with at most p.Concurrency checks in flight
// and persists each result before returning. Outcomes keep the input order.
// A check that panics, or that finishes after ctx was cancelled, is left out
// and not persisted.
func (d *Dispatcher) Dispatch(ctx context.Context, monitors []*model.Monitor, p Probe) []model.Outcome {
	limit := p.Concurrency
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(int64(limit))

	var wg sync.WaitGroup
	slots := make([]*model.Outcome, len(monitors))

	for i, m := range monitors {
		if err := sem.Acquire(ctx, 1); err != nil {
			slog.Warn("Batch interrupted",
				"remaining", len(monitors)-i,
				"error", err,
			)
			break
		}

		wg.Add(1)
		go func(i int, m *model.Monitor) {
			defer wg.Done()

			result, ok := runCheck(ctx, p, m, sem)
			if !ok {
				return
			}
			if ctx.Err() != nil {
				slog.Debug("Discarding check interrupted by shutdown",
					"monitor_id", m.ID,
					"type", m.Type,
					"correlation_id", middleware.GetCorrelationID(ctx),
				)
				return
			}

			outcome := model.Outcome{Monitor: m, Result: result}
			outcome.Persisted = d.sink.Persist(ctx, outcome, events.SourceScheduled) == nil
			slots[i] = &outcome
		}(i, m)
	}

	wg.Wait()

	outcomes := make([]model.Outcome, 0, len(monitors))
	for _, o := range slots {
		if o != nil {
			outcomes = append(outcomes, *o)
		}
	}
	return outcomes
}

// runCheck executes one probe, releasing the slot on sem (when given) as soon
// as the check itself is done. ok is false when the probe panicked.
func runCheck(ctx context.Context, p Probe, m *model.Monitor, sem *semaphore.Weighted) (result model.CheckResult, ok bool) {
	defer func() {
		if sem != nil {
			sem.Release(1)
		}
		if r := recover(); r != nil {
			slog.Error("Panic recovered during check",
				"monitor_id", m.ID,
				"type", m.Type,
				"error", fmt.Sprint(r),
				"stack_trace", string(debug.Stack()),
				"correlation_id", middleware.GetCorrelationID(ctx),
			)
			ok = false
		}
	}()

	return p.Prober.Check(ctx, m, p.Timeout), true
}
