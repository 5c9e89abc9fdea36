package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dandantas/pulse/internal/config"
	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/model"
	"github.com/dandantas/pulse/pkg/middleware"
)

// typeOrder is the order in which batches run within a tick
var typeOrder = []model.MonitorType{model.MonitorTypePing, model.MonitorTypeWebsite}

// Scheduler drives periodic checks for every tracked monitor. The schedule
// and the running stats belong to the loop goroutine; other goroutines only
// read the published snapshot.
type Scheduler struct {
	cfg        *config.Config
	schedule   *Schedule
	dispatcher *Dispatcher
	watcher    *Watcher
	probes     map[model.MonitorType]Probe
	now        func() time.Time

	stats       Stats
	statsEvery  cron.Schedule
	nextStats   time.Time
	memoryBytes uint64
	snapshot    atomic.Pointer[model.StatsSnapshot]
	startTime   time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option customizes a Scheduler
type Option func(*Scheduler)

// WithClock replaces the wall clock used for due-time decisions
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	cfg *config.Config,
	store database.Store,
	sink Sink,
	probes map[model.MonitorType]Probe,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		probes:   probes,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.schedule = NewSchedule(store, store, s.now)
	s.dispatcher = NewDispatcher(sink)
	s.watcher = NewWatcher(store, store, s.schedule, sink, probes)
	s.statsEvery = cron.Every(cfg.StatsInterval)
	s.startTime = s.now().UTC()
	s.nextStats = s.statsEvery.Next(s.startTime)
	s.publishSnapshot(s.startTime)

	return s
}

// Initialize loads every monitor, checks the ones without history right
// away and computes a due time for each. A store that cannot be read fails
// startup.
func (s *Scheduler) Initialize(ctx context.Context) error {
	ctx = middleware.WithCorrelationID(ctx, uuid.New().String())

	for _, monitorType := range typeOrder {
		monitors, err := s.schedule.Load(ctx, monitorType)
		if err != nil {
			return err
		}

		var fresh []*model.Monitor
		for _, m := range monitors {
			ok, err := s.schedule.HasHistory(ctx, m)
			if err != nil {
				return err
			}
			if !ok {
				fresh = append(fresh, m)
			}
		}

		if len(fresh) > 0 {
			if p, ok := s.probe(monitorType); ok {
				slog.Info("Running initial checks",
					"type", monitorType,
					"count", len(fresh),
				)
				s.stats.Update(s.dispatcher.Dispatch(ctx, fresh, p))
			}
		}

		for _, m := range monitors {
			next, err := s.schedule.ComputeNextDue(ctx, m)
			if errors.Is(err, database.ErrCorruptRecord) {
				slog.Warn("Unreadable check history, monitor will not be scheduled",
					"monitor_id", m.ID,
					"type", monitorType,
					"error", err,
				)
				s.schedule.Track(m, time.Time{})
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to schedule monitor %d: %w", m.ID, err)
			}
			s.schedule.Track(m, next)
		}

		slog.Info("Loaded monitors",
			"type", monitorType,
			"count", len(monitors),
			"initial_checks", len(fresh),
		)
	}

	s.publishSnapshot(s.now().UTC())
	return nil
}

// Start begins the scheduler tick loop
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting scheduler",
		"tick_interval", s.cfg.SchedulerTickInterval,
		"tracked_monitors", s.schedule.Len(),
		"ping_concurrency", s.cfg.PingConcurrency,
		"website_concurrency", s.cfg.WebsiteConcurrency,
	)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop signals the loop to exit and waits for the current tick to finish
func (s *Scheduler) Stop(ctx context.Context) {
	slog.Info("Stopping scheduler")

	s.stopOnce.Do(func() { close(s.stopChan) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Scheduler stopped")
	case <-ctx.Done():
		slog.Warn("Timeout waiting for scheduler tick to complete")
	}
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			s.Tick(ctx)
			timer.Reset(s.cfg.SchedulerTickInterval)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			slog.Info("Scheduler context done")
			return
		}
	}
}

// Tick runs one pass: due batches per type, rescheduling, stats and the
// manual update queue.
func (s *Scheduler) Tick(ctx context.Context) {
	tickID := uuid.New().String()
	ctx = middleware.WithCorrelationID(ctx, tickID)

	now := s.now().UTC()
	duePing, dueWebsite := s.schedule.Due(now)
	due := map[model.MonitorType][]*model.Monitor{
		model.MonitorTypePing:    duePing,
		model.MonitorTypeWebsite: dueWebsite,
	}

	var (
		processed []*model.Monitor
		outcomes  []model.Outcome
	)
	for _, monitorType := range typeOrder {
		monitors := due[monitorType]
		if len(monitors) == 0 {
			continue
		}

		processed = append(processed, monitors...)

		p, ok := s.probe(monitorType)
		if !ok {
			continue
		}

		start := time.Now()
		results := s.dispatcher.Dispatch(ctx, monitors, p)
		outcomes = append(outcomes, results...)

		slog.Debug("Batch completed",
			"type", monitorType,
			"due", len(monitors),
			"completed", len(results),
			"duration_ms", time.Since(start).Milliseconds(),
			"tick_id", tickID,
		)
	}

	if len(processed) > 0 {
		s.schedule.Reschedule(ctx, now, processed, outcomes)
		s.stats.Update(outcomes)
	}

	s.watcher.Poll(ctx)

	if !now.Before(s.nextStats) {
		if s.stats.TotalChecks > 0 {
			s.logStats(now)
		}
		s.nextStats = s.statsEvery.Next(now)
	}

	s.publishSnapshot(now)
}

// Snapshot returns the statistics published by the last tick
func (s *Scheduler) Snapshot() model.StatsSnapshot {
	return *s.snapshot.Load()
}

func (s *Scheduler) probe(monitorType model.MonitorType) (Probe, bool) {
	p, ok := s.probes[monitorType]
	if !ok || p.Prober == nil {
		slog.Warn("No probe registered for monitor type", "type", monitorType)
		return Probe{}, false
	}
	return p, true
}

func (s *Scheduler) publishSnapshot(now time.Time) {
	s.snapshot.Store(&model.StatsSnapshot{
		TotalChecks:       s.stats.TotalChecks,
		SuccessfulChecks:  s.stats.SuccessfulChecks,
		FailedChecks:      s.stats.FailedChecks,
		SuccessRate:       s.stats.SuccessRate(),
		AvgResponseTimeMs: s.stats.AvgResponseTimeMs,
		TrackedMonitors:   s.schedule.Len(),
		MemoryBytes:       s.memoryBytes,
		Memory:            humanize.Bytes(s.memoryBytes),
		UptimeSeconds:     int64(now.Sub(s.startTime).Seconds()),
		CapturedAt:        now,
	})
}

func (s *Scheduler) logStats(now time.Time) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.memoryBytes = mem.Sys

	slog.Info("Checker stats",
		"total_checks", s.stats.TotalChecks,
		"successful_checks", s.stats.SuccessfulChecks,
		"failed_checks", s.stats.FailedChecks,
		"success_rate", fmt.Sprintf("%.1f%%", s.stats.SuccessRate()),
		"avg_response_time_ms", fmt.Sprintf("%.1f", s.stats.AvgResponseTimeMs),
		"tracked_monitors", s.schedule.Len(),
		"memory", humanize.Bytes(s.memoryBytes),
		"uptime", now.Sub(s.startTime).Round(time.Second).String(),
	)
}
