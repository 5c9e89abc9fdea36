package scheduler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/model"
)

// Entry is a tracked monitor and the instant its next check is due.
// A zero NextDue means the due time is unknown and the monitor is skipped.
type Entry struct {
	Monitor *model.Monitor
	NextDue time.Time
}

// Schedule holds one entry per monitor id. It is owned by the scheduler loop
// and is not safe for concurrent use.
type Schedule struct {
	monitors database.MonitorStore
	logs     database.LogStore
	entries  map[int64]*Entry
	now      func() time.Time
}

// NewSchedule creates an empty schedule backed by the given stores
func NewSchedule(monitors database.MonitorStore, logs database.LogStore, now func() time.Time) *Schedule {
	if now == nil {
		now = time.Now
	}
	return &Schedule{
		monitors: monitors,
		logs:     logs,
		entries:  make(map[int64]*Entry),
		now:      now,
	}
}

// Load reads every monitor of a type. Definitions that fail validation are
// logged and left out.
func (s *Schedule) Load(ctx context.Context, monitorType model.MonitorType) ([]*model.Monitor, error) {
	monitors, err := s.monitors.ListByType(ctx, monitorType)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load %s monitors: %v", database.ErrPersistence, monitorType, err)
	}

	valid := make([]*model.Monitor, 0, len(monitors))
	for _, m := range monitors {
		if err := m.Validate(); err != nil {
			slog.Warn("Skipping invalid monitor",
				"monitor_id", m.ID,
				"type", monitorType,
				"error", err,
			)
			continue
		}
		valid = append(valid, m)
	}

	return valid, nil
}

// HasHistory reports whether any log record exists for the monitor
func (s *Schedule) HasHistory(ctx context.Context, monitor *model.Monitor) (bool, error) {
	_, ok, err := s.logs.LatestStartedAt(ctx, monitor.ID)
	if errors.Is(err, database.ErrCorruptRecord) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", database.ErrPersistence, err)
	}
	return ok, nil
}

// ComputeNextDue returns the latest started_at plus the periodicity, or now
// when the monitor has never been checked. An undecodable history is reported
// as database.ErrCorruptRecord, an unreachable store as database.ErrPersistence.
func (s *Schedule) ComputeNextDue(ctx context.Context, monitor *model.Monitor) (time.Time, error) {
	latest, ok, err := s.logs.LatestStartedAt(ctx, monitor.ID)
	if errors.Is(err, database.ErrCorruptRecord) {
		return time.Time{}, err
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", database.ErrPersistence, err)
	}
	if !ok {
		return s.now().UTC(), nil
	}
	return latest.UTC().Add(monitor.Interval()), nil
}

// Track adds a monitor or replaces its definition and due time
func (s *Schedule) Track(monitor *model.Monitor, nextDue time.Time) {
	s.entries[monitor.ID] = &Entry{Monitor: monitor, NextDue: nextDue}
}

// Refresh swaps in a newer definition of a tracked monitor, keeping its due time
func (s *Schedule) Refresh(monitor *model.Monitor) bool {
	entry, ok := s.entries[monitor.ID]
	if !ok {
		return false
	}
	entry.Monitor = monitor
	return true
}

// Get returns the entry of a tracked monitor
func (s *Schedule) Get(id int64) (*Entry, bool) {
	entry, ok := s.entries[id]
	return entry, ok
}

// Len returns the number of tracked monitors
func (s *Schedule) Len() int {
	return len(s.entries)
}

// Due partitions the monitors due at now by type, ordered by id
func (s *Schedule) Due(now time.Time) (ping, website []*model.Monitor) {
	for _, entry := range s.entries {
		if entry.NextDue.IsZero() {
			slog.Warn("Monitor has no next due time, skipping",
				"monitor_id", entry.Monitor.ID,
			)
			continue
		}
		if entry.NextDue.After(now) {
			continue
		}
		switch entry.Monitor.Type {
		case model.MonitorTypePing:
			ping = append(ping, entry.Monitor)
		case model.MonitorTypeWebsite:
			website = append(website, entry.Monitor)
		}
	}
	sortByID(ping)
	sortByID(website)
	return ping, website
}

// Reschedule recomputes the due time of monitors processed in the tick that
// started at now. Monitors whose outcome was persisted follow their history;
// the rest (check excluded or write dropped) wait one periodicity from now.
func (s *Schedule) Reschedule(ctx context.Context, now time.Time, monitors []*model.Monitor, outcomes []model.Outcome) {
	persisted := make(map[int64]bool, len(outcomes))
	for _, o := range outcomes {
		if o.Persisted {
			persisted[o.Monitor.ID] = true
		}
	}

	for _, m := range monitors {
		entry, ok := s.entries[m.ID]
		if !ok {
			continue
		}

		if !persisted[m.ID] {
			entry.NextDue = now.Add(m.Interval())
			continue
		}

		next, err := s.ComputeNextDue(ctx, m)
		if err != nil {
			slog.Error("Failed to compute next due time",
				"monitor_id", m.ID,
				"error", err,
			)
			next = now.Add(m.Interval())
		}
		entry.NextDue = next
	}
}

func sortByID(monitors []*model.Monitor) {
	slices.SortFunc(monitors, func(a, b *model.Monitor) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
