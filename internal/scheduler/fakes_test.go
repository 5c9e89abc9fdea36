package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/model"
)

var errStoreDown = errors.New("store down")

// memStore is an in-memory database.Store with failure injection
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	monitors map[int64]*model.Monitor
	logs     []model.MonitorLog
	flags    map[int64]bool
	clears   map[int64]int

	listErr   error
	appendErr error
	latestErr map[int64]error
}

var _ database.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		monitors: make(map[int64]*model.Monitor),
		flags:    make(map[int64]bool),
		clears:   make(map[int64]int),
	}
}

func (s *memStore) Create(_ context.Context, monitor *model.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	monitor.ID = s.nextID
	monitor.Status = model.MonitorStatusUnknown
	copied := *monitor
	s.monitors[monitor.ID] = &copied
	s.flags[monitor.ID] = true
	return nil
}

// seed stores a monitor without raising an update request
func (s *memStore) seed(monitor *model.Monitor) *model.Monitor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	monitor.ID = s.nextID
	copied := *monitor
	s.monitors[monitor.ID] = &copied
	return monitor
}

func (s *memStore) GetByID(_ context.Context, id int64) (*model.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[id]
	if !ok {
		return nil, fmt.Errorf("monitor %d: %w", id, database.ErrNotFound)
	}
	copied := *m
	return &copied, nil
}

func (s *memStore) ListByType(_ context.Context, monitorType model.MonitorType) ([]*model.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*model.Monitor
	for _, m := range s.monitors {
		if m.Type == monitorType {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memStore) Append(_ context.Context, log *model.MonitorLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.logs = append(s.logs, *log)
	if m, ok := s.monitors[log.MonitorID]; ok {
		m.Status = string(log.Status)
	}
	return nil
}

func (s *memStore) LatestStartedAt(_ context.Context, monitorID int64) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.latestErr[monitorID]; err != nil {
		return time.Time{}, errors.Is(err, database.ErrCorruptRecord), err
	}
	var latest time.Time
	found := false
	for _, l := range s.logs {
		if l.MonitorID == monitorID && (!found || l.StartedAt.After(latest)) {
			latest = l.StartedAt
			found = true
		}
	}
	return latest, found, nil
}

func (s *memStore) ListByMonitor(_ context.Context, monitorID int64, limit int) ([]model.MonitorLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.MonitorLog
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.logs[i].MonitorID == monitorID {
			out = append(out, s.logs[i])
		}
	}
	return out, nil
}

func (s *memStore) logsFor(monitorID int64) []model.MonitorLog {
	logs, _ := s.ListByMonitor(context.Background(), monitorID, 1000)
	return logs
}

func (s *memStore) Flag(_ context.Context, monitorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[monitorID] = true
	return nil
}

func (s *memStore) ListFlagged(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, flagged := range s.flags {
		if flagged {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *memStore) Clear(_ context.Context, monitorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[monitorID] = false
	s.clears[monitorID]++
	return nil
}

func (s *memStore) clearCount(monitorID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears[monitorID]
}

func (s *memStore) Ping(context.Context) error  { return nil }
func (s *memStore) Close(context.Context) error { return nil }

// directSink persists straight into the store
type directSink struct {
	store *memStore
}

func (d directSink) Persist(ctx context.Context, outcome model.Outcome, _ string) error {
	return d.store.Append(ctx, model.NewMonitorLog(outcome.Monitor.ID, outcome.Result))
}

// fakeProber records concurrency and returns canned results
type fakeProber struct {
	now      func() time.Time
	delay    time.Duration
	latency  map[int64]int64
	panicOn  map[int64]bool
	onCheck  func()
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (p *fakeProber) Check(ctx context.Context, monitor *model.Monitor, timeout time.Duration) model.CheckResult {
	p.calls.Add(1)
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if p.panicOn[monitor.ID] {
		panic("check exploded")
	}

	if p.onCheck != nil {
		p.onCheck()
	}

	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	started := time.Now()
	if p.now != nil {
		started = p.now()
	}

	if ctx.Err() != nil {
		return model.Failed(started, 0, "Connection timeout")
	}

	result := model.Succeeded(started, 0)
	result.ResponseTimeMs = p.latency[monitor.ID]
	return result
}

// clock is a manually advanced time source
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func pingMonitor(label string, periodicity int) *model.Monitor {
	return &model.Monitor{
		Label:       label,
		Type:        model.MonitorTypePing,
		Periodicity: periodicity,
		Ping:        &model.PingTarget{Hostname: "db.internal", Port: 5432},
	}
}

func websiteMonitor(label string, periodicity int) *model.Monitor {
	return &model.Monitor{
		Label:       label,
		Type:        model.MonitorTypeWebsite,
		Periodicity: periodicity,
		Website:     &model.WebsiteTarget{URL: "https://example.com/health", CheckStatus: true},
	}
}
