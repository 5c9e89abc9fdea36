package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/model"
	"github.com/dandantas/pulse/internal/scheduler"
)

var _ = Describe("Schedule", func() {
	var (
		ctx      context.Context
		store    *memStore
		clk      *clock
		schedule *scheduler.Schedule
		base     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newMemStore()
		base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		clk = newClock(base)
		schedule = scheduler.NewSchedule(store, store, clk.Now)
	})

	appendLog := func(monitorID int64, started time.Time) {
		Expect(store.Append(ctx, model.NewMonitorLog(monitorID, model.Succeeded(started, 0)))).To(Succeed())
	}

	Describe("ComputeNextDue", func() {
		It("should be due immediately without history", func() {
			m := store.seed(pingMonitor("db", 30))

			next, err := schedule.ComputeNextDue(ctx, m)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal(base))

			ok, err := schedule.HasHistory(ctx, m)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should tell an unreadable history apart from an unreachable store", func() {
			corrupt := store.seed(pingMonitor("db", 30))
			down := store.seed(pingMonitor("cache", 30))
			store.latestErr = map[int64]error{
				corrupt.ID: fmt.Errorf("bad started_at: %w", database.ErrCorruptRecord),
				down.ID:    errStoreDown,
			}

			ok, err := schedule.HasHistory(ctx, corrupt)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			_, err = schedule.ComputeNextDue(ctx, corrupt)
			Expect(err).To(MatchError(database.ErrCorruptRecord))
			Expect(errors.Is(err, database.ErrPersistence)).To(BeFalse())

			_, err = schedule.HasHistory(ctx, down)
			Expect(err).To(MatchError(database.ErrPersistence))
			_, err = schedule.ComputeNextDue(ctx, down)
			Expect(err).To(MatchError(database.ErrPersistence))
		})

		It("should add the periodicity to the latest start", func() {
			m := store.seed(pingMonitor("db", 30))
			appendLog(m.ID, base.Add(-time.Minute))
			appendLog(m.ID, base.Add(-10*time.Second))

			next, err := schedule.ComputeNextDue(ctx, m)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal(base.Add(20 * time.Second)))
		})
	})

	Describe("Load", func() {
		It("should skip invalid monitors", func() {
			store.seed(pingMonitor("db", 30))
			broken := pingMonitor("broken", 30)
			broken.Ping = nil
			store.seed(broken)

			monitors, err := schedule.Load(ctx, model.MonitorTypePing)
			Expect(err).NotTo(HaveOccurred())
			Expect(monitors).To(HaveLen(1))
			Expect(monitors[0].Label).To(Equal("db"))
		})

		It("should report an unreachable store as a persistence error", func() {
			store.listErr = errStoreDown

			_, err := schedule.Load(ctx, model.MonitorTypePing)
			Expect(err).To(MatchError(database.ErrPersistence))
		})
	})

	Describe("Due", func() {
		It("should partition due monitors by type in id order", func() {
			w := store.seed(websiteMonitor("site", 60))
			p2 := store.seed(pingMonitor("cache", 30))
			p1 := store.seed(pingMonitor("db", 30))
			later := store.seed(pingMonitor("queue", 30))

			schedule.Track(w, base)
			schedule.Track(p1, base.Add(-time.Second))
			schedule.Track(p2, base)
			schedule.Track(later, base.Add(time.Second))

			ping, website := schedule.Due(base)
			Expect(ping).To(HaveLen(2))
			Expect(ping[0].ID).To(Equal(p2.ID))
			Expect(ping[1].ID).To(Equal(p1.ID))
			Expect(website).To(ConsistOf(w))
		})

		It("should skip entries without a due time", func() {
			m := store.seed(pingMonitor("db", 30))
			schedule.Track(m, time.Time{})

			ping, website := schedule.Due(base)
			Expect(ping).To(BeEmpty())
			Expect(website).To(BeEmpty())
		})
	})

	Describe("Reschedule", func() {
		It("should follow history for persisted outcomes and wait one period otherwise", func() {
			persisted := store.seed(pingMonitor("db", 30))
			dropped := store.seed(pingMonitor("cache", 10))
			excluded := store.seed(pingMonitor("queue", 20))
			for _, m := range []*model.Monitor{persisted, dropped, excluded} {
				schedule.Track(m, base)
			}

			started := base.Add(-3 * time.Second)
			appendLog(persisted.ID, started)

			schedule.Reschedule(ctx, base, []*model.Monitor{persisted, dropped, excluded}, []model.Outcome{
				{Monitor: persisted, Persisted: true},
				{Monitor: dropped, Persisted: false},
			})

			entry, ok := schedule.Get(persisted.ID)
			Expect(ok).To(BeTrue())
			Expect(entry.NextDue).To(Equal(started.Add(30 * time.Second)))

			entry, _ = schedule.Get(dropped.ID)
			Expect(entry.NextDue).To(Equal(base.Add(10 * time.Second)))

			entry, _ = schedule.Get(excluded.ID)
			Expect(entry.NextDue).To(Equal(base.Add(20 * time.Second)))
		})
	})

	It("should swap definitions on refresh without moving the due time", func() {
		m := store.seed(pingMonitor("db", 30))
		Expect(schedule.Refresh(m)).To(BeFalse())

		schedule.Track(m, base.Add(time.Minute))
		updated := *m
		updated.Label = "primary db"
		Expect(schedule.Refresh(&updated)).To(BeTrue())

		entry, _ := schedule.Get(m.ID)
		Expect(entry.Monitor.Label).To(Equal("primary db"))
		Expect(entry.NextDue).To(Equal(base.Add(time.Minute)))
		Expect(schedule.Len()).To(Equal(1))
	})
})
