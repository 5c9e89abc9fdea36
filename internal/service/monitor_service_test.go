package service_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/database/sqlite"
	"github.com/dandantas/pulse/internal/model"
	"github.com/dandantas/pulse/internal/service"
)

var _ = Describe("MonitorService", func() {
	var (
		ctx   context.Context
		store *sqlite.Store
		svc   *service.MonitorService
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = sqlite.New(ctx, filepath.Join(GinkgoT().TempDir(), "monitors.db"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(store.Close(ctx)).To(Succeed()) })
		svc = service.NewMonitorService(store)
	})

	website := func(periodicity int) *model.Monitor {
		return &model.Monitor{
			Label:       "site",
			Type:        model.MonitorTypeWebsite,
			Periodicity: periodicity,
			Website: &model.WebsiteTarget{
				URL:      "https://example.com",
				Keywords: []string{"OK"},
			},
		}
	}

	It("should create a valid monitor with an unknown status", func() {
		m := website(60)
		m.ID = 77
		m.Status = "succeeded"

		Expect(svc.Create(ctx, m)).To(Succeed())
		Expect(m.ID).NotTo(BeEquivalentTo(77))

		stored, err := svc.GetByID(ctx, m.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Status).To(Equal(model.MonitorStatusUnknown))
		Expect(stored.Website.Keywords).To(Equal([]string{"OK"}))
	})

	It("should reject periodicities outside the accepted range", func() {
		Expect(svc.Create(ctx, website(4))).To(MatchError(service.ErrValidation))
		Expect(svc.Create(ctx, website(301))).To(MatchError(service.ErrValidation))
	})

	It("should flag existing monitors only", func() {
		m := website(60)
		Expect(svc.Create(ctx, m)).To(Succeed())
		Expect(store.Clear(ctx, m.ID)).To(Succeed())

		Expect(svc.Trigger(ctx, m.ID)).To(Succeed())
		Expect(store.ListFlagged(ctx)).To(ConsistOf(m.ID))

		Expect(svc.Trigger(ctx, m.ID+100)).To(MatchError(database.ErrNotFound))
	})

	It("should not list logs of an unknown monitor", func() {
		_, err := svc.Logs(ctx, 5, 10)
		Expect(err).To(MatchError(database.ErrNotFound))
	})
})
