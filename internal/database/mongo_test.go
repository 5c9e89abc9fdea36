package database_test

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/model"
	"github.com/google/uuid"
)

var _ = Describe("MongoStore", Label("integration"), func() {
	var (
		ctx   context.Context
		db    *database.MongoDB
		store *database.MongoStore
	)

	BeforeEach(func() {
		uri := os.Getenv("PULSE_TEST_MONGO_URI")
		if uri == "" {
			Skip("PULSE_TEST_MONGO_URI not set")
		}
		ctx = context.Background()

		var err error
		db, err = database.Connect(ctx, uri, "pulse_test_"+uuid.NewString()[:8], 10*time.Second, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(database.CreateIndexes(ctx, db)).To(Succeed())
		store = database.NewMongoStore(db)

		DeferCleanup(func() {
			Expect(db.Database.Drop(ctx)).To(Succeed())
			Expect(store.Close(ctx)).To(Succeed())
		})
	})

	It("should create, log and clear a monitor", func() {
		m := &model.Monitor{
			Label:       "db",
			Type:        model.MonitorTypePing,
			Periodicity: 10,
			Ping:        &model.PingTarget{Hostname: "localhost", Port: 27017},
		}
		Expect(store.Create(ctx, m)).To(Succeed())
		Expect(m.ID).To(Equal(int64(1)))

		flagged, err := store.ListFlagged(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(flagged).To(Equal([]int64{m.ID}))

		started := time.Now().UTC().Truncate(time.Second)
		Expect(store.Append(ctx, model.NewMonitorLog(m.ID, model.Succeeded(started, time.Millisecond)))).To(Succeed())

		latest, ok, err := store.LatestStartedAt(ctx, m.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(latest).To(BeTemporally("==", started))

		got, err := store.GetByID(ctx, m.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(string(model.CheckSucceeded)))

		Expect(store.Clear(ctx, m.ID)).To(Succeed())
		flagged, err = store.ListFlagged(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(flagged).To(BeEmpty())
	})
})
