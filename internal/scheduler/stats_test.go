package scheduler_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dandantas/pulse/internal/model"
	"github.com/dandantas/pulse/internal/scheduler"
)

var _ = Describe("Stats", func() {
	result := func(ok bool, ms int64) model.Outcome {
		r := model.Succeeded(time.Now(), 0)
		if !ok {
			r = model.Failed(time.Now(), 0, "Connection timeout")
		}
		r.ResponseTimeMs = ms
		return model.Outcome{Result: r}
	}

	It("should keep an incremental mean of response times", func() {
		var stats scheduler.Stats
		stats.Update([]model.Outcome{result(true, 100), result(true, 200), result(false, 300)})

		Expect(stats.TotalChecks).To(BeEquivalentTo(3))
		Expect(stats.SuccessfulChecks).To(BeEquivalentTo(2))
		Expect(stats.FailedChecks).To(BeEquivalentTo(1))
		Expect(stats.AvgResponseTimeMs).To(BeNumerically("~", 200, 1e-9))
		Expect(stats.SuccessRate()).To(BeNumerically("~", 66.67, 0.01))
	})

	It("should report a zero success rate before any check", func() {
		var stats scheduler.Stats
		Expect(stats.SuccessRate()).To(BeZero())
	})
})
