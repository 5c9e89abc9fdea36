package events_test

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dandantas/pulse/internal/events"
	"github.com/dandantas/pulse/internal/model"
)

var _ = Describe("ResultEvent", func() {
	It("should carry the monitor identity and the website details", func() {
		code := 503
		monitor := &model.Monitor{ID: 9, Label: "api", Type: model.MonitorTypeWebsite}
		started := time.Date(2025, 8, 22, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))
		result := model.CheckResult{
			Status:         model.CheckFailed,
			ResponseTimeMs: 87,
			Error:          "HTTP status code 503 not in range [200, 300)",
			HTTPCode:       &code,
			StartedAt:      started,
		}

		event := events.NewResultEvent(monitor, result, events.SourceManual, "corr-1")

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())
		Expect(payload).To(MatchJSON(`{
			"monitor_id": 9,
			"label": "api",
			"type": "website",
			"source": "manual",
			"status": "failed",
			"response_time_ms": 87,
			"error": "HTTP status code 503 not in range [200, 300)",
			"http_code": 503,
			"started_at": "2025-08-22T07:30:00Z",
			"correlation_id": "corr-1"
		}`))
	})

	It("should discard events when no stream is configured", func() {
		var p events.Publisher = events.Discard{}
		Expect(p.Publish(context.Background(), events.ResultEvent{})).To(Succeed())
		Expect(p.Close()).To(Succeed())
	})
})
