package probe_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dandantas/pulse/internal/model"
	"github.com/dandantas/pulse/internal/probe"
)

func websiteMonitor(url string, checkStatus bool, keywords ...string) *model.Monitor {
	return &model.Monitor{
		ID:          7,
		Label:       "site",
		Type:        model.MonitorTypeWebsite,
		Periodicity: 30,
		Website:     &model.WebsiteTarget{URL: url, CheckStatus: checkStatus, Keywords: keywords},
	}
}

var _ = Describe("WebsiteProbe", func() {
	var (
		server *httptest.Server
		mu     sync.Mutex
		status int
		body   string
		delay  time.Duration
		agent  string
		wp     *probe.WebsiteProbe
	)

	respond := func(code int, content string, wait time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		status, body, delay = code, content, wait
	}

	lastAgent := func() string {
		mu.Lock()
		defer mu.Unlock()
		return agent
	}

	BeforeEach(func() {
		respond(http.StatusOK, "service OK and ready", 0)
		server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			agent = r.Header.Get("User-Agent")
			status, body, delay := status, body, delay
			mu.Unlock()

			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
					return
				}
			}
			w.WriteHeader(status)
			fmt.Fprint(w, body)
		}))
		DeferCleanup(server.Close)
		wp = probe.NewWebsiteProbe(probe.NewHTTPClient(10))
	})

	It("should succeed over self-signed TLS when status and keywords match", func() {
		result := wp.Check(context.Background(), websiteMonitor(server.URL, true, "OK", "ready"), 2*time.Second)

		Expect(result.Success).To(BeTrue())
		Expect(result.Status).To(Equal(model.CheckSucceeded))
		Expect(result.HTTPCode).To(HaveValue(Equal(http.StatusOK)))
		Expect(result.MissingKeywords).NotTo(BeNil())
		Expect(result.MissingKeywords).To(BeEmpty())
		Expect(lastAgent()).To(Equal(probe.UserAgent))
	})

	It("should fail on a 404 when the status is checked", func() {
		respond(http.StatusNotFound, "", 0)

		result := wp.Check(context.Background(), websiteMonitor(server.URL, true), 2*time.Second)

		Expect(result.Success).To(BeFalse())
		Expect(result.HTTPCode).To(HaveValue(Equal(http.StatusNotFound)))
		Expect(result.Error).To(Equal("HTTP status code 404 not in range [200, 300)"))
	})

	It("should ignore the status code when it is not checked", func() {
		respond(http.StatusInternalServerError, "OK", 0)

		result := wp.Check(context.Background(), websiteMonitor(server.URL, false, "OK"), 2*time.Second)

		Expect(result.Success).To(BeTrue())
	})

	It("should list missing keywords in order", func() {
		respond(http.StatusOK, "nothing to see", 0)

		result := wp.Check(context.Background(), websiteMonitor(server.URL, true, "OK", "", "ready"), 2*time.Second)

		Expect(result.Success).To(BeFalse())
		Expect(result.MissingKeywords).To(Equal([]string{"OK", "ready"}))
		Expect(result.Error).To(Equal("Missing keywords: OK, ready"))
	})

	It("should report a request timeout without an HTTP code", func() {
		respond(http.StatusOK, "", time.Second)

		result := wp.Check(context.Background(), websiteMonitor(server.URL, true), 100*time.Millisecond)

		Expect(result.Success).To(BeFalse())
		Expect(result.Error).To(Equal("Request timeout"))
		Expect(result.HTTPCode).To(BeNil())
		Expect(result.ResponseTimeMs).To(BeNumerically(">=", 100))
	})

	It("should fail with the transport error for an unreachable host", func() {
		server.Close()

		result := wp.Check(context.Background(), websiteMonitor(server.URL, true), time.Second)

		Expect(result.Success).To(BeFalse())
		Expect(result.Error).NotTo(BeEmpty())
		Expect(result.HTTPCode).To(BeNil())
	})
})

var _ = Describe("Evaluate", func() {
	It("should check status before keywords", func() {
		target := &model.WebsiteTarget{CheckStatus: true, Keywords: []string{"missing"}}

		result := probe.Evaluate(target, http.StatusBadGateway, "")

		Expect(result.Error).To(Equal("HTTP status code 502 not in range [200, 300)"))
		Expect(result.MissingKeywords).To(BeEmpty())
	})

	It("should match keywords case-sensitively", func() {
		target := &model.WebsiteTarget{Keywords: []string{"OK"}}

		result := probe.Evaluate(target, http.StatusOK, "ok")

		Expect(result.Success).To(BeFalse())
		Expect(result.MissingKeywords).To(Equal([]string{"OK"}))
	})
})
