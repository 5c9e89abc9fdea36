package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dandantas/pulse/internal/model"
)

// UserAgent is sent with every website check
const UserAgent = "MonitorChecker/2.0 (Go)"

// WebsiteProbe fetches a URL and evaluates status code and keywords
type WebsiteProbe struct {
	client *http.Client
}

// NewWebsiteProbe creates a website probe on the shared client
func NewWebsiteProbe(client *http.Client) *WebsiteProbe {
	return &WebsiteProbe{client: client}
}

// Check issues a GET, reads the full body and evaluates it: status first,
// then keywords.
func (p *WebsiteProbe) Check(ctx context.Context, monitor *model.Monitor, timeout time.Duration) model.CheckResult {
	start := time.Now()
	startedAt := start.UTC()

	if monitor.Website == nil {
		return model.Failed(startedAt, 0, "monitor has no website target")
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, monitor.Website.URL, nil)
	if err != nil {
		return model.Failed(startedAt, time.Since(start), err.Error())
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return p.transportFailure(monitor, startedAt, time.Since(start), err)
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.transportFailure(monitor, startedAt, elapsed, err)
	}

	result := Evaluate(monitor.Website, resp.StatusCode, string(body))
	result.StartedAt = startedAt
	result.ResponseTimeMs = model.ElapsedMs(elapsed)

	slog.Debug("Website check completed",
		"monitor_id", monitor.ID,
		"url", monitor.Website.URL,
		"status", result.Status,
		"http_code", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)
	return result
}

func (p *WebsiteProbe) transportFailure(monitor *model.Monitor, startedAt time.Time, elapsed time.Duration, err error) model.CheckResult {
	message := err.Error()
	if isTimeout(err) {
		message = "Request timeout"
	}
	slog.Debug("Website check failed",
		"monitor_id", monitor.ID,
		"url", monitor.Website.URL,
		"error", message,
	)
	return model.Failed(startedAt, elapsed, message)
}

// Evaluate applies the website expectations to a received response. The
// status check only runs when CheckStatus is set; keyword matching is a
// case-sensitive substring search that ignores empty keywords.
func Evaluate(target *model.WebsiteTarget, statusCode int, body string) model.CheckResult {
	code := statusCode
	result := model.CheckResult{
		Success:         true,
		Status:          model.CheckSucceeded,
		HTTPCode:        &code,
		MissingKeywords: []string{},
	}

	if target.CheckStatus && (statusCode < 200 || statusCode >= 300) {
		result.Success = false
		result.Status = model.CheckFailed
		result.Error = fmt.Sprintf("HTTP status code %d not in range [200, 300)", statusCode)
		return result
	}

	for _, keyword := range target.Keywords {
		if keyword != "" && !strings.Contains(body, keyword) {
			result.MissingKeywords = append(result.MissingKeywords, keyword)
		}
	}
	if len(result.MissingKeywords) > 0 {
		result.Success = false
		result.Status = model.CheckFailed
		result.Error = "Missing keywords: " + strings.Join(result.MissingKeywords, ", ")
	}

	return result
}
