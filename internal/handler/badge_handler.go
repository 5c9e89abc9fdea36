package handler

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/model"
	"github.com/dandantas/pulse/internal/service"
	"github.com/dandantas/pulse/pkg/middleware"
)

const badgeBaseURL = "https://img.shields.io/badge/"

// shields.io treats single dashes and underscores as separators
var badgeEscaper = strings.NewReplacer("-", "--", "_", "__")

// BadgeHandler renders an embeddable status badge for a monitor
type BadgeHandler struct {
	service *service.MonitorService
}

// NewBadgeHandler creates a new badge handler
func NewBadgeHandler(service *service.MonitorService) *BadgeHandler {
	return &BadgeHandler{
		service: service,
	}
}

// Get handles GET /api/v1/badge/{id}. Unknown monitors get a gray "unknown"
// badge rather than an error so embedded images keep rendering.
func (h *BadgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	label, status, color := "Monitor", "unknown", "gray"

	id, ok := parseID(r)
	if ok {
		monitor, err := h.service.GetByID(r.Context(), id)
		switch {
		case err == nil:
			label = monitor.Label
			status, color = "down", "red"
			if monitor.Status == string(model.CheckSucceeded) {
				status, color = "up", "green"
			}
			slog.Info("Badge generated",
				"monitor_id", id,
				"status", status,
				"correlation_id", correlationID,
			)
		case errors.Is(err, database.ErrNotFound):
			slog.Warn("Badge requested for unknown monitor",
				"monitor_id", id,
				"correlation_id", correlationID,
			)
		default:
			writeServiceError(w, err)
			return
		}
	}

	src := badgeBaseURL + badgeSegment(label) + "-" + badgeSegment(status) + "-" + color

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<img alt="%s" src="%s">`, html.EscapeString(label), html.EscapeString(src))
}

func badgeSegment(text string) string {
	return url.PathEscape(badgeEscaper.Replace(text))
}
