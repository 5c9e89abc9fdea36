package handler

import (
	"net/http"

	"github.com/dandantas/pulse/internal/model"
)

// StatsSource publishes the checker's running statistics
type StatsSource interface {
	Snapshot() model.StatsSnapshot
}

// StatsHandler exposes checker statistics
type StatsHandler struct {
	source StatsSource
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(source StatsSource) *StatsHandler {
	return &StatsHandler{source: source}
}

// Get handles GET /api/v1/stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.Snapshot())
}
