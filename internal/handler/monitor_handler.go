package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dandantas/pulse/internal/model"
	"github.com/dandantas/pulse/internal/service"
	"github.com/dandantas/pulse/pkg/middleware"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// MonitorHandler handles monitor definitions and manual triggers
type MonitorHandler struct {
	service *service.MonitorService
}

// NewMonitorHandler creates a new monitor handler
func NewMonitorHandler(service *service.MonitorService) *MonitorHandler {
	return &MonitorHandler{
		service: service,
	}
}

// TriggerResponse represents the trigger response
type TriggerResponse struct {
	MonitorID     int64  `json:"monitor_id"`
	CorrelationID string `json:"correlation_id"`
	Message       string `json:"message"`
}

// LogListResponse represents the log list response
type LogListResponse struct {
	MonitorID int64              `json:"monitor_id"`
	Limit     int                `json:"limit"`
	Results   []model.MonitorLog `json:"results"`
}

// Create handles POST /api/v1/monitors
func (h *MonitorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var monitor model.Monitor
	if err := json.NewDecoder(r.Body).Decode(&monitor); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.service.Create(r.Context(), &monitor); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, monitor)
}

// Get handles GET /api/v1/monitors/{id}
func (h *MonitorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid monitor id")
		return
	}

	monitor, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, monitor)
}

// Trigger handles POST /api/v1/monitors/{id}/trigger
func (h *MonitorHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid monitor id")
		return
	}

	if err := h.service.Trigger(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, TriggerResponse{
		MonitorID:     id,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
		Message:       "Check queued",
	})
}

// Logs handles GET /api/v1/monitors/{id}/logs
func (h *MonitorHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid monitor id")
		return
	}

	limit := parseQueryInt(r, "limit", defaultLogLimit)
	if limit < 1 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	logs, err := h.service.Logs(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if logs == nil {
		logs = []model.MonitorLog{}
	}

	writeJSON(w, http.StatusOK, LogListResponse{
		MonitorID: id,
		Limit:     limit,
		Results:   logs,
	})
}
