package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/model"
)

// ErrValidation marks a rejected monitor definition
var ErrValidation = errors.New("validation failed")

// MonitorService handles monitor management for the HTTP API
type MonitorService struct {
	store database.Store
}

// NewMonitorService creates a new monitor service
func NewMonitorService(store database.Store) *MonitorService {
	return &MonitorService{
		store: store,
	}
}

// Create validates and stores a new monitor. The store enqueues an update
// request so the checker picks it up on its next tick.
func (s *MonitorService) Create(ctx context.Context, monitor *model.Monitor) error {
	monitor.ID = 0
	monitor.Status = ""

	if err := monitor.ValidateNew(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return s.store.Create(ctx, monitor)
}

// GetByID retrieves a monitor
func (s *MonitorService) GetByID(ctx context.Context, id int64) (*model.Monitor, error) {
	return s.store.GetByID(ctx, id)
}

// Trigger requests an out-of-band check of an existing monitor
func (s *MonitorService) Trigger(ctx context.Context, id int64) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}

	return s.store.Flag(ctx, id)
}

// Logs returns the newest log records of a monitor
func (s *MonitorService) Logs(ctx context.Context, id int64, limit int) ([]model.MonitorLog, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}

	return s.store.ListByMonitor(ctx, id, limit)
}
