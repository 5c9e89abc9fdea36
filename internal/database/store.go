package database

import (
	"context"
	"errors"
	"time"

	"github.com/dandantas/pulse/internal/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a backing store that could not be read or written
	ErrPersistence = errors.New("persistence unavailable")

	// ErrCorruptRecord marks a stored value that was read but could not be decoded
	ErrCorruptRecord = errors.New("corrupt record")
)

// MonitorStore reads and creates monitor definitions
type MonitorStore interface {
	// Create inserts the monitor, assigns its ID and enqueues an initial
	// update request for it.
	Create(ctx context.Context, monitor *model.Monitor) error
	GetByID(ctx context.Context, id int64) (*model.Monitor, error)
	ListByType(ctx context.Context, monitorType model.MonitorType) ([]*model.Monitor, error)
}

// LogStore appends and queries check outcome records
type LogStore interface {
	// Append inserts the record and sets the owning monitor's status to the
	// record's status.
	Append(ctx context.Context, log *model.MonitorLog) error
	// LatestStartedAt returns the most recent started_at for a monitor.
	// The boolean is false when the monitor has no records. A newest record
	// that cannot be decoded yields true with an ErrCorruptRecord error.
	LatestStartedAt(ctx context.Context, monitorID int64) (time.Time, bool, error)
	ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]model.MonitorLog, error)
}

// UpdateStore manages manual re-check requests
type UpdateStore interface {
	Flag(ctx context.Context, monitorID int64) error
	ListFlagged(ctx context.Context) ([]int64, error)
	Clear(ctx context.Context, monitorID int64) error
}

// Store is a complete backing store for the checker
type Store interface {
	MonitorStore
	LogStore
	UpdateStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
