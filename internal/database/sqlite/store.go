package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/model"
)

// timeLayout is how timestamps are stored. It sorts lexically in time order.
const timeLayout = "2006-01-02 15:04:05"

// Store implements database.Store for SQLite.
type Store struct {
	db *sql.DB
}

var _ database.Store = (*Store)(nil)

// New opens the database file and runs migrations to ensure the schema is up to date.
func New(ctx context.Context, path string) (*Store, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	// single writer; concurrent persistence jobs queue on the pool
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close(context.Context) error { return s.db.Close() }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// migrate ensures the database schema is created.
func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS monitors (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	label         TEXT NOT NULL,
	monitor_type  TEXT NOT NULL,
	periodicity   INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'unknown',
	hostname      TEXT,
	port          INTEGER,
	url           TEXT,
	check_status  INTEGER NOT NULL DEFAULT 0,
	keywords      TEXT,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitors_type ON monitors (monitor_type);

CREATE TABLE IF NOT EXISTS monitor_logs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	monitor_id        INTEGER NOT NULL,
	started_at        TEXT NOT NULL,
	status            TEXT NOT NULL,
	response_time_ms  INTEGER NOT NULL,
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL,
	FOREIGN KEY(monitor_id) REFERENCES monitors(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_monitor_logs_monitor_id_started_at ON monitor_logs (monitor_id, started_at DESC);

CREATE TABLE IF NOT EXISTS monitor_updates (
	monitor_id   INTEGER PRIMARY KEY,
	must_update  INTEGER NOT NULL DEFAULT 0,
	updated_at   TEXT NOT NULL,
	FOREIGN KEY(monitor_id) REFERENCES monitors(id) ON DELETE CASCADE
);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const monitorColumns = `id, label, monitor_type, periodicity, status, hostname, port, url, check_status, keywords, created_at, updated_at`

// Create inserts a monitor and enqueues its first update request in one transaction.
func (s *Store) Create(ctx context.Context, monitor *model.Monitor) error {
	now := time.Now().UTC().Truncate(time.Second)
	monitor.CreatedAt = now
	monitor.UpdatedAt = now
	if monitor.Status == "" {
		monitor.Status = model.MonitorStatusUnknown
	}
	row := database.MonitorToRow(monitor)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id sql.NullInt64
	if row.ID != 0 {
		id = sql.NullInt64{Int64: row.ID, Valid: true}
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO monitors (id, label, monitor_type, periodicity, status, hostname, port, url, check_status, keywords, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, row.Label, row.Type, row.Periodicity, row.Status, row.Hostname, row.Port, row.URL,
		row.CheckStatus, row.Keywords, now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read monitor id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO monitor_updates (monitor_id, must_update, updated_at) VALUES (?, 1, ?)
		 ON CONFLICT(monitor_id) DO UPDATE SET must_update = 1, updated_at = excluded.updated_at`,
		newID, now.Format(timeLayout),
	); err != nil {
		return fmt.Errorf("failed to enqueue monitor update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit monitor: %w", err)
	}
	monitor.ID = newID
	return nil
}

// GetByID retrieves a monitor by ID.
func (s *Store) GetByID(ctx context.Context, id int64) (*model.Monitor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE id = ?`, id)
	monitor, err := scanMonitor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("monitor %d: %w", id, database.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get monitor: %w", err)
	}
	return monitor, nil
}

// ListByType retrieves every monitor of the given type.
func (s *Store) ListByType(ctx context.Context, monitorType model.MonitorType) ([]*model.Monitor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+monitorColumns+` FROM monitors WHERE monitor_type = ? ORDER BY id`, string(monitorType))
	if err != nil {
		return nil, fmt.Errorf("failed to list monitors: %w", err)
	}
	defer rows.Close()

	var monitors []*model.Monitor
	for rows.Next() {
		monitor, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monitor: %w", err)
		}
		monitors = append(monitors, monitor)
	}
	return monitors, rows.Err()
}

// Append inserts a log record and mirrors its status onto the monitor.
func (s *Store) Append(ctx context.Context, log *model.MonitorLog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO monitor_logs (monitor_id, started_at, status, response_time_ms, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		log.MonitorID,
		log.StartedAt.UTC().Format(timeLayout),
		string(log.Status),
		log.ResponseTimeMs,
		log.CreatedAt.UTC().Format(timeLayout),
		log.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create monitor log: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE monitors SET status = ?, updated_at = ? WHERE id = ?`,
		string(log.Status), log.CreatedAt.UTC().Format(timeLayout), log.MonitorID,
	); err != nil {
		return fmt.Errorf("failed to update monitor status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit monitor log: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		log.ID = id
	}
	return nil
}

// LatestStartedAt returns the newest started_at of a monitor's logs.
func (s *Store) LatestStartedAt(ctx context.Context, monitorID int64) (time.Time, bool, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(started_at) FROM monitor_logs WHERE monitor_id = ?`, monitorID).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get latest monitor log: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	t := parseTime(latest.String)
	if t.IsZero() {
		return time.Time{}, true, fmt.Errorf("failed to parse started_at %q: %w", latest.String, database.ErrCorruptRecord)
	}
	return t, true, nil
}

// ListByMonitor retrieves the newest logs of a monitor.
func (s *Store) ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]model.MonitorLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, monitor_id, started_at, status, response_time_ms, created_at, updated_at
		 FROM monitor_logs WHERE monitor_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitor logs: %w", err)
	}
	defer rows.Close()

	logs := []model.MonitorLog{}
	for rows.Next() {
		var (
			l                             model.MonitorLog
			status                        string
			startedAt, createdAt, updated string
		)
		if err := rows.Scan(&l.ID, &l.MonitorID, &startedAt, &status, &l.ResponseTimeMs, &createdAt, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan monitor log: %w", err)
		}
		l.Status = model.CheckStatus(status)
		l.StartedAt = parseTime(startedAt)
		l.CreatedAt = parseTime(createdAt)
		l.UpdatedAt = parseTime(updated)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Flag raises the must_update flag for a monitor.
func (s *Store) Flag(ctx context.Context, monitorID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO monitor_updates (monitor_id, must_update, updated_at) VALUES (?, 1, ?)
		 ON CONFLICT(monitor_id) DO UPDATE SET must_update = 1, updated_at = excluded.updated_at`,
		monitorID, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to flag monitor update: %w", err)
	}
	return nil
}

// ListFlagged returns the ids of all monitors with a pending request.
func (s *Store) ListFlagged(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT monitor_id FROM monitor_updates WHERE must_update = 1 ORDER BY monitor_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitor updates: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan monitor update: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Clear lowers the must_update flag for a monitor.
func (s *Store) Clear(ctx context.Context, monitorID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE monitor_updates SET must_update = 0, updated_at = ? WHERE monitor_id = ?`,
		time.Now().UTC().Format(timeLayout), monitorID)
	if err != nil {
		return fmt.Errorf("failed to clear monitor update: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMonitor(sc scanner) (*model.Monitor, error) {
	var (
		row                  database.MonitorRow
		createdAt, updatedAt string
	)
	if err := sc.Scan(&row.ID, &row.Label, &row.Type, &row.Periodicity, &row.Status,
		&row.Hostname, &row.Port, &row.URL, &row.CheckStatus, &row.Keywords, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	row.CreatedAt = parseTime(createdAt)
	row.UpdatedAt = parseTime(updatedAt)
	return row.ToModel(), nil
}

// parseTime reads a stored timestamp. Unparseable values yield the zero time.
func parseTime(value string) time.Time {
	if t, err := time.ParseInLocation(timeLayout, value, time.UTC); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
