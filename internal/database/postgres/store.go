package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/model"
)

// Store implements database.Store for PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

var _ database.Store = (*Store)(nil)

// New creates a connection pool of at most poolSize connections and runs
// migrations to ensure the schema is up to date.
func New(ctx context.Context, connString string, poolSize int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}
	if poolSize > 0 {
		cfg.MaxConns = int32(poolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	store := &Store{db: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection pool.
func (s *Store) Close(context.Context) error {
	s.db.Close()
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// migrate ensures the database schema is created.
func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS monitors (
		id            BIGSERIAL PRIMARY KEY,
		label         TEXT NOT NULL,
		monitor_type  TEXT NOT NULL,
		periodicity   INTEGER NOT NULL,
		status        TEXT NOT NULL DEFAULT 'unknown',
		hostname      TEXT,
		port          INTEGER,
		url           TEXT,
		check_status  BOOLEAN NOT NULL DEFAULT FALSE,
		keywords      TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_monitors_type ON monitors (monitor_type);

	CREATE TABLE IF NOT EXISTS monitor_logs (
		id                BIGSERIAL PRIMARY KEY,
		monitor_id        BIGINT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
		started_at        TIMESTAMPTZ NOT NULL,
		status            TEXT NOT NULL,
		response_time_ms  BIGINT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_monitor_logs_monitor_id_started_at ON monitor_logs (monitor_id, started_at DESC);

	CREATE TABLE IF NOT EXISTS monitor_updates (
		monitor_id   BIGINT PRIMARY KEY REFERENCES monitors(id) ON DELETE CASCADE,
		must_update  BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	_, err := s.db.Exec(ctx, schema)
	return err
}

const monitorColumns = `id, label, monitor_type, periodicity, status, hostname, port, url, check_status, keywords, created_at, updated_at`

// Create inserts a monitor and enqueues its first update request in one transaction.
func (s *Store) Create(ctx context.Context, monitor *model.Monitor) error {
	now := time.Now().UTC()
	monitor.CreatedAt = now
	monitor.UpdatedAt = now
	if monitor.Status == "" {
		monitor.Status = model.MonitorStatusUnknown
	}
	row := database.MonitorToRow(monitor)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	if row.ID != 0 {
		err = tx.QueryRow(ctx,
			`INSERT INTO monitors (id, label, monitor_type, periodicity, status, hostname, port, url, check_status, keywords, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11) RETURNING id`,
			row.ID, row.Label, row.Type, row.Periodicity, row.Status, row.Hostname, row.Port, row.URL,
			row.CheckStatus, row.Keywords, now,
		).Scan(&id)
	} else {
		err = tx.QueryRow(ctx,
			`INSERT INTO monitors (label, monitor_type, periodicity, status, hostname, port, url, check_status, keywords, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10) RETURNING id`,
			row.Label, row.Type, row.Periodicity, row.Status, row.Hostname, row.Port, row.URL,
			row.CheckStatus, row.Keywords, now,
		).Scan(&id)
	}
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO monitor_updates (monitor_id, must_update, updated_at) VALUES ($1, TRUE, $2)
		 ON CONFLICT (monitor_id) DO UPDATE SET must_update = TRUE, updated_at = EXCLUDED.updated_at`,
		id, now,
	); err != nil {
		return fmt.Errorf("failed to enqueue monitor update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit monitor: %w", err)
	}
	monitor.ID = id
	return nil
}

// GetByID retrieves a monitor by ID.
func (s *Store) GetByID(ctx context.Context, id int64) (*model.Monitor, error) {
	row := s.db.QueryRow(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE id = $1`, id)
	monitor, err := scanMonitor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("monitor %d: %w", id, database.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get monitor: %w", err)
	}
	return monitor, nil
}

// ListByType retrieves every monitor of the given type.
func (s *Store) ListByType(ctx context.Context, monitorType model.MonitorType) ([]*model.Monitor, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+monitorColumns+` FROM monitors WHERE monitor_type = $1 ORDER BY id`, string(monitorType))
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
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO monitor_logs (monitor_id, started_at, status, response_time_ms, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		log.MonitorID, log.StartedAt.UTC(), string(log.Status), log.ResponseTimeMs,
		log.CreatedAt.UTC(), log.UpdatedAt.UTC(),
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("failed to create monitor log: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE monitors SET status = $1, updated_at = $2 WHERE id = $3`,
		string(log.Status), log.CreatedAt.UTC(), log.MonitorID,
	); err != nil {
		return fmt.Errorf("failed to update monitor status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit monitor log: %w", err)
	}
	return nil
}

// LatestStartedAt returns the newest started_at of a monitor's logs.
func (s *Store) LatestStartedAt(ctx context.Context, monitorID int64) (time.Time, bool, error) {
	var latest *time.Time
	err := s.db.QueryRow(ctx,
		`SELECT MAX(started_at) FROM monitor_logs WHERE monitor_id = $1`, monitorID).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get latest monitor log: %w", err)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return latest.UTC(), true, nil
}

// ListByMonitor retrieves the newest logs of a monitor.
func (s *Store) ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]model.MonitorLog, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, monitor_id, started_at, status, response_time_ms, created_at, updated_at
		 FROM monitor_logs WHERE monitor_id = $1 ORDER BY started_at DESC, id DESC LIMIT $2`, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitor logs: %w", err)
	}
	defer rows.Close()

	logs := []model.MonitorLog{}
	for rows.Next() {
		var (
			l      model.MonitorLog
			status string
		)
		if err := rows.Scan(&l.ID, &l.MonitorID, &l.StartedAt, &status, &l.ResponseTimeMs, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan monitor log: %w", err)
		}
		l.Status = model.CheckStatus(status)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Flag raises the must_update flag for a monitor.
func (s *Store) Flag(ctx context.Context, monitorID int64) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO monitor_updates (monitor_id, must_update, updated_at) VALUES ($1, TRUE, NOW())
		 ON CONFLICT (monitor_id) DO UPDATE SET must_update = TRUE, updated_at = NOW()`, monitorID)
	if err != nil {
		return fmt.Errorf("failed to flag monitor update: %w", err)
	}
	return nil
}

// ListFlagged returns the ids of all monitors with a pending request.
func (s *Store) ListFlagged(ctx context.Context) ([]int64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT monitor_id FROM monitor_updates WHERE must_update ORDER BY monitor_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitor updates: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan monitor updates: %w", err)
	}
	return ids, nil
}

// Clear lowers the must_update flag for a monitor.
func (s *Store) Clear(ctx context.Context, monitorID int64) error {
	_, err := s.db.Exec(ctx,
		`UPDATE monitor_updates SET must_update = FALSE, updated_at = NOW() WHERE monitor_id = $1`, monitorID)
	if err != nil {
		return fmt.Errorf("failed to clear monitor update: %w", err)
	}
	return nil
}

func scanMonitor(row pgx.Row) (*model.Monitor, error) {
	var r database.MonitorRow
	if err := row.Scan(&r.ID, &r.Label, &r.Type, &r.Periodicity, &r.Status,
		&r.Hostname, &r.Port, &r.URL, &r.CheckStatus, &r.Keywords, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r.ToModel(), nil
}
