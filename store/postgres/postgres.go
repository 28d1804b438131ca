// Package postgres persists ExecutionInfo records to PostgreSQL,
// grounded on the teacher's store/postgres backend: same DBPool seam
// (so tests can inject pgxmock), same InitSchema/upsert shape, re-keyed
// from (checkpoint id) to (run_id, task_id).
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ufoflow/ufoflow/store"
)

// DBPool is the slice of *pgxpool.Pool that Store depends on, narrowed
// so tests can substitute a pgxmock pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements store.Store using PostgreSQL.
type Store struct {
	pool      DBPool
	tableName string
}

// Options configures the PostgreSQL connection.
type Options struct {
	ConnString string
	TableName  string // default "execution_info"
}

// New creates a Store backed by a fresh connection pool.
func New(ctx context.Context, opts Options) (*Store, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	return NewWithPool(pool, opts.TableName), nil
}

// NewWithPool creates a Store over an existing pool, letting tests inject
// a pgxmock.Pool in place of a real connection.
func NewWithPool(pool DBPool, tableName string) *Store {
	if tableName == "" {
		tableName = "execution_info"
	}
	return &Store{pool: pool, tableName: tableName}
}

// InitSchema creates the backing table if it doesn't already exist.
func (s *Store) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			plugin TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NOT NULL,
			host_time_ns BIGINT NOT NULL,
			n_processed BIGINT NOT NULL,
			gpu_events JSONB,
			error TEXT,
			PRIMARY KEY (run_id, task_id)
		);
		CREATE INDEX IF NOT EXISTS idx_%s_run_id ON %s (run_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("postgres: init schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Save(ctx context.Context, info *store.ExecutionInfo) error {
	eventsJSON, err := json.Marshal(info.GPUEvents)
	if err != nil {
		return fmt.Errorf("postgres: marshal gpu events: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, task_id, plugin, started_at, ended_at, host_time_ns, n_processed, gpu_events, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id, task_id) DO UPDATE SET
			plugin = EXCLUDED.plugin,
			started_at = EXCLUDED.started_at,
			ended_at = EXCLUDED.ended_at,
			host_time_ns = EXCLUDED.host_time_ns,
			n_processed = EXCLUDED.n_processed,
			gpu_events = EXCLUDED.gpu_events,
			error = EXCLUDED.error
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		info.RunID, info.TaskID, info.Plugin,
		info.StartedAt, info.EndedAt, info.HostTime.Nanoseconds(), info.NProcessed,
		eventsJSON, info.Err,
	)
	if err != nil {
		return fmt.Errorf("postgres: save: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, runID, taskID string) (*store.ExecutionInfo, error) {
	query := fmt.Sprintf(`
		SELECT run_id, task_id, plugin, started_at, ended_at, host_time_ns, n_processed, gpu_events, error
		FROM %s WHERE run_id = $1 AND task_id = $2
	`, s.tableName)

	row := s.pool.QueryRow(ctx, query, runID, taskID)
	info, err := scanExecutionInfo(row.Scan)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("postgres: no execution info for run %q task %q", runID, taskID)
		}
		return nil, fmt.Errorf("postgres: get: %w", err)
	}
	return info, nil
}

func (s *Store) List(ctx context.Context, runID string) ([]*store.ExecutionInfo, error) {
	query := fmt.Sprintf(`
		SELECT run_id, task_id, plugin, started_at, ended_at, host_time_ns, n_processed, gpu_events, error
		FROM %s WHERE run_id = $1 ORDER BY started_at ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	defer rows.Close()

	var out []*store.ExecutionInfo
	for rows.Next() {
		info, err := scanExecutionInfo(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, runID, taskID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE run_id = $1 AND task_id = $2", s.tableName)
	_, err := s.pool.Exec(ctx, query, runID, taskID)
	if err != nil {
		return fmt.Errorf("postgres: delete: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, runID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE run_id = $1", s.tableName)
	_, err := s.pool.Exec(ctx, query, runID)
	if err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

func scanExecutionInfo(scan func(dest ...any) error) (*store.ExecutionInfo, error) {
	var info store.ExecutionInfo
	var hostTimeNS int64
	var eventsJSON []byte

	if err := scan(
		&info.RunID, &info.TaskID, &info.Plugin,
		&info.StartedAt, &info.EndedAt, &hostTimeNS, &info.NProcessed,
		&eventsJSON, &info.Err,
	); err != nil {
		return nil, err
	}
	info.HostTime = time.Duration(hostTimeNS)
	if len(eventsJSON) > 0 {
		if err := json.Unmarshal(eventsJSON, &info.GPUEvents); err != nil {
			return nil, fmt.Errorf("unmarshal gpu events: %w", err)
		}
	}
	return &info, nil
}
