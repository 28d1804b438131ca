// Package sqlite persists ExecutionInfo records to a SQLite database,
// grounded on the teacher's store/sqlite backend: same schema-init,
// parameterized-query, and JSON-blob-column shape, re-keyed from
// (checkpoint id) to (run_id, task_id).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ufoflow/ufoflow/store"
)

// Store implements store.Store using SQLite.
type Store struct {
	db        *sql.DB
	tableName string
}

// Options configures the SQLite connection.
type Options struct {
	Path      string
	TableName string // default "execution_info"
}

// New opens (creating if necessary) a SQLite-backed Store.
func New(opts Options) (*Store, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "execution_info"
	}

	s := &Store{db: db, tableName: tableName}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the backing table if it doesn't already exist.
func (s *Store) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			plugin TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			host_time_ns INTEGER NOT NULL,
			n_processed INTEGER NOT NULL,
			gpu_events TEXT,
			error TEXT,
			PRIMARY KEY (run_id, task_id)
		);
		CREATE INDEX IF NOT EXISTS idx_%s_run_id ON %s (run_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlite: init schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, info *store.ExecutionInfo) error {
	eventsJSON, err := json.Marshal(info.GPUEvents)
	if err != nil {
		return fmt.Errorf("sqlite: marshal gpu events: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, task_id, plugin, started_at, ended_at, host_time_ns, n_processed, gpu_events, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, task_id) DO UPDATE SET
			plugin = excluded.plugin,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			host_time_ns = excluded.host_time_ns,
			n_processed = excluded.n_processed,
			gpu_events = excluded.gpu_events,
			error = excluded.error
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		info.RunID, info.TaskID, info.Plugin,
		info.StartedAt, info.EndedAt, info.HostTime.Nanoseconds(), info.NProcessed,
		string(eventsJSON), info.Err,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, runID, taskID string) (*store.ExecutionInfo, error) {
	query := fmt.Sprintf(`
		SELECT run_id, task_id, plugin, started_at, ended_at, host_time_ns, n_processed, gpu_events, error
		FROM %s WHERE run_id = ? AND task_id = ?
	`, s.tableName)

	row := s.db.QueryRowContext(ctx, query, runID, taskID)
	info, err := scanExecutionInfo(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sqlite: no execution info for run %q task %q", runID, taskID)
		}
		return nil, fmt.Errorf("sqlite: get: %w", err)
	}
	return info, nil
}

func (s *Store) List(ctx context.Context, runID string) ([]*store.ExecutionInfo, error) {
	query := fmt.Sprintf(`
		SELECT run_id, task_id, plugin, started_at, ended_at, host_time_ns, n_processed, gpu_events, error
		FROM %s WHERE run_id = ? ORDER BY started_at ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	var out []*store.ExecutionInfo
	for rows.Next() {
		info, err := scanExecutionInfo(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, runID, taskID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE run_id = ? AND task_id = ?", s.tableName)
	_, err := s.db.ExecContext(ctx, query, runID, taskID)
	if err != nil {
		return fmt.Errorf("sqlite: delete: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, runID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE run_id = ?", s.tableName)
	_, err := s.db.ExecContext(ctx, query, runID)
	if err != nil {
		return fmt.Errorf("sqlite: clear: %w", err)
	}
	return nil
}

func scanExecutionInfo(scan func(dest ...any) error) (*store.ExecutionInfo, error) {
	var info store.ExecutionInfo
	var hostTimeNS int64
	var eventsJSON string

	if err := scan(
		&info.RunID, &info.TaskID, &info.Plugin,
		&info.StartedAt, &info.EndedAt, &hostTimeNS, &info.NProcessed,
		&eventsJSON, &info.Err,
	); err != nil {
		return nil, err
	}
	info.HostTime = time.Duration(hostTimeNS)
	if len(eventsJSON) > 0 {
		if err := json.Unmarshal([]byte(eventsJSON), &info.GPUEvents); err != nil {
			return nil, fmt.Errorf("unmarshal gpu events: %w", err)
		}
	}
	return &info, nil
}
