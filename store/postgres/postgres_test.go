package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufoflow/ufoflow/store"
)

func TestStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "execution_info")

	info := &store.ExecutionInfo{
		RunID:      "run-1",
		TaskID:     "blur",
		Plugin:     "gaussian-blur",
		StartedAt:  time.Now(),
		EndedAt:    time.Now(),
		HostTime:   5 * time.Millisecond,
		NProcessed: 7,
	}
	eventsJSON, _ := json.Marshal(info.GPUEvents)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO execution_info")).
		WithArgs(
			info.RunID, info.TaskID, info.Plugin,
			info.StartedAt, info.EndedAt, info.HostTime.Nanoseconds(), info.NProcessed,
			eventsJSON, info.Err,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Save(context.Background(), info))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "execution_info")

	started := time.Now()
	ended := started.Add(time.Second)
	eventsJSON, _ := json.Marshal([]store.GPUEvent{{CommandType: "kernel", Status: "COMPLETE"}})

	rows := pgxmock.NewRows([]string{"run_id", "task_id", "plugin", "started_at", "ended_at", "host_time_ns", "n_processed", "gpu_events", "error"}).
		AddRow("run-1", "blur", "gaussian-blur", started, ended, int64(5_000_000), int64(7), eventsJSON, "")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT run_id, task_id, plugin, started_at, ended_at, host_time_ns, n_processed, gpu_events, error FROM execution_info WHERE run_id = $1 AND task_id = $2")).
		WithArgs("run-1", "blur").
		WillReturnRows(rows)

	got, err := s.Get(context.Background(), "run-1", "blur")
	require.NoError(t, err)
	assert.Equal(t, "gaussian-blur", got.Plugin)
	assert.Equal(t, 5*time.Millisecond, got.HostTime)
	require.Len(t, got.GPUEvents, 1)
	assert.Equal(t, "COMPLETE", got.GPUEvents[0].Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "execution_info")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT run_id, task_id, plugin, started_at, ended_at, host_time_ns, n_processed, gpu_events, error FROM execution_info WHERE run_id = $1 AND task_id = $2")).
		WithArgs("run-1", "missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.Get(context.Background(), "run-1", "missing")
	assert.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "no execution info")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetDatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "execution_info")
	dbErr := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT run_id, task_id, plugin, started_at, ended_at, host_time_ns, n_processed, gpu_events, error FROM execution_info WHERE run_id = $1 AND task_id = $2")).
		WithArgs("run-1", "blur").
		WillReturnError(dbErr)

	got, err := s.Get(context.Background(), "run-1", "blur")
	assert.Error(t, err)
	assert.Nil(t, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "execution_info")
	started := time.Now()

	rows := pgxmock.NewRows([]string{"run_id", "task_id", "plugin", "started_at", "ended_at", "host_time_ns", "n_processed", "gpu_events", "error"}).
		AddRow("run-1", "a", "p1", started, started, int64(0), int64(1), []byte("null"), "").
		AddRow("run-1", "b", "p2", started, started, int64(0), int64(1), []byte("null"), "")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT run_id, task_id, plugin, started_at, ended_at, host_time_ns, n_processed, gpu_events, error FROM execution_info WHERE run_id = $1 ORDER BY started_at ASC")).
		WithArgs("run-1").
		WillReturnRows(rows)

	got, err := s.List(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].TaskID)
	assert.Equal(t, "b", got[1].TaskID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteAndClear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "execution_info")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM execution_info WHERE run_id = $1 AND task_id = $2")).
		WithArgs("run-1", "a").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, s.Delete(context.Background(), "run-1", "a"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM execution_info WHERE run_id = $1")).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	require.NoError(t, s.Clear(context.Background(), "run-1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

var _ store.Store = (*Store)(nil)
