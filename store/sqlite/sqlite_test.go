package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufoflow/ufoflow/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "execution_info.db")
	s, err := New(Options{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	info := &store.ExecutionInfo{
		RunID:      "run-1",
		TaskID:     "blur",
		Plugin:     "gaussian-blur",
		StartedAt:  time.Now().UTC().Truncate(time.Second),
		EndedAt:    time.Now().UTC().Truncate(time.Second).Add(time.Second),
		HostTime:   250 * time.Millisecond,
		NProcessed: 42,
		GPUEvents: []store.GPUEvent{
			{CommandType: "kernel", Status: "COMPLETE", Queued: 1, Submitted: 2, Started: 3, Ended: 4},
		},
	}
	require.NoError(t, s.Save(ctx, info))

	got, err := s.Get(ctx, "run-1", "blur")
	require.NoError(t, err)
	assert.Equal(t, info.Plugin, got.Plugin)
	assert.Equal(t, info.HostTime, got.HostTime)
	assert.Equal(t, int64(42), got.NProcessed)
	require.Len(t, got.GPUEvents, 1)
	assert.Equal(t, "COMPLETE", got.GPUEvents[0].Status)
}

func TestStore_SaveUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.ExecutionInfo{RunID: "run-1", TaskID: "a", NProcessed: 1}))
	require.NoError(t, s.Save(ctx, &store.ExecutionInfo{RunID: "run-1", TaskID: "a", NProcessed: 2}))

	got, err := s.Get(ctx, "run-1", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.NProcessed)
}

func TestStore_ListOrdersByStartedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.Save(ctx, &store.ExecutionInfo{RunID: "run-1", TaskID: "b", StartedAt: base.Add(2 * time.Second)}))
	require.NoError(t, s.Save(ctx, &store.ExecutionInfo{RunID: "run-1", TaskID: "a", StartedAt: base}))

	list, err := s.List(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].TaskID)
	assert.Equal(t, "b", list[1].TaskID)
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope", "nope")
	assert.Error(t, err)
}

func TestStore_DeleteAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.ExecutionInfo{RunID: "run-1", TaskID: "a"}))
	require.NoError(t, s.Save(ctx, &store.ExecutionInfo{RunID: "run-1", TaskID: "b"}))

	require.NoError(t, s.Delete(ctx, "run-1", "a"))
	list, err := s.List(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.Clear(ctx, "run-1"))
	list, err = s.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

var _ store.Store = (*Store)(nil)
