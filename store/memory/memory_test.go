package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufoflow/ufoflow/store"
)

func TestStore_SaveGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	info := &store.ExecutionInfo{
		RunID:      "run-1",
		TaskID:     "blur",
		Plugin:     "gaussian-blur",
		StartedAt:  time.Now(),
		EndedAt:    time.Now().Add(time.Millisecond),
		HostTime:   time.Millisecond,
		NProcessed: 10,
		GPUEvents: []store.GPUEvent{
			{CommandType: "kernel", Status: "COMPLETE", Queued: 1, Submitted: 2, Started: 3, Ended: 4},
		},
	}

	require.NoError(t, s.Save(ctx, info))

	got, err := s.Get(ctx, "run-1", "blur")
	require.NoError(t, err)
	assert.Equal(t, info.Plugin, got.Plugin)
	assert.Equal(t, int64(10), got.NProcessed)
	assert.Len(t, got.GPUEvents, 1)

	// Mutating the returned pointer must not corrupt internal state.
	got.GPUEvents[0].Status = "mutated"
	got2, err := s.Get(ctx, "run-1", "blur")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETE", got2.GPUEvents[0].Status)
}

func TestStore_GetMissing(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "nope", "nope")
	assert.Error(t, err)
}

func TestStore_ListOrdersByStartedAt(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, s.Save(ctx, &store.ExecutionInfo{RunID: "run-1", TaskID: "b", StartedAt: base.Add(2 * time.Second)}))
	require.NoError(t, s.Save(ctx, &store.ExecutionInfo{RunID: "run-1", TaskID: "a", StartedAt: base}))
	require.NoError(t, s.Save(ctx, &store.ExecutionInfo{RunID: "run-2", TaskID: "c", StartedAt: base}))

	list, err := s.List(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].TaskID)
	assert.Equal(t, "b", list[1].TaskID)
}

func TestStore_DeleteAndClear(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.ExecutionInfo{RunID: "run-1", TaskID: "a"}))
	require.NoError(t, s.Save(ctx, &store.ExecutionInfo{RunID: "run-1", TaskID: "b"}))

	require.NoError(t, s.Delete(ctx, "run-1", "a"))
	list, err := s.List(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].TaskID)

	require.NoError(t, s.Clear(ctx, "run-1"))
	list, err = s.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

var _ store.Store = (*Store)(nil)
