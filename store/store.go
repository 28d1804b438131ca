// Package store persists ExecutionInfo records: per-task observability
// data (timings and GPU event logs) accumulated by a scheduler run. It
// does not persist task state and is not a checkpoint/resume mechanism.
package store

import (
	"context"
	"time"
)

// GPUEvent mirrors graph.GPUEvent without importing package graph, so
// store stays a leaf dependency. worker/scheduler translate between the
// two when recording a run.
type GPUEvent struct {
	CommandType string    `json:"command_type"`
	Status      string    `json:"status"`
	Queued      int64     `json:"queued"`
	Submitted   int64     `json:"submitted"`
	Started     int64     `json:"started"`
	Ended       int64     `json:"ended"`
}

// ExecutionInfo is the accumulated observability record for one task
// within one scheduler run.
type ExecutionInfo struct {
	RunID      string         `json:"run_id"`
	TaskID     string         `json:"task_id"`
	Plugin     string         `json:"plugin"`
	StartedAt  time.Time      `json:"started_at"`
	EndedAt    time.Time      `json:"ended_at"`
	HostTime   time.Duration  `json:"host_time"`
	NProcessed int64          `json:"n_processed"`
	GPUEvents  []GPUEvent     `json:"gpu_events,omitempty"`
	Err        string         `json:"error,omitempty"`
}

// Store defines the interface for ExecutionInfo persistence. Every
// backend (memory, sqlite, postgres, redis) implements the same shape so
// the scheduler can be pointed at any of them via scheduler.Config.
type Store interface {
	// Save records one task's ExecutionInfo, overwriting any prior
	// record for the same (RunID, TaskID).
	Save(ctx context.Context, info *ExecutionInfo) error

	// Get retrieves a single task's ExecutionInfo.
	Get(ctx context.Context, runID, taskID string) (*ExecutionInfo, error)

	// List returns every ExecutionInfo recorded for a run, ordered by
	// StartedAt ascending.
	List(ctx context.Context, runID string) ([]*ExecutionInfo, error)

	// Delete removes a single task's ExecutionInfo.
	Delete(ctx context.Context, runID, taskID string) error

	// Clear removes every ExecutionInfo recorded for a run.
	Clear(ctx context.Context, runID string) error
}
