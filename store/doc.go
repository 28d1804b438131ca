// Package store provides storage implementations for persisting
// ExecutionInfo records — per-task timing and GPU-event observability
// data accumulated by a scheduler run, not task state.
//
// # Available Implementations
//
//   - store/memory: in-process map, default for tests and single-run daemons
//   - store/sqlite: file-based, zero-configuration
//   - store/postgres: production, pooled connections
//   - store/redis: low-latency, optional TTL expiration
//
// All four implement the Store interface defined in this package, so a
// scheduler.Config can point at any of them interchangeably:
//
//	st, err := sqlite.New(sqlite.Options{Path: "./runs.db"})
//	var _ store.Store = st
//	err = st.Save(ctx, &store.ExecutionInfo{RunID: runID, TaskID: "blur", Plugin: "gaussian-blur"})
//	history, err := st.List(ctx, runID)
package store
