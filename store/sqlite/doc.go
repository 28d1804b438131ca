// Package sqlite provides SQLite-backed ExecutionInfo storage.
//
// This package implements file-based storage using SQLite: a lightweight,
// serverless option with ACID transactions and zero external dependencies,
// suitable for a single daemon instance recording its own run history.
//
// # Basic Usage
//
//	import (
//		"context"
//		"github.com/ufoflow/ufoflow/store/sqlite"
//	)
//
//	st, err := sqlite.New(sqlite.Options{
//		Path:      "./runs.db",
//		TableName: "execution_info", // optional, defaults to "execution_info"
//	})
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
//	err = st.Save(ctx, &store.ExecutionInfo{
//		RunID:  runID,
//		TaskID: "blur",
//		Plugin: "gaussian-blur",
//	})
//
// # Schema
//
// One row per (run_id, task_id) pair, primary-keyed on that pair so a
// re-run of the same task within a run upserts rather than duplicates.
// GPU events are stored as a JSON blob column, matching how the teacher's
// checkpoint store serialized its state column.
package sqlite
