// Package redis provides Redis-backed ExecutionInfo storage.
//
// Each task's ExecutionInfo is stored as a JSON value under a
// run/task-keyed string, with a per-run set tracking which task ids
// belong to that run so List can reconstruct the full run history in
// one MGET. TTL is optional and, when set, applied to both the record
// and its run-membership set, matching the teacher's checkpoint-store
// expiration convention.
//
// # Basic Usage
//
//	import "github.com/ufoflow/ufoflow/store/redis"
//
//	st := redis.New(redis.Options{
//		Addr:   "localhost:6379",
//		Prefix: "ufoflow:",
//		TTL:    24 * time.Hour,
//	})
//
//	err := st.Save(ctx, &store.ExecutionInfo{RunID: runID, TaskID: "blur", Plugin: "gaussian-blur"})
//
// # Testing with miniredis
//
//	mr, _ := miniredis.Run()
//	defer mr.Close()
//	st := redis.New(redis.Options{Addr: mr.Addr()})
package redis
