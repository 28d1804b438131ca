// Package memory is an in-process store.Store backed by a guarded map.
// It is the default backend for tests and for single-process daemon runs
// that don't need run history to outlive the process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ufoflow/ufoflow/store"
)

type key struct {
	runID, taskID string
}

// Store implements store.Store with an in-memory map guarded by a mutex.
type Store struct {
	mu   sync.RWMutex
	recs map[key]*store.ExecutionInfo
}

// New returns an empty in-memory Store.
func New() *Store {
	return &Store{recs: map[key]*store.ExecutionInfo{}}
}

func (s *Store) Save(ctx context.Context, info *store.ExecutionInfo) error {
	if info.RunID == "" || info.TaskID == "" {
		return fmt.Errorf("memory: RunID and TaskID are required")
	}
	cp := *info
	cp.GPUEvents = append([]store.GPUEvent(nil), info.GPUEvents...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[key{info.RunID, info.TaskID}] = &cp
	return nil
}

func (s *Store) Get(ctx context.Context, runID, taskID string) (*store.ExecutionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[key{runID, taskID}]
	if !ok {
		return nil, fmt.Errorf("memory: no execution info for run %q task %q", runID, taskID)
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) List(ctx context.Context, runID string) ([]*store.ExecutionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*store.ExecutionInfo
	for k, rec := range s.recs {
		if k.runID != runID {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sortByStartedAt(out)
	return out, nil
}

func (s *Store) Delete(ctx context.Context, runID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, key{runID, taskID})
	return nil
}

func (s *Store) Clear(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.recs {
		if k.runID == runID {
			delete(s.recs, k)
		}
	}
	return nil
}

func sortByStartedAt(recs []*store.ExecutionInfo) {
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j].StartedAt.Before(recs[j-1].StartedAt); j-- {
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}
}
