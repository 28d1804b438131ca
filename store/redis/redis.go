// Package redis persists ExecutionInfo records to Redis, grounded on
// the teacher's store/redis backend: same key-prefix and pipelined
// index-set conventions, re-keyed from execution/checkpoint ids to
// run/task ids.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ufoflow/ufoflow/store"
)

// Store implements store.Store using Redis.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "ufoflow:"
	TTL      time.Duration // expiration for records, default 0 (no expiration)
}

// New creates a Redis-backed Store.
func New(opts Options) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "ufoflow:"
	}

	return &Store{client: client, prefix: prefix, ttl: opts.TTL}
}

func (s *Store) recordKey(runID, taskID string) string {
	return fmt.Sprintf("%sexecinfo:%s:%s", s.prefix, runID, taskID)
}

func (s *Store) runKey(runID string) string {
	return fmt.Sprintf("%srun:%s:tasks", s.prefix, runID)
}

func (s *Store) Save(ctx context.Context, info *store.ExecutionInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("redis: marshal execution info: %w", err)
	}

	key := s.recordKey(info.RunID, info.TaskID)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, s.ttl)

	runKey := s.runKey(info.RunID)
	pipe.SAdd(ctx, runKey, info.TaskID)
	if s.ttl > 0 {
		pipe.Expire(ctx, runKey, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: save: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, runID, taskID string) (*store.ExecutionInfo, error) {
	data, err := s.client.Get(ctx, s.recordKey(runID, taskID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("redis: no execution info for run %q task %q", runID, taskID)
		}
		return nil, fmt.Errorf("redis: get: %w", err)
	}

	var info store.ExecutionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("redis: unmarshal execution info: %w", err)
	}
	return &info, nil
}

func (s *Store) List(ctx context.Context, runID string) ([]*store.ExecutionInfo, error) {
	taskIDs, err := s.client.SMembers(ctx, s.runKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list task ids for run %q: %w", runID, err)
	}
	if len(taskIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(taskIDs))
	for i, id := range taskIDs {
		keys[i] = s.recordKey(runID, id)
	}

	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: fetch execution info: %w", err)
	}

	var out []*store.ExecutionInfo
	for _, result := range results {
		strData, ok := result.(string)
		if !ok {
			continue // expired between SMEMBERS and MGET
		}
		var info store.ExecutionInfo
		if err := json.Unmarshal([]byte(strData), &info); err != nil {
			continue
		}
		out = append(out, &info)
	}

	sortByStartedAt(out)
	return out, nil
}

func (s *Store) Delete(ctx context.Context, runID, taskID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.recordKey(runID, taskID))
	pipe.SRem(ctx, s.runKey(runID), taskID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, runID string) error {
	runKey := s.runKey(runID)
	taskIDs, err := s.client.SMembers(ctx, runKey).Result()
	if err != nil {
		return fmt.Errorf("redis: list task ids for run %q: %w", runID, err)
	}
	if len(taskIDs) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range taskIDs {
		pipe.Del(ctx, s.recordKey(runID, id))
	}
	pipe.Del(ctx, runKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: clear: %w", err)
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
