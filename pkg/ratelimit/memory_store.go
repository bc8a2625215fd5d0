package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the sliding log in process memory. Single-node
// deployments and tests use it; anything horizontally scaled needs the
// Postgres or Redis store.
type MemoryStore struct {
	mu   sync.Mutex
	logs map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]time.Time)}
}

func (s *MemoryStore) Take(ctx context.Context, key string, limit int, window time.Duration) (Take, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-window)

	entries := s.logs[key]
	live := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	take := Take{Count: int64(len(live))}
	if len(live) > 0 {
		take.Oldest = live[0]
	}

	if len(live) < limit {
		live = append(live, now)
		take.Allowed = true
	}
	if len(live) == 0 {
		delete(s.logs, key)
	} else {
		s.logs[key] = live
	}

	return take, nil
}

// Reset drops all entries for a key.
func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, key)
}
