package lockout

import (
	"context"
	"sync"
	"time"
)

// MemoryStore mirrors PostgresStore semantics for tests and single-node
// setups.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) RecordFailure(ctx context.Context, email string, threshold int, lockFor time.Duration) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec, ok := s.records[email]
	if !ok {
		rec = &Record{Email: email}
		s.records[email] = rec
	}

	switch {
	case rec.LockedUntil != nil && rec.LockedUntil.After(now):
		// Active lock, the deadline does not move.
	case rec.LockedUntil != nil:
		rec.FailedAttempts = 1
		rec.LockedUntil = nil
		rec.LastAttempt = now
	default:
		rec.FailedAttempts++
		rec.LastAttempt = now
		if rec.FailedAttempts >= threshold {
			until := now.Add(lockFor)
			rec.LockedUntil = &until
		}
	}

	return *rec, nil
}

func (s *MemoryStore) Get(ctx context.Context, email string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[email]
	if !ok {
		return Record{}, ErrNotTracked
	}
	return *rec, nil
}

func (s *MemoryStore) Reset(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, email)
	return nil
}
