package webhook

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isaacmorgado/splice-core/pkg/pg"
)

// MemoryProcessedStore is an in-memory ProcessedStore for tests.
type MemoryProcessedStore struct {
	mu     sync.Mutex
	events map[string]string // event id -> event type
}

func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{events: make(map[string]string)}
}

func (s *MemoryProcessedStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.events[eventID]
	return ok, nil
}

func (s *MemoryProcessedStore) Mark(ctx context.Context, eventID, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; ok {
		return pg.ErrDuplicateKey
	}
	s.events[eventID] = eventType
	return nil
}

// MemoryFailedStore is an in-memory FailedStore for tests.
type MemoryFailedStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*FailedEvent
}

func NewMemoryFailedStore() *MemoryFailedStore {
	return &MemoryFailedStore{events: make(map[uuid.UUID]*FailedEvent)}
}

func (s *MemoryFailedStore) Create(ctx context.Context, failed *FailedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One unresolved row per event id, matching the partial unique
	// index PostgresFailedStore upserts against.
	for _, existing := range s.events {
		if !existing.Resolved && existing.EventID == failed.EventID {
			existing.LastError = failed.LastError
			return nil
		}
	}

	copied := *failed
	copied.CreatedAt = time.Now()
	s.events[failed.ID] = &copied
	return nil
}

func (s *MemoryFailedStore) Due(ctx context.Context, limit int, now time.Time) ([]FailedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []FailedEvent
	for _, f := range s.events {
		if !f.Resolved && f.RetryCount < f.MaxRetries && !f.NextRetryAt.After(now) {
			due = append(due, *f)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryFailedStore) Resolve(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.events[id]; ok {
		f.Resolved = true
	}
	return nil
}

func (s *MemoryFailedStore) RecordAttempt(ctx context.Context, id uuid.UUID, lastError string, nextRetryAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.events[id]; ok {
		f.RetryCount++
		f.LastError = lastError
		f.NextRetryAt = nextRetryAt
	}
	return nil
}

// Get returns a failed event by id. Test helper.
func (s *MemoryFailedStore) Get(id uuid.UUID) (FailedEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.events[id]
	if !ok {
		return FailedEvent{}, false
	}
	return *f, true
}

// All returns every failed event in creation order. Test helper.
func (s *MemoryFailedStore) All() []FailedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]FailedEvent, 0, len(s.events))
	for _, f := range s.events {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
