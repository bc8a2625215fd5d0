package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isaacmorgado/splice-core/pkg/subscription"
)

// MemoryStore is an in-memory ledger used by tests. It applies the ledger
// append and the counter clamp under the subscription store's lock to
// mirror the transactional behavior of PostgresStore.
type MemoryStore struct {
	subs *subscription.MemoryStore

	mu      sync.Mutex
	records []Record
}

func NewMemoryStore(subs *subscription.MemoryStore) *MemoryStore {
	return &MemoryStore{subs: subs}
}

func (s *MemoryStore) Apply(ctx context.Context, userID uuid.UUID, feature Feature, minutes int) (int, error) {
	var newUsed int

	err := s.subs.Apply(userID, func(sub *subscription.Subscription) error {
		s.mu.Lock()
		s.records = append(s.records, Record{
			ID:        uuid.New(),
			UserID:    userID,
			Feature:   feature,
			Minutes:   minutes,
			CreatedAt: time.Now(),
		})
		s.mu.Unlock()

		sub.MinutesUsed += minutes
		if sub.MinutesUsed < 0 {
			sub.MinutesUsed = 0
		}
		newUsed = sub.MinutesUsed
		return nil
	})
	if err != nil {
		return 0, err
	}

	return newUsed, nil
}

// Records returns a copy of the ledger for a user, in append order.
func (s *MemoryStore) Records(userID uuid.UUID) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out
}
