package referral

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isaacmorgado/splice-core/pkg/pg"
)

// MemoryStore is an in-memory Store for tests, mirroring PostgresStore's
// redemption semantics under a single lock.
type MemoryStore struct {
	mu          sync.Mutex
	codes       map[string]*Code
	redemptions map[uuid.UUID]Redemption // keyed by redeemer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		codes:       make(map[string]*Code),
		redemptions: make(map[uuid.UUID]Redemption),
	}
}

func (s *MemoryStore) GetByOwner(ctx context.Context, ownerUserID uuid.UUID) (*Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.codes {
		if c.OwnerUserID == ownerUserID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, ErrCodeNotFound
}

func (s *MemoryStore) GetByCode(ctx context.Context, code string) (*Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok {
		return nil, ErrCodeNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *MemoryStore) Create(ctx context.Context, code *Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[code.Code]; ok {
		return pg.ErrDuplicateKey
	}
	code.CreatedAt = time.Now()
	copied := *code
	s.codes[code.Code] = &copied
	return nil
}

// Redemption returns the redemption recorded for the given redeemer.
// Test helper.
func (s *MemoryStore) Redemption(redeemedBy uuid.UUID) (Redemption, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.redemptions[redeemedBy]
	return r, ok
}

func (s *MemoryStore) Redeem(ctx context.Context, code string, redeemedBy uuid.UUID) (*Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok {
		return nil, ErrCodeNotFound
	}
	if c.UsesRemaining <= 0 {
		return nil, ErrCodeExhausted
	}
	if _, ok := s.redemptions[redeemedBy]; ok {
		return nil, ErrAlreadyRedeemed
	}

	c.UsesRemaining--
	s.redemptions[redeemedBy] = Redemption{
		ID:               uuid.New(),
		CodeID:           c.ID,
		RedeemedByUserID: redeemedBy,
		RewardedToUserID: c.OwnerUserID,
		CreatedAt:        time.Now(),
	}

	copied := *c
	return &copied, nil
}
