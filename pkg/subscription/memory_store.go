package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by package tests across the
// billing core.
type MemoryStore struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*Subscription
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[uuid.UUID]*Subscription)}
}

func (s *MemoryStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (s *MemoryStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if sub.ProviderSubID == providerSubID && providerSubID != "" {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Save(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	copied := *sub
	if existing, ok := s.subs[sub.UserID]; ok {
		copied.CreatedAt = existing.CreatedAt
	} else if copied.CreatedAt.IsZero() {
		copied.CreatedAt = now
	}
	copied.UpdatedAt = now
	s.subs[sub.UserID] = &copied
	return nil
}

func (s *MemoryStore) ResetPeriod(ctx context.Context, userID uuid.UUID, newPeriodEnd time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[userID]
	if !ok {
		return false, nil
	}
	if sub.PeriodEnd != nil && !newPeriodEnd.After(*sub.PeriodEnd) {
		return false, nil
	}
	sub.MinutesUsed = 0
	end := newPeriodEnd
	sub.PeriodEnd = &end
	sub.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) DecrementReferralMonths(ctx context.Context, userID uuid.UUID) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[userID]
	if !ok || sub.ReferralMonthsRemaining <= 0 {
		return 0, false, nil
	}
	sub.ReferralMonthsRemaining--
	sub.UpdatedAt = time.Now()
	return sub.ReferralMonthsRemaining, sub.ReferralMonthsRemaining == 0, nil
}

func (s *MemoryStore) GrantReferral(ctx context.Context, userID uuid.UUID, code string, months int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subs[userID]; ok {
		sub.ReferredByCode = code
		sub.ReferralMonthsRemaining = months
		sub.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemoryStore) IncrementBonusMonths(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subs[userID]; ok {
		sub.BonusMonths++
		sub.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemoryStore) ExpireTrials(ctx context.Context, asOf time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, sub := range s.subs {
		if sub.IsTrial && sub.TrialEndsAt != nil && sub.TrialEndsAt.Before(asOf) {
			sub.Tier = TierFree
			sub.IsTrial = false
			sub.TrialEndsAt = nil
			sub.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

// Apply runs fn against the live record under the store lock. The usage
// meter's memory store uses it so ledger append and counter update stay
// atomic in tests.
func (s *MemoryStore) Apply(userID uuid.UUID, fn func(*Subscription) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[userID]
	if !ok {
		return ErrNotFound
	}
	return fn(sub)
}
