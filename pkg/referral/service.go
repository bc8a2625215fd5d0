package referral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/isaacmorgado/splice-core/pkg/pg"
	"github.com/isaacmorgado/splice-core/pkg/subscription"
)

// Service implements the referral flows over a Store and the
// subscription store that holds the discount counters.
type Service struct {
	store Store
	subs  subscription.Store
	log   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(store Store, subs subscription.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if subs == nil {
		return nil, ErrSubscriptionStoreRequired
	}

	s := &Service{store: store, subs: subs, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate returns the user's referral code, minting one on first call.
// Minting retries once on a code-string collision.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID) (*Code, error) {
	existing, err := s.store.GetByOwner(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrCodeNotFound) {
		return nil, fmt.Errorf("look up existing code: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		raw, err := mintCode()
		if err != nil {
			return nil, err
		}
		code := &Code{
			ID:            uuid.New(),
			Code:          raw,
			OwnerUserID:   userID,
			UsesRemaining: defaultUses,
		}
		if err := s.store.Create(ctx, code); err != nil {
			if pg.IsDuplicateKeyError(err) {
				continue
			}
			return nil, fmt.Errorf("create code: %w", err)
		}
		return code, nil
	}
	return nil, fmt.Errorf("mint code: exhausted collision retries")
}

// Validate reports whether a code can currently be redeemed.
func (s *Service) Validate(ctx context.Context, code string) (Validation, error) {
	found, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return Validation{}, err
	}
	return Validation{
		Valid:         found.UsesRemaining > 0,
		Code:          found.Code,
		OwnerUserID:   found.OwnerUserID,
		UsesRemaining: found.UsesRemaining,
	}, nil
}

// Redeem applies a code for a new user: it burns one use, grants the
// redeemer the discounted months, and credits the owner a bonus month.
func (s *Service) Redeem(ctx context.Context, code string, newUserID uuid.UUID) error {
	found, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if found.OwnerUserID == newUserID {
		return ErrSelfReferral
	}

	redeemed, err := s.store.Redeem(ctx, code, newUserID)
	if err != nil {
		return err
	}

	if err := s.subs.GrantReferral(ctx, newUserID, redeemed.Code, rewardMonths); err != nil {
		return fmt.Errorf("grant referral months: %w", err)
	}
	if err := s.subs.IncrementBonusMonths(ctx, redeemed.OwnerUserID); err != nil {
		return fmt.Errorf("credit owner bonus month: %w", err)
	}

	s.log.InfoContext(ctx, "referral redeemed",
		slog.String("code", redeemed.Code),
		slog.String("owner_id", redeemed.OwnerUserID.String()),
		slog.String("redeemed_by", newUserID.String()),
		slog.Int("uses_remaining", redeemed.UsesRemaining),
	)
	return nil
}

// DecrementMonths burns one referral month for a user after a paid
// invoice. reachedZero is true only on the transition to zero, which is
// the billing handlers' cue to restore the standard price.
func (s *Service) DecrementMonths(ctx context.Context, userID uuid.UUID) (reachedZero bool, err error) {
	_, reachedZero, err = s.subs.DecrementReferralMonths(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("decrement referral months: %w", err)
	}
	return reachedZero, nil
}
