package referral

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// codeLength is the number of symbols in a referral code.
	codeLength = 8

	// defaultUses is how many redemptions a freshly minted code carries.
	defaultUses = 10

	// rewardMonths is the discounted billing cycles a redeemer receives.
	rewardMonths = 2
)

// Code is a referral code owned by a user.
type Code struct {
	ID            uuid.UUID
	Code          string
	OwnerUserID   uuid.UUID
	UsesRemaining int
	CreatedAt     time.Time
}

// Validation is the result of checking a code without redeeming it.
type Validation struct {
	Valid         bool
	Code          string
	OwnerUserID   uuid.UUID
	UsesRemaining int
}

// Redemption records one use of a code. RedeemedByUserID is unique: a
// user redeems at most one code ever.
type Redemption struct {
	ID               uuid.UUID
	CodeID           uuid.UUID
	RedeemedByUserID uuid.UUID
	RewardedToUserID uuid.UUID
	CreatedAt        time.Time
}

// Store persists referral codes and redemptions.
type Store interface {
	// GetByOwner returns the owner's code, or ErrCodeNotFound.
	GetByOwner(ctx context.Context, ownerUserID uuid.UUID) (*Code, error)

	// GetByCode returns a code by its string, or ErrCodeNotFound.
	GetByCode(ctx context.Context, code string) (*Code, error)

	// Create persists a freshly minted code. A duplicate code string
	// surfaces as a duplicate-key error so the caller can re-mint.
	Create(ctx context.Context, code *Code) error

	// Redeem atomically records a redemption and decrements the code's
	// remaining uses. It fails with ErrCodeNotFound, ErrCodeExhausted
	// (uses_remaining already zero), or ErrAlreadyRedeemed (the redeemer
	// used a code before). Exactly one of two concurrent redeemers of a
	// code with one use left succeeds.
	Redeem(ctx context.Context, code string, redeemedBy uuid.UUID) (*Code, error)
}
