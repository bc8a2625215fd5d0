package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists subscriptions. Field-scoped mutations are separate
// methods rather than read-modify-write through Save so each one can be
// a single conditional statement; that is what makes the webhook
// handlers safe to run concurrently with duplicate deliveries.
type Store interface {
	// Get retrieves a subscription by user id, or ErrNotFound.
	Get(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// GetByProviderSubID retrieves by the processor's subscription id.
	GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error)

	// Save creates or updates a subscription keyed by user id.
	Save(ctx context.Context, sub *Subscription) error

	// ResetPeriod zeroes MinutesUsed and advances PeriodEnd, but only when
	// newPeriodEnd is strictly later than the stored one. Returns whether
	// the reset was applied; out-of-order and duplicate invoices return
	// false without touching usage.
	ResetPeriod(ctx context.Context, userID uuid.UUID, newPeriodEnd time.Time) (bool, error)

	// DecrementReferralMonths decrements the counter when it is above
	// zero. reachedZero is true exactly when this call brought it to zero.
	DecrementReferralMonths(ctx context.Context, userID uuid.UUID) (remaining int, reachedZero bool, err error)

	// GrantReferral stamps the redeemed code and discount months on the
	// redeeming user's subscription.
	GrantReferral(ctx context.Context, userID uuid.UUID, code string, months int) error

	// IncrementBonusMonths credits one bonus month to a referrer.
	IncrementBonusMonths(ctx context.Context, userID uuid.UUID) error

	// ExpireTrials downgrades trials past their end date to the free tier
	// and returns how many rows changed.
	ExpireTrials(ctx context.Context, asOf time.Time) (int64, error)
}
