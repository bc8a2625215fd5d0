package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is a user's billing state. Created at registration (trial
// or free tier) and never deleted; mutated only by the usage meter, the
// webhook handlers, and the trial sweeper.
type Subscription struct {
	UserID        uuid.UUID // primary key, one subscription per user
	Tier          Tier
	Status        Status
	ProviderSubID string // processor's subscription id, empty on free tier

	MinutesUsed int
	PeriodEnd   *time.Time

	IsTrial     bool
	TrialEndsAt *time.Time

	ReferredByCode          string
	ReferralMonthsRemaining int
	BonusMonths             int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the subscription currently grants access.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsTrialExpired reports whether a trial has run out as of now.
func (s *Subscription) IsTrialExpired(now time.Time) bool {
	return s.IsTrial && s.TrialEndsAt != nil && now.After(*s.TrialEndsAt)
}

// OnDiscountedRate reports whether referral months still apply.
func (s *Subscription) OnDiscountedRate() bool {
	return s.ReferralMonthsRemaining > 0
}
