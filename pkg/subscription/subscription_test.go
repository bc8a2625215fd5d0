package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacmorgado/splice-core/pkg/subscription"
)

func TestMapProviderStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		provider string
		want     subscription.Status
	}{
		{"active", subscription.StatusActive},
		{"trialing", subscription.StatusActive},
		{"past_due", subscription.StatusPastDue},
		{"canceled", subscription.StatusCanceled},
		{"cancelled", subscription.StatusCanceled},
		{"unpaid", subscription.StatusCanceled},
		{"paused", subscription.StatusCanceled},
		{"", subscription.StatusCanceled},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, subscription.MapProviderStatus(tt.provider),
			"provider status %q", tt.provider)
	}
}

func TestIsTrialExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	sub := subscription.Subscription{IsTrial: true, TrialEndsAt: &past}
	assert.True(t, sub.IsTrialExpired(now))

	sub.TrialEndsAt = &future
	assert.False(t, sub.IsTrialExpired(now))

	sub = subscription.Subscription{IsTrial: false, TrialEndsAt: &past}
	assert.False(t, sub.IsTrialExpired(now))
}

func TestMemoryStoreResetPeriod(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	firstEnd := time.Now().AddDate(0, 1, 0)
	require.NoError(t, store.Save(ctx, &subscription.Subscription{
		UserID:      userID,
		Tier:        subscription.TierCreator,
		Status:      subscription.StatusActive,
		MinutesUsed: 120,
		PeriodEnd:   &firstEnd,
	}))

	// Same or earlier period end is a no-op.
	applied, err := store.ResetPeriod(ctx, userID, firstEnd)
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = store.ResetPeriod(ctx, userID, firstEnd.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, applied)

	sub, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 120, sub.MinutesUsed)

	// A strictly later period end resets usage and advances the period.
	nextEnd := firstEnd.AddDate(0, 1, 0)
	applied, err = store.ResetPeriod(ctx, userID, nextEnd)
	require.NoError(t, err)
	assert.True(t, applied)

	sub, err = store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.MinutesUsed)
	require.NotNil(t, sub.PeriodEnd)
	assert.WithinDuration(t, nextEnd, *sub.PeriodEnd, time.Second)
}

func TestMemoryStoreDecrementReferralMonths(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, store.Save(ctx, &subscription.Subscription{
		UserID:                  userID,
		Tier:                    subscription.TierCreator,
		Status:                  subscription.StatusActive,
		ReferralMonthsRemaining: 2,
	}))

	remaining, reachedZero, err := store.DecrementReferralMonths(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	assert.False(t, reachedZero)

	remaining, reachedZero, err = store.DecrementReferralMonths(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	assert.True(t, reachedZero)

	// Counter at zero: nothing applied, not a second zero-crossing.
	_, reachedZero, err = store.DecrementReferralMonths(ctx, userID)
	require.NoError(t, err)
	assert.False(t, reachedZero)
}

func TestMemoryStoreExpireTrials(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemoryStore()
	ctx := context.Background()

	expired := time.Now().Add(-time.Hour)
	live := time.Now().Add(time.Hour)

	expiredUser := uuid.New()
	require.NoError(t, store.Save(ctx, &subscription.Subscription{
		UserID: expiredUser, Tier: subscription.TierCreator,
		Status: subscription.StatusActive, IsTrial: true, TrialEndsAt: &expired,
	}))
	liveUser := uuid.New()
	require.NoError(t, store.Save(ctx, &subscription.Subscription{
		UserID: liveUser, Tier: subscription.TierCreator,
		Status: subscription.StatusActive, IsTrial: true, TrialEndsAt: &live,
	}))

	n, err := store.ExpireTrials(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	sub, err := store.Get(ctx, expiredUser)
	require.NoError(t, err)
	assert.Equal(t, subscription.TierFree, sub.Tier)
	assert.False(t, sub.IsTrial)

	sub, err = store.Get(ctx, liveUser)
	require.NoError(t, err)
	assert.Equal(t, subscription.TierCreator, sub.Tier)
	assert.True(t, sub.IsTrial)
}
