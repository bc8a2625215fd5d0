package referral_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacmorgado/splice-core/pkg/referral"
	"github.com/isaacmorgado/splice-core/pkg/subscription"
)

func newTestService(t *testing.T) (*referral.Service, *referral.MemoryStore, *subscription.MemoryStore) {
	t.Helper()

	store := referral.NewMemoryStore()
	subs := subscription.NewMemoryStore()
	svc, err := referral.NewService(store, subs)
	require.NoError(t, err)
	return svc, store, subs
}

func seedUser(t *testing.T, subs *subscription.MemoryStore) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	require.NoError(t, subs.Save(context.Background(), &subscription.Subscription{
		UserID: userID,
		Tier:   subscription.TierCreator,
		Status: subscription.StatusActive,
	}))
	return userID
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	svc, _, subs := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, subs)

	code, err := svc.Generate(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, code.Code, 8)
	assert.Equal(t, owner, code.OwnerUserID)
	assert.Equal(t, 10, code.UsesRemaining)

	// Ambiguous symbols never appear.
	assert.NotContains(t, code.Code, "0")
	assert.NotContains(t, code.Code, "O")
	assert.NotContains(t, code.Code, "1")
	assert.NotContains(t, code.Code, "I")
	assert.NotContains(t, code.Code, "L")

	// Second call returns the same code rather than minting another.
	again, err := svc.Generate(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, code.Code, again.Code)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	svc, store, subs := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, subs)

	code, err := svc.Generate(ctx, owner)
	require.NoError(t, err)

	v, err := svc.Validate(ctx, code.Code)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, 10, v.UsesRemaining)

	_, err = svc.Validate(ctx, "NOSUCH42")
	assert.ErrorIs(t, err, referral.ErrCodeNotFound)

	// Exhausted codes validate as invalid, not as missing.
	for i := 0; i < 10; i++ {
		_, err := store.Redeem(ctx, code.Code, uuid.New())
		require.NoError(t, err)
	}
	v, err = svc.Validate(ctx, code.Code)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, 0, v.UsesRemaining)
}

func TestRedeem(t *testing.T) {
	t.Parallel()

	svc, _, subs := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, subs)
	redeemer := seedUser(t, subs)

	code, err := svc.Generate(ctx, owner)
	require.NoError(t, err)

	require.NoError(t, svc.Redeem(ctx, code.Code, redeemer))

	redeemerSub, err := subs.Get(ctx, redeemer)
	require.NoError(t, err)
	assert.Equal(t, code.Code, redeemerSub.ReferredByCode)
	assert.Equal(t, 2, redeemerSub.ReferralMonthsRemaining)

	ownerSub, err := subs.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, ownerSub.BonusMonths)

	v, err := svc.Validate(ctx, code.Code)
	require.NoError(t, err)
	assert.Equal(t, 9, v.UsesRemaining)
}

func TestRedeemRecordsOwnerAsRewarded(t *testing.T) {
	t.Parallel()

	svc, store, subs := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, subs)
	redeemer := seedUser(t, subs)

	code, err := svc.Generate(ctx, owner)
	require.NoError(t, err)
	require.NoError(t, svc.Redeem(ctx, code.Code, redeemer))

	// The redemption credits the code owner's bonus month, so the
	// rewarded side records the owner, not the redeemer.
	redemption, ok := store.Redemption(redeemer)
	require.True(t, ok)
	assert.Equal(t, code.ID, redemption.CodeID)
	assert.Equal(t, redeemer, redemption.RedeemedByUserID)
	assert.Equal(t, owner, redemption.RewardedToUserID)
}

func TestRedeemSelfReferral(t *testing.T) {
	t.Parallel()

	svc, _, subs := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, subs)

	code, err := svc.Generate(ctx, owner)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Redeem(ctx, code.Code, owner), referral.ErrSelfReferral)
}

func TestRedeemOncePerUser(t *testing.T) {
	t.Parallel()

	svc, _, subs := newTestService(t)
	ctx := context.Background()
	redeemer := seedUser(t, subs)

	first, err := svc.Generate(ctx, seedUser(t, subs))
	require.NoError(t, err)
	second, err := svc.Generate(ctx, seedUser(t, subs))
	require.NoError(t, err)

	require.NoError(t, svc.Redeem(ctx, first.Code, redeemer))
	assert.ErrorIs(t, svc.Redeem(ctx, second.Code, redeemer), referral.ErrAlreadyRedeemed)
	// Re-redeeming the same code fails the same way.
	assert.ErrorIs(t, svc.Redeem(ctx, first.Code, redeemer), referral.ErrAlreadyRedeemed)
}

func TestConcurrentRedemptionOfLastUse(t *testing.T) {
	t.Parallel()

	svc, store, subs := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, subs)

	code, err := svc.Generate(ctx, owner)
	require.NoError(t, err)

	// Burn the code down to a single remaining use.
	for i := 0; i < 9; i++ {
		_, err := store.Redeem(ctx, code.Code, uuid.New())
		require.NoError(t, err)
	}

	const racers = 2
	racerIDs := make([]uuid.UUID, racers)
	for i := range racerIDs {
		racerIDs[i] = seedUser(t, subs)
	}

	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			results <- svc.Redeem(ctx, code.Code, userID)
		}(racerIDs[i])
	}
	wg.Wait()
	close(results)

	var succeeded, exhausted int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, referral.ErrCodeExhausted):
			exhausted++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, exhausted)
}

func TestDecrementMonths(t *testing.T) {
	t.Parallel()

	svc, _, subs := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, subs)
	redeemer := seedUser(t, subs)

	code, err := svc.Generate(ctx, owner)
	require.NoError(t, err)
	require.NoError(t, svc.Redeem(ctx, code.Code, redeemer))

	reachedZero, err := svc.DecrementMonths(ctx, redeemer)
	require.NoError(t, err)
	assert.False(t, reachedZero)

	reachedZero, err = svc.DecrementMonths(ctx, redeemer)
	require.NoError(t, err)
	assert.True(t, reachedZero)

	// A third decrement is a no-op, not another zero crossing.
	reachedZero, err = svc.DecrementMonths(ctx, redeemer)
	require.NoError(t, err)
	assert.False(t, reachedZero)
}
