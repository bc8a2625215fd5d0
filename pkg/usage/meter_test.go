package usage_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacmorgado/splice-core/pkg/subscription"
	"github.com/isaacmorgado/splice-core/pkg/usage"
)

func newTestMeter(t *testing.T) (*usage.Meter, *subscription.MemoryStore, *usage.MemoryStore) {
	t.Helper()

	subs := subscription.NewMemoryStore()
	store := usage.NewMemoryStore(subs)

	catalog, err := subscription.NewInMemSource(
		subscription.Plan{Tier: subscription.TierFree, Name: "Free", MinutesPerPeriod: 30},
		subscription.Plan{
			Tier: subscription.TierCreator, Name: "Creator", MinutesPerPeriod: 300,
			Interval: subscription.BillingIntervalMonthly, PriceID: "pri_creator",
		},
	).Load(context.Background())
	require.NoError(t, err)

	meter, err := usage.NewMeter(store, subs, catalog)
	require.NoError(t, err)
	return meter, subs, store
}

func seedSubscription(t *testing.T, subs *subscription.MemoryStore, tier subscription.Tier, used int) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	require.NoError(t, subs.Save(context.Background(), &subscription.Subscription{
		UserID:      userID,
		Tier:        tier,
		Status:      subscription.StatusActive,
		MinutesUsed: used,
	}))
	return userID
}

func TestEstimateMinutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		feature usage.Feature
		seconds float64
		want    int
	}{
		{"isolation full rate", usage.FeatureIsolation, 600, 10},
		{"transcription half rate", usage.FeatureTranscription, 600, 5},
		{"analysis tenth rate", usage.FeatureAnalysis, 600, 1},
		{"partial minute rounds up", usage.FeatureIsolation, 61, 2},
		{"partial after multiplier rounds up", usage.FeatureAnalysis, 61, 1},
		{"zero duration", usage.FeatureIsolation, 0, 0},
		{"negative duration", usage.FeatureIsolation, -30, 0},
		{"unknown feature bills full rate", usage.Feature("export"), 120, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, usage.EstimateMinutes(tt.feature, tt.seconds))
		})
	}
}

func TestMeterCheck(t *testing.T) {
	t.Parallel()

	meter, subs, _ := newTestMeter(t)
	ctx := context.Background()

	userID := seedSubscription(t, subs, subscription.TierCreator, 120)

	quota, err := meter.Check(ctx, userID)
	require.NoError(t, err)
	assert.True(t, quota.Allowed)
	assert.Equal(t, 300, quota.Limit)
	assert.Equal(t, 120, quota.Used)
	assert.Equal(t, 180, quota.Remaining)
	assert.Equal(t, "creator", quota.Tier)
	assert.Equal(t, 40, quota.PercentUsed)

	_, err = meter.Check(ctx, uuid.New())
	assert.ErrorIs(t, err, subscription.ErrNotFound)
}

func TestMeterCheckCanceled(t *testing.T) {
	t.Parallel()

	meter, subs, _ := newTestMeter(t)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, subs.Save(ctx, &subscription.Subscription{
		UserID: userID,
		Tier:   subscription.TierCreator,
		Status: subscription.StatusCanceled,
	}))

	quota, err := meter.Check(ctx, userID)
	require.NoError(t, err)
	assert.False(t, quota.Allowed)
	assert.Equal(t, 300, quota.Remaining)
}

func TestMeterTrackToLimit(t *testing.T) {
	t.Parallel()

	meter, subs, _ := newTestMeter(t)
	ctx := context.Background()

	// 295 of 300 minutes used; a 600s transcription bills 5 more.
	userID := seedSubscription(t, subs, subscription.TierCreator, 295)

	minutes := usage.EstimateMinutes(usage.FeatureTranscription, 600)
	require.Equal(t, 5, minutes)

	quota, err := meter.Track(ctx, userID, usage.FeatureTranscription, minutes)
	require.NoError(t, err)
	assert.Equal(t, 300, quota.Used)
	assert.Equal(t, 0, quota.Remaining)
	assert.Equal(t, 100, quota.PercentUsed)
	assert.False(t, quota.Allowed)

	quota, err = meter.Check(ctx, userID)
	require.NoError(t, err)
	assert.False(t, quota.Allowed)
}

func TestMeterRefundFloorsAtZero(t *testing.T) {
	t.Parallel()

	meter, subs, _ := newTestMeter(t)
	ctx := context.Background()

	userID := seedSubscription(t, subs, subscription.TierCreator, 10)

	quota, err := meter.Refund(ctx, userID, usage.FeatureIsolation, 25)
	require.NoError(t, err)
	assert.Equal(t, 0, quota.Used)
	assert.Equal(t, 300, quota.Remaining)
	assert.True(t, quota.Allowed)
}

func TestMeterRejectsNonPositiveMinutes(t *testing.T) {
	t.Parallel()

	meter, subs, _ := newTestMeter(t)
	ctx := context.Background()

	userID := seedSubscription(t, subs, subscription.TierCreator, 0)

	_, err := meter.Track(ctx, userID, usage.FeatureIsolation, 0)
	assert.ErrorIs(t, err, usage.ErrInvalidMinutes)
	_, err = meter.Refund(ctx, userID, usage.FeatureIsolation, -5)
	assert.ErrorIs(t, err, usage.ErrInvalidMinutes)
}

func TestCounterMatchesLedgerSum(t *testing.T) {
	t.Parallel()

	meter, subs, store := newTestMeter(t)
	ctx := context.Background()

	userID := seedSubscription(t, subs, subscription.TierCreator, 0)

	deltas := []struct {
		track   bool
		minutes int
	}{
		{true, 40}, {true, 7}, {false, 12}, {true, 3}, {false, 38}, {true, 25},
	}
	for _, d := range deltas {
		var err error
		if d.track {
			_, err = meter.Track(ctx, userID, usage.FeatureIsolation, d.minutes)
		} else {
			_, err = meter.Refund(ctx, userID, usage.FeatureIsolation, d.minutes)
		}
		require.NoError(t, err)
	}

	sum := 0
	for _, rec := range store.Records(userID) {
		sum += rec.Minutes
	}
	if sum < 0 {
		sum = 0
	}

	sub, err := subs.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, sum, sub.MinutesUsed)
	assert.Equal(t, 25, sub.MinutesUsed)
}
