package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/isaacmorgado/splice-core/pkg/pg"
)

const subscriptionColumns = `user_id, tier, status, provider_sub_id, minutes_used,
	period_end, is_trial, trial_ends_at, referred_by_code,
	referral_months_remaining, bonus_months, created_at, updated_at`

// PostgresStore persists subscriptions in the subscriptions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.get(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID)
}

func (s *PostgresStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error) {
	return s.get(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider_sub_id = $1`, providerSubID)
}

func (s *PostgresStore) get(ctx context.Context, query string, arg any) (*Subscription, error) {
	var sub Subscription
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&sub.UserID, &sub.Tier, &sub.Status, &sub.ProviderSubID, &sub.MinutesUsed,
		&sub.PeriodEnd, &sub.IsTrial, &sub.TrialEndsAt, &sub.ReferredByCode,
		&sub.ReferralMonthsRemaining, &sub.BonusMonths, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

func (s *PostgresStore) Save(ctx context.Context, sub *Subscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			status = EXCLUDED.status,
			provider_sub_id = EXCLUDED.provider_sub_id,
			minutes_used = EXCLUDED.minutes_used,
			period_end = EXCLUDED.period_end,
			is_trial = EXCLUDED.is_trial,
			trial_ends_at = EXCLUDED.trial_ends_at,
			referred_by_code = EXCLUDED.referred_by_code,
			referral_months_remaining = EXCLUDED.referral_months_remaining,
			bonus_months = EXCLUDED.bonus_months,
			updated_at = now()`,
		sub.UserID, sub.Tier, sub.Status, sub.ProviderSubID, sub.MinutesUsed,
		sub.PeriodEnd, sub.IsTrial, sub.TrialEndsAt, sub.ReferredByCode,
		sub.ReferralMonthsRemaining, sub.BonusMonths,
	)
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) ResetPeriod(ctx context.Context, userID uuid.UUID, newPeriodEnd time.Time) (bool, error) {
	// The period_end guard makes this idempotent under duplicate and
	// out-of-order invoice delivery.
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscriptions
		SET minutes_used = 0, period_end = $2, updated_at = now()
		WHERE user_id = $1 AND (period_end IS NULL OR period_end < $2)`,
		userID, newPeriodEnd,
	)
	if err != nil {
		return false, fmt.Errorf("reset billing period: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) DecrementReferralMonths(ctx context.Context, userID uuid.UUID) (int, bool, error) {
	var remaining int
	err := s.pool.QueryRow(ctx, `
		UPDATE subscriptions
		SET referral_months_remaining = referral_months_remaining - 1, updated_at = now()
		WHERE user_id = $1 AND referral_months_remaining > 0
		RETURNING referral_months_remaining`,
		userID,
	).Scan(&remaining)
	if err != nil {
		if pg.IsNotFoundError(err) {
			// Counter already at zero (or no subscription): nothing applied.
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("decrement referral months: %w", err)
	}
	return remaining, remaining == 0, nil
}

func (s *PostgresStore) GrantReferral(ctx context.Context, userID uuid.UUID, code string, months int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE subscriptions
		SET referred_by_code = $2, referral_months_remaining = $3, updated_at = now()
		WHERE user_id = $1`,
		userID, code, months,
	)
	if err != nil {
		return fmt.Errorf("grant referral: %w", err)
	}
	return nil
}

func (s *PostgresStore) IncrementBonusMonths(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE subscriptions
		SET bonus_months = bonus_months + 1, updated_at = now()
		WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("increment bonus months: %w", err)
	}
	return nil
}

func (s *PostgresStore) ExpireTrials(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscriptions
		SET tier = $2, is_trial = FALSE, trial_ends_at = NULL, updated_at = now()
		WHERE is_trial AND trial_ends_at IS NOT NULL AND trial_ends_at < $1`,
		asOf, TierFree,
	)
	if err != nil {
		return 0, fmt.Errorf("expire trials: %w", err)
	}
	return tag.RowsAffected(), nil
}
