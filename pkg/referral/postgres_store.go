package referral

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/isaacmorgado/splice-core/pkg/pg"
)

// PostgresStore persists codes and redemptions. Redemption races resolve
// in SQL: the one-redemption-per-user rule is a unique index on
// redeemed_by_user_id, and the uses counter only decrements while it is
// still positive.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetByOwner(ctx context.Context, ownerUserID uuid.UUID) (*Code, error) {
	return s.get(ctx,
		`SELECT id, code, owner_user_id, uses_remaining, created_at
		 FROM referral_codes WHERE owner_user_id = $1`,
		ownerUserID)
}

func (s *PostgresStore) GetByCode(ctx context.Context, code string) (*Code, error) {
	return s.get(ctx,
		`SELECT id, code, owner_user_id, uses_remaining, created_at
		 FROM referral_codes WHERE code = $1`,
		code)
}

func (s *PostgresStore) get(ctx context.Context, query string, arg any) (*Code, error) {
	var c Code
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&c.ID, &c.Code, &c.OwnerUserID, &c.UsesRemaining, &c.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("query referral code: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) Create(ctx context.Context, code *Code) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO referral_codes (id, code, owner_user_id, uses_remaining, created_at)
		 VALUES ($1, $2, $3, $4, now())`,
		code.ID, code.Code, code.OwnerUserID, code.UsesRemaining,
	)
	if err != nil {
		return fmt.Errorf("insert referral code: %w", err)
	}
	code.CreatedAt = time.Now()
	return nil
}

func (s *PostgresStore) Redeem(ctx context.Context, code string, redeemedBy uuid.UUID) (*Code, error) {
	var redeemed Code

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// Conditional decrement: of two concurrent redeemers of a code
		// with one use left, the second sees no row and loses.
		err := tx.QueryRow(ctx,
			`UPDATE referral_codes
			 SET uses_remaining = uses_remaining - 1
			 WHERE code = $1 AND uses_remaining > 0
			 RETURNING id, code, owner_user_id, uses_remaining, created_at`,
			code,
		).Scan(&redeemed.ID, &redeemed.Code, &redeemed.OwnerUserID,
			&redeemed.UsesRemaining, &redeemed.CreatedAt)
		if err != nil {
			if pg.IsNotFoundError(err) {
				return s.classifyMiss(ctx, tx, code)
			}
			return fmt.Errorf("decrement uses: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO referral_redemptions
			 (id, code_id, redeemed_by_user_id, rewarded_to_user_id, created_at)
			 VALUES ($1, $2, $3, $4, now())`,
			uuid.New(), redeemed.ID, redeemedBy, redeemed.OwnerUserID,
		); err != nil {
			if pg.IsDuplicateKeyError(err) {
				return ErrAlreadyRedeemed
			}
			return fmt.Errorf("insert redemption: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &redeemed, nil
}

// classifyMiss tells a missing code apart from an exhausted one when the
// conditional decrement matched no row.
func (s *PostgresStore) classifyMiss(ctx context.Context, tx pgx.Tx, code string) error {
	var usesRemaining int
	err := tx.QueryRow(ctx,
		`SELECT uses_remaining FROM referral_codes WHERE code = $1`, code,
	).Scan(&usesRemaining)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("classify redemption miss: %w", err)
	}
	return ErrCodeExhausted
}
