package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/isaacmorgado/splice-core/pkg/subscription"
)

// PostgresStore writes the usage ledger and the subscription counter in
// one transaction. The counter update clamps at zero in SQL, so the
// invariant minutes_used == max(0, sum(ledger)) holds no matter how the
// two writes interleave with concurrent deltas.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Apply(ctx context.Context, userID uuid.UUID, feature Feature, minutes int) (int, error) {
	var newUsed int

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO usage_records (id, user_id, feature, minutes, created_at)
			 VALUES ($1, $2, $3, $4, now())`,
			uuid.New(), userID, string(feature), minutes,
		); err != nil {
			return fmt.Errorf("append ledger row: %w", err)
		}

		err := tx.QueryRow(ctx,
			`UPDATE subscriptions
			 SET minutes_used = GREATEST(0, minutes_used + $2), updated_at = now()
			 WHERE user_id = $1
			 RETURNING minutes_used`,
			userID, minutes,
		).Scan(&newUsed)
		if err != nil {
			if err == pgx.ErrNoRows {
				return subscription.ErrNotFound
			}
			return fmt.Errorf("update counter: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return newUsed, nil
}
