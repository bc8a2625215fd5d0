package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/isaacmorgado/splice-core/pkg/pg"
)

// PostgresStore keeps failure counters in the login_attempts table. All
// transition logic lives in a single upsert so concurrent failures for
// the same email serialize on the row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) RecordFailure(ctx context.Context, email string, threshold int, lockFor time.Duration) (Record, error) {
	// Three cases folded into the upsert:
	//   active lock        -> count and deadline unchanged
	//   expired lock       -> counter restarts at 1, lock cleared
	//   tracking           -> increment; lock when the new count hits the
	//                         threshold
	const q = `
		INSERT INTO login_attempts (email, failed_attempts, last_attempt, locked_until)
		VALUES ($1, 1, now(), NULL)
		ON CONFLICT (email) DO UPDATE SET
			failed_attempts = CASE
				WHEN login_attempts.locked_until IS NOT NULL AND login_attempts.locked_until > now()
					THEN login_attempts.failed_attempts
				WHEN login_attempts.locked_until IS NOT NULL
					THEN 1
				ELSE login_attempts.failed_attempts + 1
			END,
			last_attempt = CASE
				WHEN login_attempts.locked_until IS NOT NULL AND login_attempts.locked_until > now()
					THEN login_attempts.last_attempt
				ELSE now()
			END,
			locked_until = CASE
				WHEN login_attempts.locked_until IS NOT NULL AND login_attempts.locked_until > now()
					THEN login_attempts.locked_until
				WHEN login_attempts.locked_until IS NOT NULL
					THEN NULL
				WHEN login_attempts.failed_attempts + 1 >= $2
					THEN now() + $3::interval
				ELSE NULL
			END
		RETURNING email, failed_attempts, last_attempt, locked_until`

	var rec Record
	err := s.pool.QueryRow(ctx, q, email, threshold, lockFor.String()).
		Scan(&rec.Email, &rec.FailedAttempts, &rec.LastAttempt, &rec.LockedUntil)
	if err != nil {
		return Record{}, fmt.Errorf("record login failure: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, email string) (Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx,
		`SELECT email, failed_attempts, last_attempt, locked_until FROM login_attempts WHERE email = $1`,
		email,
	).Scan(&rec.Email, &rec.FailedAttempts, &rec.LastAttempt, &rec.LockedUntil)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Record{}, ErrNotTracked
		}
		return Record{}, fmt.Errorf("get login attempts: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Reset(ctx context.Context, email string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM login_attempts WHERE email = $1`, email,
	); err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	return nil
}
