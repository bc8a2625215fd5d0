package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the sliding log in the rate_limit_entries table.
// Expiry, count, and insert run in one transaction so concurrent requests
// for the same key serialize in the database, not in process memory.
// Expired rows are deleted inline; a retention job only has to sweep keys
// that went quiet.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Take(ctx context.Context, key string, limit int, window time.Duration) (Take, error) {
	var take Take

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		cutoff := time.Now().Add(-window)

		if _, err := tx.Exec(ctx,
			`DELETE FROM rate_limit_entries WHERE key = $1 AND created_at < $2`,
			key, cutoff,
		); err != nil {
			return fmt.Errorf("expire entries: %w", err)
		}

		var oldest *time.Time
		if err := tx.QueryRow(ctx,
			`SELECT count(*), min(created_at) FROM rate_limit_entries WHERE key = $1`,
			key,
		).Scan(&take.Count, &oldest); err != nil {
			return fmt.Errorf("count entries: %w", err)
		}
		if oldest != nil {
			take.Oldest = *oldest
		}

		if take.Count >= int64(limit) {
			return nil
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO rate_limit_entries (key, created_at) VALUES ($1, now())`,
			key,
		); err != nil {
			return fmt.Errorf("record entry: %w", err)
		}
		take.Allowed = true
		return nil
	})
	if err != nil {
		return Take{}, err
	}

	return take, nil
}
