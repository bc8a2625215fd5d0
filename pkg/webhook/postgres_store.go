package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProcessedStore keeps the write-once processed-event table. The
// primary key on event_id is what makes Mark safe to race.
type PostgresProcessedStore struct {
	pool *pgxpool.Pool
}

func NewPostgresProcessedStore(pool *pgxpool.Pool) *PostgresProcessedStore {
	return &PostgresProcessedStore{pool: pool}
}

func (s *PostgresProcessedStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_webhook_events WHERE event_id = $1)`,
		eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query processed event: %w", err)
	}
	return exists, nil
}

func (s *PostgresProcessedStore) Mark(ctx context.Context, eventID, eventType string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO processed_webhook_events (event_id, event_type, processed_at)
		 VALUES ($1, $2, now())`,
		eventID, eventType,
	)
	if err != nil {
		return fmt.Errorf("insert processed event: %w", err)
	}
	return nil
}

// PostgresFailedStore persists the retry queue.
type PostgresFailedStore struct {
	pool *pgxpool.Pool
}

func NewPostgresFailedStore(pool *pgxpool.Pool) *PostgresFailedStore {
	return &PostgresFailedStore{pool: pool}
}

func (s *PostgresFailedStore) Create(ctx context.Context, failed *FailedEvent) error {
	// An event id already waiting in the queue keeps its row and its
	// schedule; only the recorded error refreshes. Origins that
	// re-deliver a failing event otherwise stack duplicates.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO failed_webhook_events
		 (id, event_id, event_type, payload, retry_count, max_retries, next_retry_at, last_error, resolved, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, now())
		 ON CONFLICT (event_id) WHERE NOT resolved
		 DO UPDATE SET last_error = EXCLUDED.last_error`,
		failed.ID, failed.EventID, failed.EventType, failed.Payload,
		failed.RetryCount, failed.MaxRetries, failed.NextRetryAt, failed.LastError,
	)
	if err != nil {
		return fmt.Errorf("insert failed event: %w", err)
	}
	return nil
}

func (s *PostgresFailedStore) Due(ctx context.Context, limit int, now time.Time) ([]FailedEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id, event_type, payload, retry_count, max_retries,
		        next_retry_at, last_error, resolved, created_at
		 FROM failed_webhook_events
		 WHERE resolved = false AND retry_count < max_retries AND next_retry_at <= $1
		 ORDER BY created_at
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query due events: %w", err)
	}
	defer rows.Close()

	var due []FailedEvent
	for rows.Next() {
		var f FailedEvent
		if err := rows.Scan(&f.ID, &f.EventID, &f.EventType, &f.Payload,
			&f.RetryCount, &f.MaxRetries, &f.NextRetryAt, &f.LastError,
			&f.Resolved, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan due event: %w", err)
		}
		due = append(due, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due events: %w", err)
	}
	return due, nil
}

func (s *PostgresFailedStore) Resolve(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE failed_webhook_events SET resolved = true WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("resolve failed event: %w", err)
	}
	return nil
}

func (s *PostgresFailedStore) RecordAttempt(ctx context.Context, id uuid.UUID, lastError string, nextRetryAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE failed_webhook_events
		 SET retry_count = retry_count + 1, last_error = $2, next_retry_at = $3
		 WHERE id = $1`,
		id, lastError, nextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("record retry attempt: %w", err)
	}
	return nil
}
