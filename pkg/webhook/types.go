package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a normalized external event. ID is the provider's event id and
// is the idempotency key; Payload is the raw provider envelope, kept so a
// retry can rebuild exactly what the handler first saw.
type Event struct {
	ID      string
	Type    string
	Payload []byte
}

// HandlerFunc applies the business effect of one event type. A nil return
// marks the event processed; an error sends it to the retry queue.
type HandlerFunc func(ctx context.Context, event Event) error

// FailedEvent is a handler failure awaiting retry. Once RetryCount
// reaches MaxRetries the row stays unresolved and leaves the automatic
// sweep; resolving it then requires manual intervention.
type FailedEvent struct {
	ID          uuid.UUID
	EventID     string
	EventType   string
	Payload     []byte
	RetryCount  int
	MaxRetries  int
	NextRetryAt time.Time
	LastError   string
	Resolved    bool
	CreatedAt   time.Time
}

// Exhausted reports whether the event has no automatic retries left.
func (f FailedEvent) Exhausted() bool {
	return f.RetryCount >= f.MaxRetries
}

// ProcessedStore is the write-once record of applied events.
type ProcessedStore interface {
	// IsProcessed reports whether the event id has been applied.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Mark records the event id as applied. Inserting an already marked
	// id returns a duplicate-key error; callers treat that as success
	// since it means a concurrent delivery won the race.
	Mark(ctx context.Context, eventID, eventType string) error
}

// FailedStore persists the retry queue.
type FailedStore interface {
	// Create enqueues a new failed event.
	Create(ctx context.Context, failed *FailedEvent) error

	// Due returns up to limit unresolved events whose retry is due and
	// whose retries are not exhausted, in creation order.
	Due(ctx context.Context, limit int, now time.Time) ([]FailedEvent, error)

	// Resolve marks a failed event as successfully replayed.
	Resolve(ctx context.Context, id uuid.UUID) error

	// RecordAttempt increments the retry count and schedules the next
	// attempt after a failed replay.
	RecordAttempt(ctx context.Context, id uuid.UUID, lastError string, nextRetryAt time.Time) error
}
