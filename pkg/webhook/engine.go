package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isaacmorgado/splice-core/pkg/pg"
)

const defaultMaxRetries = 3

// Engine routes events to registered handlers with at-most-once effect
// semantics. Dedupe runs before dispatch; the processed record is written
// after, so a crash mid-handler re-delivers rather than drops. Handlers
// must therefore tolerate re-execution of their own partial work, which
// in practice means doing their writes conditionally.
type Engine struct {
	processed  ProcessedStore
	failed     FailedStore
	backoff    BackoffStrategy
	maxRetries int
	log        *slog.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithBackoff overrides the retry schedule. Defaults to
// DefaultBackoffStrategy.
func WithBackoff(strategy BackoffStrategy) EngineOption {
	return func(e *Engine) {
		if strategy != nil {
			e.backoff = strategy
		}
	}
}

// WithMaxRetries sets how many automatic retries a failed event gets.
func WithMaxRetries(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithEngineLogger sets the logger. Defaults to slog.Default.
func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

func NewEngine(processed ProcessedStore, failed FailedStore, opts ...EngineOption) (*Engine, error) {
	if processed == nil {
		return nil, ErrProcessedStoreRequired
	}
	if failed == nil {
		return nil, ErrFailedStoreRequired
	}

	e := &Engine{
		processed:  processed,
		failed:     failed,
		backoff:    DefaultBackoffStrategy(),
		maxRetries: defaultMaxRetries,
		log:        slog.Default(),
		handlers:   make(map[string]HandlerFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Handle registers the handler for an event type, replacing any previous
// registration.
func (e *Engine) Handle(eventType string, handler HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[eventType] = handler
}

// Process applies an event once. Replays of an already processed id
// return nil without side effects. A handler failure is captured in the
// retry queue and returned to the caller, so the origin can also signal
// failure to the provider.
func (e *Engine) Process(ctx context.Context, event Event) error {
	err := e.Dispatch(ctx, event)
	if err == nil {
		return nil
	}

	failed := &FailedEvent{
		ID:          uuid.New(),
		EventID:     event.ID,
		EventType:   event.Type,
		Payload:     event.Payload,
		MaxRetries:  e.maxRetries,
		NextRetryAt: time.Now().Add(e.backoff.NextInterval(1)),
		LastError:   err.Error(),
	}
	if createErr := e.failed.Create(ctx, failed); createErr != nil {
		e.log.ErrorContext(ctx, "failed to enqueue event for retry",
			slog.String("event_id", event.ID),
			slog.String("error", createErr.Error()),
		)
	}

	e.log.ErrorContext(ctx, "event handler failed",
		slog.String("event_id", event.ID),
		slog.String("event_type", event.Type),
		slog.String("error", err.Error()),
	)
	return err
}

// Dispatch runs the dedupe-check, handler, mark-processed sequence
// without touching the retry queue. Process and the Retrier both build
// on it.
func (e *Engine) Dispatch(ctx context.Context, event Event) error {
	if event.ID == "" {
		return ErrEventIDRequired
	}

	done, err := e.processed.IsProcessed(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("check processed: %w", err)
	}
	if done {
		e.log.DebugContext(ctx, "duplicate event skipped",
			slog.String("event_id", event.ID),
			slog.String("event_type", event.Type),
		)
		return nil
	}

	if err := e.dispatch(ctx, event); err != nil {
		return err
	}

	// A concurrent delivery may have marked the id first; the unique
	// constraint turns that race into a harmless duplicate error.
	if err := e.processed.Mark(ctx, event.ID, event.Type); err != nil && !pg.IsDuplicateKeyError(err) {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func (e *Engine) dispatch(ctx context.Context, event Event) (err error) {
	e.mu.RLock()
	handler, ok := e.handlers[event.Type]
	e.mu.RUnlock()

	if !ok {
		// Unhandled types are acknowledged, not retried: the processor
		// keeps sending every type it knows about.
		e.log.DebugContext(ctx, "no handler for event type",
			slog.String("event_type", event.Type))
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return handler(ctx, event)
}
