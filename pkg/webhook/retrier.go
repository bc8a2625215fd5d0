package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultSweepInterval = time.Minute
	defaultBatchSize     = 10
)

// Retrier replays failed events in the background. Each sweep picks up a
// small batch of due rows in creation order, re-runs them through the
// engine, and either resolves them or pushes the next attempt further
// out on the backoff schedule.
type Retrier struct {
	engine   *Engine
	failed   FailedStore
	backoff  BackoffStrategy
	interval time.Duration
	batch    int
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithSweepInterval sets how often due events are polled.
func WithSweepInterval(d time.Duration) RetrierOption {
	return func(r *Retrier) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize caps how many events one sweep replays.
func WithBatchSize(n int) RetrierOption {
	return func(r *Retrier) {
		if n > 0 {
			r.batch = n
		}
	}
}

// WithRetrierBackoff overrides the reschedule delays.
func WithRetrierBackoff(strategy BackoffStrategy) RetrierOption {
	return func(r *Retrier) {
		if strategy != nil {
			r.backoff = strategy
		}
	}
}

// WithRetrierLogger sets the logger. Defaults to slog.Default.
func WithRetrierLogger(log *slog.Logger) RetrierOption {
	return func(r *Retrier) {
		if log != nil {
			r.log = log
		}
	}
}

func NewRetrier(engine *Engine, failed FailedStore, opts ...RetrierOption) (*Retrier, error) {
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if failed == nil {
		return nil, ErrFailedStoreRequired
	}

	r := &Retrier{
		engine:   engine,
		failed:   failed,
		backoff:  DefaultBackoffStrategy(),
		interval: defaultSweepInterval,
		batch:    defaultBatchSize,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Start begins sweeping in the background.
func (r *Retrier) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return fmt.Errorf("retrier already started")
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.run(ctx)

	r.log.Info("webhook retrier started",
		slog.Duration("interval", r.interval),
		slog.Int("batch", r.batch),
	)
	return nil
}

// Stop halts sweeping and waits for an in-flight sweep to finish.
func (r *Retrier) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("retrier not started")
	}
	cancel()
	<-done
	return nil
}

// Run returns a function suitable for errgroup.
func (r *Retrier) Run(ctx context.Context) func() error {
	return func() error {
		if err := r.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return r.Stop()
	}
}

func (r *Retrier) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep replays one batch of due events. Exported so deployments without
// a resident worker can drive it from cron.
func (r *Retrier) Sweep(ctx context.Context) {
	due, err := r.failed.Due(ctx, r.batch, time.Now())
	if err != nil {
		r.log.ErrorContext(ctx, "failed to load due events", slog.String("error", err.Error()))
		return
	}

	for _, failed := range due {
		r.replay(ctx, failed)
	}
}

func (r *Retrier) replay(ctx context.Context, failed FailedEvent) {
	event := Event{ID: failed.EventID, Type: failed.EventType, Payload: failed.Payload}

	// Dispatch re-checks the processed table, so an event the origin
	// successfully re-delivered in the meantime resolves without running
	// its handler again.
	err := r.engine.Dispatch(ctx, event)
	if err == nil {
		if err := r.failed.Resolve(ctx, failed.ID); err != nil {
			r.log.ErrorContext(ctx, "failed to resolve replayed event",
				slog.String("event_id", failed.EventID),
				slog.String("error", err.Error()),
			)
		}
		r.log.InfoContext(ctx, "failed event replayed",
			slog.String("event_id", failed.EventID),
			slog.String("event_type", failed.EventType),
			slog.Int("retry_count", failed.RetryCount),
		)
		return
	}

	retryCount := failed.RetryCount + 1
	nextRetryAt := time.Now().Add(r.backoff.NextInterval(retryCount + 1))
	if recordErr := r.failed.RecordAttempt(ctx, failed.ID, err.Error(), nextRetryAt); recordErr != nil {
		r.log.ErrorContext(ctx, "failed to record retry attempt",
			slog.String("event_id", failed.EventID),
			slog.String("error", recordErr.Error()),
		)
		return
	}

	if retryCount >= failed.MaxRetries {
		r.log.ErrorContext(ctx, "event exhausted retries, manual intervention required",
			slog.String("event_id", failed.EventID),
			slog.String("event_type", failed.EventType),
			slog.Int("retry_count", retryCount),
			slog.String("error", err.Error()),
		)
		return
	}

	r.log.WarnContext(ctx, "event replay failed, rescheduled",
		slog.String("event_id", failed.EventID),
		slog.String("event_type", failed.EventType),
		slog.Int("retry_count", retryCount),
		slog.Time("next_retry_at", nextRetryAt),
	)
}
