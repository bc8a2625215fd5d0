package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TrialSweeper periodically downgrades expired trials to the free tier.
// Trial expiry is a storage-hygiene job: access checks already treat an
// expired trial as inactive, the sweeper just makes the rows agree.
type TrialSweeper struct {
	store    Store
	interval time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTrialSweeper(store Store, interval time.Duration, log *slog.Logger) (*TrialSweeper, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &TrialSweeper{store: store, interval: interval, log: log}, nil
}

// Start begins sweeping in the background.
func (s *TrialSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("trial sweeper already started")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.log.Info("trial sweeper started", slog.Duration("interval", s.interval))
	return nil
}

// Stop halts sweeping and waits for an in-flight sweep to finish.
func (s *TrialSweeper) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("trial sweeper not started")
	}
	cancel()
	<-done
	return nil
}

// Run returns a function suitable for errgroup.
func (s *TrialSweeper) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return s.Stop()
	}
}

func (s *TrialSweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *TrialSweeper) sweep(ctx context.Context) {
	expired, err := s.store.ExpireTrials(ctx, time.Now())
	if err != nil {
		s.log.ErrorContext(ctx, "trial sweep failed", slog.String("error", err.Error()))
		return
	}
	if expired > 0 {
		s.log.InfoContext(ctx, "expired trials downgraded", slog.Int64("count", expired))
	}
}
