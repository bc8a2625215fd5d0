package webhook_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacmorgado/splice-core/pkg/webhook"
)

func newTestEngine(t *testing.T, opts ...webhook.EngineOption) (*webhook.Engine, *webhook.MemoryProcessedStore, *webhook.MemoryFailedStore) {
	t.Helper()

	processed := webhook.NewMemoryProcessedStore()
	failed := webhook.NewMemoryFailedStore()
	engine, err := webhook.NewEngine(processed, failed, opts...)
	require.NoError(t, err)
	return engine, processed, failed
}

func TestProcessAppliesHandlerOnce(t *testing.T) {
	t.Parallel()

	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	var calls atomic.Int32
	engine.Handle("invoice.paid", func(ctx context.Context, e webhook.Event) error {
		calls.Add(1)
		return nil
	})

	event := webhook.Event{ID: "evt_1", Type: "invoice.paid", Payload: []byte(`{}`)}
	require.NoError(t, engine.Process(ctx, event))
	require.NoError(t, engine.Process(ctx, event))
	require.NoError(t, engine.Process(ctx, event))

	assert.EqualValues(t, 1, calls.Load(), "replays must not re-run the handler")
}

func TestProcessRequiresEventID(t *testing.T) {
	t.Parallel()

	engine, _, _ := newTestEngine(t)
	err := engine.Process(context.Background(), webhook.Event{Type: "invoice.paid"})
	assert.ErrorIs(t, err, webhook.ErrEventIDRequired)
}

func TestProcessUnhandledTypeIsAcknowledged(t *testing.T) {
	t.Parallel()

	engine, processed, failed := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Process(ctx, webhook.Event{ID: "evt_2", Type: "address.updated"}))

	done, err := processed.IsProcessed(ctx, "evt_2")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Empty(t, failed.All())
}

func TestProcessFailureEnqueuesRetry(t *testing.T) {
	t.Parallel()

	engine, processed, failed := newTestEngine(t)
	ctx := context.Background()

	handlerErr := errors.New("provider lookup failed")
	engine.Handle("checkout.completed", func(ctx context.Context, e webhook.Event) error {
		return handlerErr
	})

	err := engine.Process(ctx, webhook.Event{ID: "evt_3", Type: "checkout.completed", Payload: []byte(`{"x":1}`)})
	assert.ErrorIs(t, err, handlerErr)

	// A failed event is not marked processed, so re-delivery can succeed.
	done, err := processed.IsProcessed(ctx, "evt_3")
	require.NoError(t, err)
	assert.False(t, done)

	queue := failed.All()
	require.Len(t, queue, 1)
	assert.Equal(t, "evt_3", queue[0].EventID)
	assert.Equal(t, "checkout.completed", queue[0].EventType)
	assert.Equal(t, 0, queue[0].RetryCount)
	assert.Equal(t, 3, queue[0].MaxRetries)
	assert.False(t, queue[0].Resolved)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), queue[0].NextRetryAt, time.Minute)
}

func TestProcessRedeliveredFailureDoesNotStackRetries(t *testing.T) {
	t.Parallel()

	engine, _, failed := newTestEngine(t)
	ctx := context.Background()

	engine.Handle("invoice.paid", func(ctx context.Context, e webhook.Event) error {
		return errors.New("downstream unavailable")
	})

	event := webhook.Event{ID: "evt_7", Type: "invoice.paid", Payload: []byte(`{}`)}
	for i := 0; i < 3; i++ {
		require.Error(t, engine.Process(ctx, event))
	}

	// Re-deliveries of a still-failing event share one queue row.
	queue := failed.All()
	require.Len(t, queue, 1)
	assert.Equal(t, "evt_7", queue[0].EventID)
	assert.Equal(t, 0, queue[0].RetryCount)
}

func TestProcessRecoversHandlerPanic(t *testing.T) {
	t.Parallel()

	engine, _, failed := newTestEngine(t)
	ctx := context.Background()

	engine.Handle("subscription.updated", func(ctx context.Context, e webhook.Event) error {
		panic("nil subscription")
	})

	err := engine.Process(ctx, webhook.Event{ID: "evt_4", Type: "subscription.updated"})
	assert.ErrorIs(t, err, webhook.ErrHandlerPanic)
	assert.Len(t, failed.All(), 1)
}
