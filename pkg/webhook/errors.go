package webhook

import "errors"

var (
	// ErrProcessedStoreRequired is returned when an Engine is constructed
	// without a processed-event store.
	ErrProcessedStoreRequired = errors.New("webhook: processed store is required")

	// ErrFailedStoreRequired is returned when an Engine or Retrier is
	// constructed without a failed-event store.
	ErrFailedStoreRequired = errors.New("webhook: failed store is required")

	// ErrEngineRequired is returned when a Retrier is constructed without
	// an engine.
	ErrEngineRequired = errors.New("webhook: engine is required")

	// ErrEventIDRequired is returned for events with an empty id.
	ErrEventIDRequired = errors.New("webhook: event id is required")

	// ErrHandlerPanic wraps a panic recovered from a handler.
	ErrHandlerPanic = errors.New("webhook: handler panicked")
)
