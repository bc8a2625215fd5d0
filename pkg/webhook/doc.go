// Package webhook deduplicates externally delivered events and retries
// failed processing with exponential backoff.
//
// Payment processors deliver at-least-once; the business effects behind
// the events must apply at-most-once. The Engine bridges the two: every
// event id is recorded in a write-once processed table, and a second
// delivery of the same id is a no-op. Handler failures are captured as
// failed-event rows that a background Retrier sweeps on a doubling delay
// schedule, starting at fifteen minutes. Events that exhaust their
// retries stay unresolved for manual intervention and leave the sweep.
//
// Handlers register per event type on a dispatch table:
//
//	engine.Handle("invoice.paid", func(ctx context.Context, e webhook.Event) error { ... })
//	err := engine.Process(ctx, event)
package webhook
