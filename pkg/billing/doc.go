// Package billing implements the event handlers that keep subscription
// state in sync with the payment processor.
//
// Handlers register on a webhook engine and receive normalized events.
// The processor's view is authoritative: a completed checkout reads the
// subscription back from the processor rather than trusting checkout
// metadata, status changes remap through a fixed table, and a paid
// invoice only rolls the billing period forward, never back, so
// duplicate or out-of-order invoices cannot reset usage twice.
//
// Paid invoices also drive the referral discount lifecycle: each one
// burns a referral month, and the transition to zero switches the
// subscription back to the standard price. A failed price switch after
// the counter already moved is re-queued as its own retryable event so
// the money state and the processor state reconverge without replaying
// the invoice.
package billing
