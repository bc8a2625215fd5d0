// Package subscription owns the billing state of every user: tier,
// status, quota counter, billing period, trial, and referral credit
// fields.
//
// The Subscription row is created at registration and never deleted.
// Only three writers exist: the usage meter (minutes_used), the webhook
// event handlers (everything the processor reports), and the trial
// sweeper. All other code reads.
//
// The Provider interface abstracts the payment processor to the three
// operations the core needs: verify-and-normalize a webhook, read a
// subscription's authoritative state, and switch its price point. The
// Paddle adapter implements it with the official SDK.
package subscription
