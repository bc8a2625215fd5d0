// Package lockout tracks failed authentication attempts per account and
// enforces a temporary lockout after repeated failures.
//
// State transitions: clear -> tracking (below threshold) -> locked
// (threshold reached, unlock deadline set) -> clear (successful auth or
// lazy expiry on the next check). Increments and the lock decision
// happen in one atomic store operation; an active lock is never extended
// by further failures.
package lockout
