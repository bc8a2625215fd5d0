// Package pg bootstraps the PostgreSQL layer: a single pgxpool.Pool
// acquired at process start, goose schema migrations, a health probe,
// and error classifiers for unique-key and foreign-key violations.
//
// The pool is the module's sole synchronization point. Every store in
// pkg/ratelimit, pkg/lockout, pkg/usage, pkg/referral, and pkg/webhook
// takes the pool by handle and pushes cross-request coordination into
// transactions rather than in-process locks.
package pg
