// Package ratelimit bounds request rate per identifier with a
// count-based sliding log.
//
// Authenticated requests are keyed prefix:user:<id>, anonymous requests
// prefix:ip:<addr>, so abuse from a logged-in account cannot dodge its
// budget by rotating addresses. Each allowed request records a
// timestamped entry; a request is admitted only while fewer than
// MaxRequests entries are younger than the window.
//
// Storage backends: PostgresStore (shared with the rest of the billing
// core), RedisStore (sorted sets, self-expiring), and MemoryStore
// (single node, tests). On store failure the limiter fails open by
// default and logs; FailClosed inverts that for deployments that prefer
// enforcement over availability.
package ratelimit
