// Package rate provides the sliding-window limiter used to throttle
// authentication and other sensitive operations.
//
// # Window semantics
//
// Each key holds the timestamps of its admitted attempts. On every check the
// entries older than the window are pruned; the attempt is admitted and
// recorded only while the remaining count is below the limit. Denied
// attempts are not recorded. No background sweep is needed.
//
// # Stores
//
//   - [RedisStore]: a sorted set per key updated by one Lua script, so the
//     check is atomic per key across processes.
//   - [MemoryStore]: a per-key mutex over an in-process slice, for tests and
//     single-instance deployments.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/limiters).
//   - Be imported outside the medvault module.
package rate
