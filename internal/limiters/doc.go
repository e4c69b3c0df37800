// Package limiters binds the internal/rate primitives to MedVault's
// throttle scopes and owns the per-identity lockout guard.
//
// # Limiters
//
//   - [Throttle]: auth, sensitive and password-reset scopes keyed on origin
//     and optional identity.
//   - [LockoutGuard]: failed-login counter with a timed lock, updated
//     atomically by the identity store.
//
// Both are nil-safe.
//
// # What this package must NOT do
//
//   - Import medvault or any sibling internal package except internal/rate.
//   - Decide HTTP outcomes; callers map errors.
package limiters
