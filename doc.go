// Package medvault is the authentication and authorization core of the
// MedVault healthcare records service: credential checks, signed session
// tokens, account lockout, single-use reset and verification secrets,
// relationship-aware access decisions, and the rate and audit layer around
// sensitive operations.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// medvault is the public surface. It exposes [Engine], [Builder], [Config]
// and the error values callers branch on. Storage sits behind
// [IdentityStore] and [ChartStore]; store/memstore and store/mongostore
// implement both. The HTTP layer in package api is the only place errors are
// mapped to status codes.
//
// # What this package must NOT do
//
//   - Expose Redis or Mongo clients in its public API.
//   - Import api, records or any store implementation (no import cycles).
//   - Persist a plaintext password or one-time secret.
package medvault
