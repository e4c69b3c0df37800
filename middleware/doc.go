// Package middleware holds the gin middleware in front of the MedVault API.
//
// # Authentication
//
//   - [Guard] reads the bearer token, falling back to the session cookie, and
//     resolves it through the engine. The identity is stored on the gin
//     context and the request context.
//   - [RequireRoles] and [RequirePermission] gate routes after Guard.
//
// # Request plumbing
//
// [RequestID], [ClientContext] and [SecurityHeaders] prepare the request for
// the engine. [Throttle] is a coarse per-origin token bucket; the per-scope
// sliding windows live in the engine.
//
// # Telemetry
//
// [Tracing] opens an OpenTelemetry span, [HTTPMetrics] feeds Prometheus and
// [Logger] writes one zap line per request.
//
// This package does not map errors to HTTP statuses. Every rejection goes
// through the [ErrorFunc] supplied by the api package.
package middleware
