// Package internal holds helpers private to medvault, currently the
// one-time secret generator used for password reset and email verification.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - limiters: named throttle scopes and the lockout guard
//   - rate: sliding-window limiter over Redis or memory stores
//   - security: the posture report behind Engine.SecurityReport
//   - config, logger, tracer: process wiring for cmd/medvault
package internal
