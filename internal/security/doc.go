// Package security derives the engine's security posture report from its
// configuration. The root package exposes it as Engine.SecurityReport.
package security
