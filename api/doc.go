// Package api is the gin HTTP surface of MedVault.
//
// Every response uses the [Envelope] shape. Handlers translate JSON into
// engine and records calls; error-to-status mapping happens in exactly one
// place, the errorResponder. Session tokens are accepted as a bearer token
// or the HttpOnly session cookie set on login.
package api
