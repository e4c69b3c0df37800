package internaldefs

import (
	"github.com/MrEthical07/medvault"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   medvault.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   medvault.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported engine counter.
var CounterDefs = []CounterDef{
	{ID: medvault.MetricLoginSuccess, Name: "medvault_login_success_total", Help: "Successful logins."},
	{ID: medvault.MetricLoginFailure, Name: "medvault_login_failure_total", Help: "Failed logins."},
	{ID: medvault.MetricLoginRateLimited, Name: "medvault_login_rate_limited_total", Help: "Logins rejected by the auth throttle."},
	{ID: medvault.MetricLoginLocked, Name: "medvault_login_locked_total", Help: "Logins rejected because the account was locked."},
	{ID: medvault.MetricAccountLocked, Name: "medvault_account_locked_total", Help: "Accounts locked after repeated failures."},
	{ID: medvault.MetricTokenIssued, Name: "medvault_token_issued_total", Help: "Session tokens issued."},
	{ID: medvault.MetricResolveSuccess, Name: "medvault_resolve_success_total", Help: "Session tokens resolved to an identity."},
	{ID: medvault.MetricResolveFailure, Name: "medvault_resolve_failure_total", Help: "Session tokens rejected."},
	{ID: medvault.MetricTokenRevoked, Name: "medvault_token_revoked_total", Help: "Session tokens revoked."},
	{ID: medvault.MetricRegisterSuccess, Name: "medvault_register_success_total", Help: "Accounts registered."},
	{ID: medvault.MetricRegisterDuplicate, Name: "medvault_register_duplicate_total", Help: "Registrations rejected as duplicates."},
	{ID: medvault.MetricPasswordChangeSuccess, Name: "medvault_password_change_success_total", Help: "Password changes."},
	{ID: medvault.MetricPasswordChangeInvalidOld, Name: "medvault_password_change_invalid_old_total", Help: "Password changes with a wrong current password."},
	{ID: medvault.MetricPasswordResetRequest, Name: "medvault_password_reset_request_total", Help: "Password reset requests."},
	{ID: medvault.MetricPasswordResetSuccess, Name: "medvault_password_reset_success_total", Help: "Completed password resets."},
	{ID: medvault.MetricPasswordResetFailure, Name: "medvault_password_reset_failure_total", Help: "Rejected password reset secrets."},
	{ID: medvault.MetricEmailVerificationRequest, Name: "medvault_email_verification_request_total", Help: "Email verification requests."},
	{ID: medvault.MetricEmailVerificationSuccess, Name: "medvault_email_verification_success_total", Help: "Verified email addresses."},
	{ID: medvault.MetricEmailVerificationFailure, Name: "medvault_email_verification_failure_total", Help: "Rejected email verification secrets."},
	{ID: medvault.MetricLogout, Name: "medvault_logout_total", Help: "Logouts."},
	{ID: medvault.MetricLogoutAll, Name: "medvault_logout_all_total", Help: "Logout-all operations."},
	{ID: medvault.MetricAccountDeactivated, Name: "medvault_account_deactivated_total", Help: "Accounts deactivated by an admin."},
	{ID: medvault.MetricRateLimitHit, Name: "medvault_rate_limit_hit_total", Help: "Requests denied by an engine throttle."},
	{ID: medvault.MetricAccessDenied, Name: "medvault_access_denied_total", Help: "Access decisions that denied the caller."},
	{ID: medvault.MetricPasswordHashUpgraded, Name: "medvault_password_hash_upgraded_total", Help: "Password hashes rehashed on login."},
}

// HistogramDefs lists every exported engine histogram.
var HistogramDefs = []HistogramDef{
	{ID: medvault.MetricResolveLatency, Name: "medvault_resolve_latency_seconds", Help: "Session token resolve latency."},
}

// HistogramBounds are the exported upper bounds. The engine's last bucket
// also counts overflow, so it is exported as +Inf.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling or dropping
// entries so a short or long snapshot never panics an exporter.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
