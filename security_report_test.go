package medvault

import (
	"slices"
	"testing"
	"time"
)

func TestSecurityReport_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	h := newHarness(t, cfg)

	r := h.engine.SecurityReport()
	if !r.LockoutActive || r.LockoutThreshold != 5 || r.LockoutDuration != 2*time.Hour {
		t.Fatalf("unexpected lockout posture: %+v", r)
	}
	if !r.RateLimitingActive || !r.CookieSecure || !r.AuditActive {
		t.Fatalf("expected default protections active: %+v", r)
	}
	if r.SigningAlgorithm != "hs256" || r.TokenTTL != 7*24*time.Hour {
		t.Fatalf("unexpected token posture: %s %s", r.SigningAlgorithm, r.TokenTTL)
	}
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", r.Warnings)
	}
}

func TestSecurityReport_Warnings(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.Enabled = false
	cfg.RateLimit.Enabled = false
	cfg.Cookie.Secure = false
	h := newHarness(t, cfg)

	r := h.engine.SecurityReport()
	if r.LockoutActive || r.RateLimitingActive {
		t.Fatalf("disabled protections reported active: %+v", r)
	}
	for _, want := range []string{
		"account lockout disabled",
		"auth rate limiting disabled",
		"session cookie sent without Secure",
		"argon2 memory below 19 MiB",
	} {
		if !slices.Contains(r.Warnings, want) {
			t.Fatalf("missing warning %q in %v", want, r.Warnings)
		}
	}
}

func TestSecurityReport_NilEngine(t *testing.T) {
	var e *Engine
	if r := e.SecurityReport(); r.LockoutActive || len(r.Warnings) != 0 {
		t.Fatalf("expected zero report, got %+v", r)
	}
}
