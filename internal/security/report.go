package security

import "time"

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Report summarizes which protections are actually in force. Fields ending
// in Active are derived, not copied.
type Report struct {
	ProductionMode     bool
	SigningAlgorithm   string
	TokenTTL           time.Duration
	Argon2             PasswordReport
	HashUpgradeActive  bool
	LockoutActive      bool
	LockoutThreshold   int
	LockoutDuration    time.Duration
	RateLimitingActive bool
	AuditActive        bool
	CookieSecure       bool
	VerifyOnRegister   bool
	PasswordResetTTL   time.Duration
	Warnings           []string
}

type ReportInput struct {
	ProductionMode   bool
	SigningAlgorithm string
	TokenTTL         time.Duration
	Password         PasswordReport
	UpgradeOnLogin   bool
	LockoutEnabled   bool
	LockoutThreshold int
	LockoutDuration  time.Duration
	RateLimitEnabled bool
	AuthLimit        int
	SensitiveLimit   int
	AuditEnabled     bool
	CookieSecure     bool
	VerifyOnRegister bool
	PasswordResetTTL time.Duration
}

// minArgon2Memory is the OWASP floor for Argon2id, in KB.
const minArgon2Memory = 19 * 1024

func BuildReport(input ReportInput) Report {
	lockout := input.LockoutEnabled &&
		input.LockoutThreshold > 0 &&
		input.LockoutDuration > 0

	rateLimiting := input.RateLimitEnabled &&
		input.AuthLimit > 0 &&
		input.SensitiveLimit > 0

	r := Report{
		ProductionMode:     input.ProductionMode,
		SigningAlgorithm:   input.SigningAlgorithm,
		TokenTTL:           input.TokenTTL,
		Argon2:             input.Password,
		HashUpgradeActive:  input.UpgradeOnLogin,
		LockoutActive:      lockout,
		LockoutThreshold:   input.LockoutThreshold,
		LockoutDuration:    input.LockoutDuration,
		RateLimitingActive: rateLimiting,
		AuditActive:        input.AuditEnabled,
		CookieSecure:       input.CookieSecure,
		VerifyOnRegister:   input.VerifyOnRegister,
		PasswordResetTTL:   input.PasswordResetTTL,
	}

	if !lockout {
		r.Warnings = append(r.Warnings, "account lockout disabled")
	}
	if !rateLimiting {
		r.Warnings = append(r.Warnings, "auth rate limiting disabled")
	}
	if !input.CookieSecure {
		r.Warnings = append(r.Warnings, "session cookie sent without Secure")
	}
	if input.Password.Memory < minArgon2Memory {
		r.Warnings = append(r.Warnings, "argon2 memory below 19 MiB")
	}
	return r
}
