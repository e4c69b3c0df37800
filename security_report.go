package medvault

import "github.com/MrEthical07/medvault/internal/security"

// SecurityReport is a read-only snapshot of the protections in force.
type SecurityReport = security.Report

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	c := e.config
	return security.BuildReport(security.ReportInput{
		ProductionMode:   c.ProductionMode,
		SigningAlgorithm: c.JWT.SigningMethod,
		TokenTTL:         c.JWT.TTL,
		Password: security.PasswordReport{
			Memory:      c.Password.Memory,
			Time:        c.Password.Time,
			Parallelism: c.Password.Parallelism,
			SaltLength:  c.Password.SaltLength,
			KeyLength:   c.Password.KeyLength,
		},
		UpgradeOnLogin:   c.Password.UpgradeOnLogin,
		LockoutEnabled:   c.Lockout.Enabled,
		LockoutThreshold: c.Lockout.Threshold,
		LockoutDuration:  c.Lockout.Duration,
		RateLimitEnabled: c.RateLimit.Enabled,
		AuthLimit:        c.RateLimit.Auth.Limit,
		SensitiveLimit:   c.RateLimit.Sensitive.Limit,
		AuditEnabled:     c.Audit.Enabled,
		CookieSecure:     c.Cookie.Secure,
		VerifyOnRegister: c.EmailVerification.IssueOnRegister,
		PasswordResetTTL: c.PasswordReset.TTL,
	})
}
