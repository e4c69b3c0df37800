package medvault

import (
	"errors"
	"time"

	"github.com/MrEthical07/medvault/model"
)

// Config is the engine configuration. Start from DefaultConfig and override
// what you need.
type Config struct {
	JWT               JWTConfig
	Password          PasswordConfig
	Lockout           LockoutConfig
	PasswordReset     PasswordResetConfig
	EmailVerification EmailVerificationConfig
	Account           AccountConfig
	RateLimit         RateLimitConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
	Cookie            CookieConfig
	ProductionMode    bool
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures session tokens.
type JWTConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters. MaxConcurrent bounds how many
// hashes run at once across the engine.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
	MaxConcurrent  int
}

/*
====================================
LOCKOUT / SECRETS / ACCOUNTS
====================================
*/

// LockoutConfig controls automatic lockout after repeated wrong passwords.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

// PasswordResetConfig controls reset secrets.
type PasswordResetConfig struct {
	TTL time.Duration
}

// EmailVerificationConfig controls verification secrets.
type EmailVerificationConfig struct {
	TTL             time.Duration
	IssueOnRegister bool
}

// AccountConfig controls self-registration.
type AccountConfig struct {
	// AllowedRoles lists the roles accepted by Register.
	AllowedRoles []model.Role
}

/*
====================================
RATE LIMIT / AUDIT / METRICS
====================================
*/

// WindowConfig is one sliding-window budget.
type WindowConfig struct {
	Limit  int
	Window time.Duration
}

// RateLimitConfig configures the per-scope throttles.
type RateLimitConfig struct {
	Enabled       bool
	Auth          WindowConfig
	Sensitive     WindowConfig
	PasswordReset WindowConfig
	RedisPrefix   string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// CookieConfig describes the session cookie set by the HTTP layer.
type CookieConfig struct {
	Name   string
	Secure bool
	Domain string
	Path   string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. The JWT key is left empty
// and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL:           7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "medvault",
			Audience:      "medvault-api",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
			MaxConcurrent:  8,
		},
		Lockout: LockoutConfig{
			Enabled:   true,
			Threshold: 5,
			Duration:  2 * time.Hour,
		},
		PasswordReset: PasswordResetConfig{
			TTL: 10 * time.Minute,
		},
		EmailVerification: EmailVerificationConfig{
			TTL:             24 * time.Hour,
			IssueOnRegister: true,
		},
		Account: AccountConfig{
			AllowedRoles: []model.Role{model.RoleDoctor, model.RolePatient},
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			Auth:          WindowConfig{Limit: 5, Window: 15 * time.Minute},
			Sensitive:     WindowConfig{Limit: 5, Window: 15 * time.Minute},
			PasswordReset: WindowConfig{Limit: 3, Window: time.Hour},
			RedisPrefix:   "mvrl",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Cookie: CookieConfig{
			Name:   "token",
			Secure: true,
			Path:   "/",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.Account.AllowedRoles = append([]model.Role(nil), cfg.Account.AllowedRoles...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.TTL <= 0 {
		return errors.New("JWT TTL must be > 0")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxConcurrent < 1 {
		return errors.New("Password MaxConcurrent must be >= 1")
	}

	// Lockout
	if c.Lockout.Enabled {
		if c.Lockout.Threshold <= 0 {
			return errors.New("Lockout Threshold must be > 0")
		}
		if c.Lockout.Duration <= 0 {
			return errors.New("Lockout Duration must be > 0")
		}
	}

	// Secrets
	if c.PasswordReset.TTL <= 0 {
		return errors.New("PasswordReset TTL must be > 0")
	}
	if c.EmailVerification.TTL <= 0 {
		return errors.New("EmailVerification TTL must be > 0")
	}

	// Accounts
	for _, r := range c.Account.AllowedRoles {
		if !r.Valid() {
			return errors.New("Account AllowedRoles contains an unknown role")
		}
	}

	// Rate limit
	if c.RateLimit.Enabled {
		for _, w := range []WindowConfig{c.RateLimit.Auth, c.RateLimit.Sensitive, c.RateLimit.PasswordReset} {
			if w.Limit <= 0 || w.Window <= 0 {
				return errors.New("RateLimit windows must have Limit > 0 and Window > 0")
			}
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Cookie.Name == "" {
		return errors.New("Cookie Name is required")
	}

	if c.ProductionMode {
		if !c.Cookie.Secure {
			return errors.New("ProductionMode requires secure cookies")
		}
		if c.Password.Memory < 64*1024 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.Time < 2 {
			return errors.New("ProductionMode requires Password Time >= 2")
		}
		if !c.Lockout.Enabled {
			return errors.New("ProductionMode requires Lockout")
		}
		if !c.RateLimit.Enabled {
			return errors.New("ProductionMode requires RateLimit")
		}
		if c.JWT.TTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires JWT TTL <= 30d")
		}
	}

	return nil
}
