package limiters

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/medvault/internal/rate"
)

// Scope names a throttled family of operations.
type Scope string

const (
	ScopeAuth          Scope = "auth"
	ScopeSensitive     Scope = "sensitive"
	ScopePasswordReset Scope = "password_reset"
)

const anonymous = "anonymous"

// ErrUnknownScope is returned for scopes without a configured policy.
var ErrUnknownScope = errors.New("unknown throttle scope")

// ThrottleConfig holds the per-scope budgets.
type ThrottleConfig struct {
	Enabled bool
	Auth    rate.Policy
	// Sensitive covers password changes and logout everywhere.
	Sensitive     rate.Policy
	PasswordReset rate.Policy
}

// DefaultThrottleConfig returns 5/15m for auth and sensitive operations and
// 3/1h for password reset.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		Enabled:       true,
		Auth:          rate.Policy{Name: string(ScopeAuth), Limit: 5, Window: 15 * time.Minute},
		Sensitive:     rate.Policy{Name: string(ScopeSensitive), Limit: 5, Window: 15 * time.Minute},
		PasswordReset: rate.Policy{Name: string(ScopePasswordReset), Limit: 3, Window: time.Hour},
	}
}

// Throttle keys attempts by (scope, origin, identity-or-anonymous).
type Throttle struct {
	limiter  *rate.Limiter
	config   ThrottleConfig
	policies map[Scope]rate.Policy
}

// NewThrottle binds policies to a limiter.
func NewThrottle(limiter *rate.Limiter, cfg ThrottleConfig) *Throttle {
	return &Throttle{
		limiter: limiter,
		config:  cfg,
		policies: map[Scope]rate.Policy{
			ScopeAuth:          withName(cfg.Auth, ScopeAuth),
			ScopeSensitive:     withName(cfg.Sensitive, ScopeSensitive),
			ScopePasswordReset: withName(cfg.PasswordReset, ScopePasswordReset),
		},
	}
}

func withName(p rate.Policy, s Scope) rate.Policy {
	if p.Name == "" {
		p.Name = string(s)
	}
	return p
}

// Acquire admits one attempt or returns rate.ErrRateLimited.
func (t *Throttle) Acquire(ctx context.Context, scope Scope, origin, identity string) (rate.Result, error) {
	if t == nil || !t.config.Enabled {
		return rate.Result{Allowed: true}, nil
	}
	p, ok := t.policies[scope]
	if !ok {
		return rate.Result{}, ErrUnknownScope
	}
	return t.limiter.Allow(ctx, p, Key(origin, identity))
}

// Policy returns the policy bound to scope.
func (t *Throttle) Policy(scope Scope) (rate.Policy, bool) {
	if t == nil {
		return rate.Policy{}, false
	}
	p, ok := t.policies[scope]
	return p, ok
}

// Key builds the window key for an origin and optional identity.
func Key(origin, identity string) string {
	if origin == "" {
		origin = "unknown"
	}
	if identity == "" {
		identity = anonymous
	}
	return origin + ":" + identity
}
