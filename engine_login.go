package medvault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/internal/limiters"
	"github.com/MrEthical07/medvault/model"
	"go.uber.org/zap"
)

// LoginResult is returned by a successful Login or Register.
type LoginResult struct {
	Identity *model.Identity
	Token    Token
}

// Login authenticates email and password.
//
// Unknown emails and wrong passwords both return ErrInvalidCredentials after
// a comparable amount of hashing work. A locked identity is rejected before
// its password is compared and its counter is left untouched.
func (e *Engine) Login(ctx context.Context, email, plain string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.throttle(ctx, limiters.ScopeAuth, ""); err != nil {
		e.metrics.Inc(MetricLoginRateLimited)
		return nil, err
	}

	email = model.NormalizeEmail(email)
	if email == "" || plain == "" {
		return nil, model.Invalid("email and password are required")
	}

	identity, err := e.identities.IdentityByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("login lookup: %w", err)
		}
		e.verifyDummy(ctx, plain)
		e.metrics.Inc(MetricLoginFailure)
		e.emit(ctx, audit.ActionLogin, "", "", false, ErrInvalidCredentials, map[string]string{"email": email})
		return nil, ErrInvalidCredentials
	}

	if e.lockout.IsLocked(identity) {
		e.metrics.Inc(MetricLoginLocked)
		e.emit(ctx, audit.ActionLogin, identity.ID, identity.ID, false, ErrAccountLocked, nil)
		return nil, ErrAccountLocked
	}

	match, err := e.comparePassword(ctx, identity, plain)
	if err != nil {
		// Nothing was compared, so there is no failure to count.
		return nil, err
	}
	if !match {
		e.recordFailure(ctx, identity)
		e.metrics.Inc(MetricLoginFailure)
		e.emit(ctx, audit.ActionLogin, identity.ID, identity.ID, false, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if !identity.Active {
		e.metrics.Inc(MetricAccountDeactivated)
		e.emit(ctx, audit.ActionLogin, identity.ID, identity.ID, false, ErrAccountDeactivated, nil)
		return nil, ErrAccountDeactivated
	}

	if err := e.lockout.RecordSuccess(ctx, identity.ID); err != nil {
		e.logger.Warn("clear lockout state failed", zap.String("user_id", identity.ID), zap.Error(err))
	}
	e.upgradeHash(ctx, identity, plain)

	token, err := e.Issue(identity)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricLoginSuccess)
	e.emit(ctx, audit.ActionLogin, identity.ID, identity.ID, true, nil, nil)
	return &LoginResult{Identity: identity, Token: token}, nil
}

func (e *Engine) recordFailure(ctx context.Context, identity *model.Identity) {
	state, err := e.lockout.RecordFailure(ctx, identity.ID)
	if err != nil {
		e.logger.Error("record failed login", zap.String("user_id", identity.ID), zap.Error(err))
		return
	}
	// Only the failure that opened the window is reported.
	if now := e.now(); state.Locked(now) && !identity.IsLocked(now) {
		e.metrics.Inc(MetricAccountLocked)
		e.emit(ctx, audit.ActionAccountLocked, identity.ID, identity.ID, true, nil, map[string]string{
			"locked_until": state.LockedUntil.UTC().Format(time.RFC3339),
		})
	}
}

// upgradeHash re-hashes legacy or weaker hashes after a successful login.
// Failures are logged; the login itself still succeeds.
func (e *Engine) upgradeHash(ctx context.Context, identity *model.Identity, plain string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	stale, err := e.hasher.NeedsUpgrade(identity.PasswordHash)
	if err != nil || !stale {
		return
	}
	hash, err := e.hashPassword(ctx, plain)
	if err != nil {
		e.logger.Warn("password rehash failed", zap.String("user_id", identity.ID), zap.Error(err))
		return
	}
	if _, err := e.identities.SetPasswordHash(ctx, identity.ID, hash, false, e.now()); err != nil {
		e.logger.Warn("store upgraded password hash failed", zap.String("user_id", identity.ID), zap.Error(err))
		return
	}
	identity.PasswordHash = hash
	e.metrics.Inc(MetricPasswordHashUpgraded)
}
