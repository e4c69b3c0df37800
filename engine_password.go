package medvault

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/internal/limiters"
	"github.com/MrEthical07/medvault/model"
)

// ChangePassword replaces the password of identityID after re-checking
// current. Every outstanding token is revoked and a fresh one is returned.
func (e *Engine) ChangePassword(ctx context.Context, identityID, current, next string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.throttle(ctx, limiters.ScopeSensitive, identityID); err != nil {
		return nil, err
	}

	identity, err := e.lookupActive(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if current == "" {
		return nil, model.Invalid("current password is required")
	}
	if problems := passwordPolicy(next); len(problems) > 0 {
		return nil, model.Invalid(problems...)
	}
	if current == next {
		return nil, model.Invalid("new password must differ from the current password")
	}

	match, err := e.comparePassword(ctx, identity, current)
	if err != nil {
		return nil, err
	}
	if !match {
		e.metrics.Inc(MetricPasswordChangeInvalidOld)
		e.emit(ctx, audit.ActionPasswordChange, identity.ID, identity.ID, false, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	hash, err := e.hashPassword(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	updated, err := e.identities.SetPasswordHash(ctx, identity.ID, hash, true, e.now())
	if err != nil {
		return nil, fmt.Errorf("store password: %w", err)
	}

	token, err := e.Issue(updated)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricPasswordChangeSuccess)
	e.emit(ctx, audit.ActionPasswordChange, identity.ID, identity.ID, true, nil, nil)
	return &LoginResult{Identity: updated, Token: token}, nil
}

// Logout records the sign-out. Tokens are not tracked server side; the
// HTTP layer clears the cookie.
func (e *Engine) Logout(ctx context.Context, identityID string) {
	if e == nil {
		return
	}
	e.metrics.Inc(MetricLogout)
	e.emit(ctx, audit.ActionLogout, identityID, identityID, true, nil, nil)
}

// LogoutAll invalidates every token issued to identityID so far.
func (e *Engine) LogoutAll(ctx context.Context, identityID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.throttle(ctx, limiters.ScopeSensitive, identityID); err != nil {
		return err
	}
	if _, err := e.identities.BumpTokenVersion(ctx, identityID, e.now()); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("revoke tokens: %w", err)
	}
	e.metrics.Inc(MetricLogoutAll)
	e.emit(ctx, audit.ActionLogoutAll, identityID, identityID, true, nil, nil)
	return nil
}

// lookupActive loads identityID and rejects deactivated or locked accounts.
func (e *Engine) lookupActive(ctx context.Context, identityID string) (*model.Identity, error) {
	identity, err := e.identities.IdentityByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if err := e.checkStatus(identity); err != nil {
		return nil, err
	}
	return identity, nil
}
