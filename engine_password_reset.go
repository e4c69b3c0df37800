package medvault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/medvault/internal"
	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/internal/limiters"
	"github.com/MrEthical07/medvault/model"
	"go.uber.org/zap"
)

// ResetIssue is the caller-visible outcome of ForgotPassword. It is the same
// for known and unknown emails.
type ResetIssue struct {
	ExpiresAt time.Time
}

// ForgotPassword mints a reset secret for email and hands the plaintext to
// the Notifier. Only its SHA-256 digest is stored.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (ResetIssue, error) {
	if e == nil {
		return ResetIssue{}, ErrEngineNotReady
	}
	if err := e.throttle(ctx, limiters.ScopePasswordReset, ""); err != nil {
		return ResetIssue{}, err
	}
	email = model.NormalizeEmail(email)
	if msg := model.ValidateEmail(email); msg != "" {
		return ResetIssue{}, model.Invalid(msg)
	}

	e.metrics.Inc(MetricPasswordResetRequest)
	expires := e.now().Add(e.config.PasswordReset.TTL)
	issue := ResetIssue{ExpiresAt: expires}

	// The secret is minted before the lookup so both branches do the same work.
	plain, digest, err := internal.NewSecret()
	if err != nil {
		return ResetIssue{}, fmt.Errorf("mint reset secret: %w", err)
	}

	identity, err := e.identities.IdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			e.emit(ctx, audit.ActionPasswordForgot, "", "", false, ErrIdentityNotFound, map[string]string{"email": email})
			return issue, nil
		}
		return ResetIssue{}, fmt.Errorf("reset lookup: %w", err)
	}
	if !identity.Active {
		e.emit(ctx, audit.ActionPasswordForgot, identity.ID, identity.ID, false, ErrAccountDeactivated, nil)
		return issue, nil
	}

	if err := e.identities.SetResetSecret(ctx, identity.ID, digest, expires); err != nil {
		return ResetIssue{}, fmt.Errorf("store reset secret: %w", err)
	}
	if err := e.notifier.PasswordReset(ctx, identity, plain, expires); err != nil {
		e.logger.Error("deliver reset secret failed", zap.String("user_id", identity.ID), zap.Error(err))
	}
	e.emit(ctx, audit.ActionPasswordForgot, identity.ID, identity.ID, true, nil, nil)
	return issue, nil
}

// ResetPassword consumes secret and installs next as the new password. The
// secret is single use; outstanding tokens are revoked.
func (e *Engine) ResetPassword(ctx context.Context, secret, next string) (*model.Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.throttle(ctx, limiters.ScopePasswordReset, ""); err != nil {
		return nil, err
	}
	if problems := passwordPolicy(next); len(problems) > 0 {
		return nil, model.Invalid(problems...)
	}
	digest, err := internal.ParseSecret(secret)
	if err != nil {
		e.metrics.Inc(MetricPasswordResetFailure)
		return nil, ErrInvalidOrExpiredToken
	}

	hash, err := e.hashPassword(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	identity, err := e.identities.ConsumeResetSecret(ctx, digest, hash, e.now())
	if err != nil {
		if errors.Is(err, model.ErrSecretNotFound) {
			e.metrics.Inc(MetricPasswordResetFailure)
			e.emit(ctx, audit.ActionPasswordReset, "", "", false, ErrInvalidOrExpiredToken, nil)
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("consume reset secret: %w", err)
	}

	e.metrics.Inc(MetricPasswordResetSuccess)
	e.emit(ctx, audit.ActionPasswordReset, identity.ID, identity.ID, true, nil, nil)
	return identity, nil
}
