package medvault

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/medvault/internal"
	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/model"
)

// RequestEmailVerification issues a new verification secret for identityID,
// replacing any earlier one.
func (e *Engine) RequestEmailVerification(ctx context.Context, identityID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	identity, err := e.lookupActive(ctx, identityID)
	if err != nil {
		return err
	}
	if identity.EmailVerified {
		return model.Invalid("email is already verified")
	}
	return e.issueVerification(ctx, identity)
}

func (e *Engine) issueVerification(ctx context.Context, identity *model.Identity) error {
	plain, digest, err := internal.NewSecret()
	if err != nil {
		return fmt.Errorf("mint verification secret: %w", err)
	}
	expires := e.now().Add(e.config.EmailVerification.TTL)
	if err := e.identities.SetVerifySecret(ctx, identity.ID, digest, expires); err != nil {
		return fmt.Errorf("store verification secret: %w", err)
	}
	e.metrics.Inc(MetricEmailVerificationRequest)
	return e.notifier.EmailVerification(ctx, identity, plain, expires)
}

// VerifyEmail consumes secret and marks its owner's email verified.
func (e *Engine) VerifyEmail(ctx context.Context, secret string) (*model.Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	digest, err := internal.ParseSecret(secret)
	if err != nil {
		e.metrics.Inc(MetricEmailVerificationFailure)
		return nil, ErrInvalidOrExpiredToken
	}
	identity, err := e.identities.ConsumeVerifySecret(ctx, digest, e.now())
	if err != nil {
		if errors.Is(err, model.ErrSecretNotFound) {
			e.metrics.Inc(MetricEmailVerificationFailure)
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("consume verification secret: %w", err)
	}
	e.metrics.Inc(MetricEmailVerificationSuccess)
	e.emit(ctx, audit.ActionEmailVerify, identity.ID, identity.ID, true, nil, nil)
	return identity, nil
}
