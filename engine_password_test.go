package medvault

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestChangePassword_RevokesAndReissues(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	res := h.register(t, doctorRegistration("d@x.com"))

	changed, err := h.engine.ChangePassword(ctx, res.Identity.ID, testPassword, "Xyz98765?")
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := h.engine.Resolve(ctx, res.Token.Value); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("old token should be revoked, got %v", err)
	}
	if _, err := h.engine.Resolve(ctx, changed.Token.Value); err != nil {
		t.Fatalf("new token should resolve: %v", err)
	}
	if _, err := h.engine.Login(ctx, "d@x.com", "Xyz98765?"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestChangePassword_Rejections(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	res := h.register(t, doctorRegistration("d@x.com"))

	if _, err := h.engine.ChangePassword(ctx, res.Identity.ID, "Wrong123!", "Xyz98765?"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := h.engine.ChangePassword(ctx, res.Identity.ID, testPassword, "weak"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := h.engine.ChangePassword(ctx, res.Identity.ID, testPassword, testPassword); !errors.Is(err, ErrValidation) {
		t.Fatalf("reusing the password: expected ErrValidation, got %v", err)
	}
}

func TestChangePassword_SensitiveBudgetIsPerIdentity(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	first := h.register(t, doctorRegistration("d@x.com"))
	second := h.register(t, doctorRegistration("e@x.com"))

	for i := 0; i < 5; i++ {
		_, _ = h.engine.ChangePassword(ctx, first.Identity.ID, "Wrong123!", "Xyz98765?")
	}
	if _, err := h.engine.ChangePassword(ctx, first.Identity.ID, testPassword, "Xyz98765?"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, err := h.engine.ChangePassword(ctx, second.Identity.ID, testPassword, "Xyz98765?"); err != nil {
		t.Fatalf("other identity should not share the budget: %v", err)
	}
}

func TestPasswordReset_Lifecycle(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	res := h.register(t, doctorRegistration("d@x.com"))

	issue, err := h.engine.ForgotPassword(ctx, "d@x.com")
	if err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if !issue.ExpiresAt.Equal(h.clock.Now().Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", issue.ExpiresAt)
	}
	secret := h.notifier.lastReset(t).secret

	identity, err := h.engine.ResetPassword(ctx, secret, "Xyz98765?")
	if err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if identity.ResetTokenHash != "" {
		t.Fatal("reset fields should be cleared")
	}
	if _, err := h.engine.ResetPassword(ctx, secret, "Other987!"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("second use: expected ErrInvalidOrExpiredToken, got %v", err)
	}
	if _, err := h.engine.Resolve(ctx, res.Token.Value); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("reset should revoke tokens, got %v", err)
	}
}

func TestPasswordReset_Expired(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	h.register(t, doctorRegistration("d@x.com"))

	if _, err := h.engine.ForgotPassword(ctx, "d@x.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	secret := h.notifier.lastReset(t).secret
	h.clock.Advance(10*time.Minute + time.Second)
	if _, err := h.engine.ResetPassword(ctx, secret, "Xyz98765?"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestPasswordReset_NewRequestSupersedesOld(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.PasswordReset.Limit = 10
	h := newHarness(t, cfg)
	ctx := context.Background()
	h.register(t, doctorRegistration("d@x.com"))

	_, _ = h.engine.ForgotPassword(ctx, "d@x.com")
	first := h.notifier.lastReset(t).secret
	_, _ = h.engine.ForgotPassword(ctx, "d@x.com")
	second := h.notifier.lastReset(t).secret

	if _, err := h.engine.ResetPassword(ctx, first, "Xyz98765?"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("superseded secret: expected ErrInvalidOrExpiredToken, got %v", err)
	}
	if _, err := h.engine.ResetPassword(ctx, second, "Xyz98765?"); err != nil {
		t.Fatalf("latest secret should work: %v", err)
	}
}

func TestPasswordReset_UnknownEmailLooksIdentical(t *testing.T) {
	h := newHarness(t, testConfig())
	issue, err := h.engine.ForgotPassword(context.Background(), "ghost@x.com")
	if err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if !issue.ExpiresAt.Equal(h.clock.Now().Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", issue.ExpiresAt)
	}
	if len(h.notifier.resets) != 0 {
		t.Fatal("nothing should be delivered for an unknown email")
	}
}

func TestPasswordReset_ConcurrentConsumeHasOneWinner(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = false
	h := newHarness(t, cfg)
	ctx := context.Background()
	h.register(t, doctorRegistration("d@x.com"))
	_, _ = h.engine.ForgotPassword(ctx, "d@x.com")
	secret := h.notifier.lastReset(t).secret

	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.ResetPassword(ctx, secret, "Xyz98765?")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrInvalidOrExpiredToken):
				losses.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 || losses.Load() != 7 {
		t.Fatalf("expected exactly one winner, got %d wins %d losses", wins.Load(), losses.Load())
	}
}

func TestPasswordReset_MalformedSecret(t *testing.T) {
	h := newHarness(t, testConfig())
	if _, err := h.engine.ResetPassword(context.Background(), "not-a-secret", "Xyz98765?"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestEmailVerification(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	res := h.register(t, doctorRegistration("d@x.com"))

	if err := h.engine.RequestEmailVerification(ctx, res.Identity.ID); err != nil {
		t.Fatalf("RequestEmailVerification failed: %v", err)
	}
	secret := h.notifier.lastVerify(t).secret

	identity, err := h.engine.VerifyEmail(ctx, secret)
	if err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	if !identity.EmailVerified {
		t.Fatal("email should be verified")
	}
	if _, err := h.engine.VerifyEmail(ctx, secret); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("second use: expected ErrInvalidOrExpiredToken, got %v", err)
	}
	if err := h.engine.RequestEmailVerification(ctx, res.Identity.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("already verified: expected ErrValidation, got %v", err)
	}
}

func TestEmailVerification_Expired(t *testing.T) {
	h := newHarness(t, testConfig())
	h.register(t, doctorRegistration("d@x.com"))
	secret := h.notifier.lastVerify(t).secret

	h.clock.Advance(25 * time.Hour)
	if _, err := h.engine.VerifyEmail(context.Background(), secret); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}
