package medvault

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/medvault/model"
	"golang.org/x/crypto/bcrypt"
)

func lockoutTestConfig() Config {
	cfg := testConfig()
	// Lockout is exercised independently of the per-origin auth budget.
	cfg.RateLimit.Auth.Limit = 100
	return cfg
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t, lockoutTestConfig())
	h.register(t, doctorRegistration("d@x.com"))

	res, err := h.engine.Login(context.Background(), "  D@X.com ", testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Token.Value == "" {
		t.Fatal("expected token")
	}
	stored, _ := h.store.IdentityByEmail(context.Background(), "d@x.com")
	if stored.LastLoginAt == nil || !stored.LastLoginAt.Equal(h.clock.Now()) {
		t.Fatalf("last login not recorded: %v", stored.LastLoginAt)
	}
}

func TestLogin_UnknownEmailMatchesWrongPassword(t *testing.T) {
	h := newHarness(t, lockoutTestConfig())
	h.register(t, doctorRegistration("d@x.com"))
	ctx := context.Background()

	_, unknownErr := h.engine.Login(ctx, "nobody@x.com", testPassword)
	_, wrongErr := h.engine.Login(ctx, "d@x.com", "Wrong123!")
	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatal("error messages must not reveal which part was wrong")
	}
}

func TestLogin_LockoutAfterFiveFailures(t *testing.T) {
	h := newHarness(t, lockoutTestConfig())
	h.register(t, doctorRegistration("d@x.com"))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := h.engine.Login(ctx, "d@x.com", "Wrong123!"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// Correct credentials are still refused while the lock is open.
	if _, err := h.engine.Login(ctx, "d@x.com", testPassword); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	stored, _ := h.store.IdentityByEmail(ctx, "d@x.com")
	if stored.FailedLogins != 5 {
		t.Fatalf("locked attempts must not touch the counter: %d", stored.FailedLogins)
	}
	if got := h.engine.MetricsSnapshot().Counters[MetricAccountLocked]; got != 1 {
		t.Fatalf("expected one lock transition, got %d", got)
	}

	h.clock.Advance(2*time.Hour + time.Second)
	if _, err := h.engine.Login(ctx, "d@x.com", testPassword); err != nil {
		t.Fatalf("login after lock window failed: %v", err)
	}
	stored, _ = h.store.IdentityByEmail(ctx, "d@x.com")
	if stored.FailedLogins != 0 || stored.LockedUntil != nil {
		t.Fatalf("success should clear the lock: %+v", stored)
	}
}

func TestLogin_FailureAfterExpiredLockRestartsCounter(t *testing.T) {
	h := newHarness(t, lockoutTestConfig())
	h.register(t, doctorRegistration("d@x.com"))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = h.engine.Login(ctx, "d@x.com", "Wrong123!")
	}
	h.clock.Advance(3 * time.Hour)
	if _, err := h.engine.Login(ctx, "d@x.com", "Wrong123!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	stored, _ := h.store.IdentityByEmail(ctx, "d@x.com")
	if stored.FailedLogins != 1 || stored.LockedUntil != nil {
		t.Fatalf("expected a fresh counter, got %d / %v", stored.FailedLogins, stored.LockedUntil)
	}
}

// canceledAfterCompare never fires Done, so the hash slot is always
// acquired, but reports Canceled as if the client left during hashing.
type canceledAfterCompare struct {
	context.Context
}

func (canceledAfterCompare) Err() error { return context.Canceled }

func TestLogin_CanceledRequestStillCountsFailure(t *testing.T) {
	h := newHarness(t, lockoutTestConfig())
	h.register(t, doctorRegistration("d@x.com"))

	ctx := canceledAfterCompare{Context: context.Background()}
	if _, err := h.engine.Login(ctx, "d@x.com", "Wrong12345!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	stored, _ := h.store.IdentityByEmail(context.Background(), "d@x.com")
	if stored.FailedLogins != 1 {
		t.Fatalf("expected the failure to be recorded, got %d", stored.FailedLogins)
	}
}

func TestLogin_CanceledBeforeCompareCountsNothing(t *testing.T) {
	cfg := lockoutTestConfig()
	cfg.Password.MaxConcurrent = 1
	h := newHarness(t, cfg)
	h.register(t, doctorRegistration("d@x.com"))

	// Hold the only hash slot so Login cannot start comparing.
	h.engine.hashSlots <- struct{}{}
	defer h.engine.releaseHashSlot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.engine.Login(ctx, "d@x.com", "Wrong12345!"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	stored, _ := h.store.IdentityByEmail(context.Background(), "d@x.com")
	if stored.FailedLogins != 0 {
		t.Fatalf("no comparison ran, got %d failures", stored.FailedLogins)
	}
}

func TestLogin_Deactivated(t *testing.T) {
	h := newHarness(t, lockoutTestConfig())
	res := h.register(t, doctorRegistration("d@x.com"))
	ctx := context.Background()

	inactive := false
	_, _ = h.store.UpdateIdentity(ctx, res.Identity.ID, model.IdentityUpdate{Active: &inactive}, h.clock.Now())
	if _, err := h.engine.Login(ctx, "d@x.com", testPassword); !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}
	// A wrong password on a deactivated account still reads as bad credentials.
	if _, err := h.engine.Login(ctx, "d@x.com", "Wrong123!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UpgradesLegacyHash(t *testing.T) {
	h := newHarness(t, lockoutTestConfig())
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	_ = h.store.CreateIdentity(ctx, &model.Identity{ID: "legacy", Name: "Old User", Email: "old@x.com", PasswordHash: string(legacy), Role: model.RoleDoctor, Active: true})

	if _, err := h.engine.Login(ctx, "old@x.com", testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	stored, _ := h.store.IdentityByID(ctx, "legacy")
	if stored.PasswordHash == string(legacy) {
		t.Fatal("legacy hash should be replaced")
	}
	if _, err := h.engine.Login(ctx, "old@x.com", testPassword); err != nil {
		t.Fatalf("Login with upgraded hash failed: %v", err)
	}
	if got := h.engine.MetricsSnapshot().Counters[MetricPasswordHashUpgraded]; got != 1 {
		t.Fatalf("expected one upgrade, got %d", got)
	}
}

func TestLogin_RateLimitedPerOrigin(t *testing.T) {
	h := newHarness(t, testConfig())
	h.register(t, doctorRegistration("d@x.com"))
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	// Register consumed the unknown-origin budget, not this one.
	for i := 0; i < 5; i++ {
		_, _ = h.engine.Login(ctx, "d@x.com", "Wrong123!")
	}
	_, err := h.engine.Login(ctx, "d@x.com", testPassword)
	var rl *RateLimitError
	if !errors.As(err, &rl) || !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected *RateLimitError, got %v", err)
	}
	if rl.Scope != "auth" || rl.RetryAfter <= 0 {
		t.Fatalf("unexpected rate limit detail %+v", rl)
	}

	other := WithClientIP(context.Background(), "198.51.100.1")
	if _, err := h.engine.Login(other, "nobody@x.com", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("other origins keep their own budget, got %v", err)
	}

	h.clock.Advance(15*time.Minute + time.Second)
	if _, err := h.engine.Login(ctx, "d@x.com", "Wrong123!"); errors.Is(err, ErrRateLimited) {
		t.Fatal("window should have slid past the earlier attempts")
	}
}
