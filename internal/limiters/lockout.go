package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/medvault/model"
)

// LockoutConfig holds configuration for the automatic account lockout guard.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

var (
	// ErrLockoutUnavailable indicates the lockout backend failed.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// LockoutStore applies lockout transitions as single atomic updates on the
// identity document.
//
// IncrementFailedLogins must behave as follows in one step: when a lock is set
// and already expired, the counter restarts at 1 and the lock is cleared;
// otherwise the counter increments, and when it reaches threshold while no
// lock is active, the lock is set to now+lockFor.
type LockoutStore interface {
	IncrementFailedLogins(ctx context.Context, identityID string, now time.Time, threshold int, lockFor time.Duration) (model.LockState, error)
	ResetFailedLogins(ctx context.Context, identityID string, now time.Time) error
}

// LockoutGuard tracks failed password checks per identity and escalates to
// a timed lock.
type LockoutGuard struct {
	store  LockoutStore
	config LockoutConfig
	now    func() time.Time
}

// NewLockoutGuard creates a guard. A nil clock means time.Now.
func NewLockoutGuard(store LockoutStore, cfg LockoutConfig, now func() time.Time) *LockoutGuard {
	if now == nil {
		now = time.Now
	}
	return &LockoutGuard{store: store, config: cfg, now: now}
}

// IsLocked reports whether identity is locked right now. It never touches
// the counter.
func (g *LockoutGuard) IsLocked(identity *model.Identity) bool {
	if g == nil || !g.config.Enabled {
		return false
	}
	return identity.IsLocked(g.now())
}

// RecordFailure counts one failed password check. The update runs on a
// context detached from request cancellation so an aborted request still
// records its failure.
func (g *LockoutGuard) RecordFailure(ctx context.Context, identityID string) (model.LockState, error) {
	if g == nil || !g.config.Enabled || identityID == "" {
		return model.LockState{}, nil
	}
	state, err := g.store.IncrementFailedLogins(context.WithoutCancel(ctx), identityID, g.now(), g.config.Threshold, g.config.Duration)
	if err != nil {
		return model.LockState{}, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return state, nil
}

// RecordSuccess clears the counter and any lock.
func (g *LockoutGuard) RecordSuccess(ctx context.Context, identityID string) error {
	if g == nil || identityID == "" {
		return nil
	}
	if err := g.store.ResetFailedLogins(context.WithoutCancel(ctx), identityID, g.now()); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}
