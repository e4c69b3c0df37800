package limiters

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/medvault/model"
)

type fakeLockoutStore struct {
	mu       sync.Mutex
	failures int
	locked   *time.Time
	ctxErr   error
	err      error
}

func (s *fakeLockoutStore) IncrementFailedLogins(ctx context.Context, _ string, now time.Time, threshold int, lockFor time.Duration) (model.LockState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErr = ctx.Err()
	if s.err != nil {
		return model.LockState{}, s.err
	}
	if s.locked != nil && !s.locked.After(now) {
		s.failures = 1
		s.locked = nil
		return model.LockState{FailedLogins: 1}, nil
	}
	s.failures++
	if s.failures >= threshold && s.locked == nil {
		until := now.Add(lockFor)
		s.locked = &until
	}
	return model.LockState{FailedLogins: s.failures, LockedUntil: s.locked}, nil
}

func (s *fakeLockoutStore) ResetFailedLogins(ctx context.Context, _ string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErr = ctx.Err()
	s.failures = 0
	s.locked = nil
	return s.err
}

func TestLockoutGuard_LocksAtThreshold(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := &fakeLockoutStore{}
	g := NewLockoutGuard(store, LockoutConfig{Enabled: true, Threshold: 5, Duration: 2 * time.Hour}, func() time.Time { return now })

	var state model.LockState
	for i := 0; i < 5; i++ {
		var err error
		if state, err = g.RecordFailure(context.Background(), "u1"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if !state.Locked(now) || !state.LockedUntil.Equal(now.Add(2*time.Hour)) {
		t.Fatalf("expected lock until now+2h, got %+v", state)
	}
	if !g.IsLocked(&model.Identity{LockedUntil: state.LockedUntil}) {
		t.Fatal("identity should read as locked")
	}
}

func TestLockoutGuard_DetachesFromCancellation(t *testing.T) {
	store := &fakeLockoutStore{}
	g := NewLockoutGuard(store, LockoutConfig{Enabled: true, Threshold: 5, Duration: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.RecordFailure(ctx, "u1"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if store.ctxErr != nil || store.failures != 1 {
		t.Fatalf("failure should be stored on a live context, ctxErr=%v failures=%d", store.ctxErr, store.failures)
	}
	if err := g.RecordSuccess(ctx, "u1"); err != nil || store.ctxErr != nil {
		t.Fatalf("RecordSuccess should run detached, err=%v ctxErr=%v", err, store.ctxErr)
	}
}

func TestLockoutGuard_BackendFailure(t *testing.T) {
	store := &fakeLockoutStore{err: errors.New("connection refused")}
	g := NewLockoutGuard(store, LockoutConfig{Enabled: true, Threshold: 5, Duration: time.Hour}, nil)

	if _, err := g.RecordFailure(context.Background(), "u1"); !errors.Is(err, ErrLockoutUnavailable) {
		t.Fatalf("expected ErrLockoutUnavailable, got %v", err)
	}
	if err := g.RecordSuccess(context.Background(), "u1"); !errors.Is(err, ErrLockoutUnavailable) {
		t.Fatalf("expected ErrLockoutUnavailable, got %v", err)
	}
}

func TestLockoutGuard_Disabled(t *testing.T) {
	store := &fakeLockoutStore{}
	g := NewLockoutGuard(store, LockoutConfig{Enabled: false, Threshold: 1, Duration: time.Hour}, nil)

	if _, err := g.RecordFailure(context.Background(), "u1"); err != nil || store.failures != 0 {
		t.Fatalf("disabled guard should not count, err=%v failures=%d", err, store.failures)
	}
	until := time.Now().Add(time.Hour)
	if g.IsLocked(&model.Identity{LockedUntil: &until}) {
		t.Fatal("disabled guard never reports locked")
	}
}
