package rate

import (
	"context"
	"time"
)

// Policy is a named window budget.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Result is the outcome of one window check.
type Result struct {
	Allowed    bool
	Count      int
	Remaining  int
	RetryAfter time.Duration
}

// Store records admitted attempts per key. Implementations must make
// Hit atomic for a single key.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Result, error)
	Reset(ctx context.Context, key string) error
}

// Limiter applies policies against an injected Store.
type Limiter struct {
	store  Store
	prefix string
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithPrefix namespaces every key.
func WithPrefix(prefix string) Option {
	return func(l *Limiter) { l.prefix = prefix }
}

// New creates a Limiter over store.
func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{store: store, prefix: "mvrl", now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow checks key against p. A denial returns the Result together with
// ErrRateLimited.
func (l *Limiter) Allow(ctx context.Context, p Policy, key string) (Result, error) {
	if l == nil || l.store == nil || p.Limit <= 0 {
		return Result{Allowed: true}, nil
	}
	res, err := l.store.Hit(ctx, l.key(p, key), l.now(), p.Window, p.Limit)
	if err != nil {
		return Result{}, err
	}
	if !res.Allowed {
		return res, ErrRateLimited
	}
	return res, nil
}

// Reset forgets every attempt recorded for key under p.
func (l *Limiter) Reset(ctx context.Context, p Policy, key string) error {
	if l == nil || l.store == nil {
		return nil
	}
	return l.store.Reset(ctx, l.key(p, key))
}

func (l *Limiter) key(p Policy, key string) string {
	return l.prefix + ":" + p.Name + ":" + key
}
