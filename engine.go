package medvault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/medvault/access"
	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/internal/limiters"
	"github.com/MrEthical07/medvault/jwt"
	"github.com/MrEthical07/medvault/model"
	"github.com/MrEthical07/medvault/password"
	"github.com/MrEthical07/medvault/permission"
	"go.uber.org/zap"
)

// Engine is the authentication and authorization core. It is safe for
// concurrent use once built.
type Engine struct {
	config     Config
	identities IdentityStore
	charts     ChartStore
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time

	roleManager *permission.RoleManager
	evaluator   *access.Evaluator

	hasher    *password.Hasher
	hashSlots chan struct{}

	jwtManager    *jwt.Manager
	throttleGuard *limiters.Throttle
	lockout       *limiters.LockoutGuard
	audit         *audit.Dispatcher
	metrics       *Metrics
}

// Token is a signed session token and its expiry.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Close drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Access returns the relationship-aware access evaluator.
func (e *Engine) Access() *access.Evaluator {
	return e.evaluator
}

// Now returns the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// Issue signs a session token for identity at its current token version.
func (e *Engine) Issue(identity *model.Identity) (Token, error) {
	if e == nil {
		return Token{}, ErrEngineNotReady
	}
	value, exp, err := e.jwtManager.Issue(identity.ID, string(identity.Role), identity.TokenVersion)
	if err != nil {
		return Token{}, fmt.Errorf("issue token: %w", err)
	}
	e.metrics.Inc(MetricTokenIssued)
	return Token{Value: value, ExpiresAt: exp}, nil
}

// Resolve verifies token and re-checks the identity it names: it must
// exist, be active, be unlocked, and still carry the token's version.
func (e *Engine) Resolve(ctx context.Context, token string) (*model.Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	identity, err := e.resolve(ctx, token)
	e.metrics.Observe(MetricResolveLatency, time.Since(start))
	if err != nil {
		e.metrics.Inc(MetricResolveFailure)
		if errors.Is(err, ErrTokenRevoked) {
			e.metrics.Inc(MetricTokenRevoked)
		}
		return nil, err
	}
	e.metrics.Inc(MetricResolveSuccess)
	return identity, nil
}

func (e *Engine) resolve(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	identity, err := e.identities.IdentityByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if err := e.checkStatus(identity); err != nil {
		return nil, err
	}
	if claims.TokenVersion != identity.TokenVersion {
		return nil, ErrTokenRevoked
	}
	return identity, nil
}

func (e *Engine) checkStatus(identity *model.Identity) error {
	if !identity.Active {
		return ErrAccountDeactivated
	}
	if e.lockout.IsLocked(identity) {
		return ErrAccountLocked
	}
	return nil
}

// Refresh re-reads the identity and issues a fresh token when it is still
// active and unlocked.
func (e *Engine) Refresh(ctx context.Context, identityID string) (Token, error) {
	if e == nil {
		return Token{}, ErrEngineNotReady
	}
	identity, err := e.identities.IdentityByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return Token{}, ErrIdentityNotFound
		}
		return Token{}, fmt.Errorf("refresh: %w", err)
	}
	if err := e.checkStatus(identity); err != nil {
		return Token{}, err
	}
	return e.Issue(identity)
}

// Can reports whether identity's role holds perm.
func (e *Engine) Can(identity *model.Identity, perm string) access.Decision {
	d := e.evaluator.Can(Actor(identity), perm)
	if !d.Allowed {
		e.metrics.Inc(MetricAccessDenied)
	}
	return d
}

// Actor converts an identity into the evaluator's caller view.
func Actor(identity *model.Identity) access.Actor {
	if identity == nil {
		return access.Actor{}
	}
	return access.Actor{ID: identity.ID, Role: identity.Role}
}

// VerifyPassword compares candidate to the identity's hash in constant
// time. Malformed stored hashes never match.
func (e *Engine) VerifyPassword(ctx context.Context, identity *model.Identity, candidate string) bool {
	ok, _ := e.comparePassword(ctx, identity, candidate)
	return ok
}

// comparePassword returns an error only when no comparison ran because ctx
// ended before a hash slot was free. A mismatch is (false, nil).
func (e *Engine) comparePassword(ctx context.Context, identity *model.Identity, candidate string) (bool, error) {
	if err := e.acquireHashSlot(ctx); err != nil {
		return false, err
	}
	defer e.releaseHashSlot()

	ok, err := e.hasher.Verify(candidate, identity.PasswordHash)
	if err != nil {
		e.logger.Warn("stored password hash is unreadable", zap.String("user_id", identity.ID), zap.Error(err))
		return false, nil
	}
	return ok, nil
}

func (e *Engine) verifyDummy(ctx context.Context, candidate string) {
	if err := e.acquireHashSlot(ctx); err != nil {
		return
	}
	defer e.releaseHashSlot()
	e.hasher.VerifyDummy(candidate)
}

func (e *Engine) hashPassword(ctx context.Context, plain string) (string, error) {
	if err := e.acquireHashSlot(ctx); err != nil {
		return "", err
	}
	defer e.releaseHashSlot()
	return e.hasher.Hash(plain)
}

func (e *Engine) acquireHashSlot(ctx context.Context) error {
	select {
	case e.hashSlots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) releaseHashSlot() {
	<-e.hashSlots
}

func passwordPolicy(plain string) []string {
	return password.Policy(plain)
}

// throttle admits one attempt in scope keyed on the caller's IP and the
// optional identity. Denials are audited and surface as *RateLimitError.
func (e *Engine) throttle(ctx context.Context, scope limiters.Scope, identity string) error {
	res, err := e.throttleGuard.Acquire(ctx, scope, ClientIP(ctx), identity)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrRateLimited) {
		// Backend outage: fail open, the lockout guard still bounds guessing.
		e.logger.Warn("rate limiter unavailable", zap.String("scope", string(scope)), zap.Error(err))
		return nil
	}
	e.metrics.Inc(MetricRateLimitHit)
	e.emit(ctx, audit.ActionRateLimited, identity, "", false, err, map[string]string{"scope": string(scope)})
	return &RateLimitError{Scope: string(scope), RetryAfter: res.RetryAfter}
}

// emit forwards one audit event, stamping request metadata from ctx.
func (e *Engine) emit(ctx context.Context, action audit.Action, actor, target string, success bool, err error, meta map[string]string) {
	ev := audit.Event{
		Timestamp: e.now().UTC(),
		Action:    action,
		ActorID:   actor,
		Target:    target,
		IP:        ClientIP(ctx),
		RequestID: RequestID(ctx),
		Success:   success,
		Metadata:  meta,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if ev.Metadata == nil {
			ev.Metadata = map[string]string{}
		}
		ev.Metadata["user_agent"] = ua
	}
	e.audit.Emit(ctx, ev)
}

// RecordAudit appends an event raised outside the engine, such as a record
// mutation in the clinical services. A "target" entry in meta becomes the
// event target. It never blocks on the sink.
func (e *Engine) RecordAudit(ctx context.Context, action audit.Action, actorID string, success bool, meta map[string]string) {
	if e == nil {
		return
	}
	target := meta["target"]
	if target != "" {
		rest := make(map[string]string, len(meta)-1)
		for k, v := range meta {
			if k != "target" {
				rest[k] = v
			}
		}
		meta = rest
	}
	e.emit(ctx, action, actorID, target, success, nil, meta)
}
