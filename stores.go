package medvault

import (
	"context"
	"time"

	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/internal/limiters"
	"github.com/MrEthical07/medvault/model"
)

// IdentityStore is the credential store consumed by the Engine. Every
// mutating method is a single atomic update on one identity document.
type IdentityStore interface {
	limiters.LockoutStore

	CreateIdentity(ctx context.Context, identity *model.Identity) error
	IdentityByID(ctx context.Context, id string) (*model.Identity, error)
	IdentityByEmail(ctx context.Context, email string) (*model.Identity, error)
	ListIdentities(ctx context.Context, f model.IdentityFilter) ([]model.Identity, int64, error)
	UpdateIdentity(ctx context.Context, id string, u model.IdentityUpdate, now time.Time) (*model.Identity, error)

	// SetPasswordHash replaces the hash. revoke bumps TokenVersion in the same update.
	SetPasswordHash(ctx context.Context, id, hash string, revoke bool, now time.Time) (*model.Identity, error)
	BumpTokenVersion(ctx context.Context, id string, now time.Time) (*model.Identity, error)

	SetResetSecret(ctx context.Context, id, hash string, expires time.Time) error
	ConsumeResetSecret(ctx context.Context, hash, newPasswordHash string, now time.Time) (*model.Identity, error)
	SetVerifySecret(ctx context.Context, id, hash string, expires time.Time) error
	ConsumeVerifySecret(ctx context.Context, hash string, now time.Time) (*model.Identity, error)
}

// ChartStore creates the clinical chart of a newly registered patient.
type ChartStore interface {
	CreatePatient(ctx context.Context, p *model.Patient) error
}

// Notifier delivers one-time secrets to their owner out of band.
type Notifier interface {
	PasswordReset(ctx context.Context, identity *model.Identity, secret string, expires time.Time) error
	EmailVerification(ctx context.Context, identity *model.Identity, secret string, expires time.Time) error
}

// AuditSink receives audit events from the dispatcher.
type AuditSink = audit.Sink

// AuditEvent is one entry of the audit trail.
type AuditEvent = audit.Event
