package medvault

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/medvault/access"
	"github.com/MrEthical07/medvault/internal/rate"
	"github.com/MrEthical07/medvault/model"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	// Both cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while the lockout window is open.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountDeactivated is returned for identities with Active=false.
	ErrAccountDeactivated = errors.New("account deactivated")
	// ErrInvalidToken is returned for malformed, forged or mis-scoped session tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for session tokens past their exp claim.
	ErrExpiredToken = errors.New("token expired")
	// ErrTokenRevoked is returned when the token version no longer matches the identity.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrIdentityNotFound is returned when a token names an identity that no longer exists.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrInvalidOrExpiredToken is returned when a reset or verification secret
	// has no live match.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrEngineNotReady is returned by a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrRateLimited matches every *RateLimitError.
	ErrRateLimited = rate.ErrRateLimited
	// ErrForbidden matches every *access.DeniedError.
	ErrForbidden = access.ErrForbidden

	ErrNotFound         = model.ErrNotFound
	ErrDuplicateEmail   = model.ErrDuplicateEmail
	ErrDuplicateLicense = model.ErrDuplicateLicense
	ErrValidation       = model.ErrValidation
)

// ValidationError lists every violated input rule. It matches ErrValidation.
type ValidationError = model.ValidationError

// RateLimitError reports which throttle denied the request and when the
// oldest attempt leaves the window.
type RateLimitError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: scope=%s retry_after=%s", ErrRateLimited, e.Scope, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
