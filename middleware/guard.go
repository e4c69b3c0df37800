package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/medvault"
	"github.com/MrEthical07/medvault/model"
	"github.com/gin-gonic/gin"
)

// ErrMissingToken is reported when neither the Authorization header nor the
// session cookie carries a token.
var ErrMissingToken = errors.New("missing token")

// ErrorFunc writes err to the response. Middleware aborts the chain after
// calling it.
type ErrorFunc func(c *gin.Context, err error)

// Resolver turns a session token into a live identity. *medvault.Engine
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*model.Identity, error)
}

type identityContextKey struct{}

const identityKey = "medvault.identity"

// IdentityFrom returns the identity attached by Guard.
func IdentityFrom(c *gin.Context) (*model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*model.Identity)
	return identity, ok && identity != nil
}

// IdentityFromContext returns the identity attached by Guard to the request
// context.
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*model.Identity)
	return identity, ok && identity != nil
}

// Guard authenticates the request. The bearer token wins over the session
// cookie named cookieName.
func Guard(resolver Resolver, cookieName string, onError ErrorFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if resolver == nil {
			fail(c, onError, medvault.ErrEngineNotReady)
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok && cookieName != "" {
			token, _ = c.Cookie(cookieName)
		}
		if token == "" {
			fail(c, onError, ErrMissingToken)
			return
		}

		identity, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			fail(c, onError, err)
			return
		}

		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), identityContextKey{}, identity))
		c.Next()
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func fail(c *gin.Context, onError ErrorFunc, err error) {
	if onError != nil {
		onError(c, err)
	}
	c.Abort()
}
