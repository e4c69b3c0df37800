package middleware

import (
	"slices"

	"github.com/MrEthical07/medvault/access"
	"github.com/MrEthical07/medvault/model"
	"github.com/gin-gonic/gin"
)

// PermissionChecker answers role-table questions. *medvault.Engine
// implements it.
type PermissionChecker interface {
	Can(identity *model.Identity, perm string) access.Decision
}

// RequireRoles admits identities whose role is one of roles. It must run
// after Guard.
func RequireRoles(onError ErrorFunc, roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			fail(c, onError, ErrMissingToken)
			return
		}
		if !slices.Contains(roles, identity.Role) {
			fail(c, onError, &access.DeniedError{Reason: access.ReasonInsufficientRole})
			return
		}
		c.Next()
	}
}

// RequirePermission admits identities whose role grants perm.
func RequirePermission(checker PermissionChecker, perm string, onError ErrorFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			fail(c, onError, ErrMissingToken)
			return
		}
		if err := checker.Can(identity, perm).Err(); err != nil {
			fail(c, onError, err)
			return
		}
		c.Next()
	}
}
