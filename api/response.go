package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/MrEthical07/medvault"
	"github.com/MrEthical07/medvault/middleware"
	"github.com/MrEthical07/medvault/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func respondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

func respondFail(c *gin.Context, status int, message string, details ...string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message, Errors: details})
}

// errorResponder maps errors to statuses. It is the only place that does.
type errorResponder struct {
	logger *zap.Logger
}

func (r errorResponder) respond(c *gin.Context, err error) {
	var validation *model.ValidationError
	if errors.As(err, &validation) {
		respondFail(c, http.StatusBadRequest, "validation failed", validation.Fields...)
		return
	}

	var limited *medvault.RateLimitError
	if errors.As(err, &limited) {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(limited)))
		respondFail(c, http.StatusTooManyRequests, "too many requests, please try again later")
		return
	}

	switch {
	case errors.Is(err, model.ErrValidation):
		respondFail(c, http.StatusBadRequest, "validation failed")

	// Directory lookups wrap ErrIdentityNotFound around ErrNotFound; only a
	// bare ErrIdentityNotFound means the token's owner vanished.
	case errors.Is(err, model.ErrNotFound):
		respondFail(c, http.StatusNotFound, "resource not found")

	case errors.Is(err, middleware.ErrMissingToken),
		errors.Is(err, medvault.ErrInvalidToken),
		errors.Is(err, medvault.ErrExpiredToken),
		errors.Is(err, medvault.ErrTokenRevoked),
		errors.Is(err, medvault.ErrIdentityNotFound):
		respondFail(c, http.StatusUnauthorized, "not authorized to access this route")

	case errors.Is(err, medvault.ErrInvalidCredentials):
		respondFail(c, http.StatusUnauthorized, "invalid credentials")

	case errors.Is(err, medvault.ErrAccountDeactivated):
		respondFail(c, http.StatusUnauthorized, "account is deactivated")

	case errors.Is(err, medvault.ErrAccountLocked):
		respondFail(c, http.StatusLocked, "account is temporarily locked due to repeated failed login attempts")

	case errors.Is(err, medvault.ErrInvalidOrExpiredToken):
		respondFail(c, http.StatusBadRequest, "invalid or expired token")

	case errors.Is(err, medvault.ErrForbidden):
		respondFail(c, http.StatusForbidden, "access denied")

	case errors.Is(err, model.ErrDuplicateEmail):
		respondFail(c, http.StatusConflict, "email already registered")
	case errors.Is(err, model.ErrDuplicateLicense):
		respondFail(c, http.StatusConflict, "license number already registered")
	case errors.Is(err, model.ErrDuplicatePatient):
		respondFail(c, http.StatusConflict, "patient chart already exists")
	case errors.Is(err, model.ErrConflict):
		respondFail(c, http.StatusConflict, "resource was modified concurrently, retry the request")

	default:
		r.logger.Error("request failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", middleware.RequestIDFrom(c)),
		)
		respondFail(c, http.StatusInternalServerError, "internal server error")
	}
}

func retryAfterSeconds(e *medvault.RateLimitError) int {
	s := int(math.Ceil(e.RetryAfter.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondFail(c, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// caller returns the identity attached by the auth guard. Routes that call
// it are always mounted behind the guard.
func caller(c *gin.Context) *model.Identity {
	identity, _ := middleware.IdentityFrom(c)
	return identity
}
