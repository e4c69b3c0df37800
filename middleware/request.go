package middleware

import (
	"github.com/MrEthical07/medvault"
	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
)

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	requestIDKey       = "medvault.request_id"
	maxInboundIDLength = 64
)

// RequestID reuses a sane inbound X-Request-ID or mints a ksuid, echoes it
// on the response and attaches it to the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxInboundIDLength {
			id = ksuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(medvault.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// RequestIDFrom returns the id set by RequestID.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// ClientContext attaches the client IP and User-Agent to the request context
// so the engine can key throttles and audit entries on them. The IP honors
// the router's trusted proxy settings.
func ClientContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := medvault.WithClientIP(c.Request.Context(), c.ClientIP())
		ctx = medvault.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// SecurityHeaders sets the response headers every API response carries.
func SecurityHeaders(hsts bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		if hsts {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
