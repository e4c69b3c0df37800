package middleware

import (
	"sync"
	"time"

	"github.com/MrEthical07/medvault"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Throttle is a per-origin token bucket guarding the whole API. It sits in
// front of the engine's sliding-window scopes and only absorbs floods.
type Throttle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	visitors map[string]*visitor
	lastScan time.Time
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle allows rps requests per second per origin with the given
// burst. Origins idle for ten minutes are forgotten.
func NewThrottle(rps float64, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		limit:    rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Allow consumes one token for origin.
func (t *Throttle) Allow(origin string) bool {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.lastScan) > t.idle {
		for k, v := range t.visitors {
			if now.Sub(v.lastSeen) > t.idle {
				delete(t.visitors, k)
			}
		}
		t.lastScan = now
	}

	v, ok := t.visitors[origin]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[origin] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Middleware rejects requests from origins that exhausted their bucket.
func (t *Throttle) Middleware(onError ErrorFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if t.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		retry := time.Second
		if t.limit > 0 {
			retry = time.Duration(float64(time.Second) / float64(t.limit))
		}
		fail(c, onError, &medvault.RateLimitError{Scope: "global", RetryAfter: retry})
	}
}
