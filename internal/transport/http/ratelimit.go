package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// loginRateLimit caps credential attempts per window across the server.
const (
	loginRateLimit  = 30
	loginRateWindow = time.Minute
)

// rateLimiter is a fixed-window counter. A limit of zero disables it.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	counter int
	reset   time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, window: window}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.After(r.reset) {
		r.counter = 0
		r.reset = now.Add(r.window)
	}
	r.counter++
	return r.counter <= r.limit
}

// middleware rejects requests over the limit with 429.
func (r *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.allow() {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
