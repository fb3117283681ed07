package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// LoginThrottle limits requests per client IP within a fixed window.
// A limit of zero disables it.
type LoginThrottle struct {
	limit  int
	window time.Duration
	hits   *cache.Cache
}

func NewLoginThrottle(limit int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{
		limit:  limit,
		window: window,
		hits:   cache.New(window, 2*window),
	}
}

// Allow records one attempt for key and reports whether it is within limit.
func (t *LoginThrottle) Allow(key string) bool {
	if t.limit <= 0 {
		return true
	}
	// Add only succeeds for the first hit of a window; it fixes the expiry.
	if err := t.hits.Add(key, 1, t.window); err == nil {
		return true
	}
	n, err := t.hits.IncrementInt(key, 1)
	if err != nil {
		// The entry expired between Add and IncrementInt.
		t.hits.Set(key, 1, t.window)
		return true
	}
	return n <= t.limit
}

func (t *LoginThrottle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !t.Allow(c.ClientIP()) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(t.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, try again later"})
			return
		}
		c.Next()
	}
}
