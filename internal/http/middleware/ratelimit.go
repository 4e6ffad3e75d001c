package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const maxTrackedClients = 10000

// ClientLimiter hands out one token bucket per client IP.
type ClientLimiter struct {
	perMinute int
	burst     int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClientLimiter allows perMinute requests per client with a burst of
// twice that. perMinute <= 0 disables limiting.
func NewClientLimiter(perMinute int) *ClientLimiter {
	return &ClientLimiter{
		perMinute: perMinute,
		burst:     perMinute * 2,
		limiters:  make(map[string]*rate.Limiter),
	}
}

func (l *ClientLimiter) Allow(client string) bool {
	if l == nil || l.perMinute <= 0 {
		return true
	}

	l.mu.Lock()
	limiter, ok := l.limiters[client]
	if !ok {
		if len(l.limiters) >= maxTrackedClients {
			l.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rate.Limit(float64(l.perMinute)/time.Minute.Seconds()), l.burst)
		l.limiters[client] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// RateLimit rejects requests over the client's budget with 429.
func RateLimit(l *ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			retry := int(math.Ceil(time.Minute.Seconds() / float64(l.perMinute)))
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
