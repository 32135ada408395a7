package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimit allows perMinute requests per client IP, with bursts of the same
// size. A non-positive perMinute disables the limit.
func RateLimit(perMinute int) gin.HandlerFunc {
	return rateLimit(perMinute, maxTrackedClients, clientIdleTTL)
}

// rateLimit keeps at most size client buckets. A bucket unused for ttl, or
// pushed out by newer clients, starts over full.
func rateLimit(perMinute, size int, ttl time.Duration) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	var mu sync.Mutex
	limiters := expirable.NewLRU[string, *rate.Limiter](size, nil, ttl)
	every := rate.Limit(float64(perMinute) / 60)

	limiter := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters.Get(ip); ok {
			return l
		}
		l := rate.NewLimiter(every, perMinute)
		limiters.Add(ip, l)
		return l
	}

	return func(c *gin.Context) {
		if !limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, try again later"})
			return
		}
		c.Next()
	}
}
