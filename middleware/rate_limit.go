package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/aclio/aclio/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// ipLimiters holds one token bucket per client IP; idle entries expire.
type ipLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rateLimiter
	limit    rate.Limit
	burst    int
	idle     time.Duration
}

// RateLimitMiddleware applies an IP based token bucket of perMinute requests.
// perMinute <= 0 disables limiting.
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(ctx *gin.Context) { ctx.Next() }
	}
	l := &ipLimiters{
		limiters: map[string]*rateLimiter{},
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/2, 1),
		idle:     5 * time.Minute,
	}

	return func(ctx *gin.Context) {
		if !l.get(ctx.ClientIP()).Allow() {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			return
		}
		ctx.Next()
	}
}

func (l *ipLimiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for k, v := range l.limiters {
		if now.After(v.expires) {
			delete(l.limiters, k)
		}
	}

	if rl, ok := l.limiters[key]; ok {
		rl.expires = now.Add(l.idle)
		return rl.limiter
	}
	rl := &rateLimiter{
		limiter: rate.NewLimiter(l.limit, l.burst),
		expires: now.Add(l.idle),
	}
	l.limiters[key] = rl
	return rl.limiter
}
