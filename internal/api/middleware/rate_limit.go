package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"recipe-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// staleAfter 多久未使用的 IP 限流器會被清除
const staleAfter = time.Hour

// RateLimiter 以 IP 為單位的令牌桶限流器
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter 建立限流器：每個 window 最多 requests 次
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		now:      time.Now,
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now

	if len(rl.limiters) > 1 && len(rl.limiters)%1024 == 0 {
		rl.cleanup(now)
	}
	return entry.limiter.AllowN(now, 1)
}

// cleanup 清除閒置的限流器，呼叫端需持有鎖
func (rl *RateLimiter) cleanup(now time.Time) {
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > staleAfter {
			delete(rl.limiters, key)
		}
	}
}

// RateLimit 限流中間件
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(requests, window)
	return rateLimitWith(limiter, window)
}

func rateLimitWith(limiter *RateLimiter, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Error: "Too many requests",
				Code:  common.ErrCodeTooManyRequests,
			})
			return
		}

		c.Next()
	}
}
