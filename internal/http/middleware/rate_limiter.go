package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"shop-auth/internal/auth"
)

const (
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRetryAfter    = "Retry-After"

	msgRateLimitExceeded = "rate limit exceeded"
)

// RateLimiter implements token bucket rate limiting per caller
type RateLimiter struct {
	limiters sync.Map // key -> *rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
// requestsPerSecond: number of requests allowed per second
// burst: maximum burst size
func NewRateLimiter(requestsPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return limiter.(*rate.Limiter)
}

// Allow checks if a request should be allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware limits authenticated callers by subject and everybody else by
// client IP. It must run after the authentication filter to see subjects.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := rl.getLimiter(limiterKey(c))
			h := c.Response().Header()
			h.Set(headerRateLimit, strconv.Itoa(rl.burst))

			if !limiter.Allow() {
				h.Set(headerRateRemaining, "0")
				h.Set(headerRetryAfter, "1")
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": msgRateLimitExceeded,
				})
			}

			h.Set(headerRateRemaining, strconv.Itoa(int(limiter.Tokens())))
			return next(c)
		}
	}
}

func limiterKey(c echo.Context) string {
	if p := auth.GetPrincipal(c); p != nil {
		return "subject:" + p.Subject
	}
	return "ip:" + c.RealIP()
}

// NewStrictRateLimiter is for the token endpoints: 5 req/sec, burst of 10.
func NewStrictRateLimiter() *RateLimiter {
	return NewRateLimiter(5, 10)
}

// NewGlobalRateLimiter is for general API usage: 100 req/sec, burst of 200.
func NewGlobalRateLimiter() *RateLimiter {
	return NewRateLimiter(100, 200)
}
