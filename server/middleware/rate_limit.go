package middleware

import (
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apierrors "github.com/hrygo/voicecal/server/internal/errors"
)

// Default limits applied when the profile leaves them unset.
const (
	DefaultRatePerSecond = 1.0
	DefaultBurst         = 5
)

// RateLimiter provides per-key token bucket rate limiting.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter
	rate   rate.Limit
	burst  int
}

// NewRateLimiter creates a new rate limiter allowing perSecond requests per key with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = DefaultRatePerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		rate:   rate.Limit(perSecond),
		burst:  burst,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rejects requests over the limit with 429. keyFunc picks the bucket,
// falling back to the client IP when it returns an empty key.
func (rl *RateLimiter) Middleware(keyFunc func(c echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := ""
			if keyFunc != nil {
				key = keyFunc(c)
			}
			if key == "" {
				key = "ip:" + c.RealIP()
			}
			if !rl.Allow(key) {
				aiErr := apierrors.RateLimitExceeded()
				return c.JSON(aiErr.HTTPStatus(), aiErr.Body())
			}
			return next(c)
		}
	}
}
