// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter throttles chat turns per conversation so one runaway client
// cannot monopolize the embedding and generation providers.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter
	rps    rate.Limit
	burst  int
}

// NewRateLimiter creates a per-key rate limiter allowing rps requests per
// second with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 5
	}
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		rps:    rate.Limit(rps),
		burst:  burst,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rl.rps, rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow reports whether a request under key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Wait blocks until the request may proceed or the context ends.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.limiter(key).Wait(ctx)
}

// ByKey returns echo middleware that limits requests grouped by keyFn,
// answering 429 when the bucket is empty.
func (rl *RateLimiter) ByKey(keyFn func(c echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := keyFn(c)
			if key == "" {
				key = c.RealIP()
			}
			if !rl.Allow(key) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded, retry shortly",
				})
			}
			return next(c)
		}
	}
}

// PruneLoop drops idle limiters periodically; keys are conversation ids,
// which are unbounded over time.
func (rl *RateLimiter) PruneLoop(ctx context.Context, interval time.Duration, maxKeys int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			if len(rl.limits) > maxKeys {
				rl.limits = make(map[string]*rate.Limiter)
			}
			rl.mu.Unlock()
		}
	}
}
