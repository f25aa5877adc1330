package api

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// authRateLimiter throttles identity endpoints per client IP. This is a
// plain request-rate guard; the per-account brute-force lockout lives in
// the auth service and is independent of it.
type authRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newAuthRateLimiter(rps float64, burst int) *authRateLimiter {
	return &authRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *authRateLimiter) allow(key string) bool {
	rl.mu.Lock()
	// Bound memory: drop all state rather than track precise LRU.
	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.limiters[key] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

// RateLimitMiddleware answers 429 when a client exceeds the auth request
// budget.
func (a *API) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.limiter.allow(clientIP(r)) {
			a.audit.logFailure(AuditRateLimited, r, "auth request budget exceeded")
			writeError(w, http.StatusTooManyRequests, "too many requests; slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}
