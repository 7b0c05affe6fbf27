package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter is per-IP token bucket rate limiting middleware. Limiters idle
// for longer than maxIdle are dropped.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	rate     rate.Limit
	burst    int
	maxIdle  time.Duration
}

// NewRateLimiter creates a rate limiter with the given sustained rate
// (requests per second) and burst size.
func NewRateLimiter(rps float64, burst int, maxIdle time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: cache.New(maxIdle, maxIdle/2),
		rate:     rate.Limit(rps),
		burst:    burst,
		maxIdle:  maxIdle,
	}
}

// Handler returns HTTP middleware that enforces per-IP rate limiting.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lim := rl.limiter(realIP(r))
		now := time.Now()

		res := lim.ReserveN(now, 1)
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(delay.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", int(lim.TokensAt(now))))
		next.ServeHTTP(w, r)
	})
}

// limiter returns the IP's limiter, creating it on first use and sliding
// its idle expiry.
func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var lim *rate.Limiter
	if v, ok := rl.limiters.Get(ip); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(rl.rate, rl.burst)
	}
	rl.limiters.Set(ip, lim, rl.maxIdle)
	return lim
}

// Len returns the number of tracked IPs (for metrics and testing).
func (rl *RateLimiter) Len() int {
	return rl.limiters.ItemCount()
}

// realIP extracts the client IP from RemoteAddr.
// Proxy headers (X-Forwarded-For, X-Real-Ip) are NOT trusted because
// they can be spoofed to bypass rate limiting.
func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
