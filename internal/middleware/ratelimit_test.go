package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = ip
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	rl := NewRateLimiter(10, 10, time.Minute)
	handler := rl.Handler(okHandler())

	// First 10 requests should succeed (burst = 10)
	for i := range 10 {
		if rec := hit(handler, "192.168.1.1"); rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(1, 5, time.Minute)
	handler := rl.Handler(okHandler())

	for range 5 {
		hit(handler, "192.168.1.1")
	}

	rec := hit(handler, "192.168.1.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimiterSetsRemaining(t *testing.T) {
	rl := NewRateLimiter(1, 10, time.Minute)
	rec := hit(rl.Handler(okHandler()), "192.168.1.1")

	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("expected X-RateLimit-Remaining 9, got %q", got)
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2, time.Minute)
	handler := rl.Handler(okHandler())

	for range 2 {
		hit(handler, "10.0.0.1:1234")
	}
	if rec := hit(handler, "10.0.0.1:5678"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("IP 10.0.0.1: expected 429, got %d", rec.Code)
	}
	if rec := hit(handler, "10.0.0.2:1234"); rec.Code != http.StatusOK {
		t.Errorf("IP 10.0.0.2: expected 200, got %d", rec.Code)
	}
	if rl.Len() != 2 {
		t.Errorf("expected 2 tracked IPs, got %d", rl.Len())
	}
}

func TestRateLimiterForgetsIdleIPs(t *testing.T) {
	rl := NewRateLimiter(1, 1, 20*time.Millisecond)
	handler := rl.Handler(okHandler())

	hit(handler, "10.0.0.1")
	if rec := hit(handler, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	time.Sleep(40 * time.Millisecond)
	if rec := hit(handler, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("expected fresh limiter after idle period, got %d", rec.Code)
	}
}
