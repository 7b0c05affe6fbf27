package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/CogniChat/internal/port/cache"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	maxIdempotencyBody   = 1 << 20 // 1 MB
	maxIdempotencyKeyLen = 128
)

// idempotencyEntry stores a cached HTTP response.
type idempotencyEntry struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       []byte              `json:"body"`
}

// Idempotency returns middleware that replays the response of a chat turn
// retried with the same Idempotency-Key, so a retry never saves the same
// exchange twice. Keys are scoped to the session set by RequireSession and
// only successful responses are cached. Requests that arrive while the first
// one is still running wait for it and receive its response.
func Idempotency(c cache.Cache, ttl time.Duration) func(http.Handler) http.Handler {
	var inflight singleflight.Group

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only apply to mutating methods
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(headerIdempotencyKey)
			sessionID := SessionFromContext(r.Context())
			if key == "" || len(key) > maxIdempotencyKeyLen || sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}
			key = "idem:" + sessionID + ":" + key

			if cached, ok := lookupIdempotent(r, c, key); ok {
				replay(w, cached, true)
				return
			}

			var hit bool
			v, _, shared := inflight.Do(key, func() (any, error) {
				// A request that finished between the lookup above and Do
				// has already stored its response.
				if cached, ok := lookupIdempotent(r, c, key); ok {
					hit = true
					return cached, nil
				}

				rec := newBufferedResponse()
				next.ServeHTTP(rec, r)
				entry := &idempotencyEntry{
					StatusCode: rec.statusCode,
					Headers:    rec.header,
					Body:       rec.body.Bytes(),
				}
				if entry.StatusCode < 300 && rec.body.Len() <= maxIdempotencyBody {
					storeIdempotent(r, c, key, entry, ttl)
				}
				return entry, nil
			})
			replay(w, v.(*idempotencyEntry), shared || hit)
		})
	}
}

func lookupIdempotent(r *http.Request, c cache.Cache, key string) (*idempotencyEntry, bool) {
	data, ok, err := c.Get(r.Context(), key)
	if err != nil {
		slog.Warn("idempotency: cache lookup failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var cached idempotencyEntry
	if err := json.Unmarshal(data, &cached); err != nil {
		slog.Warn("idempotency: corrupt cache entry")
		return nil, false
	}
	return &cached, true
}

func storeIdempotent(r *http.Request, c cache.Cache, key string, entry *idempotencyEntry, ttl time.Duration) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.Set(r.Context(), key, data, ttl); err != nil {
		slog.Warn("idempotency: failed to store response", "error", err)
	}
}

// replay writes entry to w. Only successful responses are marked as replays;
// a failed turn handed to a waiting request is its own answer too.
func replay(w http.ResponseWriter, entry *idempotencyEntry, replayed bool) {
	for k, vals := range entry.Headers {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	if replayed && entry.StatusCode < 300 {
		w.Header().Set("Idempotent-Replay", "true")
	}
	w.WriteHeader(entry.StatusCode)
	_, _ = w.Write(entry.Body)
}

// bufferedResponse captures a handler's response so it can be written to
// every request waiting on the same key.
type bufferedResponse struct {
	header      http.Header
	statusCode  int
	wroteHeader bool
	body        bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header), statusCode: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.wroteHeader = true
	b.statusCode = code
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}
