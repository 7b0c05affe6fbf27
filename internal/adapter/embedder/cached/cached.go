// Package cached memoizes embeddings in a cache.Cache keyed by a hash of the
// input text.
package cached

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"math"
	"time"

	"github.com/Strob0t/CogniChat/internal/port/cache"
	"github.com/Strob0t/CogniChat/internal/port/embedder"
)

// Embedder wraps another embedder with a cache. Cache failures are logged
// and fall through to the wrapped embedder.
type Embedder struct {
	inner embedder.Embedder
	cache cache.Cache
	ttl   time.Duration
	scope string
}

// New wraps inner. scope namespaces the keys, typically the model name, so
// switching models never serves stale vectors.
func New(inner embedder.Embedder, c cache.Cache, ttl time.Duration, scope string) *Embedder {
	return &Embedder{inner: inner, cache: c, ttl: ttl, scope: scope}
}

// Embed returns the cached vector for text or computes and stores it.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.key(text)

	if data, ok, err := e.cache.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "embedding cache get failed", "error", err)
	} else if ok {
		if vec, ok := decode(data, e.inner.Dimensions()); ok {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Set(ctx, key, encode(vec), e.ttl); err != nil {
		slog.WarnContext(ctx, "embedding cache set failed", "error", err)
	}
	return vec, nil
}

// Dimensions returns the wrapped embedder's size.
func (e *Embedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close closes the wrapped embedder.
func (e *Embedder) Close() error {
	return e.inner.Close()
}

func (e *Embedder) key(text string) string {
	sum := sha256.Sum256([]byte(e.scope + "\x00" + text))
	return "emb." + hex.EncodeToString(sum[:])
}

func encode(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decode(data []byte, dims int) ([]float32, bool) {
	if len(data) != 4*dims {
		return nil, false
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, true
}
