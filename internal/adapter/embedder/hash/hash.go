// Package hash implements a deterministic feature-hashing embedder. It needs
// no model files and is used for local development and tests. Texts sharing
// words get similar vectors, which is enough to exercise similarity search.
package hash

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/Strob0t/CogniChat/internal/adapter/embedder"
)

// Embedder hashes lowercase word unigrams and bigrams into a fixed number of
// signed buckets and normalizes the result.
type Embedder struct {
	dimensions int
}

// New creates a hashing embedder producing vectors of the given size.
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &Embedder{dimensions: dimensions}
}

// Embed returns the unit-length feature vector of text. Text without any
// letters or digits yields the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		e.add(vec, w, 1)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w, 0.5)
		}
	}
	return embedder.Normalize(vec), nil
}

func (e *Embedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *Embedder) Close() error { return nil }
