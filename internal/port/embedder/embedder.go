// Package embedder defines the port for turning text into fixed-length
// sentence embeddings.
package embedder

import "context"

// Embedder computes sentence embeddings. Implementations must be safe for
// concurrent use and return vectors of exactly Dimensions() components.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
