// Package memorystore defines the port for persisting and querying memories.
package memorystore

import (
	"context"

	"github.com/Strob0t/CogniChat/internal/domain/memory"
)

// SimilarityQuery parameterizes a threshold-filtered nearest-neighbour search.
type SimilarityQuery struct {
	UserID    string
	Embedding []float32
	Threshold float64 // matches must have cosine similarity strictly above this
	Limit     int
	Tag       memory.Tag // optional equality filter; TagNone matches every record
}

// Store persists memory records. Errors are returned as-is; degradation
// policy belongs to the caller.
type Store interface {
	// Insert writes rec and fills in its ID and CreatedAt.
	Insert(ctx context.Context, rec *memory.Record) error

	// ListByTag returns up to limit of the user's records with the given tag,
	// newest first.
	ListByTag(ctx context.Context, userID string, tag memory.Tag, limit int) ([]memory.Match, error)

	// MatchSimilar returns up to limit records ordered by descending similarity.
	MatchSimilar(ctx context.Context, q SimilarityQuery) ([]memory.Match, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
