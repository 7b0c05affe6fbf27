// Package chromem provides an embedded, in-process memory store backed by
// chromem-go. It is used for local development and tests when no
// PostgreSQL database is configured.
package chromem

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/google/uuid"

	"github.com/Strob0t/CogniChat/internal/domain/memory"
	"github.com/Strob0t/CogniChat/internal/port/memorystore"
)

const (
	metaUserID    = "user_id"
	metaTag       = "tag"
	metaPriority  = "priority"
	metaTimestamp = "timestamp"
	metaCreatedAt = "created_at"
)

// Store implements memorystore.Store with one chromem collection per user.
type Store struct {
	db          *chromem.DB
	dims        int
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

// New creates an empty in-memory store for embeddings of the given size.
func New(dims int) *Store {
	return &Store{
		db:          chromem.NewDB(),
		dims:        dims,
		collections: make(map[string]*chromem.Collection),
	}
}

func (s *Store) collection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[userID]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[userID]; ok {
		return col, nil
	}

	// Embeddings are always supplied by the caller.
	col, err := s.db.GetOrCreateCollection("user_"+userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

// Insert stores rec and fills in its generated ID and creation time.
func (s *Store) Insert(ctx context.Context, rec *memory.Record) error {
	if err := rec.Validate(s.dims); err != nil {
		return err
	}
	col, err := s.collection(rec.UserID)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()
	doc := chromem.Document{
		ID:        id,
		Content:   rec.Text,
		Embedding: slices.Clone(rec.Embedding),
		Metadata: map[string]string{
			metaUserID:    rec.UserID,
			metaTag:       string(rec.Metadata.Tag),
			metaPriority:  strconv.FormatFloat(rec.Metadata.Priority, 'f', -1, 64),
			metaTimestamp: strconv.FormatFloat(rec.Metadata.Timestamp, 'f', -1, 64),
			metaCreatedAt: createdAt.Format(time.RFC3339Nano),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add memory document: %w", err)
	}

	rec.ID = id
	rec.CreatedAt = createdAt
	slog.Debug("memory stored", "backend", "chromem", "memory_id", id, "tag", rec.Metadata.Tag)
	return nil
}

// ListByTag returns the user's memories carrying tag, newest first.
func (s *Store) ListByTag(ctx context.Context, userID string, tag memory.Tag, limit int) ([]memory.Match, error) {
	col, err := s.collection(userID)
	if err != nil {
		return nil, err
	}
	n := col.Count()
	if n == 0 || limit <= 0 {
		return []memory.Match{}, nil
	}

	// chromem has no plain listing, so query every document matching the tag
	// against an arbitrary probe vector and order by creation time.
	probe := make([]float32, s.dims)
	probe[0] = 1
	results, err := col.QueryEmbedding(ctx, probe, n, map[string]string{metaTag: string(tag)}, nil)
	if err != nil {
		return nil, fmt.Errorf("list memories by tag: %w", err)
	}

	matches := make([]memory.Match, 0, len(results))
	for i := range results {
		matches = append(matches, toMatch(results[i], false))
	}
	slices.SortStableFunc(matches, func(a, b memory.Match) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// MatchSimilar returns up to Limit memories whose cosine similarity to the
// query embedding exceeds Threshold, most similar first.
func (s *Store) MatchSimilar(ctx context.Context, q memorystore.SimilarityQuery) ([]memory.Match, error) {
	col, err := s.collection(q.UserID)
	if err != nil {
		return nil, err
	}
	n := min(q.Limit, col.Count())
	if n <= 0 {
		return []memory.Match{}, nil
	}

	var where map[string]string
	if q.Tag != memory.TagNone {
		where = map[string]string{metaTag: string(q.Tag)}
	}
	results, err := col.QueryEmbedding(ctx, q.Embedding, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("match memories: %w", err)
	}

	matches := make([]memory.Match, 0, len(results))
	for i := range results {
		if float64(results[i].Similarity) <= q.Threshold {
			continue
		}
		matches = append(matches, toMatch(results[i], true))
	}
	return matches, nil
}

// Ping always succeeds for the embedded store.
func (s *Store) Ping(context.Context) error { return nil }

func toMatch(r chromem.Result, withSimilarity bool) memory.Match {
	m := memory.Match{
		ID:   r.ID,
		Text: r.Content,
		Metadata: memory.Metadata{
			Tag: memory.Tag(r.Metadata[metaTag]),
		},
	}
	m.Metadata.Priority, _ = strconv.ParseFloat(r.Metadata[metaPriority], 64)
	m.Metadata.Timestamp, _ = strconv.ParseFloat(r.Metadata[metaTimestamp], 64)
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, r.Metadata[metaCreatedAt])
	if withSimilarity {
		m.Similarity = float64(r.Similarity)
	}
	return m
}
