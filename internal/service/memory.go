package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	ccotel "github.com/Strob0t/CogniChat/internal/adapter/otel"
	"github.com/Strob0t/CogniChat/internal/domain"
	"github.com/Strob0t/CogniChat/internal/domain/memory"
	"github.com/Strob0t/CogniChat/internal/port/broadcast"
	"github.com/Strob0t/CogniChat/internal/port/embedder"
	"github.com/Strob0t/CogniChat/internal/port/memorystore"
	"github.com/Strob0t/CogniChat/internal/port/messagequeue"
)

// MemoryService stores and retrieves per-user memories. It never returns
// store failures as errors: they are logged and carried in the result so a
// chat turn can continue without memories.
type MemoryService struct {
	store     memorystore.Store
	embed     embedder.Embedder
	threshold float64
	limit     int

	queue   messagequeue.Queue
	hub     broadcast.Broadcaster
	metrics *ccotel.Metrics
}

// NewMemoryService creates a MemoryService. threshold is the cosine
// similarity cutoff; limit is the default number of matches per search.
func NewMemoryService(store memorystore.Store, embed embedder.Embedder, threshold float64, limit int) *MemoryService {
	return &MemoryService{store: store, embed: embed, threshold: threshold, limit: limit}
}

// SetQueue enables memories.created events.
func (s *MemoryService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetBroadcaster pushes memory.created events to the owner's clients.
func (s *MemoryService) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetMetrics attaches metric instruments.
func (s *MemoryService) SetMetrics(m *ccotel.Metrics) { s.metrics = m }

// Ping checks that the store is reachable.
func (s *MemoryService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Add embeds text and stores it for userID.
func (s *MemoryService) Add(ctx context.Context, text, userID string, meta memory.Metadata) memory.AddResult {
	ctx, span := ccotel.StartMemorySpan(ctx, "add", 1)
	res := s.add(ctx, text, userID, meta)
	ccotel.EndSpan(span, res.Err)
	return res
}

func (s *MemoryService) add(ctx context.Context, text, userID string, meta memory.Metadata) memory.AddResult {
	if strings.TrimSpace(text) == "" {
		return memory.AddResult{Err: fmt.Errorf("%w: memory text is empty", domain.ErrValidation)}
	}

	start := time.Now()
	vec, err := s.embed.Embed(ctx, text)
	if err != nil {
		return s.addFailed(ctx, userID, fmt.Errorf("embed memory: %w", err))
	}
	slog.DebugContext(ctx, "memory embedded", "duration", time.Since(start))

	rec := &memory.Record{UserID: userID, Text: text, Embedding: vec, Metadata: meta}
	if err := rec.Validate(s.embed.Dimensions()); err != nil {
		return s.addFailed(ctx, userID, err)
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return s.addFailed(ctx, userID, fmt.Errorf("%w: %w", memory.ErrStore, err))
	}

	if s.metrics != nil {
		s.metrics.MemoriesStored.Add(ctx, 1, metric.WithAttributes(attribute.String("tag", string(meta.Tag))))
	}
	slog.InfoContext(ctx, "memory stored", "memory_id", rec.ID, "tag", meta.Tag, "priority", meta.Priority)
	s.announce(ctx, rec)
	return memory.AddResult{ID: rec.ID}
}

func (s *MemoryService) addFailed(ctx context.Context, userID string, err error) memory.AddResult {
	slog.ErrorContext(ctx, "failed to add memory", "user_id", userID, "error", err)
	if s.metrics != nil {
		s.metrics.StoreFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "add")))
	}
	return memory.AddResult{Err: err}
}

// announce publishes the memories.created event and pushes it to the
// owner's live connections. Failures are logged only.
func (s *MemoryService) announce(ctx context.Context, rec *memory.Record) {
	payload := messagequeue.MemoryCreatedPayload{
		MemoryID:  rec.ID,
		UserID:    rec.UserID,
		Tag:       string(rec.Metadata.Tag),
		Priority:  rec.Metadata.EffectivePriority(),
		CreatedAt: rec.CreatedAt,
	}
	if s.hub != nil {
		s.hub.BroadcastToUser(ctx, rec.UserID, broadcast.EventMemoryCreated, payload)
	}
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal memory event", "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectMemoryCreated, data); err != nil {
		slog.WarnContext(ctx, "publish memory event", "memory_id", rec.ID, "error", err)
	}
}

// Search returns the user's memories relevant to query. A limit <= 0 uses
// the configured default. The explicit tag selects the exact path, which
// lists tagged memories newest first without computing an embedding; every
// other filter runs a similarity search.
func (s *MemoryService) Search(ctx context.Context, query, userID string, limit int, filters memory.Filters) memory.SearchResult {
	if limit <= 0 {
		limit = s.limit
	}
	op := "search.similar"
	if filters.Exact() {
		op = "search.exact"
	}

	ctx, span := ccotel.StartMemorySpan(ctx, op, limit)
	start := time.Now()

	var matches []memory.Match
	var err error
	if filters.Exact() {
		matches, err = s.store.ListByTag(ctx, userID, filters.Tag, limit)
		if err != nil {
			err = fmt.Errorf("%w: %w", memory.ErrStore, err)
		}
	} else {
		matches, err = s.similar(ctx, query, userID, limit, filters.Tag)
	}
	elapsed := time.Since(start)
	ccotel.EndSpan(span, err)

	if s.metrics != nil {
		s.metrics.SearchDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("op", op)))
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to search memories", "op", op, "user_id", userID, "error", err)
		if s.metrics != nil {
			s.metrics.StoreFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
		}
		return memory.SearchResult{Err: err}
	}

	slog.InfoContext(ctx, "memory search", "op", op, "matches", len(matches), "duration", elapsed)
	return memory.SearchResult{Matches: matches}
}

func (s *MemoryService) similar(ctx context.Context, query, userID string, limit int, tag memory.Tag) ([]memory.Match, error) {
	vec, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := s.store.MatchSimilar(ctx, memorystore.SimilarityQuery{
		UserID:    userID,
		Embedding: vec,
		Threshold: s.threshold,
		Limit:     limit,
		Tag:       tag,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", memory.ErrStore, err)
	}
	return matches, nil
}
