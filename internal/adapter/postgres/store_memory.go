package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/Strob0t/CogniChat/internal/domain/memory"
	"github.com/Strob0t/CogniChat/internal/port/memorystore"
)

// Insert writes a memory and fills in its generated ID and creation time.
func (s *Store) Insert(ctx context.Context, rec *memory.Record) error {
	const q = `
		INSERT INTO memories (user_id, memory_text, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal memory metadata: %w", err)
	}

	if err := s.pool.QueryRow(ctx, q,
		rec.UserID, rec.Text, pgvector.NewVector(rec.Embedding), metadata,
	).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// ListByTag returns the user's memories carrying tag, newest first.
func (s *Store) ListByTag(ctx context.Context, userID string, tag memory.Tag, limit int) ([]memory.Match, error) {
	const q = `
		SELECT id, memory_text, metadata, created_at
		FROM memories
		WHERE user_id = $1 AND metadata->>'tag' = $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := s.pool.Query(ctx, q, userID, string(tag), limit)
	if err != nil {
		return nil, fmt.Errorf("list memories by tag: %w", err)
	}
	defer rows.Close()

	var result []memory.Match
	for rows.Next() {
		m, err := scanMatch(rows, false)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list memories by tag: %w", err)
	}
	return orEmpty(result), nil
}

// MatchSimilar calls the match_memories SQL function.
func (s *Store) MatchSimilar(ctx context.Context, sq memorystore.SimilarityQuery) ([]memory.Match, error) {
	const q = `
		SELECT id, memory_text, metadata, created_at, similarity
		FROM match_memories($1, $2, $3, $4, $5)`

	rows, err := s.pool.Query(ctx, q,
		pgvector.NewVector(sq.Embedding), sq.Threshold, sq.Limit, sq.UserID, tagParam(sq.Tag),
	)
	if err != nil {
		return nil, fmt.Errorf("match memories: %w", err)
	}
	defer rows.Close()

	var result []memory.Match
	for rows.Next() {
		m, err := scanMatch(rows, true)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("match memories: %w", err)
	}
	return orEmpty(result), nil
}
