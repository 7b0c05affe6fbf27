package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/Strob0t/CogniChat/internal/domain/memory"
)

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

// scanMatch reads id, memory_text, metadata, created_at and, when
// withSimilarity is set, a trailing similarity column.
func scanMatch(row scannable, withSimilarity bool) (memory.Match, error) {
	var m memory.Match
	var metadata []byte
	dest := []any{&m.ID, &m.Text, &metadata, &m.CreatedAt}
	if withSimilarity {
		dest = append(dest, &m.Similarity)
	}
	if err := row.Scan(dest...); err != nil {
		return m, fmt.Errorf("scan memory: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
			return m, fmt.Errorf("decode memory metadata: %w", err)
		}
	}
	return m, nil
}

// tagParam maps the empty tag to SQL NULL.
func tagParam(tag memory.Tag) *string {
	if tag == memory.TagNone {
		return nil
	}
	s := string(tag)
	return &s
}

// orEmpty returns items unchanged if non-nil, or an empty slice if nil.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
