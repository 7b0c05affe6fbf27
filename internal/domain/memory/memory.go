// Package memory provides the domain model for per-user conversational
// memories: records, their metadata, and search results.
package memory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/CogniChat/internal/domain"
)

// Tag categorizes a memory for exact-match retrieval.
type Tag string

const (
	TagNone     Tag = ""
	TagExplicit Tag = "explicit"
	TagReminder Tag = "reminder"
)

// Priorities assigned by the chat commands.
const (
	DefaultPriority  = 1.0
	PriorityExplicit = 2.0
	PriorityReminder = 1.5
)

// Metadata is stored alongside each memory as a JSON document.
type Metadata struct {
	Priority  float64 `json:"priority"`
	Timestamp float64 `json:"timestamp"` // seconds since the Unix epoch
	Tag       Tag     `json:"tag,omitempty"`
}

// NewMetadata stamps priority and tag with the given instant.
func NewMetadata(priority float64, tag Tag, now time.Time) Metadata {
	return Metadata{
		Priority:  priority,
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
		Tag:       tag,
	}
}

// EffectivePriority returns the priority, or DefaultPriority when unset.
func (m Metadata) EffectivePriority() float64 {
	if m.Priority == 0 {
		return DefaultPriority
	}
	return m.Priority
}

// Record is a persisted memory. Records are never mutated after insert.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"memory_text"`
	Embedding []float32 `json:"-"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate enforces the storage invariants: non-empty text, an owner, and
// an embedding of exactly dims components.
func (r *Record) Validate(dims int) error {
	if r.UserID == "" {
		return fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: memory_text is required", domain.ErrValidation)
	}
	if len(r.Embedding) != dims {
		return fmt.Errorf("%w: embedding has %d dimensions, want %d", domain.ErrValidation, len(r.Embedding), dims)
	}
	return nil
}

// Filters narrows a search. A zero Filters means "all of the user's memories".
type Filters struct {
	Tag Tag `json:"tag,omitempty"`
}

// Exact reports whether the filters select the exact-match path.
func (f Filters) Exact() bool {
	return f.Tag == TagExplicit
}

// Match is a single search hit. Similarity is zero on the exact-match path.
type Match struct {
	ID         string    `json:"id"`
	Text       string    `json:"memory"`
	Metadata   Metadata  `json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`
	Similarity float64   `json:"similarity,omitempty"`
}

// SavedAt formats CreatedAt as an ISO timestamp truncated to seconds.
func (m Match) SavedAt() string {
	return m.CreatedAt.UTC().Format("2006-01-02T15:04:05")
}

// SearchResult distinguishes an empty result from a failed search.
type SearchResult struct {
	Matches []Match
	Err     error
}

// Empty reports whether the search succeeded with no matches.
func (r SearchResult) Empty() bool { return r.Err == nil && len(r.Matches) == 0 }

// Failed reports whether the store could not answer.
func (r SearchResult) Failed() bool { return r.Err != nil }

// AddResult carries the new record ID or the reason nothing was stored.
type AddResult struct {
	ID  string
	Err error
}

// Stored reports whether a record was written.
func (r AddResult) Stored() bool { return r.Err == nil && r.ID != "" }

// ErrStore marks failures reported by a memory store backend.
var ErrStore = errors.New("memory store")
