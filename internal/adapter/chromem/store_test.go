package chromem_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/CogniChat/internal/adapter/chromem"
	"github.com/Strob0t/CogniChat/internal/domain"
	"github.com/Strob0t/CogniChat/internal/domain/memory"
	"github.com/Strob0t/CogniChat/internal/port/memorystore"
)

const dims = 8

var _ memorystore.Store = (*chromem.Store)(nil)

func vec(i, j int, tilt float32) []float32 {
	v := make([]float32, dims)
	v[i] = 1
	if tilt != 0 {
		v[j] = tilt
	}
	return v
}

func add(t *testing.T, s *chromem.Store, userID, text string, emb []float32, tag memory.Tag) *memory.Record {
	t.Helper()
	rec := &memory.Record{
		UserID:    userID,
		Text:      text,
		Embedding: emb,
		Metadata:  memory.NewMetadata(memory.DefaultPriority, tag, time.Now()),
	}
	if err := s.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert(%q): %v", text, err)
	}
	return rec
}

func TestInsertPopulatesIDAndCreatedAt(t *testing.T) {
	s := chromem.New(dims)
	rec := add(t, s, "u1", "hello", vec(0, 0, 0), memory.TagNone)
	if rec.ID == "" {
		t.Error("expected ID to be set")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestInsertValidates(t *testing.T) {
	s := chromem.New(dims)
	err := s.Insert(context.Background(), &memory.Record{UserID: "u1", Text: " ", Embedding: vec(0, 0, 0)})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank text: expected ErrValidation, got %v", err)
	}
	err = s.Insert(context.Background(), &memory.Record{UserID: "u1", Text: "x", Embedding: []float32{1}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("short embedding: expected ErrValidation, got %v", err)
	}
}

func TestListByTagNewestFirst(t *testing.T) {
	s := chromem.New(dims)
	ctx := context.Background()

	add(t, s, "u1", "first", vec(1, 0, 0), memory.TagExplicit)
	time.Sleep(2 * time.Millisecond)
	add(t, s, "u1", "noise", vec(2, 0, 0), memory.TagNone)
	time.Sleep(2 * time.Millisecond)
	add(t, s, "u1", "second", vec(3, 0, 0), memory.TagExplicit)
	time.Sleep(2 * time.Millisecond)
	add(t, s, "u1", "third", vec(4, 0, 0), memory.TagExplicit)
	add(t, s, "u2", "someone else", vec(1, 0, 0), memory.TagExplicit)

	got, err := s.ListByTag(ctx, "u1", memory.TagExplicit, 2)
	if err != nil {
		t.Fatalf("ListByTag: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Text != "third" || got[1].Text != "second" {
		t.Errorf("order = %q, %q; want third, second", got[0].Text, got[1].Text)
	}
	if got[0].Metadata.Priority != memory.DefaultPriority {
		t.Errorf("priority = %v", got[0].Metadata.Priority)
	}
}

func TestListByTagEmpty(t *testing.T) {
	s := chromem.New(dims)
	got, err := s.ListByTag(context.Background(), "nobody", memory.TagExplicit, 5)
	if err != nil {
		t.Fatalf("ListByTag: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}

	add(t, s, "u1", "untagged", vec(0, 0, 0), memory.TagNone)
	got, err = s.ListByTag(context.Background(), "u1", memory.TagExplicit, 5)
	if err != nil {
		t.Fatalf("ListByTag: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no explicit memories, got %d", len(got))
	}
}

func TestMatchSimilarThresholdAndOrder(t *testing.T) {
	s := chromem.New(dims)
	ctx := context.Background()

	add(t, s, "u1", "near", vec(0, 1, 0.1), memory.TagNone)
	add(t, s, "u1", "nearer", vec(0, 1, 0.01), memory.TagNone)
	add(t, s, "u1", "orthogonal", vec(5, 0, 0), memory.TagNone)

	got, err := s.MatchSimilar(ctx, memorystore.SimilarityQuery{
		UserID:    "u1",
		Embedding: vec(0, 0, 0),
		Threshold: 0.8,
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("MatchSimilar: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].Text != "nearer" || got[1].Text != "near" {
		t.Errorf("order = %q, %q", got[0].Text, got[1].Text)
	}
	for _, m := range got {
		if m.Similarity <= 0.8 {
			t.Errorf("%q similarity %v not above threshold", m.Text, m.Similarity)
		}
	}
}

func TestMatchSimilarLimitAndTag(t *testing.T) {
	s := chromem.New(dims)
	ctx := context.Background()

	add(t, s, "u1", "a", vec(0, 1, 0.1), memory.TagNone)
	add(t, s, "u1", "b", vec(0, 1, 0.2), memory.TagReminder)
	add(t, s, "u1", "c", vec(0, 1, 0.3), memory.TagNone)

	got, err := s.MatchSimilar(ctx, memorystore.SimilarityQuery{
		UserID: "u1", Embedding: vec(0, 0, 0), Threshold: 0.5, Limit: 1,
	})
	if err != nil {
		t.Fatalf("MatchSimilar: %v", err)
	}
	if len(got) != 1 || got[0].Text != "a" {
		t.Errorf("limit 1 returned %+v", got)
	}

	got, err = s.MatchSimilar(ctx, memorystore.SimilarityQuery{
		UserID: "u1", Embedding: vec(0, 0, 0), Threshold: 0.5, Limit: 5, Tag: memory.TagReminder,
	})
	if err != nil {
		t.Fatalf("MatchSimilar(tag): %v", err)
	}
	if len(got) != 1 || got[0].Text != "b" {
		t.Errorf("tag filter returned %+v", got)
	}
}

func TestMatchSimilarUnknownUser(t *testing.T) {
	s := chromem.New(dims)
	got, err := s.MatchSimilar(context.Background(), memorystore.SimilarityQuery{
		UserID: "ghost", Embedding: vec(0, 0, 0), Threshold: 0.8, Limit: 5,
	})
	if err != nil {
		t.Fatalf("MatchSimilar: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}
