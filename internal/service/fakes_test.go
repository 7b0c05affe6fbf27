package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Strob0t/CogniChat/internal/domain/memory"
	"github.com/Strob0t/CogniChat/internal/domain/user"
	"github.com/Strob0t/CogniChat/internal/port/completion"
	"github.com/Strob0t/CogniChat/internal/port/memorystore"
	"github.com/Strob0t/CogniChat/internal/port/messagequeue"
)

const testDims = 4

var errBoom = errors.New("boom")

// fakeEmbedder returns a constant unit vector and counts calls.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0, 0, 0}, nil
}
func (e *fakeEmbedder) Dimensions() int { return testDims }
func (e *fakeEmbedder) Close() error    { return nil }

func (e *fakeEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fakeStore keeps records in memory. similar is returned verbatim from
// MatchSimilar.
type fakeStore struct {
	mu       sync.Mutex
	records  []memory.Record
	similar  []memory.Match
	lastSim  memorystore.SimilarityQuery
	err      error
	clock    time.Time
	inserted int
}

func (s *fakeStore) Insert(_ context.Context, rec *memory.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.inserted++
	if s.clock.IsZero() {
		s.clock = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	}
	rec.ID = fmt.Sprintf("m-%d", s.inserted)
	rec.CreatedAt = s.clock.Add(time.Duration(s.inserted) * time.Minute)
	s.records = append(s.records, *rec)
	return nil
}

func (s *fakeStore) ListByTag(_ context.Context, userID string, tag memory.Tag, limit int) ([]memory.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []memory.Match
	for _, r := range slices.Backward(s.records) {
		if r.UserID == userID && r.Metadata.Tag == tag {
			out = append(out, memory.Match{ID: r.ID, Text: r.Text, Metadata: r.Metadata, CreatedAt: r.CreatedAt})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) MatchSimilar(_ context.Context, q memorystore.SimilarityQuery) ([]memory.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSim = q
	if s.err != nil {
		return nil, s.err
	}
	return s.similar, nil
}

func (s *fakeStore) Ping(context.Context) error { return s.err }

func (s *fakeStore) Records() []memory.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// fakeLLM records requests and returns a canned reply.
type fakeLLM struct {
	reply string
	err   error
	reqs  []completion.Request
}

func (l *fakeLLM) Complete(_ context.Context, req completion.Request) (string, error) {
	l.reqs = append(l.reqs, req)
	if l.err != nil {
		return "", l.err
	}
	return l.reply, nil
}

type fakeAnalyzer struct{ polarity float64 }

func (a fakeAnalyzer) Polarity(string) float64 { return a.polarity }

// fakeQueue records published messages.
type fakeQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
	err       error
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	if q.published == nil {
		q.published = make(map[string][][]byte)
	}
	q.published[subject] = append(q.published[subject], data)
	return nil
}
func (q *fakeQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}
func (q *fakeQueue) Drain() error      { return nil }
func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }

func (q *fakeQueue) Count(subject string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.published[subject])
}

// fakeBroadcaster records events per user.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *fakeBroadcaster) BroadcastToUser(_ context.Context, userID, eventType string, _ any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, userID+":"+eventType)
}

// fakeProvider is an identity.Provider with canned answers.
type fakeProvider struct {
	creds      *user.Credentials
	err        error
	signOutErr error
	signedOut  []string
}

func (p *fakeProvider) SignUp(_ context.Context, req user.SignUpRequest) (*user.Credentials, error) {
	if p.err != nil {
		return nil, p.err
	}
	c := *p.creds
	c.User.Name = req.Name
	return &c, nil
}

func (p *fakeProvider) SignIn(context.Context, user.SignInRequest) (*user.Credentials, error) {
	if p.err != nil {
		return nil, p.err
	}
	c := *p.creds
	return &c, nil
}

func (p *fakeProvider) SignOut(_ context.Context, token string) error {
	p.signedOut = append(p.signedOut, token)
	return p.signOutErr
}

func (p *fakeProvider) Health(context.Context) error { return p.err }
