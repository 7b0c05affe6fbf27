// Package gocache keeps chat sessions in an in-process TTL cache.
package gocache

import (
	"log/slog"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/Strob0t/CogniChat/internal/domain/chat"
)

type entry struct {
	mu   sync.Mutex
	sess *chat.Session
}

// Sessions implements sessionstore.Store. Every successful Acquire slides
// the session's expiry forward by ttl.
type Sessions struct {
	c   *cache.Cache
	ttl time.Duration
}

// NewSessions creates a store whose sessions expire after ttl of inactivity.
// Expired sessions are purged every cleanupInterval.
func NewSessions(ttl, cleanupInterval time.Duration) *Sessions {
	c := cache.New(ttl, cleanupInterval)
	c.OnEvicted(func(id string, _ interface{}) {
		slog.Debug("session evicted", "session_id", id)
	})
	return &Sessions{c: c, ttl: ttl}
}

// Put inserts or replaces a session.
func (s *Sessions) Put(sess *chat.Session) {
	s.c.Set(sess.ID, &entry{sess: sess}, s.ttl)
}

// Acquire locks and returns the session with the given ID.
func (s *Sessions) Acquire(id string) (*chat.Session, func(), bool) {
	if id == "" {
		return nil, nil, false
	}
	v, found := s.c.Get(id)
	if !found {
		return nil, nil, false
	}
	e := v.(*entry)
	e.mu.Lock()

	// Touch only if the entry was not replaced or deleted while waiting.
	if cur, ok := s.c.Get(id); !ok || cur != v {
		e.mu.Unlock()
		return nil, nil, false
	}
	s.c.Set(id, e, s.ttl)

	var once sync.Once
	return e.sess, func() { once.Do(e.mu.Unlock) }, true
}

// Delete discards a session.
func (s *Sessions) Delete(id string) {
	s.c.Delete(id)
}

// Len returns the number of live sessions, including expired ones that
// have not been purged yet.
func (s *Sessions) Len() int {
	return s.c.ItemCount()
}
