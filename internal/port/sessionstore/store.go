// Package sessionstore defines the port for server-side chat session state.
package sessionstore

import "github.com/Strob0t/CogniChat/internal/domain/chat"

// Store holds sessions keyed by ID. Sessions expire after a period of
// inactivity. Acquire serializes access to one session, so two turns in the
// same session never interleave while turns in different sessions run in
// parallel.
type Store interface {
	// Put inserts or replaces a session.
	Put(s *chat.Session)
	// Acquire locks the session and returns it with its release func. The
	// caller must call release exactly once. ok is false when the session
	// does not exist or has expired.
	Acquire(id string) (s *chat.Session, release func(), ok bool)
	// Delete discards a session.
	Delete(id string)
	// Len returns the number of live sessions.
	Len() int
}
