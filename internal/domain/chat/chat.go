// Package chat defines chat messages, response length tiers and the
// per-session conversation state.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/CogniChat/internal/domain/user"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Length is the caller-selected response length tier.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Word limits per tier. Long replies are never cut.
const (
	ShortWords  = 20
	MediumWords = 50
)

// ParseLength validates a tier name.
func ParseLength(s string) (Length, error) {
	switch l := Length(strings.ToLower(strings.TrimSpace(s))); l {
	case LengthShort, LengthMedium, LengthLong:
		return l, nil
	default:
		return "", fmt.Errorf("unknown response length %q: must be short, medium, or long", s)
	}
}

// Truncate keeps the first N whitespace-separated words of reply for the
// short and medium tiers, joined by single spaces.
func Truncate(reply string, tier Length) string {
	var limit int
	switch tier {
	case LengthShort:
		limit = ShortWords
	case LengthMedium:
		limit = MediumWords
	default:
		return reply
	}
	words := strings.Fields(reply)
	if len(words) > limit {
		words = words[:limit]
	}
	return strings.Join(words, " ")
}

// Session is the explicit state of one interactive session. It is created on
// sign-in or sign-up and discarded on sign-out.
type Session struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	User          user.User `json:"user"`
	AccessToken   string    `json:"-"`
	Messages      []Message `json:"messages"`
	Length        Length    `json:"length"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewSession returns an authenticated session for u.
func NewSession(id string, u user.User, token string, length Length, now time.Time) *Session {
	return &Session{
		ID:            id,
		Authenticated: true,
		User:          u,
		AccessToken:   token,
		Length:        length,
		CreatedAt:     now,
	}
}

// Append records a message in the session history.
func (s *Session) Append(role Role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// Last returns up to n of the most recent messages, oldest first.
func (s *Session) Last(n int) []Message {
	if n <= 0 || len(s.Messages) == 0 {
		return nil
	}
	if n > len(s.Messages) {
		n = len(s.Messages)
	}
	return s.Messages[len(s.Messages)-n:]
}

// Reset clears identity and history.
func (s *Session) Reset() {
	s.Authenticated = false
	s.User = user.User{}
	s.AccessToken = ""
	s.Messages = nil
}
