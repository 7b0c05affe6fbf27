package ws

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/Strob0t/CogniChat/internal/domain"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client-to-server and server-to-client event types. memory.created and
// chat.turn are defined by the broadcast port.
const (
	EventChatMessage = "chat.message"
	EventChatReply   = "chat.reply"
	EventChatError   = "chat.error"
)

// ChatMessageEvent is the payload of an inbound chat.message.
type ChatMessageEvent struct {
	Message string `json:"message"`
	Length  string `json:"length,omitempty"`
}

// ErrorEvent is the payload of chat.error.
type ErrorEvent struct {
	Error string `json:"error"`
}

func newMessage(eventType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: eventType, Payload: data}, nil
}

// ClientError maps a turn error to a message that is safe to show.
func ClientError(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "sign in required"
	case errors.Is(err, domain.ErrValidation):
		return strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	default:
		return "the assistant is unavailable, please try again"
	}
}
