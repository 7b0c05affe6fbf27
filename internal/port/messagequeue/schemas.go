package messagequeue

import "time"

// MemoryCreatedPayload is the schema for memories.created messages.
// Memory text is not included; subscribers fetch it if they need it.
type MemoryCreatedPayload struct {
	MemoryID  string    `json:"memory_id"`
	UserID    string    `json:"user_id"`
	Tag       string    `json:"tag,omitempty"`
	Priority  float64   `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatTurnPayload is the schema for chat.turns messages.
type ChatTurnPayload struct {
	SessionID  string `json:"session_id"`
	UserID     string `json:"user_id"`
	Intent     string `json:"intent"`
	Degraded   bool   `json:"degraded"`
	DurationMS int64  `json:"duration_ms"`
}
