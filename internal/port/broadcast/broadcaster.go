// Package broadcast defines the port for pushing real-time events to a
// user's connected chat clients.
package broadcast

import "context"

// Event types pushed to clients.
const (
	EventMemoryCreated = "memory.created"
	EventTurn          = "chat.turn"
)

// Broadcaster sends real-time events to connected clients.
type Broadcaster interface {
	// BroadcastToUser sends a typed event to every connection of userID.
	BroadcastToUser(ctx context.Context, userID, eventType string, payload any)
}
