// Package completion defines the port for the hosted chat-completion API.
package completion

import (
	"context"

	"github.com/Strob0t/CogniChat/internal/domain/chat"
)

// Request is a single non-streaming completion call.
type Request struct {
	Model       string         `json:"model"`
	Messages    []chat.Message `json:"messages"`
	Temperature float64        `json:"temperature"`
}

// Client performs chat completions. It never retries.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
