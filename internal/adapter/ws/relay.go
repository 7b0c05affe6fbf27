package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Strob0t/CogniChat/internal/port/broadcast"
	"github.com/Strob0t/CogniChat/internal/port/messagequeue"
)

// Relay forwards memories.created and chat.turns events from the queue to
// the owners' connections, so every instance behind a load balancer pushes
// events for turns handled elsewhere. The returned func cancels both
// subscriptions.
func Relay(ctx context.Context, q messagequeue.Queue, b broadcast.Broadcaster) (func(), error) {
	cancelMem, err := q.Subscribe(ctx, messagequeue.SubjectMemoryCreated, func(ctx context.Context, _ string, data []byte) error {
		var p messagequeue.MemoryCreatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode memory event: %w", err)
		}
		b.BroadcastToUser(ctx, p.UserID, broadcast.EventMemoryCreated, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectMemoryCreated, err)
	}

	cancelTurn, err := q.Subscribe(ctx, messagequeue.SubjectChatTurn, func(ctx context.Context, _ string, data []byte) error {
		var p messagequeue.ChatTurnPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode turn event: %w", err)
		}
		b.BroadcastToUser(ctx, p.UserID, broadcast.EventTurn, p)
		return nil
	})
	if err != nil {
		cancelMem()
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectChatTurn, err)
	}

	return func() {
		cancelMem()
		cancelTurn()
	}, nil
}
