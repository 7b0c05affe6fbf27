// Package ws implements the WebSocket adapter: chat turns over a socket and
// real-time memory and turn events pushed to a user's open clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Strob0t/CogniChat/internal/logger"
	"github.com/Strob0t/CogniChat/internal/middleware"
)

// TurnFunc runs one chat turn for a session and returns the value sent back
// as the chat.reply payload.
type TurnFunc func(ctx context.Context, sessionID, message, length string) (any, error)

// conn wraps a single WebSocket connection.
type conn struct {
	ws        *websocket.Conn
	cancel    context.CancelFunc
	userID    string
	sessionID string
}

// Hub tracks connections per user.
type Hub struct {
	mu             sync.RWMutex
	conns          map[*conn]struct{}
	originPatterns []string
	turn           TurnFunc
}

// NewHub creates a hub. originPatterns are passed to the WebSocket handshake
// origin check; turn handles inbound chat messages and may be nil.
func NewHub(originPatterns []string, turn TurnFunc) *Hub {
	return &Hub{
		conns:          make(map[*conn]struct{}),
		originPatterns: originPatterns,
		turn:           turn,
	}
}

// HandleWS upgrades an authenticated request to a WebSocket. It must run
// behind middleware.RequireSession.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionFromContext(r.Context())
	userID := logger.UserID(r.Context())
	if sessionID == "" || userID == "" {
		http.Error(w, `{"error":"sign in required"}`, http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	// The request context ends when the handler returns; keep its values only.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &conn{ws: ws, cancel: cancel, userID: userID, sessionID: sessionID}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.InfoContext(ctx, "websocket connected", "remote", r.RemoteAddr)

	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		h.readLoop(ctx, c)
	}()
}

// readLoop handles inbound messages until the client disconnects. Turns on
// one connection run one at a time.
func (h *Hub) readLoop(ctx context.Context, c *conn) {
	for {
		var msg Message
		if err := wsjson.Read(ctx, c.ws, &msg); err != nil {
			return
		}
		if msg.Type != EventChatMessage {
			h.send(ctx, c, EventChatError, ErrorEvent{Error: "unknown message type " + msg.Type})
			continue
		}
		var req ChatMessageEvent
		if err := json.Unmarshal(msg.Payload, &req); err != nil || req.Message == "" {
			h.send(ctx, c, EventChatError, ErrorEvent{Error: "message is required"})
			continue
		}
		if h.turn == nil {
			h.send(ctx, c, EventChatError, ErrorEvent{Error: "chat over websocket is disabled"})
			continue
		}

		reply, err := h.turn(ctx, c.sessionID, req.Message, req.Length)
		if err != nil {
			h.send(ctx, c, EventChatError, ErrorEvent{Error: ClientError(err)})
			continue
		}
		h.send(ctx, c, EventChatReply, reply)
	}
}

// BroadcastToUser sends a typed event to every connection of userID. It
// implements broadcast.Broadcaster.
func (h *Hub) BroadcastToUser(ctx context.Context, userID, eventType string, payload any) {
	msg, err := newMessage(eventType, payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*conn, 0, 1)
	for c := range h.conns {
		if c.userID == userID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := wsjson.Write(ctx, c.ws, msg); err != nil {
			slog.Debug("websocket write failed", "error", err)
			h.remove(c)
		}
	}
}

func (h *Hub) send(ctx context.Context, c *conn, eventType string, payload any) {
	msg, err := newMessage(eventType, payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}
	if err := wsjson.Write(ctx, c.ws, msg); err != nil {
		slog.Debug("websocket write failed", "error", err)
		h.remove(c)
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseUser drops every connection of userID, e.g. after sign-out.
func (h *Hub) CloseUser(userID string) {
	h.mu.RLock()
	var targets []*conn
	for c := range h.conns {
		if c.userID == userID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.remove(c)
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected", "user_id", c.userID)
	}
}
