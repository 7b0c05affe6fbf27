package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Strob0t/CogniChat/internal/domain"
	"github.com/Strob0t/CogniChat/internal/logger"
	"github.com/Strob0t/CogniChat/internal/middleware"
	"github.com/Strob0t/CogniChat/internal/port/broadcast"
	"github.com/Strob0t/CogniChat/internal/port/messagequeue"
)

var _ broadcast.Broadcaster = (*Hub)(nil)

func TestNewHub(t *testing.T) {
	hub := NewHub(nil, nil)
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestBroadcastToUserNoConnections(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.BroadcastToUser(context.Background(), "u1", broadcast.EventMemoryCreated, map[string]string{"k": "v"})
}

func TestBroadcastMarshalError(t *testing.T) {
	hub := NewHub(nil, nil)
	// A channel cannot be marshaled to JSON; should log, not panic.
	hub.BroadcastToUser(context.Background(), "u1", "bad", make(chan int))
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := NewHub(nil, nil)
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.remove(&conn{cancel: cancel, userID: "u1"})
}

func TestHandleWSRequiresSession(t *testing.T) {
	hub := NewHub(nil, nil)
	rec := httptest.NewRecorder()
	hub.HandleWS(rec, httptest.NewRequest(http.MethodGet, "/ws", http.NoBody))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestClientError(t *testing.T) {
	if got := ClientError(domain.ErrUnauthorized); got != "sign in required" {
		t.Errorf("unauthorized = %q", got)
	}
	if got := ClientError(fmt.Errorf("%w: unknown length", domain.ErrValidation)); got != "unknown length" {
		t.Errorf("validation = %q", got)
	}
	if got := ClientError(errors.New("dial tcp: refused")); strings.Contains(got, "dial") {
		t.Errorf("internal detail leaked: %q", got)
	}
}

// withSession injects what middleware.RequireSession would.
func withSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithUserID(r.Context(), "u1")
		ctx = middleware.WithSessionID(ctx, "s1")
		next(w, r.WithContext(ctx))
	})
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func TestChatOverWebSocket(t *testing.T) {
	hub := NewHub(nil, func(_ context.Context, sessionID, message, length string) (any, error) {
		if sessionID != "s1" {
			return nil, domain.ErrUnauthorized
		}
		return map[string]string{"reply": "echo: " + message, "length": length}, nil
	})
	srv := httptest.NewServer(withSession(hub.HandleWS))
	defer srv.Close()

	c := dial(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, _ := json.Marshal(ChatMessageEvent{Message: "hi", Length: "short"})
	if err := wsjson.Write(ctx, c, Message{Type: EventChatMessage, Payload: payload}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got Message
	if err := wsjson.Read(ctx, c, &got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != EventChatReply {
		t.Fatalf("type = %q, payload %s", got.Type, got.Payload)
	}
	var reply map[string]string
	_ = json.Unmarshal(got.Payload, &reply)
	if reply["reply"] != "echo: hi" || reply["length"] != "short" {
		t.Fatalf("unexpected reply: %v", reply)
	}

	// Events for the user reach the same socket.
	hub.BroadcastToUser(ctx, "u1", broadcast.EventMemoryCreated, messagequeue.MemoryCreatedPayload{MemoryID: "m1", UserID: "u1"})
	if err := wsjson.Read(ctx, c, &got); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got.Type != broadcast.EventMemoryCreated {
		t.Fatalf("event type = %q", got.Type)
	}
}

func TestChatOverWebSocketRejectsEmpty(t *testing.T) {
	hub := NewHub(nil, func(context.Context, string, string, string) (any, error) {
		t.Error("turn must not run")
		return nil, nil
	})
	srv := httptest.NewServer(withSession(hub.HandleWS))
	defer srv.Close()

	c := dial(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := wsjson.Write(ctx, c, Message{Type: EventChatMessage, Payload: json.RawMessage(`{"message":""}`)}); err != nil {
		t.Fatal(err)
	}
	var got Message
	if err := wsjson.Read(ctx, c, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != EventChatError {
		t.Fatalf("type = %q", got.Type)
	}
}
