package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Strob0t/CogniChat/internal/port/cache"
	"github.com/Strob0t/CogniChat/internal/resilience"
	"github.com/Strob0t/CogniChat/internal/service"
)

// Handlers holds the services the HTTP API depends on.
type Handlers struct {
	Sessions *service.SessionService
	Chat     *service.ChatService
	Memories *service.MemoryService
	Breakers []*resilience.Breaker

	// Connections reports open WebSocket connections for /health; optional.
	Connections func() int
	// Idempotency backs Idempotency-Key replay of chat turns; optional.
	Idempotency    cache.Cache
	IdempotencyTTL time.Duration
	// OnSignOut runs after a session is discarded, e.g. to close the
	// user's sockets; optional.
	OnSignOut func(userID string)

	CookieName     string
	SecureCookie   bool
	SessionTTL     time.Duration
	RequestTimeout time.Duration // API requests only; 0 disables
}

type healthResponse struct {
	Status      string            `json:"status"`
	Store       string            `json:"store"`
	Breakers    map[string]string `json:"breakers,omitempty"`
	Sessions    int               `json:"sessions"`
	Connections int               `json:"connections"`
}

// Health reports store reachability, breaker states and live sessions. The
// service answers 200 while degraded since chat keeps working without the
// store.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Store: "ok", Sessions: h.Sessions.Active()}
	if err := h.Memories.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Store = "unreachable"
	}
	if len(h.Breakers) > 0 {
		resp.Breakers = make(map[string]string, len(h.Breakers))
		for _, b := range h.Breakers {
			st := b.State()
			resp.Breakers[b.Name()] = string(st)
			if st != resilience.StateClosed {
				resp.Status = "degraded"
			}
		}
	}
	if h.Connections != nil {
		resp.Connections = h.Connections()
	}
	writeJSON(w, http.StatusOK, resp)
}
