package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Strob0t/CogniChat/internal/domain"
	"github.com/Strob0t/CogniChat/internal/domain/chat"
	"github.com/Strob0t/CogniChat/internal/middleware"
	"github.com/Strob0t/CogniChat/internal/resilience"
)

type chatRequest struct {
	Message string `json:"message"`
	Length  string `json:"length,omitempty"`
}

// PostChat handles POST /api/v1/chat.
func (h *Handlers) PostChat(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[chatRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Message, "message") {
		return
	}

	turn, err := h.RunTurn(r.Context(), middleware.SessionFromContext(r.Context()), req.Message, req.Length)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, turn)
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, resilience.ErrCircuitOpen):
		writeDomainError(w, err, http.StatusUnauthorized)
	default:
		slog.ErrorContext(r.Context(), "chat turn failed", "error", err)
		writeError(w, http.StatusBadGateway, "the assistant is unavailable, please try again")
	}
}

// RunTurn locks the session and runs one chat turn. An empty length uses the
// session's default. It backs both the HTTP and the WebSocket chat.
func (h *Handlers) RunTurn(ctx context.Context, sessionID, message, length string) (any, error) {
	sess, release, err := h.Sessions.Acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	tier := sess.Length
	if length != "" {
		if tier, err = chat.ParseLength(length); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
	}
	turn, err := h.Chat.Dispatch(ctx, sess, message, tier)
	if err != nil {
		return nil, err
	}
	return turn, nil
}
