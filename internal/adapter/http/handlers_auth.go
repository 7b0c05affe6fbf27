package http

import (
	"net/http"

	"github.com/Strob0t/CogniChat/internal/domain/chat"
	"github.com/Strob0t/CogniChat/internal/domain/user"
	"github.com/Strob0t/CogniChat/internal/logger"
	"github.com/Strob0t/CogniChat/internal/middleware"
)

type sessionResponse struct {
	SessionID string      `json:"session_id"`
	User      user.User   `json:"user"`
	Length    chat.Length `json:"length"`
	Messages  int         `json:"messages"`
}

func newSessionResponse(s *chat.Session) sessionResponse {
	return sessionResponse{SessionID: s.ID, User: s.User, Length: s.Length, Messages: len(s.Messages)}
}

// SignUp handles POST /api/v1/auth/signup.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.SignUpRequest](w, r)
	if !ok {
		return
	}
	sess, err := h.Sessions.SignUp(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, http.StatusBadRequest)
		return
	}
	h.setSessionCookie(w, sess.ID)
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

// SignIn handles POST /api/v1/auth/signin.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.SignInRequest](w, r)
	if !ok {
		return
	}
	sess, err := h.Sessions.SignIn(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, http.StatusUnauthorized)
		return
	}
	h.setSessionCookie(w, sess.ID)
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// SignOut handles POST /api/v1/auth/signout.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	id := middleware.SessionFromContext(r.Context())
	if err := h.Sessions.SignOut(r.Context(), id); err != nil {
		writeDomainError(w, err, http.StatusBadRequest)
		return
	}
	if h.OnSignOut != nil {
		h.OnSignOut(logger.UserID(r.Context()))
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// GetSession handles GET /api/v1/session.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, release, err := h.Sessions.Acquire(middleware.SessionFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err, http.StatusUnauthorized)
		return
	}
	resp := newSessionResponse(sess)
	release()
	writeJSON(w, http.StatusOK, resp)
}

type lengthRequest struct {
	Length string `json:"length"`
}

// SetLength handles PUT /api/v1/session/length.
func (h *Handlers) SetLength(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[lengthRequest](w, r)
	if !ok {
		return
	}
	length, err := chat.ParseLength(req.Length)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Sessions.SetLength(middleware.SessionFromContext(r.Context()), length); err != nil {
		writeDomainError(w, err, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, lengthRequest{Length: string(length)})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
