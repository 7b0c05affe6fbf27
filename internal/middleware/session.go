package middleware

import (
	"context"
	"net/http"

	"github.com/Strob0t/CogniChat/internal/logger"
	"github.com/Strob0t/CogniChat/internal/service"
)

// HeaderSessionID carries the session ID for clients that do not keep
// cookies (the terminal client, scripts).
const HeaderSessionID = "X-Session-ID"

type sessionCtxKey struct{}

// SessionIDFromRequest returns the session ID from the X-Session-ID header
// or, failing that, from the named cookie.
func SessionIDFromRequest(r *http.Request, cookieName string) string {
	if id := r.Header.Get(HeaderSessionID); id != "" {
		return id
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// SessionFromContext returns the session ID stored by RequireSession.
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionCtxKey{}).(string)
	return id
}

// WithSessionID stores a session ID the way RequireSession does.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, id)
}

// RequireSession rejects requests without a live, authenticated session.
// The session ID and the user's ID are stored in the request context.
func RequireSession(sessions *service.SessionService, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := SessionIDFromRequest(r, cookieName)
			sess, release, err := sessions.Acquire(id)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"sign in required"}`))
				return
			}
			userID := sess.User.ID
			release()

			ctx := WithSessionID(r.Context(), id)
			ctx = logger.WithUserID(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
