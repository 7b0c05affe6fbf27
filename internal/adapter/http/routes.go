package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/CogniChat/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. ws serves
// the WebSocket upgrade and may be nil.
func MountRoutes(r chi.Router, h *Handlers, ws http.HandlerFunc) {
	requireSession := middleware.RequireSession(h.Sessions, h.CookieName)

	r.Get("/health", h.Health)
	if ws != nil {
		r.With(requireSession).Get("/ws", ws)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if h.RequestTimeout > 0 {
			r.Use(chimw.Timeout(h.RequestTimeout))
		}

		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Post("/auth/signup", h.SignUp)
		r.Post("/auth/signin", h.SignIn)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Post("/auth/signout", h.SignOut)
			r.Get("/session", h.GetSession)
			r.Put("/session/length", h.SetLength)
			if h.Idempotency != nil {
				r.With(middleware.Idempotency(h.Idempotency, h.IdempotencyTTL)).Post("/chat", h.PostChat)
			} else {
				r.Post("/chat", h.PostChat)
			}
		})
	})
}
