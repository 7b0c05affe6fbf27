package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Strob0t/CogniChat/internal/domain"
	"github.com/Strob0t/CogniChat/internal/resilience"
)

const maxRequestBodySize = 64 << 10 // 64 KB

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// requireField writes a 400 error and returns false when value is empty.
func requireField(w http.ResponseWriter, value, fieldName string) bool {
	if strings.TrimSpace(value) == "" {
		writeError(w, http.StatusBadRequest, fieldName+" is required")
		return false
	}
	return true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps domain sentinels to HTTP statuses. identityStatus is
// used for provider rejections, whose message is shown verbatim.
func writeDomainError(w http.ResponseWriter, err error, identityStatus int) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": "))
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "sign in required")
	case errors.Is(err, domain.ErrIdentity):
		writeError(w, identityStatus, providerMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, resilience.ErrCircuitOpen):
		slog.Warn("upstream unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable, please try again")
	default:
		writeInternalError(w, err)
	}
}

// providerMessage strips wrapping prefixes from an identity error.
func providerMessage(err error) string {
	_, msg, ok := strings.Cut(err.Error(), domain.ErrIdentity.Error()+": ")
	if !ok || msg == "" {
		return "identity provider rejected the request"
	}
	return msg
}

// writeInternalError logs the actual error server-side and returns a generic message to the client.
func writeInternalError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
