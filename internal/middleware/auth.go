package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/webinarhub/internal/auth"
)

// SessionCookieName is the cookie that carries the session token for
// browser clients.
const SessionCookieName = "session"

// SessionValidator resolves a token to a caller identity.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*auth.Identity, error)
}

// TokenFromRequest returns the bearer token, falling back to the session
// cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// SessionErrorStatus maps a validation failure to an HTTP status and a
// client-facing message.
func SessionErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return http.StatusBadRequest, "session token is required"
	case errors.Is(err, auth.ErrMalformedToken):
		return http.StatusBadRequest, "invalid session token format"
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, auth.ErrSessionInvalid):
		return http.StatusUnauthorized, "invalid or expired session"
	case errors.Is(err, auth.ErrSessionExpired):
		return http.StatusUnauthorized, "session expired"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// RequireSession validates the request's token and stores the identity in
// the request context. Requests without a usable session get 401 unless the
// failure was internal.
func RequireSession(v SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Validate(r.Context(), TokenFromRequest(r))
			if err != nil {
				status, msg := SessionErrorStatus(err)
				if status == http.StatusInternalServerError {
					logger.Error("validate session", "error", err)
				} else {
					status = http.StatusUnauthorized
				}
				writeError(w, status, msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
