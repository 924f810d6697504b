package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/webinarhub/internal/auth"
	"github.com/dukerupert/webinarhub/internal/middleware"
	"github.com/dukerupert/webinarhub/internal/model"
)

// SessionDeactivator ends a session on logout.
type SessionDeactivator interface {
	Deactivate(ctx context.Context, id string) error
}

type AuthHandler struct {
	credentials   *auth.Credentials
	issuer        *auth.Issuer
	sessions      SessionDeactivator
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(creds *auth.Credentials, issuer *auth.Issuer, sessions SessionDeactivator, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		credentials:   creds,
		issuer:        issuer,
		sessions:      sessions,
		secureCookies: secureCookies,
		logger:        logger.With("component", "auth_handler"),
	}
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.credentials.Signup(r.Context(), req.Email, req.Password, req.Name)
	if errors.Is(err, auth.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if errors.Is(err, auth.ErrPasswordTooLong) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("signup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.startSession(w, r, user, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.credentials.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		h.logger.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.startSession(w, r, user, http.StatusOK)
}

// Logout deactivates the caller's session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := auth.SessionID(r.Context()); id != "" {
		if err := h.sessions.Deactivate(r.Context(), id); err != nil {
			h.logger.Error("logout", "session_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	clearSessionCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User, status int) {
	issued, err := h.issuer.Issue(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("issue session", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	setSessionCookie(w, issued, h.secureCookies)
	writeJSON(w, status, sessionResponse{User: user, Token: issued.Token, ExpiresAt: issued.Session.ExpiresAt})
}

func setSessionCookie(w http.ResponseWriter, issued *auth.Issued, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    issued.Token,
		Path:     "/",
		Expires:  issued.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
