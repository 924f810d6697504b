package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/webinarhub/internal/auth"
	"github.com/dukerupert/webinarhub/internal/oauth"
)

const (
	oauthStateCookie    = "oauth_state"
	oauthVerifierCookie = "oauth_verifier"
	oauthCookiePath     = "/auth/google"
	oauthCookieTTL      = 10 * time.Minute
)

// OAuthProvider is the Google login flow as the handler sees it.
type OAuthProvider interface {
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth.Identity, error)
}

type OAuthHandler struct {
	provider      OAuthProvider
	credentials   *auth.Credentials
	issuer        *auth.Issuer
	secureCookies bool
	logger        *slog.Logger
}

func NewOAuthHandler(p OAuthProvider, creds *auth.Credentials, issuer *auth.Issuer, secureCookies bool, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		provider:      p,
		credentials:   creds,
		issuer:        issuer,
		secureCookies: secureCookies,
		logger:        logger.With("component", "oauth_handler"),
	}
}

// Login redirects to Google with a fresh state and PKCE verifier, both kept
// in short-lived cookies for the callback.
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := oauth.NewState()
	verifier := oauth.NewState()
	h.setCookie(w, oauthStateCookie, state, int(oauthCookieTTL.Seconds()))
	h.setCookie(w, oauthVerifierCookie, verifier, int(oauthCookieTTL.Seconds()))
	http.Redirect(w, r, h.provider.AuthCodeURL(state, verifier), http.StatusFound)
}

func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" {
		writeError(w, http.StatusBadRequest, "missing oauth state")
		return
	}
	verifierCookie, err := r.Cookie(oauthVerifierCookie)
	if err != nil || verifierCookie.Value == "" {
		writeError(w, http.StatusBadRequest, "missing oauth verifier")
		return
	}
	h.setCookie(w, oauthStateCookie, "", -1)
	h.setCookie(w, oauthVerifierCookie, "", -1)

	q := r.URL.Query()
	if subtle.ConstantTimeCompare([]byte(q.Get("state")), []byte(stateCookie.Value)) != 1 {
		writeError(w, http.StatusBadRequest, "oauth state mismatch")
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	ident, err := h.provider.Exchange(r.Context(), code, verifierCookie.Value)
	if err != nil {
		h.logger.Warn("oauth exchange", "error", err)
		writeError(w, http.StatusUnauthorized, "google sign-in failed")
		return
	}

	user, err := h.credentials.ResolveExternal(r.Context(), ident.Email, ident.Name)
	if errors.Is(err, auth.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "account disabled")
		return
	}
	if err != nil {
		h.logger.Error("resolve oauth user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	issued, err := h.issuer.Issue(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("issue session", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	setSessionCookie(w, issued, h.secureCookies)
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Token: issued.Token, ExpiresAt: issued.Session.ExpiresAt})
}

func (h *OAuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     oauthCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
