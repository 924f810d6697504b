package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/webinarhub/internal/middleware"
)

func newAuthHandler(env *testEnv) *AuthHandler {
	return NewAuthHandler(env.credentials, env.issuer, env.sessions, true, testLogger)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestSignup(t *testing.T) {
	env := setupEnv(t)
	h := newAuthHandler(env)

	rec := httptest.NewRecorder()
	h.Signup(rec, jsonRequest(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email": "Alice@Example.com", "password": "correct-horse", "name": "Alice",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	if resp.User.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized alice@example.com", resp.User.Email)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	c := sessionCookie(rec)
	if c == nil || c.Value != resp.Token {
		t.Fatalf("session cookie = %+v, want token", c)
	}
	if !c.HttpOnly || !c.Secure {
		t.Errorf("cookie HttpOnly=%v Secure=%v, want both true", c.HttpOnly, c.Secure)
	}

	if _, err := env.validator.Validate(t.Context(), resp.Token); err != nil {
		t.Errorf("issued token does not validate: %v", err)
	}

	rec = httptest.NewRecorder()
	h.Signup(rec, jsonRequest(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email": "alice@example.com", "password": "another-pass",
	}))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}
}

func TestSignupValidation(t *testing.T) {
	env := setupEnv(t)
	h := newAuthHandler(env)

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing email", map[string]string{"password": "correct-horse"}, "email is required"},
		{"bad email", map[string]string{"email": "nope", "password": "correct-horse"}, "email must be a valid email address"},
		{"short password", map[string]string{"email": "a@example.com", "password": "short"}, "password must be at least 8 characters long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Signup(rec, jsonRequest(t, http.MethodPost, "/api/auth/signup", tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if msg := errorMessage(t, rec); msg != tt.want {
				t.Errorf("error = %q, want %q", msg, tt.want)
			}
		})
	}
}

func TestLoginAndLogout(t *testing.T) {
	env := setupEnv(t)
	h := newAuthHandler(env)
	if _, err := env.credentials.Signup(t.Context(), "bob@example.com", "correct-horse", "Bob"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "bob@example.com", "password": "wrong-password",
	}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Login(rec, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "bob@example.com", "password": "correct-horse",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	ident, err := env.validator.Validate(t.Context(), resp.Token)
	if err != nil {
		t.Fatalf("validate login token: %v", err)
	}

	rec = httptest.NewRecorder()
	env.requireSession(h.Logout).ServeHTTP(rec, withToken(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), resp.Token))
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", rec.Code)
	}
	if c := sessionCookie(rec); c == nil || c.MaxAge >= 0 {
		t.Errorf("logout cookie = %+v, want expired", c)
	}

	sess, err := env.sessions.GetByID(t.Context(), ident.Session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.IsActive {
		t.Error("session still active after logout")
	}
}

func TestSignupMultiBytePasswordTooLong(t *testing.T) {
	env := setupEnv(t)
	h := newAuthHandler(env)

	rec := httptest.NewRecorder()
	h.Signup(rec, jsonRequest(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email": "a@example.com", "password": strings.Repeat("é", 40), "name": "A",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
	if msg := errorMessage(t, rec); msg != "password must be at most 72 bytes" {
		t.Errorf("error = %q", msg)
	}
}
