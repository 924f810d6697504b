package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/webinarhub/internal/auth"
	"github.com/dukerupert/webinarhub/internal/database"
	"github.com/dukerupert/webinarhub/internal/middleware"
	"github.com/dukerupert/webinarhub/internal/model"
	"github.com/dukerupert/webinarhub/internal/registration"
	"github.com/dukerupert/webinarhub/internal/store"
	"github.com/dukerupert/webinarhub/internal/websocket"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (b *recordingBroadcaster) Broadcast(ev websocket.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *recordingBroadcaster) last(t *testing.T) websocket.Event {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		t.Fatal("no events broadcast")
	}
	return b.events[len(b.events)-1]
}

type testEnv struct {
	db          *sql.DB
	users       *store.UserStore
	sessions    *store.SessionStore
	webinars    *store.WebinarStore
	categories  *store.CategoryStore
	issuer      *auth.Issuer
	validator   *auth.Validator
	credentials *auth.Credentials
	ledger      *registration.Ledger
	events      *recordingBroadcaster
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	codec, err := auth.NewSignedCodec(strings.Repeat("k", auth.MinKeyLength))
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	users := store.NewUserStore(db)
	sessions := store.NewSessionStore(db)
	return &testEnv{
		db:          db,
		users:       users,
		sessions:    sessions,
		webinars:    store.NewWebinarStore(db),
		categories:  store.NewCategoryStore(db),
		issuer:      auth.NewIssuer(codec, sessions, time.Hour),
		validator:   auth.NewValidator(codec, users, sessions, testLogger),
		credentials: auth.NewCredentials(users),
		ledger:      registration.NewLedger(store.NewRegistrationStore(db)),
		events:      &recordingBroadcaster{},
	}
}

// signIn creates an active user and a session for them.
func (e *testEnv) signIn(t *testing.T, email string) (*model.User, *auth.Issued) {
	t.Helper()
	u, err := e.users.Create(context.Background(), email, "Test User", nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	issued, err := e.issuer.Issue(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return u, issued
}

func (e *testEnv) createWebinar(t *testing.T, title string, startsAt time.Time) *model.Webinar {
	t.Helper()
	cat := "cat-engineering"
	w, err := e.webinars.Create(context.Background(), model.Webinar{
		Title:           title,
		CategoryID:      &cat,
		Host:            "Dana",
		StartsAt:        startsAt,
		DurationMinutes: 60,
		Capacity:        50,
	})
	if err != nil {
		t.Fatalf("create webinar: %v", err)
	}
	return w
}

// requireSession wraps h the way the router does for authenticated routes.
func (e *testEnv) requireSession(h http.HandlerFunc) http.Handler {
	return middleware.RequireSession(e.validator, testLogger)(h)
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withToken(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, rec, &body)
	return body["error"]
}
