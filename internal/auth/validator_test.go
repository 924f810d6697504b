package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/webinarhub/internal/model"
)

type fakeUsers struct {
	users map[string]*model.User
	err   error
	calls int
}

func (f *fakeUsers) GetActiveByID(_ context.Context, id string) (*model.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok || !u.IsActive {
		return nil, nil
	}
	return u, nil
}

type fakeSessions struct {
	mu            sync.Mutex
	sessions      map[string]*model.Session
	err           error
	deactivateErr error
	calls         int
}

func (f *fakeSessions) GetActiveByToken(_ context.Context, token, userID string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[token]
	if !ok || !s.IsActive || s.UserID != userID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) Deactivate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deactivateErr != nil {
		return f.deactivateErr
	}
	for _, s := range f.sessions {
		if s.ID == id {
			s.IsActive = false
		}
	}
	return nil
}

func (f *fakeSessions) Create(_ context.Context, userID, token string, expiresAt time.Time) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions == nil {
		f.sessions = map[string]*model.Session{}
	}
	s := &model.Session{ID: "sess-" + userID, UserID: userID, Token: token, IsActive: true, ExpiresAt: expiresAt}
	f.sessions[token] = s
	return s, nil
}

var testNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

type validatorFixture struct {
	v        *Validator
	users    *fakeUsers
	sessions *fakeSessions
	token    string
}

func newValidatorFixture(t *testing.T, expiresAt time.Time) validatorFixture {
	t.Helper()
	codec := LegacyCodec{}
	token, err := codec.Encode("user-1", "secret")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	users := &fakeUsers{users: map[string]*model.User{
		"user-1": {ID: "user-1", Email: "alice@example.com", IsActive: true},
	}}
	sessions := &fakeSessions{sessions: map[string]*model.Session{
		token: {ID: "sess-1", UserID: "user-1", Token: token, IsActive: true, ExpiresAt: expiresAt},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := NewValidator(codec, users, sessions, logger, WithClock(func() time.Time { return testNow }))
	return validatorFixture{v: v, users: users, sessions: sessions, token: token}
}

func TestValidateSuccess(t *testing.T) {
	f := newValidatorFixture(t, testNow.Add(time.Hour))

	id, err := f.v.Validate(context.Background(), f.token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id.User.ID != "user-1" {
		t.Errorf("user id = %q, want %q", id.User.ID, "user-1")
	}
	if id.Session.ID != "sess-1" {
		t.Errorf("session id = %q, want %q", id.Session.ID, "sess-1")
	}
}

func TestValidateMissingToken(t *testing.T) {
	f := newValidatorFixture(t, testNow.Add(time.Hour))

	if _, err := f.v.Validate(context.Background(), ""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("err = %v, want ErrMissingToken", err)
	}
}

func TestValidateMalformedTokenNeverReachesStore(t *testing.T) {
	f := newValidatorFixture(t, testNow.Add(time.Hour))

	for _, token := range []string{"!!not-base64!!", "bm8tY29sb24=", "OnNlY3JldA=="} {
		if _, err := f.v.Validate(context.Background(), token); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("token %q: err = %v, want ErrMalformedToken", token, err)
		}
	}
	if f.users.calls != 0 || f.sessions.calls != 0 {
		t.Errorf("store calls = %d users, %d sessions; want 0", f.users.calls, f.sessions.calls)
	}
}

func TestValidateUnknownUser(t *testing.T) {
	f := newValidatorFixture(t, testNow.Add(time.Hour))
	token, _ := LegacyCodec{}.Encode("ghost", "secret")

	if _, err := f.v.Validate(context.Background(), token); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
	if f.sessions.calls != 0 {
		t.Errorf("session calls = %d, want 0", f.sessions.calls)
	}
}

func TestValidateInactiveUser(t *testing.T) {
	f := newValidatorFixture(t, testNow.Add(time.Hour))
	f.users.users["user-1"].IsActive = false

	if _, err := f.v.Validate(context.Background(), f.token); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestValidateNoMatchingSession(t *testing.T) {
	f := newValidatorFixture(t, testNow.Add(time.Hour))
	other, _ := LegacyCodec{}.Encode("user-1", "different")

	if _, err := f.v.Validate(context.Background(), other); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("err = %v, want ErrSessionInvalid", err)
	}
}

func TestValidateDeactivatedSession(t *testing.T) {
	f := newValidatorFixture(t, testNow.Add(time.Hour))
	f.sessions.sessions[f.token].IsActive = false

	if _, err := f.v.Validate(context.Background(), f.token); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("err = %v, want ErrSessionInvalid", err)
	}
}

func TestValidateExpiredSessionIsDeactivated(t *testing.T) {
	f := newValidatorFixture(t, testNow.Add(-time.Second))

	if _, err := f.v.Validate(context.Background(), f.token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if f.sessions.sessions[f.token].IsActive {
		t.Error("expected expired session to be deactivated")
	}

	// Once deactivated the session is no longer found at all.
	if _, err := f.v.Validate(context.Background(), f.token); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("second validate err = %v, want ErrSessionInvalid", err)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	f := newValidatorFixture(t, testNow)

	if _, err := f.v.Validate(context.Background(), f.token); err != nil {
		t.Errorf("session expiring exactly now should still validate, got %v", err)
	}
}

func TestValidateExpiredDeactivateFailureStillExpired(t *testing.T) {
	f := newValidatorFixture(t, testNow.Add(-time.Hour))
	f.sessions.deactivateErr = errors.New("disk full")

	if _, err := f.v.Validate(context.Background(), f.token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
}

func TestValidateStoreFailure(t *testing.T) {
	f := newValidatorFixture(t, testNow.Add(time.Hour))
	boom := errors.New("connection refused")
	f.users.err = boom

	_, err := f.v.Validate(context.Background(), f.token)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped cause", err)
	}
}

func TestIssuerIssueThenValidate(t *testing.T) {
	codec, err := NewSignedCodec(testKey)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	users := &fakeUsers{users: map[string]*model.User{"user-7": {ID: "user-7", IsActive: true}}}
	sessions := &fakeSessions{}

	issuer := NewIssuer(codec, sessions, time.Hour)
	issued, err := issuer.Issue(context.Background(), "user-7")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.Session.UserID != "user-7" {
		t.Errorf("session user = %q, want %q", issued.Session.UserID, "user-7")
	}

	v := NewValidator(codec, users, sessions, slog.New(slog.NewTextHandler(io.Discard, nil)))
	id, err := v.Validate(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id.User.ID != "user-7" {
		t.Errorf("user id = %q, want %q", id.User.ID, "user-7")
	}
}
