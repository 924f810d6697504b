package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dukerupert/webinarhub/internal/model"
	"github.com/dukerupert/webinarhub/internal/store"
)

type fakeCredentialStore struct {
	byEmail map[string]*model.User
}

func (f *fakeCredentialStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeCredentialStore) Create(_ context.Context, email, name string, passwordHash *string) (*model.User, error) {
	if _, ok := f.byEmail[email]; ok {
		return nil, store.ErrDuplicate
	}
	u := &model.User{ID: "id-" + email, Email: email, Name: name, PasswordHash: passwordHash, IsActive: true}
	f.byEmail[email] = u
	return u, nil
}

func newCredentials() (*Credentials, *fakeCredentialStore) {
	fs := &fakeCredentialStore{byEmail: map[string]*model.User{}}
	return NewCredentials(fs), fs
}

func TestSignupAndLogin(t *testing.T) {
	c, _ := newCredentials()
	ctx := context.Background()

	u, err := c.Signup(ctx, " Alice@Example.com ", "correct horse", "Alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}

	got, err := c.Login(ctx, "ALICE@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("id = %q, want %q", got.ID, u.ID)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	c, _ := newCredentials()
	ctx := context.Background()

	if _, err := c.Signup(ctx, "alice@example.com", "pw-one-long", "Alice"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := c.Signup(ctx, "alice@example.com", "pw-two-long", "Alice"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestLoginFailures(t *testing.T) {
	c, fs := newCredentials()
	ctx := context.Background()

	if _, err := c.Signup(ctx, "alice@example.com", "right-password", "Alice"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	fs.byEmail["oauth@example.com"] = &model.User{ID: "o", Email: "oauth@example.com", IsActive: true}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "alice@example.com", "wrong-password"},
		{"unknown email", "nobody@example.com", "right-password"},
		{"no password set", "oauth@example.com", "anything"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Login(ctx, tt.email, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestLoginInactiveUser(t *testing.T) {
	c, fs := newCredentials()
	ctx := context.Background()

	if _, err := c.Signup(ctx, "alice@example.com", "right-password", "Alice"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	fs.byEmail["alice@example.com"].IsActive = false

	if _, err := c.Login(ctx, "alice@example.com", "right-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestResolveExternal(t *testing.T) {
	c, fs := newCredentials()
	ctx := context.Background()

	u, err := c.ResolveExternal(ctx, "Bob@Example.com", "Bob")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if u.PasswordHash != nil {
		t.Error("expected external user without password")
	}

	again, err := c.ResolveExternal(ctx, "bob@example.com", "Bob")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if again.ID != u.ID {
		t.Errorf("id = %q, want %q", again.ID, u.ID)
	}

	fs.byEmail["bob@example.com"].IsActive = false
	if _, err := c.ResolveExternal(ctx, "bob@example.com", "Bob"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestSignupRejectsPasswordOverBcryptLimit(t *testing.T) {
	c, fs := newCredentials()

	// 40 characters, 80 bytes.
	_, err := c.Signup(context.Background(), "a@b.io", strings.Repeat("é", 40), "A")
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("err = %v, want ErrPasswordTooLong", err)
	}
	if len(fs.byEmail) != 0 {
		t.Error("user created despite rejected password")
	}

	if _, err := c.Signup(context.Background(), "b@b.io", strings.Repeat("é", 36), "B"); err != nil {
		t.Errorf("72-byte password: %v", err)
	}
}
