package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/webinarhub/internal/model"
	"github.com/dukerupert/webinarhub/internal/store"
)

// CredentialStore is the user table access needed for sign-up and login.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, email, name string, passwordHash *string) (*model.User, error)
}

// dummyHash is compared against when the email is unknown so both paths
// cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("webinarhub-dummy-password"), bcrypt.DefaultCost)

// MaxPasswordBytes is bcrypt's input limit. It counts bytes, not characters.
const MaxPasswordBytes = 72

func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

type Credentials struct {
	users CredentialStore
}

func NewCredentials(users CredentialStore) *Credentials {
	return &Credentials{users: users}
}

// Signup creates an active user with a bcrypt password hash.
func (c *Credentials) Signup(ctx context.Context, email, password, name string) (*model.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := c.users.Create(ctx, normalizeEmail(email), name, &hash)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login returns the active user whose password matches.
func (c *Credentials) Login(ctx context.Context, email, password string) (*model.User, error) {
	u, err := c.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// ResolveExternal finds or creates the user behind a verified external
// identity. Created users have no password.
func (c *Credentials) ResolveExternal(ctx context.Context, email, name string) (*model.User, error) {
	email = normalizeEmail(email)
	u, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u, err = c.users.Create(ctx, email, name, nil)
		if errors.Is(err, store.ErrDuplicate) {
			u, err = c.users.GetByEmail(ctx, email)
		}
		if err != nil {
			return nil, err
		}
	}
	if u == nil || !u.IsActive {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
