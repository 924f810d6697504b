package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/webinarhub/internal/metrics"
	"github.com/dukerupert/webinarhub/internal/model"
)

// UserStore is the read side of the user table the validator needs.
type UserStore interface {
	GetActiveByID(ctx context.Context, id string) (*model.User, error)
}

// SessionStore is the session table access the validator needs.
type SessionStore interface {
	GetActiveByToken(ctx context.Context, token, userID string) (*model.Session, error)
	Deactivate(ctx context.Context, id string) error
}

// Identity is a validated caller.
type Identity struct {
	User    *model.User
	Session *model.Session
}

type Validator struct {
	codec    Codec
	users    UserStore
	sessions SessionStore
	logger   *slog.Logger
	now      func() time.Time
}

type ValidatorOption func(*Validator)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

func NewValidator(codec Codec, users UserStore, sessions SessionStore, logger *slog.Logger, opts ...ValidatorOption) *Validator {
	v := &Validator{
		codec:    codec,
		users:    users,
		sessions: sessions,
		logger:   logger.With("component", "session_validator"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate resolves token to an active user and an active, unexpired
// session. Every call re-reads both rows.
//
// An expired session is deactivated before ErrSessionExpired is returned.
// Failure to deactivate is logged and does not change the result.
func (v *Validator) Validate(ctx context.Context, token string) (*Identity, error) {
	id, err := v.validate(ctx, token)
	metrics.RecordValidation(outcome(err))
	return id, err
}

func (v *Validator) validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	userID, _, err := v.codec.Decode(token)
	if err != nil {
		if !errors.Is(err, ErrMalformedToken) {
			err = fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		return nil, err
	}

	user, err := v.users.GetActiveByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	sess, err := v.sessions.GetActiveByToken(ctx, token, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if sess == nil {
		return nil, ErrSessionInvalid
	}

	if sess.Expired(v.now()) {
		if err := v.sessions.Deactivate(ctx, sess.ID); err != nil {
			v.logger.Error("deactivate expired session", "session_id", sess.ID, "error", err)
		}
		return nil, ErrSessionExpired
	}

	return &Identity{User: user, Session: sess}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingToken):
		return "missing"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrSessionInvalid):
		return "invalid"
	case errors.Is(err, ErrSessionExpired):
		return "expired"
	default:
		return "error"
	}
}
