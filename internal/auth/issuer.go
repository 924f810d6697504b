package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/webinarhub/internal/model"
)

// SessionCreator persists a freshly issued session.
type SessionCreator interface {
	Create(ctx context.Context, userID, token string, expiresAt time.Time) (*model.Session, error)
}

// Issuer mints tokens and stores the matching session rows.
type Issuer struct {
	codec    Codec
	sessions SessionCreator
	ttl      time.Duration
	now      func() time.Time
}

func NewIssuer(codec Codec, sessions SessionCreator, ttl time.Duration) *Issuer {
	return &Issuer{codec: codec, sessions: sessions, ttl: ttl, now: time.Now}
}

// Issued is a new session together with the token that unlocks it.
type Issued struct {
	Token   string
	Session *model.Session
}

func (i *Issuer) Issue(ctx context.Context, userID string) (*Issued, error) {
	secret, err := NewSecret()
	if err != nil {
		return nil, err
	}
	token, err := i.codec.Encode(userID, secret)
	if err != nil {
		return nil, fmt.Errorf("encode token: %w", err)
	}
	sess, err := i.sessions.Create(ctx, userID, token, i.now().Add(i.ttl))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Issued{Token: token, Session: sess}, nil
}
