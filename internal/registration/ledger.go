// Package registration records which users are signed up for which
// webinars.
//
// Register rejects a second registration for the same pair while Unregister
// treats a missing row as already done. The store's unique constraint on
// (user, webinar) is authoritative; the lookup before insert only exists to
// return ErrAlreadyRegistered without a failed write.
package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/webinarhub/internal/metrics"
	"github.com/dukerupert/webinarhub/internal/model"
	"github.com/dukerupert/webinarhub/internal/store"
)

var (
	ErrInvalidArgs       = errors.New("userId and webinarId are required")
	ErrAlreadyRegistered = errors.New("already registered for this webinar")
	ErrUnknownWebinar    = errors.New("webinar not found")
	ErrStoreUnavailable  = errors.New("registration store unavailable")
)

type Store interface {
	Get(ctx context.Context, userID, webinarID string) (*model.Registration, error)
	Insert(ctx context.Context, r model.Registration) (*model.Registration, error)
	Delete(ctx context.Context, userID, webinarID string) (int64, error)
	CountByWebinar(ctx context.Context, webinarID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]model.Registration, error)
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(s Store) *Ledger {
	return &Ledger{store: s, now: time.Now}
}

func (l *Ledger) Register(ctx context.Context, userID, webinarID string) (*model.Registration, error) {
	reg, err := l.register(ctx, userID, webinarID)
	metrics.RecordRegistration("register", outcome(err))
	return reg, err
}

func (l *Ledger) register(ctx context.Context, userID, webinarID string) (*model.Registration, error) {
	if userID == "" || webinarID == "" {
		return nil, ErrInvalidArgs
	}

	existing, err := l.store.Get(ctx, userID, webinarID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if existing != nil {
		return nil, ErrAlreadyRegistered
	}

	reg, err := l.store.Insert(ctx, model.Registration{
		ID:           uuid.NewString(),
		UserID:       userID,
		WebinarID:    webinarID,
		Status:       model.RegistrationStatusRegistered,
		RegisteredAt: l.now().UTC(),
	})
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return nil, ErrAlreadyRegistered
	case errors.Is(err, store.ErrMissingReference):
		return nil, ErrUnknownWebinar
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return reg, nil
}

// Unregister removes the pair's registration. Removing a registration that
// does not exist succeeds.
func (l *Ledger) Unregister(ctx context.Context, userID, webinarID string) error {
	err := l.unregister(ctx, userID, webinarID)
	metrics.RecordRegistration("unregister", outcome(err))
	return err
}

func (l *Ledger) unregister(ctx context.Context, userID, webinarID string) error {
	if userID == "" || webinarID == "" {
		return ErrInvalidArgs
	}
	if _, err := l.store.Delete(ctx, userID, webinarID); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Status reports whether userID is registered for webinarID.
func (l *Ledger) Status(ctx context.Context, userID, webinarID string) (bool, error) {
	if userID == "" || webinarID == "" {
		return false, ErrInvalidArgs
	}
	reg, err := l.store.Get(ctx, userID, webinarID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return reg != nil, nil
}

func (l *Ledger) ListForUser(ctx context.Context, userID string) ([]model.Registration, error) {
	if userID == "" {
		return nil, ErrInvalidArgs
	}
	regs, err := l.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return regs, nil
}

func (l *Ledger) Count(ctx context.Context, webinarID string) (int, error) {
	n, err := l.store.CountByWebinar(ctx, webinarID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgs):
		return "invalid_args"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrUnknownWebinar):
		return "unknown_webinar"
	default:
		return "error"
	}
}
