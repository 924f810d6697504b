package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/webinarhub/internal/model"
)

type SessionStore struct {
	db DB
}

func NewSessionStore(db DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionCols = `id, user_id, token, is_active, expires_at, created_at`

func scanSession(row pgx.Row) (*model.Session, error) {
	var sess model.Session
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Token, &sess.IsActive, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) Create(ctx context.Context, userID, token string, expiresAt time.Time) (*model.Session, error) {
	sess := &model.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		IsActive:  true,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id, token, is_active, expires_at, created_at)
		 VALUES ($1, $2, $3, TRUE, $4, $5)`,
		sess.ID, sess.UserID, sess.Token, sess.ExpiresAt, sess.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", translate(err))
	}
	return sess, nil
}

func (s *SessionStore) GetActiveByToken(ctx context.Context, token, userID string) (*model.Session, error) {
	sess, err := scanSession(s.db.QueryRow(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE token = $1 AND user_id = $2 AND is_active`,
		token, userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Deactivate(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `UPDATE sessions SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE is_active AND expires_at < $1`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
