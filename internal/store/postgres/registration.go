package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/webinarhub/internal/model"
)

type RegistrationStore struct {
	db DB
}

func NewRegistrationStore(db DB) *RegistrationStore {
	return &RegistrationStore{db: db}
}

const registrationCols = `id, user_id, webinar_id, status, registered_at`

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var r model.Registration
	err := row.Scan(&r.ID, &r.UserID, &r.WebinarID, &r.Status, &r.RegisteredAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RegistrationStore) Get(ctx context.Context, userID, webinarID string) (*model.Registration, error) {
	r, err := scanRegistration(s.db.QueryRow(ctx,
		`SELECT `+registrationCols+` FROM registrations WHERE user_id = $1 AND webinar_id = $2`,
		userID, webinarID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return r, nil
}

func (s *RegistrationStore) Insert(ctx context.Context, r model.Registration) (*model.Registration, error) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO registrations (id, user_id, webinar_id, status, registered_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.UserID, r.WebinarID, string(r.Status), r.RegisteredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", translate(err))
	}
	return &r, nil
}

func (s *RegistrationStore) Delete(ctx context.Context, userID, webinarID string) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM registrations WHERE user_id = $1 AND webinar_id = $2`,
		userID, webinarID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete registration: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *RegistrationStore) CountByWebinar(ctx context.Context, webinarID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE webinar_id = $1`, webinarID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (s *RegistrationStore) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+registrationCols+` FROM registrations WHERE user_id = $1 ORDER BY registered_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *r)
	}
	return regs, rows.Err()
}
