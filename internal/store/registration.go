package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/webinarhub/internal/model"
)

type RegistrationStore struct {
	db *sql.DB
}

func NewRegistrationStore(db *sql.DB) *RegistrationStore {
	return &RegistrationStore{db: db}
}

func scanRegistration(scanner interface{ Scan(...any) error }) (*model.Registration, error) {
	var r model.Registration
	err := scanner.Scan(&r.ID, &r.UserID, &r.WebinarID, &r.Status, &r.RegisteredAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const registrationCols = `id, user_id, webinar_id, status, registered_at`

func (s *RegistrationStore) Get(ctx context.Context, userID, webinarID string) (*model.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationCols+` FROM registrations WHERE user_id = ? AND webinar_id = ?`,
		userID, webinarID,
	)
	r, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return r, nil
}

// Insert writes r as given. A second row for the same user and webinar fails
// with ErrDuplicate.
func (s *RegistrationStore) Insert(ctx context.Context, r model.Registration) (*model.Registration, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registrations (id, user_id, webinar_id, status, registered_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.WebinarID, r.Status, r.RegisteredAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", translate(err))
	}
	return &r, nil
}

// Delete removes the row for the pair and reports how many rows went away.
func (s *RegistrationStore) Delete(ctx context.Context, userID, webinarID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM registrations WHERE user_id = ? AND webinar_id = ?`,
		userID, webinarID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete registration: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

func (s *RegistrationStore) CountByWebinar(ctx context.Context, webinarID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE webinar_id = ?`, webinarID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (s *RegistrationStore) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+registrationCols+` FROM registrations WHERE user_id = ? ORDER BY registered_at DESC`,
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
