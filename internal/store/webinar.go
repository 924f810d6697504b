package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/webinarhub/internal/model"
)

type WebinarStore struct {
	db *sql.DB
}

func NewWebinarStore(db *sql.DB) *WebinarStore {
	return &WebinarStore{db: db}
}

func scanWebinar(scanner interface{ Scan(...any) error }) (*model.Webinar, error) {
	var w model.Webinar
	var categoryID sql.NullString
	err := scanner.Scan(
		&w.ID, &w.Title, &w.Description, &categoryID, &w.Host,
		&w.StartsAt, &w.DurationMinutes, &w.Capacity, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		w.CategoryID = &categoryID.String
	}
	return &w, nil
}

const webinarCols = `w.id, w.title, w.description, w.category_id, w.host, w.starts_at, w.duration_minutes, w.capacity, w.created_at`

// Create inserts a webinar. Webinars are managed outside the registration
// flow; this exists for seeding and tests.
func (s *WebinarStore) Create(ctx context.Context, w model.Webinar) (*model.Webinar, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	var categoryID sql.NullString
	if w.CategoryID != nil {
		categoryID = sql.NullString{String: *w.CategoryID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO webinars (id, title, description, category_id, host, starts_at, duration_minutes, capacity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Title, w.Description, categoryID, w.Host,
		w.StartsAt.UTC(), w.DurationMinutes, w.Capacity, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert webinar: %w", translate(err))
	}
	return s.GetByID(ctx, w.ID)
}

func (s *WebinarStore) GetByID(ctx context.Context, id string) (*model.Webinar, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+webinarCols+` FROM webinars w WHERE w.id = ?`, id)
	w, err := scanWebinar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get webinar: %w", err)
	}
	return w, nil
}

// List returns webinars ordered by start time, narrowed by f.
func (s *WebinarStore) List(ctx context.Context, f model.WebinarFilter) ([]model.Webinar, error) {
	query := `SELECT ` + webinarCols + ` FROM webinars w LEFT JOIN categories c ON c.id = w.category_id`
	var where []string
	var args []any
	if f.CategorySlug != "" {
		where = append(where, "c.slug = ?")
		args = append(args, f.CategorySlug)
	}
	if f.After != nil {
		where = append(where, "w.starts_at >= ?")
		args = append(args, f.After.UTC())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY w.starts_at ASC, w.id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list webinars: %w", err)
	}
	defer rows.Close()

	var webinars []model.Webinar
	for rows.Next() {
		w, err := scanWebinar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webinar: %w", err)
		}
		webinars = append(webinars, *w)
	}
	return webinars, rows.Err()
}

type CategoryStore struct {
	db *sql.DB
}

func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) List(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, slug, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
