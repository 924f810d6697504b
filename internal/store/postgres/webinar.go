package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/webinarhub/internal/model"
)

type WebinarStore struct {
	db DB
}

func NewWebinarStore(db DB) *WebinarStore {
	return &WebinarStore{db: db}
}

const webinarCols = `w.id, w.title, w.description, w.category_id, w.host, w.starts_at, w.duration_minutes, w.capacity, w.created_at`

func scanWebinar(row pgx.Row) (*model.Webinar, error) {
	var w model.Webinar
	err := row.Scan(
		&w.ID, &w.Title, &w.Description, &w.CategoryID, &w.Host,
		&w.StartsAt, &w.DurationMinutes, &w.Capacity, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *WebinarStore) GetByID(ctx context.Context, id string) (*model.Webinar, error) {
	w, err := scanWebinar(s.db.QueryRow(ctx, `SELECT `+webinarCols+` FROM webinars w WHERE w.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get webinar: %w", err)
	}
	return w, nil
}

func (s *WebinarStore) List(ctx context.Context, f model.WebinarFilter) ([]model.Webinar, error) {
	query := `SELECT ` + webinarCols + ` FROM webinars w LEFT JOIN categories c ON c.id = w.category_id`
	var where []string
	var args []any
	if f.CategorySlug != "" {
		args = append(args, f.CategorySlug)
		where = append(where, fmt.Sprintf("c.slug = $%d", len(args)))
	}
	if f.After != nil {
		args = append(args, f.After.UTC())
		where = append(where, fmt.Sprintf("w.starts_at >= $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY w.starts_at ASC, w.id ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
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
	db DB
}

func NewCategoryStore(db DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) List(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.Query(ctx, `SELECT id, slug, name FROM categories ORDER BY name`)
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
