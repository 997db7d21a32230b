package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/google/uuid"
)

const tourColumns = `t.id, t.title, t.description, t.price, t.duration, t.location, t.category_id,
        COALESCE(c.name, ''), t.images, t.max_group_size, t.difficulty, t.itinerary, t.included,
        t.excluded, t.rating, t.review_count, t.featured, t.available, t.created_at, t.updated_at`

const tourFrom = `FROM tours t LEFT JOIN categories c ON c.id = t.category_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTour(row rowScanner) (*models.Tour, error) {
	var (
		t                                     models.Tour
		images, itinerary, included, excluded string
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Price,
		&t.Duration,
		&t.Location,
		&t.CategoryID,
		&t.CategoryName,
		&images,
		&t.MaxGroupSize,
		&t.Difficulty,
		&itinerary,
		&included,
		&excluded,
		&t.Rating,
		&t.ReviewCount,
		&t.Featured,
		&t.Available,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		raw  string
		dest interface{}
	}{
		{images, &t.Images},
		{itinerary, &t.Itinerary},
		{included, &t.Included},
		{excluded, &t.Excluded},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return nil, fmt.Errorf("failed to decode tour %s: %w", t.ID, err)
		}
	}
	return &t, nil
}

func encodeList(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}

// tourLists encodes the JSON-backed list columns in table order.
func tourLists(t *models.Tour) (images, itinerary, included, excluded string, err error) {
	if images, err = encodeList(t.Images); err != nil {
		return
	}
	if itinerary, err = encodeList(t.Itinerary); err != nil {
		return
	}
	if included, err = encodeList(t.Included); err != nil {
		return
	}
	excluded, err = encodeList(t.Excluded)
	return
}

func (db *DB) ListTours(ctx context.Context, filter models.TourFilter) ([]*models.Tour, error) {
	var (
		where []string
		args  []interface{}
	)

	if filter.Category != "" {
		where = append(where, "t.category_id = ?")
		args = append(args, filter.Category)
	}
	if filter.Location != "" {
		where = append(where, `ulower(t.location) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Location))
	}
	if filter.MinPrice != nil {
		where = append(where, "t.price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where = append(where, "t.price <= ?")
		args = append(args, *filter.MaxPrice)
	}
	if filter.Featured != nil {
		where = append(where, "t.featured = ?")
		args = append(args, *filter.Featured)
	}
	if keywords := filter.Keywords(); len(keywords) > 0 {
		var anyOf []string
		for _, kw := range keywords {
			anyOf = append(anyOf, `(ulower(t.title) LIKE ? ESCAPE '\' OR ulower(t.location) LIKE ? ESCAPE '\' OR ulower(t.description) LIKE ? ESCAPE '\')`)
			p := likePattern(kw)
			args = append(args, p, p, p)
		}
		where = append(where, "("+strings.Join(anyOf, " OR ")+")")
	}

	query := "SELECT " + tourColumns + " " + tourFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.created_at DESC, t.rowid DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	defer rows.Close()

	tours := []*models.Tour{}
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tour: %w", err)
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tours: %w", err)
	}
	return tours, nil
}

func (db *DB) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	query := "SELECT " + tourColumns + " " + tourFrom + " WHERE t.id = ?"
	t, err := scanTour(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("tour")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}
	return t, nil
}

func (db *DB) CreateTour(ctx context.Context, t *models.Tour) error {
	images, itinerary, included, excluded, err := tourLists(t)
	if err != nil {
		return fmt.Errorf("failed to encode tour: %w", err)
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := `INSERT INTO tours (
                id, title, description, price, duration, location, category_id, images,
                max_group_size, difficulty, itinerary, included, excluded, rating,
                review_count, featured, available, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.ExecContext(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.Price,
		t.Duration,
		t.Location,
		t.CategoryID,
		images,
		t.MaxGroupSize,
		t.Difficulty,
		itinerary,
		included,
		excluded,
		t.Rating,
		t.ReviewCount,
		t.Featured,
		t.Available,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create tour: %w", err)
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (db *DB) UpdateTour(ctx context.Context, t *models.Tour) error {
	images, itinerary, included, excluded, err := tourLists(t)
	if err != nil {
		return fmt.Errorf("failed to encode tour: %w", err)
	}
	now := time.Now().UTC()

	query := `UPDATE tours SET
                title = ?, description = ?, price = ?, duration = ?, location = ?, category_id = ?,
                images = ?, max_group_size = ?, difficulty = ?, itinerary = ?, included = ?,
                excluded = ?, rating = ?, review_count = ?, featured = ?, available = ?, updated_at = ?
            WHERE id = ?`
	res, err := db.ExecContext(ctx, query,
		t.Title,
		t.Description,
		t.Price,
		t.Duration,
		t.Location,
		t.CategoryID,
		images,
		t.MaxGroupSize,
		t.Difficulty,
		itinerary,
		included,
		excluded,
		t.Rating,
		t.ReviewCount,
		t.Featured,
		t.Available,
		now,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tour: %w", err)
	}
	if err := expectAffected(res, "tour"); err != nil {
		return err
	}
	t.UpdatedAt = now
	return nil
}

func (db *DB) DeleteTour(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tours WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tour: %w", err)
	}
	return expectAffected(res, "tour")
}

func (db *DB) CountTours(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tours`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tours: %w", err)
	}
	return count, nil
}

func (db *DB) CountToursByCategory(ctx context.Context, categoryID string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tours WHERE category_id = ?`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tours by category: %w", err)
	}
	return count, nil
}
