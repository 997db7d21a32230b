package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/google/uuid"
)

const categoryColumns = `id, name, description, icon, created_at, updated_at`

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

func (db *DB) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c, err := scanCategory(db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("category")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (db *DB) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	c, err := scanCategory(db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("category")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}
	return c, nil
}

func (db *DB) CreateCategory(ctx context.Context, c *models.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := db.ExecContext(ctx,
		`INSERT INTO categories (id, name, description, icon, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.Icon, now, now,
	)
	if isUniqueViolation(err) {
		return domain.Conflict(fmt.Sprintf("category %q already exists", c.Name))
	}
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (db *DB) UpdateCategory(ctx context.Context, c *models.Category) error {
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, icon = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Description, c.Icon, now, c.ID,
	)
	if isUniqueViolation(err) {
		return domain.Conflict(fmt.Sprintf("category %q already exists", c.Name))
	}
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if err := expectAffected(res, "category"); err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

func (db *DB) DeleteCategory(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return expectAffected(res, "category")
}

func (db *DB) DeleteCategoryWithTours(ctx context.Context, id string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM tours WHERE category_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tours by category in tx: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete category in tx: %w", err)
	}
	if err := expectAffected(res, "category"); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit category delete: %w", err)
	}
	return int(removed), nil
}
