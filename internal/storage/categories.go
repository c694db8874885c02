package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"finman/internal/core"
)

const categoryColumns = `id, user_id, name, type, parent_id, allowed_nesting_depth`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c          core.Category
		id, userID string
		parentID   sql.NullString
		depth      sql.NullInt64
	)
	err := row.Scan(&id, &userID, &c.Name, &c.Type, &parentID, &depth)
	if err != nil {
		return core.Category{}, err
	}
	if c.ID, err = scanUUID(id); err != nil {
		return core.Category{}, err
	}
	if c.UserID, err = scanUUID(userID); err != nil {
		return core.Category{}, err
	}
	if c.ParentID, err = scanNullUUID(parentID); err != nil {
		return core.Category{}, err
	}
	c.AllowedNestingDepth = scanNullInt(depth)
	return c, nil
}

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, type, parent_id, allowed_nesting_depth)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.UserID.String(), c.Name, string(c.Type),
		bindUUIDPtr(c.ParentID), bindIntPtr(c.AllowedNestingDepth))
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (core.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id.String())
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// GetCategoryByName finds a user's category by case-insensitive name match.
// Returns core.ErrNotFound when absent.
func (q *Queries) GetCategoryByName(ctx context.Context, userID uuid.UUID, name string) (core.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND LOWER(name) = LOWER(?)`,
		userID.String(), name)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %q: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category by name: %w", err)
	}
	return c, nil
}

// ListCategories returns all of a user's categories as flat arena rows.
func (q *Queries) ListCategories(ctx context.Context, userID uuid.UUID) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// DeleteCategory removes a category; the schema cascades the delete to its
// descendants. Callers must have run the deletion guard first.
func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// CategoryInUse reports whether any expense, income, or budget references
// the category.
func (q *Queries) CategoryInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM expenses WHERE category_id = ?)
			OR EXISTS (SELECT 1 FROM incomes WHERE category_id = ?)
			OR EXISTS (SELECT 1 FROM budgets WHERE category_id = ?)`,
		id.String(), id.String(), id.String()).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("check category usage: %w", err)
	}
	return used, nil
}
