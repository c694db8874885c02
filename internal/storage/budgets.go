package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finman/internal/core"
)

const budgetColumns = `id, user_id, category_id, amount, month`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b                      core.Budget
		id, userID, categoryID string
		amount, month          string
	)
	err := row.Scan(&id, &userID, &categoryID, &amount, &month)
	if err != nil {
		return core.Budget{}, err
	}
	if b.ID, err = scanUUID(id); err != nil {
		return core.Budget{}, err
	}
	if b.UserID, err = scanUUID(userID); err != nil {
		return core.Budget{}, err
	}
	if b.CategoryID, err = scanUUID(categoryID); err != nil {
		return core.Budget{}, err
	}
	if b.Amount, err = scanDecimal(amount); err != nil {
		return core.Budget{}, err
	}
	if b.Month, err = scanDate(month); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, category_id, amount, month)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID.String(), b.UserID.String(), b.CategoryID.String(),
		b.Amount.String(), b.Month.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (q *Queries) GetBudget(ctx context.Context, id uuid.UUID) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id.String())
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// BudgetExists reports whether the user already has a budget for the
// category in the given month.
func (q *Queries) BudgetExists(ctx context.Context, userID, categoryID uuid.UUID, month time.Time) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM budgets WHERE user_id = ? AND category_id = ? AND month = ?)`,
		userID.String(), categoryID.String(), month.Format(dateLayout)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check budget existence: %w", err)
	}
	return exists, nil
}

// ListBudgets returns a user's budgets; month, when non-nil, restricts the
// listing to that month.
func (q *Queries) ListBudgets(ctx context.Context, userID uuid.UUID, month *time.Time) ([]core.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = ?`
	args := []any{userID.String()}
	if month != nil {
		query += ` AND month = ?`
		args = append(args, month.Format(dateLayout))
	}
	query += ` ORDER BY month DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (q *Queries) UpdateBudgetAmount(ctx context.Context, id uuid.UUID, amount string) error {
	if _, err := q.db.ExecContext(ctx,
		`UPDATE budgets SET amount = ? WHERE id = ?`, amount, id.String()); err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return nil
}

func (q *Queries) DeleteBudget(ctx context.Context, id uuid.UUID) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}
