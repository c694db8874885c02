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

const expenseColumns = `id, user_id, category_id, account_id, debt_id, saving_id,
	name, description, amount, expense_date`

func scanExpense(row interface{ Scan(...any) error }) (core.Expense, error) {
	var (
		e                           core.Expense
		id, userID, categoryID      string
		accountID, debtID, savingID sql.NullString
		amount, date                string
	)
	err := row.Scan(&id, &userID, &categoryID, &accountID, &debtID, &savingID,
		&e.Name, &e.Description, &amount, &date)
	if err != nil {
		return core.Expense{}, err
	}
	if e.ID, err = scanUUID(id); err != nil {
		return core.Expense{}, err
	}
	if e.UserID, err = scanUUID(userID); err != nil {
		return core.Expense{}, err
	}
	if e.CategoryID, err = scanUUID(categoryID); err != nil {
		return core.Expense{}, err
	}
	if e.AccountID, err = scanNullUUID(accountID); err != nil {
		return core.Expense{}, err
	}
	if e.DebtID, err = scanNullUUID(debtID); err != nil {
		return core.Expense{}, err
	}
	if e.SavingID, err = scanNullUUID(savingID); err != nil {
		return core.Expense{}, err
	}
	if e.Amount, err = scanDecimal(amount); err != nil {
		return core.Expense{}, err
	}
	if e.Date, err = scanDate(date); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (q *Queries) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, category_id, account_id, debt_id, saving_id,
			name, description, amount, expense_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.UserID.String(), e.CategoryID.String(),
		bindUUIDPtr(e.AccountID), bindUUIDPtr(e.DebtID), bindUUIDPtr(e.SavingID),
		e.Name, e.Description, e.Amount.String(), e.Date.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (q *Queries) GetExpense(ctx context.Context, id uuid.UUID) (core.Expense, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id.String())
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (q *Queries) UpdateExpense(ctx context.Context, e core.Expense) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE expenses
		SET category_id = ?, account_id = ?, name = ?, description = ?,
			amount = ?, expense_date = ?
		WHERE id = ?`,
		e.CategoryID.String(), bindUUIDPtr(e.AccountID), e.Name, e.Description,
		e.Amount.String(), e.Date.Format(dateLayout), e.ID.String())
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

func (q *Queries) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (q *Queries) listExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (q *Queries) ListExpensesByAccount(ctx context.Context, accountID uuid.UUID) ([]core.Expense, error) {
	return q.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE account_id = ? ORDER BY expense_date DESC`,
		accountID.String())
}

func (q *Queries) ListExpensesByDebt(ctx context.Context, debtID uuid.UUID) ([]core.Expense, error) {
	return q.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE debt_id = ? ORDER BY expense_date DESC`,
		debtID.String())
}

func (q *Queries) ListExpensesBySaving(ctx context.Context, savingID uuid.UUID) ([]core.Expense, error) {
	return q.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE saving_id = ? ORDER BY expense_date DESC`,
		savingID.String())
}

// ExpenseFilter narrows ListExpensesFiltered. Zero-valued fields are
// ignored; CategoryIDs is expected to already contain the whole subtree of
// the requested category.
type ExpenseFilter struct {
	FromDate    *time.Time
	ToDate      *time.Time
	CategoryIDs []uuid.UUID
	AccountID   *uuid.UUID
	Search      string
}

// ListExpensesFiltered returns a user's expenses matching every active
// filter, newest first. The query is assembled dynamically the same way the
// read side builds its date-ranged split queries.
func (q *Queries) ListExpensesFiltered(ctx context.Context, userID uuid.UUID, f ExpenseFilter) ([]core.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE user_id = ?`
	args := []any{userID.String()}

	if f.FromDate != nil {
		query += ` AND expense_date >= ?`
		args = append(args, f.FromDate.Format(dateLayout))
	}
	if f.ToDate != nil {
		query += ` AND expense_date <= ?`
		args = append(args, f.ToDate.Format(dateLayout))
	}
	if len(f.CategoryIDs) > 0 {
		query += ` AND category_id IN (?` + repeatPlaceholder(len(f.CategoryIDs)-1) + `)`
		for _, id := range f.CategoryIDs {
			args = append(args, id.String())
		}
	}
	if f.AccountID != nil {
		query += ` AND account_id = ?`
		args = append(args, f.AccountID.String())
	}
	if f.Search != "" {
		query += ` AND (name LIKE ? OR description LIKE ?)`
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY expense_date DESC`

	return q.listExpenses(ctx, query, args...)
}

func repeatPlaceholder(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}
