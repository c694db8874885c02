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

const incomeColumns = `id, user_id, category_id, account_id, name, description, amount, income_date`

func scanIncome(row interface{ Scan(...any) error }) (core.Income, error) {
	var (
		in                                 core.Income
		id, userID, categoryID, accountID  string
		amount, date                       string
	)
	err := row.Scan(&id, &userID, &categoryID, &accountID, &in.Name, &in.Description, &amount, &date)
	if err != nil {
		return core.Income{}, err
	}
	if in.ID, err = scanUUID(id); err != nil {
		return core.Income{}, err
	}
	if in.UserID, err = scanUUID(userID); err != nil {
		return core.Income{}, err
	}
	if in.CategoryID, err = scanUUID(categoryID); err != nil {
		return core.Income{}, err
	}
	if in.AccountID, err = scanUUID(accountID); err != nil {
		return core.Income{}, err
	}
	if in.Amount, err = scanDecimal(amount); err != nil {
		return core.Income{}, err
	}
	if in.Date, err = scanDate(date); err != nil {
		return core.Income{}, err
	}
	return in, nil
}

func (q *Queries) CreateIncome(ctx context.Context, in core.Income) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO incomes (id, user_id, category_id, account_id, name, description, amount, income_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID.String(), in.UserID.String(), in.CategoryID.String(), in.AccountID.String(),
		in.Name, in.Description, in.Amount.String(), in.Date.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("insert income: %w", err)
	}
	return nil
}

func (q *Queries) GetIncome(ctx context.Context, id uuid.UUID) (core.Income, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE id = ?`, id.String())
	in, err := scanIncome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, fmt.Errorf("income %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get income: %w", err)
	}
	return in, nil
}

func (q *Queries) UpdateIncome(ctx context.Context, in core.Income) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE incomes
		SET category_id = ?, account_id = ?, name = ?, description = ?,
			amount = ?, income_date = ?
		WHERE id = ?`,
		in.CategoryID.String(), in.AccountID.String(), in.Name, in.Description,
		in.Amount.String(), in.Date.Format(dateLayout), in.ID.String())
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	return nil
}

func (q *Queries) DeleteIncome(ctx context.Context, id uuid.UUID) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return nil
}

func (q *Queries) listIncomes(ctx context.Context, query string, args ...any) ([]core.Income, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query incomes: %w", err)
	}
	defer rows.Close()

	var incomes []core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

func (q *Queries) ListIncomesByAccount(ctx context.Context, accountID uuid.UUID) ([]core.Income, error) {
	return q.listIncomes(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE account_id = ? ORDER BY income_date DESC`,
		accountID.String())
}

// ListIncomes returns a user's incomes, optionally restricted to a date
// range, newest first.
func (q *Queries) ListIncomes(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]core.Income, error) {
	query := `SELECT ` + incomeColumns + ` FROM incomes WHERE user_id = ?`
	args := []any{userID.String()}
	if from != nil {
		query += ` AND income_date >= ?`
		args = append(args, from.Format(dateLayout))
	}
	if to != nil {
		query += ` AND income_date <= ?`
		args = append(args, to.Format(dateLayout))
	}
	query += ` ORDER BY income_date DESC`
	return q.listIncomes(ctx, query, args...)
}
