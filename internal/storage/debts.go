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

const debtColumns = `id, user_id, name, description, amount, initial_amount, interest,
	loan_type, total_emis, emis_pending, start_date, end_date, due_date, created_at`

func scanDebt(row interface{ Scan(...any) error }) (core.Debt, error) {
	var (
		d                                core.Debt
		id, userID                       string
		amount, initialAmount, interest  string
		totalEmis, emisPending           sql.NullInt64
		startDate, endDate, dueDate      sql.NullString
		createdAt                        string
	)
	err := row.Scan(&id, &userID, &d.Name, &d.Description, &amount, &initialAmount, &interest,
		&d.LoanType, &totalEmis, &emisPending, &startDate, &endDate, &dueDate, &createdAt)
	if err != nil {
		return core.Debt{}, err
	}
	if d.ID, err = scanUUID(id); err != nil {
		return core.Debt{}, err
	}
	if d.UserID, err = scanUUID(userID); err != nil {
		return core.Debt{}, err
	}
	if d.Amount, err = scanDecimal(amount); err != nil {
		return core.Debt{}, err
	}
	if d.InitialAmount, err = scanDecimal(initialAmount); err != nil {
		return core.Debt{}, err
	}
	if d.Interest, err = scanDecimal(interest); err != nil {
		return core.Debt{}, err
	}
	d.TotalEmis = scanNullInt(totalEmis)
	d.EmisPending = scanNullInt(emisPending)
	if d.StartDate, err = scanNullDate(startDate); err != nil {
		return core.Debt{}, err
	}
	if d.EndDate, err = scanNullDate(endDate); err != nil {
		return core.Debt{}, err
	}
	if d.DueDate, err = scanNullDate(dueDate); err != nil {
		return core.Debt{}, err
	}
	if d.CreatedAt, err = time.Parse(time.DateTime, createdAt); err != nil {
		return core.Debt{}, fmt.Errorf("corrupt created_at column %q: %w", createdAt, err)
	}
	return d, nil
}

func (q *Queries) CreateDebt(ctx context.Context, d core.Debt) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO debts (id, user_id, name, description, amount, initial_amount, interest,
			loan_type, total_emis, emis_pending, start_date, end_date, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.UserID.String(), d.Name, d.Description,
		d.Amount.String(), d.InitialAmount.String(), d.Interest.String(),
		d.LoanType, bindIntPtr(d.TotalEmis), bindIntPtr(d.EmisPending),
		bindDatePtr(d.StartDate), bindDatePtr(d.EndDate), bindDatePtr(d.DueDate))
	if err != nil {
		return fmt.Errorf("insert debt: %w", err)
	}
	return nil
}

func (q *Queries) GetDebt(ctx context.Context, id uuid.UUID) (core.Debt, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE id = ?`, id.String())
	d, err := scanDebt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Debt{}, fmt.Errorf("debt %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Debt{}, fmt.Errorf("get debt: %w", err)
	}
	return d, nil
}

// ListDebts returns a user's debts, newest first. createdBefore restricts
// the listing to debts recorded up to that instant.
func (q *Queries) ListDebts(ctx context.Context, userID uuid.UUID, createdBefore *time.Time) ([]core.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts WHERE user_id = ?`
	args := []any{userID.String()}
	if createdBefore != nil {
		query += ` AND created_at < ?`
		args = append(args, createdBefore.UTC().Format(time.DateTime))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query debts: %w", err)
	}
	defer rows.Close()

	var debts []core.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

func (q *Queries) UpdateDebt(ctx context.Context, d core.Debt) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE debts
		SET name = ?, description = ?, amount = ?, initial_amount = ?, interest = ?,
			loan_type = ?, total_emis = ?, emis_pending = ?,
			start_date = ?, end_date = ?, due_date = ?
		WHERE id = ?`,
		d.Name, d.Description, d.Amount.String(), d.InitialAmount.String(), d.Interest.String(),
		d.LoanType, bindIntPtr(d.TotalEmis), bindIntPtr(d.EmisPending),
		bindDatePtr(d.StartDate), bindDatePtr(d.EndDate), bindDatePtr(d.DueDate),
		d.ID.String())
	if err != nil {
		return fmt.Errorf("update debt: %w", err)
	}
	return nil
}

func (q *Queries) DeleteDebt(ctx context.Context, id uuid.UUID) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM debts WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return nil
}

// DebtHasPayments reports whether any expense is linked to the debt.
func (q *Queries) DebtHasPayments(ctx context.Context, id uuid.UUID) (bool, error) {
	var has bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM expenses WHERE debt_id = ?)`, id.String()).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("check debt payments: %w", err)
	}
	return has, nil
}
