package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finman/internal/core"
)

const accountColumns = `id, user_id, name, type, balance, bank_name,
	billing_cycle_start_day, bill_date_day, due_date_day`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var (
		a                        core.Account
		id, userID, balance      string
		cycleDay, billDay, dueDay sql.NullInt64
	)
	err := row.Scan(&id, &userID, &a.Name, &a.Type, &balance, &a.BankName, &cycleDay, &billDay, &dueDay)
	if err != nil {
		return core.Account{}, err
	}
	if a.ID, err = scanUUID(id); err != nil {
		return core.Account{}, err
	}
	if a.UserID, err = scanUUID(userID); err != nil {
		return core.Account{}, err
	}
	if a.Balance, err = scanDecimal(balance); err != nil {
		return core.Account{}, err
	}
	a.BillingCycleStartDay = scanNullInt(cycleDay)
	a.BillDateDay = scanNullInt(billDay)
	a.DueDateDay = scanNullInt(dueDay)
	return a, nil
}

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, type, balance, bank_name,
			billing_cycle_start_day, bill_date_day, due_date_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.UserID.String(), a.Name, string(a.Type), a.Balance.String(), a.BankName,
		bindIntPtr(a.BillingCycleStartDay), bindIntPtr(a.BillDateDay), bindIntPtr(a.DueDateDay))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id.String())
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context, userID uuid.UUID) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY name`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListAllAccounts returns every account regardless of owner. Used by the
// reconcile tool, never by user-facing operations.
func (q *Queries) ListAllAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY user_id, name`)
	if err != nil {
		return nil, fmt.Errorf("query all accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, type = ?, balance = ?, bank_name = ?,
			billing_cycle_start_day = ?, bill_date_day = ?, due_date_day = ?,
			updated_at = datetime('now')
		WHERE id = ?`,
		a.Name, string(a.Type), a.Balance.String(), a.BankName,
		bindIntPtr(a.BillingCycleStartDay), bindIntPtr(a.BillDateDay), bindIntPtr(a.DueDateDay),
		a.ID.String())
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// UpdateAccountBalance writes only the balance column. Callers must hold the
// row inside a transaction for the whole read-modify-write.
func (q *Queries) UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = datetime('now') WHERE id = ?`,
		balance.String(), id.String())
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	return nil
}

// AccountInUse reports whether any expense or income references the account.
func (q *Queries) AccountInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM expenses WHERE account_id = ?)
			OR EXISTS (SELECT 1 FROM incomes WHERE account_id = ?)`,
		id.String(), id.String()).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("check account usage: %w", err)
	}
	return used, nil
}

func (q *Queries) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
