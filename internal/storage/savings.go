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

const savingColumns = `id, user_id, name, category, amount, target, saving_date, created_at`

func scanSaving(row interface{ Scan(...any) error }) (core.Saving, error) {
	var (
		s              core.Saving
		id, userID     string
		amount, target string
		savingDate     sql.NullString
		createdAt      string
	)
	err := row.Scan(&id, &userID, &s.Name, &s.Category, &amount, &target, &savingDate, &createdAt)
	if err != nil {
		return core.Saving{}, err
	}
	if s.ID, err = scanUUID(id); err != nil {
		return core.Saving{}, err
	}
	if s.UserID, err = scanUUID(userID); err != nil {
		return core.Saving{}, err
	}
	if s.Amount, err = scanDecimal(amount); err != nil {
		return core.Saving{}, err
	}
	if s.Target, err = scanDecimal(target); err != nil {
		return core.Saving{}, err
	}
	if s.Date, err = scanNullDate(savingDate); err != nil {
		return core.Saving{}, err
	}
	if s.CreatedAt, err = time.Parse(time.DateTime, createdAt); err != nil {
		return core.Saving{}, fmt.Errorf("corrupt created_at column %q: %w", createdAt, err)
	}
	return s, nil
}

func (q *Queries) CreateSaving(ctx context.Context, s core.Saving) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO savings (id, user_id, name, category, amount, target, saving_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.UserID.String(), s.Name, s.Category,
		s.Amount.String(), s.Target.String(), bindDatePtr(s.Date))
	if err != nil {
		return fmt.Errorf("insert saving: %w", err)
	}
	return nil
}

func (q *Queries) GetSaving(ctx context.Context, id uuid.UUID) (core.Saving, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+savingColumns+` FROM savings WHERE id = ?`, id.String())
	s, err := scanSaving(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Saving{}, fmt.Errorf("saving %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Saving{}, fmt.Errorf("get saving: %w", err)
	}
	return s, nil
}

// ListSavings returns a user's savings, newest first. createdBefore
// restricts the listing to savings recorded up to that instant.
func (q *Queries) ListSavings(ctx context.Context, userID uuid.UUID, createdBefore *time.Time) ([]core.Saving, error) {
	query := `SELECT ` + savingColumns + ` FROM savings WHERE user_id = ?`
	args := []any{userID.String()}
	if createdBefore != nil {
		query += ` AND created_at < ?`
		args = append(args, createdBefore.UTC().Format(time.DateTime))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query savings: %w", err)
	}
	defer rows.Close()

	var savings []core.Saving
	for rows.Next() {
		s, err := scanSaving(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saving: %w", err)
		}
		savings = append(savings, s)
	}
	return savings, rows.Err()
}

func (q *Queries) UpdateSaving(ctx context.Context, s core.Saving) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE savings
		SET name = ?, category = ?, amount = ?, target = ?, saving_date = ?
		WHERE id = ?`,
		s.Name, s.Category, s.Amount.String(), s.Target.String(), bindDatePtr(s.Date),
		s.ID.String())
	if err != nil {
		return fmt.Errorf("update saving: %w", err)
	}
	return nil
}

func (q *Queries) DeleteSaving(ctx context.Context, id uuid.UUID) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM savings WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete saving: %w", err)
	}
	return nil
}

// SavingHasContributions reports whether any expense is linked to the saving.
func (q *Queries) SavingHasContributions(ctx context.Context, id uuid.UUID) (bool, error) {
	var has bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM expenses WHERE saving_id = ?)`, id.String()).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("check saving contributions: %w", err)
	}
	return has, nil
}
