package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finman/internal/core"
	"finman/internal/events"
	"finman/internal/storage"
)

// LedgerService records expenses and incomes and keeps account balances in
// step with them via the sign conventions in core.
type LedgerService struct {
	repo      *storage.Repository
	publisher *events.Publisher
}

func NewLedgerService(repo *storage.Repository, publisher *events.Publisher) *LedgerService {
	return &LedgerService{
		repo:      repo,
		publisher: publisher,
	}
}

// ExpenseInput carries the user-editable fields of an expense. AccountID is
// optional; expenses without an account never move a balance.
type ExpenseInput struct {
	Name        string
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	CategoryID  uuid.UUID
	AccountID   *uuid.UUID
}

// IncomeInput carries the user-editable fields of an income. Incomes always
// land on an account.
type IncomeInput struct {
	Name        string
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	CategoryID  uuid.UUID
	AccountID   uuid.UUID
}

// CreateExpense records an expense and, when an account is attached, applies
// the signed balance delta in the same transaction.
func (s *LedgerService) CreateExpense(ctx context.Context, userID uuid.UUID, in ExpenseInput) (core.Expense, error) {
	if err := validateEntry(in.Name, in.Amount); err != nil {
		return core.Expense{}, err
	}

	e := core.Expense{
		ID:          uuid.New(),
		UserID:      userID,
		CategoryID:  in.CategoryID,
		AccountID:   in.AccountID,
		Name:        in.Name,
		Description: in.Description,
		Amount:      in.Amount,
		Date:        in.Date,
	}

	var evts []*events.BalanceEvent
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := ownedCategory(ctx, q, userID, in.CategoryID, core.CategoryExpense); err != nil {
			return err
		}
		var err error
		evts, err = applyBalanceMoves(ctx, q, userID, core.KindExpense,
			nil, decimal.Zero, in.AccountID, in.Amount, events.CauseExpense)
		if err != nil {
			return err
		}
		return q.CreateExpense(ctx, e)
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Recorded expense",
		"expense_id", e.ID, "user_id", userID, "amount", e.Amount)
	publishAll(ctx, s.publisher, evts)
	return e, nil
}

// UpdateExpense rewrites an expense. An amount change or an account swap
// reverses the old delta and applies the new one atomically, so the sum of
// balances across accounts is conserved.
func (s *LedgerService) UpdateExpense(ctx context.Context, userID, id uuid.UUID, in ExpenseInput) (core.Expense, error) {
	if err := validateEntry(in.Name, in.Amount); err != nil {
		return core.Expense{}, err
	}

	var (
		updated core.Expense
		evts    []*events.BalanceEvent
	)
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		if old.UserID != userID {
			return fmt.Errorf("expense %s: %w", id, core.ErrForbidden)
		}
		if old.Managed() {
			return fmt.Errorf("%w: expense is managed by a debt payment or saving contribution", core.ErrValidation)
		}
		if _, err := ownedCategory(ctx, q, userID, in.CategoryID, core.CategoryExpense); err != nil {
			return err
		}

		evts, err = applyBalanceMoves(ctx, q, userID, core.KindExpense,
			old.AccountID, old.Amount, in.AccountID, in.Amount, events.CauseExpense)
		if err != nil {
			return err
		}

		updated = old
		updated.CategoryID = in.CategoryID
		updated.AccountID = in.AccountID
		updated.Name = in.Name
		updated.Description = in.Description
		updated.Amount = in.Amount
		updated.Date = in.Date
		return q.UpdateExpense(ctx, updated)
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	slog.InfoContext(ctx, "Updated expense",
		"expense_id", id, "user_id", userID, "amount", in.Amount)
	publishAll(ctx, s.publisher, evts)
	return updated, nil
}

// DeleteExpense removes an expense and reverses its balance delta.
func (s *LedgerService) DeleteExpense(ctx context.Context, userID, id uuid.UUID) error {
	var evts []*events.BalanceEvent
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		e, err := q.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		if e.UserID != userID {
			return fmt.Errorf("expense %s: %w", id, core.ErrForbidden)
		}
		if e.Managed() {
			return fmt.Errorf("%w: expense is managed by a debt payment or saving contribution", core.ErrValidation)
		}

		evts, err = applyBalanceMoves(ctx, q, userID, core.KindExpense,
			e.AccountID, e.Amount, nil, decimal.Zero, events.CauseExpense)
		if err != nil {
			return err
		}
		return q.DeleteExpense(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	slog.InfoContext(ctx, "Deleted expense", "expense_id", id, "user_id", userID)
	publishAll(ctx, s.publisher, evts)
	return nil
}

// CreateIncome records an income on an account, moving the balance with the
// inverted sign convention.
func (s *LedgerService) CreateIncome(ctx context.Context, userID uuid.UUID, in IncomeInput) (core.Income, error) {
	if err := validateEntry(in.Name, in.Amount); err != nil {
		return core.Income{}, err
	}
	if in.AccountID == uuid.Nil {
		return core.Income{}, fmt.Errorf("%w: income requires an account", core.ErrValidation)
	}

	income := core.Income{
		ID:          uuid.New(),
		UserID:      userID,
		CategoryID:  in.CategoryID,
		AccountID:   in.AccountID,
		Name:        in.Name,
		Description: in.Description,
		Amount:      in.Amount,
		Date:        in.Date,
	}

	var evts []*events.BalanceEvent
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := ownedCategory(ctx, q, userID, in.CategoryID, core.CategoryIncome); err != nil {
			return err
		}
		var err error
		evts, err = applyBalanceMoves(ctx, q, userID, core.KindIncome,
			nil, decimal.Zero, &in.AccountID, in.Amount, events.CauseIncome)
		if err != nil {
			return err
		}
		return q.CreateIncome(ctx, income)
	})
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}

	slog.InfoContext(ctx, "Recorded income",
		"income_id", income.ID, "user_id", userID, "amount", income.Amount)
	publishAll(ctx, s.publisher, evts)
	return income, nil
}

// UpdateIncome rewrites an income, reversing the old delta and applying the
// new one in one transaction.
func (s *LedgerService) UpdateIncome(ctx context.Context, userID, id uuid.UUID, in IncomeInput) (core.Income, error) {
	if err := validateEntry(in.Name, in.Amount); err != nil {
		return core.Income{}, err
	}
	if in.AccountID == uuid.Nil {
		return core.Income{}, fmt.Errorf("%w: income requires an account", core.ErrValidation)
	}

	var (
		updated core.Income
		evts    []*events.BalanceEvent
	)
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetIncome(ctx, id)
		if err != nil {
			return err
		}
		if old.UserID != userID {
			return fmt.Errorf("income %s: %w", id, core.ErrForbidden)
		}
		if _, err := ownedCategory(ctx, q, userID, in.CategoryID, core.CategoryIncome); err != nil {
			return err
		}

		evts, err = applyBalanceMoves(ctx, q, userID, core.KindIncome,
			&old.AccountID, old.Amount, &in.AccountID, in.Amount, events.CauseIncome)
		if err != nil {
			return err
		}

		updated = old
		updated.CategoryID = in.CategoryID
		updated.AccountID = in.AccountID
		updated.Name = in.Name
		updated.Description = in.Description
		updated.Amount = in.Amount
		updated.Date = in.Date
		return q.UpdateIncome(ctx, updated)
	})
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}

	slog.InfoContext(ctx, "Updated income",
		"income_id", id, "user_id", userID, "amount", in.Amount)
	publishAll(ctx, s.publisher, evts)
	return updated, nil
}

// DeleteIncome removes an income and reverses its balance delta.
func (s *LedgerService) DeleteIncome(ctx context.Context, userID, id uuid.UUID) error {
	var evts []*events.BalanceEvent
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		income, err := q.GetIncome(ctx, id)
		if err != nil {
			return err
		}
		if income.UserID != userID {
			return fmt.Errorf("income %s: %w", id, core.ErrForbidden)
		}

		evts, err = applyBalanceMoves(ctx, q, userID, core.KindIncome,
			&income.AccountID, income.Amount, nil, decimal.Zero, events.CauseIncome)
		if err != nil {
			return err
		}
		return q.DeleteIncome(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}

	slog.InfoContext(ctx, "Deleted income", "income_id", id, "user_id", userID)
	publishAll(ctx, s.publisher, evts)
	return nil
}

// ExpenseListFilter narrows ListExpenses. A category filter matches the
// category and its whole subtree.
type ExpenseListFilter struct {
	From       *time.Time
	To         *time.Time
	CategoryID *uuid.UUID
	AccountID  *uuid.UUID
	Search     string
}

// MonthRange returns the inclusive date bounds of a calendar month, for use
// as a From/To filter pair.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, -1)
}

// ListExpenses returns the user's expenses matching the filter, newest
// first. A category filter is expanded to the category's subtree so parent
// categories report their descendants' spending too.
func (s *LedgerService) ListExpenses(ctx context.Context, userID uuid.UUID, f ExpenseListFilter) ([]core.Expense, error) {
	q := s.repo.Queries()

	var categoryIDs []uuid.UUID
	if f.CategoryID != nil {
		cat, err := ownedCategory(ctx, q, userID, *f.CategoryID, "")
		if err != nil {
			return nil, err
		}
		all, err := q.ListCategories(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		categoryIDs = core.CollectSubtree(all, cat.ID)
	}

	expenses, err := q.ListExpensesFiltered(ctx, userID, storage.ExpenseFilter{
		FromDate:    f.From,
		ToDate:      f.To,
		CategoryIDs: categoryIDs,
		AccountID:   f.AccountID,
		Search:      f.Search,
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// ListIncomes returns the user's incomes, optionally bounded by dates,
// newest first.
func (s *LedgerService) ListIncomes(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]core.Income, error) {
	incomes, err := s.repo.Queries().ListIncomes(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	return incomes, nil
}
