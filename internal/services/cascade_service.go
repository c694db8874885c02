package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finman/internal/core"
	"finman/internal/events"
	"finman/internal/storage"
)

// Reserved category names for cascade-generated expenses. Created lazily
// with a zero nesting quota so users cannot hang subtrees off them.
const (
	debtRepaymentCategory = "Debt Repayment"
	savingsCategory       = "Savings"
)

// CascadeService coordinates the multi-entity writes around debts and
// savings: recording a payment or contribution touches the parent entity,
// a generated expense, and optionally an account balance, all in one
// transaction. Deleting a payment or contribution reverses every effect.
type CascadeService struct {
	repo      *storage.Repository
	publisher *events.Publisher
}

func NewCascadeService(repo *storage.Repository, publisher *events.Publisher) *CascadeService {
	return &CascadeService{
		repo:      repo,
		publisher: publisher,
	}
}

func ensureCategory(ctx context.Context, q *storage.Queries, userID uuid.UUID, name string) (core.Category, error) {
	c, err := q.GetCategoryByName(ctx, userID, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Category{}, err
	}

	depth := 0
	c = core.Category{
		ID:                  uuid.New(),
		UserID:              userID,
		Name:                name,
		Type:                core.CategoryExpense,
		AllowedNestingDepth: &depth,
	}
	if err := q.CreateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// DebtInput carries the fields of a new debt. Amount is the outstanding
// principal; it becomes both Amount and InitialAmount, and TotalEmis (when
// set) seeds EmisPending.
type DebtInput struct {
	Name        string
	Description string
	Amount      decimal.Decimal
	Interest    decimal.Decimal
	LoanType    string
	TotalEmis   *int
	StartDate   *time.Time
	EndDate     *time.Time
	DueDate     *time.Time
}

// DebtUpdate carries the directly editable fields of a debt. The amounts
// and EMI counters only move through payments.
type DebtUpdate struct {
	Name        string
	Description string
	Interest    decimal.Decimal
	LoanType    string
	StartDate   *time.Time
	EndDate     *time.Time
	DueDate     *time.Time
}

func (s *CascadeService) CreateDebt(ctx context.Context, userID uuid.UUID, in DebtInput) (core.Debt, error) {
	if err := validateEntry(in.Name, in.Amount); err != nil {
		return core.Debt{}, err
	}
	if in.TotalEmis != nil && *in.TotalEmis < 1 {
		return core.Debt{}, fmt.Errorf("%w: total EMIs must be at least 1", core.ErrValidation)
	}

	d := core.Debt{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          in.Name,
		Description:   in.Description,
		Amount:        in.Amount,
		InitialAmount: in.Amount,
		Interest:      in.Interest,
		LoanType:      in.LoanType,
		TotalEmis:     in.TotalEmis,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		DueDate:       in.DueDate,
		CreatedAt:     time.Now().UTC(),
	}
	if in.TotalEmis != nil {
		pending := *in.TotalEmis
		d.EmisPending = &pending
	}

	if err := s.repo.Queries().CreateDebt(ctx, d); err != nil {
		return core.Debt{}, fmt.Errorf("create debt: %w", err)
	}

	slog.InfoContext(ctx, "Created debt",
		"debt_id", d.ID, "user_id", userID, "amount", d.Amount)
	return d, nil
}

func (s *CascadeService) GetDebt(ctx context.Context, userID, id uuid.UUID) (core.Debt, error) {
	d, err := s.repo.Queries().GetDebt(ctx, id)
	if err != nil {
		return core.Debt{}, err
	}
	if d.UserID != userID {
		return core.Debt{}, fmt.Errorf("debt %s: %w", id, core.ErrForbidden)
	}
	return d, nil
}

// ListDebts returns the user's debts, newest first, optionally restricted
// to debts recorded before a given instant.
func (s *CascadeService) ListDebts(ctx context.Context, userID uuid.UUID, createdBefore *time.Time) ([]core.Debt, error) {
	return s.repo.Queries().ListDebts(ctx, userID, createdBefore)
}

func (s *CascadeService) UpdateDebt(ctx context.Context, userID, id uuid.UUID, in DebtUpdate) (core.Debt, error) {
	if strings.TrimSpace(in.Name) == "" {
		return core.Debt{}, fmt.Errorf("%w: name is required", core.ErrValidation)
	}

	var d core.Debt
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		d, err = q.GetDebt(ctx, id)
		if err != nil {
			return err
		}
		if d.UserID != userID {
			return fmt.Errorf("debt %s: %w", id, core.ErrForbidden)
		}

		d.Name = in.Name
		d.Description = in.Description
		d.Interest = in.Interest
		d.LoanType = in.LoanType
		d.StartDate = in.StartDate
		d.EndDate = in.EndDate
		d.DueDate = in.DueDate
		return q.UpdateDebt(ctx, d)
	})
	if err != nil {
		return core.Debt{}, fmt.Errorf("update debt: %w", err)
	}

	slog.InfoContext(ctx, "Updated debt", "debt_id", id, "user_id", userID)
	return d, nil
}

// DeleteDebt removes a debt that has no recorded payments. Payments pin the
// debt because deleting it would orphan their back-references.
func (s *CascadeService) DeleteDebt(ctx context.Context, userID, id uuid.UUID) error {
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		d, err := q.GetDebt(ctx, id)
		if err != nil {
			return err
		}
		if d.UserID != userID {
			return fmt.Errorf("debt %s: %w", id, core.ErrForbidden)
		}

		has, err := q.DebtHasPayments(ctx, id)
		if err != nil {
			return err
		}
		if has {
			return fmt.Errorf("%w: debt %q has recorded payments", core.ErrConflict, d.Name)
		}
		return q.DeleteDebt(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}

	slog.InfoContext(ctx, "Deleted debt", "debt_id", id, "user_id", userID)
	return nil
}

// PaymentInput carries a debt payment. AccountID is optional: with an
// account the payment also moves that balance (a credit card takes on the
// spend, a savings account pays it out).
type PaymentInput struct {
	Amount    decimal.Decimal
	Date      time.Time
	AccountID *uuid.UUID
}

// RecordDebtPayment decrements the debt principal and its pending EMI
// counter, files a linked expense under the reserved "Debt Repayment"
// category, and applies the optional account delta. One transaction.
func (s *CascadeService) RecordDebtPayment(ctx context.Context, userID, debtID uuid.UUID, in PaymentInput) (core.Expense, error) {
	if err := core.ValidateAmount(in.Amount); err != nil {
		return core.Expense{}, err
	}

	var (
		e    core.Expense
		evts []*events.BalanceEvent
	)
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		d, err := q.GetDebt(ctx, debtID)
		if err != nil {
			return err
		}
		if d.UserID != userID {
			return fmt.Errorf("debt %s: %w", debtID, core.ErrForbidden)
		}

		d.Amount = d.Amount.Sub(in.Amount)
		if d.EmisPending != nil && *d.EmisPending > 0 {
			pending := *d.EmisPending - 1
			d.EmisPending = &pending
		}
		if err := q.UpdateDebt(ctx, d); err != nil {
			return err
		}

		cat, err := ensureCategory(ctx, q, userID, debtRepaymentCategory)
		if err != nil {
			return err
		}

		e = core.Expense{
			ID:          uuid.New(),
			UserID:      userID,
			CategoryID:  cat.ID,
			AccountID:   in.AccountID,
			DebtID:      &debtID,
			Name:        d.Name,
			Description: "Payment towards " + d.Name,
			Amount:      in.Amount,
			Date:        in.Date,
		}

		evts, err = applyBalanceMoves(ctx, q, userID, core.KindExpense,
			nil, decimal.Zero, in.AccountID, in.Amount, events.CauseDebtPayment)
		if err != nil {
			return err
		}
		return q.CreateExpense(ctx, e)
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("record debt payment: %w", err)
	}

	slog.InfoContext(ctx, "Recorded debt payment",
		"debt_id", debtID, "expense_id", e.ID, "user_id", userID, "amount", in.Amount)
	publishAll(ctx, s.publisher, evts)
	return e, nil
}

// UpdateDebtPayment changes a payment's amount, date, or account. The debt
// principal absorbs the amount difference; account balances are reversed
// and reapplied like a ledger edit. The EMI counter is untouched since the
// payment still counts as one installment.
func (s *CascadeService) UpdateDebtPayment(ctx context.Context, userID, expenseID uuid.UUID, in PaymentInput) (core.Expense, error) {
	if err := core.ValidateAmount(in.Amount); err != nil {
		return core.Expense{}, err
	}

	var (
		updated core.Expense
		evts    []*events.BalanceEvent
	)
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if old.UserID != userID {
			return fmt.Errorf("expense %s: %w", expenseID, core.ErrForbidden)
		}
		if old.DebtID == nil {
			return fmt.Errorf("%w: expense %s is not a debt payment", core.ErrValidation, expenseID)
		}

		d, err := q.GetDebt(ctx, *old.DebtID)
		if err != nil {
			return err
		}
		d.Amount = d.Amount.Add(old.Amount).Sub(in.Amount)
		if err := q.UpdateDebt(ctx, d); err != nil {
			return err
		}

		evts, err = applyBalanceMoves(ctx, q, userID, core.KindExpense,
			old.AccountID, old.Amount, in.AccountID, in.Amount, events.CauseDebtPayment)
		if err != nil {
			return err
		}

		updated = old
		updated.AccountID = in.AccountID
		updated.Amount = in.Amount
		updated.Date = in.Date
		return q.UpdateExpense(ctx, updated)
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update debt payment: %w", err)
	}

	slog.InfoContext(ctx, "Updated debt payment",
		"expense_id", expenseID, "user_id", userID, "amount", in.Amount)
	publishAll(ctx, s.publisher, evts)
	return updated, nil
}

// DeleteDebtPayment reverses everything RecordDebtPayment did: the
// principal grows back, the pending EMI counter is restored on
// EMI-scheduled debts, the account delta is reversed, and the expense row
// is removed.
func (s *CascadeService) DeleteDebtPayment(ctx context.Context, userID, expenseID uuid.UUID) error {
	var evts []*events.BalanceEvent
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		e, err := q.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if e.UserID != userID {
			return fmt.Errorf("expense %s: %w", expenseID, core.ErrForbidden)
		}
		if e.DebtID == nil {
			return fmt.Errorf("%w: expense %s is not a debt payment", core.ErrValidation, expenseID)
		}

		d, err := q.GetDebt(ctx, *e.DebtID)
		if err != nil {
			return err
		}
		d.Amount = d.Amount.Add(e.Amount)
		if d.EmisPending != nil && d.TotalEmis != nil && *d.EmisPending < *d.TotalEmis {
			pending := *d.EmisPending + 1
			d.EmisPending = &pending
		}
		if err := q.UpdateDebt(ctx, d); err != nil {
			return err
		}

		evts, err = applyBalanceMoves(ctx, q, userID, core.KindExpense,
			e.AccountID, e.Amount, nil, decimal.Zero, events.CauseDebtPayment)
		if err != nil {
			return err
		}
		return q.DeleteExpense(ctx, expenseID)
	})
	if err != nil {
		return fmt.Errorf("delete debt payment: %w", err)
	}

	slog.InfoContext(ctx, "Deleted debt payment", "expense_id", expenseID, "user_id", userID)
	publishAll(ctx, s.publisher, evts)
	return nil
}

// ListDebtPayments returns the payments recorded against a debt, newest
// first.
func (s *CascadeService) ListDebtPayments(ctx context.Context, userID, debtID uuid.UUID) ([]core.Expense, error) {
	if _, err := s.GetDebt(ctx, userID, debtID); err != nil {
		return nil, err
	}
	return s.repo.Queries().ListExpensesByDebt(ctx, debtID)
}

// SavingInput carries the fields of a new saving goal. Amount is the
// starting balance of the goal; further growth comes from contributions.
type SavingInput struct {
	Name     string
	Category string
	Amount   decimal.Decimal
	Target   decimal.Decimal
	Date     *time.Time
}

func (s *CascadeService) CreateSaving(ctx context.Context, userID uuid.UUID, in SavingInput) (core.Saving, error) {
	if strings.TrimSpace(in.Name) == "" {
		return core.Saving{}, fmt.Errorf("%w: name is required", core.ErrValidation)
	}
	if in.Amount.Sign() < 0 || in.Target.Sign() < 0 {
		return core.Saving{}, fmt.Errorf("%w: amount and target cannot be negative", core.ErrValidation)
	}

	sv := core.Saving{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      in.Name,
		Category:  in.Category,
		Amount:    in.Amount,
		Target:    in.Target,
		Date:      in.Date,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Queries().CreateSaving(ctx, sv); err != nil {
		return core.Saving{}, fmt.Errorf("create saving: %w", err)
	}

	slog.InfoContext(ctx, "Created saving",
		"saving_id", sv.ID, "user_id", userID, "target", sv.Target)
	return sv, nil
}

func (s *CascadeService) GetSaving(ctx context.Context, userID, id uuid.UUID) (core.Saving, error) {
	sv, err := s.repo.Queries().GetSaving(ctx, id)
	if err != nil {
		return core.Saving{}, err
	}
	if sv.UserID != userID {
		return core.Saving{}, fmt.Errorf("saving %s: %w", id, core.ErrForbidden)
	}
	return sv, nil
}

// ListSavings returns the user's savings, newest first, optionally
// restricted to savings recorded before a given instant.
func (s *CascadeService) ListSavings(ctx context.Context, userID uuid.UUID, createdBefore *time.Time) ([]core.Saving, error) {
	return s.repo.Queries().ListSavings(ctx, userID, createdBefore)
}

// SavingUpdate carries the directly editable fields of a saving goal. The
// accumulated amount only moves through contributions.
type SavingUpdate struct {
	Name     string
	Category string
	Target   decimal.Decimal
	Date     *time.Time
}

func (s *CascadeService) UpdateSaving(ctx context.Context, userID, id uuid.UUID, in SavingUpdate) (core.Saving, error) {
	if strings.TrimSpace(in.Name) == "" {
		return core.Saving{}, fmt.Errorf("%w: name is required", core.ErrValidation)
	}
	if in.Target.Sign() < 0 {
		return core.Saving{}, fmt.Errorf("%w: target cannot be negative", core.ErrValidation)
	}

	var sv core.Saving
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		sv, err = q.GetSaving(ctx, id)
		if err != nil {
			return err
		}
		if sv.UserID != userID {
			return fmt.Errorf("saving %s: %w", id, core.ErrForbidden)
		}

		sv.Name = in.Name
		sv.Category = in.Category
		sv.Target = in.Target
		sv.Date = in.Date
		return q.UpdateSaving(ctx, sv)
	})
	if err != nil {
		return core.Saving{}, fmt.Errorf("update saving: %w", err)
	}

	slog.InfoContext(ctx, "Updated saving", "saving_id", id, "user_id", userID)
	return sv, nil
}

// DeleteSaving removes a saving goal that has no recorded contributions.
func (s *CascadeService) DeleteSaving(ctx context.Context, userID, id uuid.UUID) error {
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		sv, err := q.GetSaving(ctx, id)
		if err != nil {
			return err
		}
		if sv.UserID != userID {
			return fmt.Errorf("saving %s: %w", id, core.ErrForbidden)
		}

		has, err := q.SavingHasContributions(ctx, id)
		if err != nil {
			return err
		}
		if has {
			return fmt.Errorf("%w: saving %q has recorded contributions", core.ErrConflict, sv.Name)
		}
		return q.DeleteSaving(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete saving: %w", err)
	}

	slog.InfoContext(ctx, "Deleted saving", "saving_id", id, "user_id", userID)
	return nil
}

// ContributionInput carries a saving contribution. Contributions never
// touch an account; they only grow the goal and leave an expense trail.
type ContributionInput struct {
	Amount decimal.Decimal
	Date   time.Time
}

// RecordSavingContribution grows the saving goal and files a linked expense
// under the reserved "Savings" category. One transaction.
func (s *CascadeService) RecordSavingContribution(ctx context.Context, userID, savingID uuid.UUID, in ContributionInput) (core.Expense, error) {
	if err := core.ValidateAmount(in.Amount); err != nil {
		return core.Expense{}, err
	}

	var e core.Expense
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		sv, err := q.GetSaving(ctx, savingID)
		if err != nil {
			return err
		}
		if sv.UserID != userID {
			return fmt.Errorf("saving %s: %w", savingID, core.ErrForbidden)
		}

		sv.Amount = sv.Amount.Add(in.Amount)
		if err := q.UpdateSaving(ctx, sv); err != nil {
			return err
		}

		cat, err := ensureCategory(ctx, q, userID, savingsCategory)
		if err != nil {
			return err
		}

		e = core.Expense{
			ID:          uuid.New(),
			UserID:      userID,
			CategoryID:  cat.ID,
			SavingID:    &savingID,
			Name:        sv.Name,
			Description: "Contribution to " + sv.Name,
			Amount:      in.Amount,
			Date:        in.Date,
		}
		return q.CreateExpense(ctx, e)
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("record saving contribution: %w", err)
	}

	slog.InfoContext(ctx, "Recorded saving contribution",
		"saving_id", savingID, "expense_id", e.ID, "user_id", userID, "amount", in.Amount)
	return e, nil
}

// UpdateSavingContribution changes a contribution's amount or date; the
// goal absorbs the amount difference.
func (s *CascadeService) UpdateSavingContribution(ctx context.Context, userID, expenseID uuid.UUID, in ContributionInput) (core.Expense, error) {
	if err := core.ValidateAmount(in.Amount); err != nil {
		return core.Expense{}, err
	}

	var updated core.Expense
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if old.UserID != userID {
			return fmt.Errorf("expense %s: %w", expenseID, core.ErrForbidden)
		}
		if old.SavingID == nil {
			return fmt.Errorf("%w: expense %s is not a saving contribution", core.ErrValidation, expenseID)
		}

		sv, err := q.GetSaving(ctx, *old.SavingID)
		if err != nil {
			return err
		}
		sv.Amount = sv.Amount.Sub(old.Amount).Add(in.Amount)
		if err := q.UpdateSaving(ctx, sv); err != nil {
			return err
		}

		updated = old
		updated.Amount = in.Amount
		updated.Date = in.Date
		return q.UpdateExpense(ctx, updated)
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update saving contribution: %w", err)
	}

	slog.InfoContext(ctx, "Updated saving contribution",
		"expense_id", expenseID, "user_id", userID, "amount", in.Amount)
	return updated, nil
}

// DeleteSavingContribution reverses a contribution: the goal shrinks by the
// contributed amount and the expense row is removed.
func (s *CascadeService) DeleteSavingContribution(ctx context.Context, userID, expenseID uuid.UUID) error {
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		e, err := q.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if e.UserID != userID {
			return fmt.Errorf("expense %s: %w", expenseID, core.ErrForbidden)
		}
		if e.SavingID == nil {
			return fmt.Errorf("%w: expense %s is not a saving contribution", core.ErrValidation, expenseID)
		}

		sv, err := q.GetSaving(ctx, *e.SavingID)
		if err != nil {
			return err
		}
		sv.Amount = sv.Amount.Sub(e.Amount)
		if err := q.UpdateSaving(ctx, sv); err != nil {
			return err
		}
		return q.DeleteExpense(ctx, expenseID)
	})
	if err != nil {
		return fmt.Errorf("delete saving contribution: %w", err)
	}

	slog.InfoContext(ctx, "Deleted saving contribution", "expense_id", expenseID, "user_id", userID)
	return nil
}

// SavingHistory returns the contributions recorded against a saving goal,
// newest first.
func (s *CascadeService) SavingHistory(ctx context.Context, userID, savingID uuid.UUID) ([]core.Expense, error) {
	if _, err := s.GetSaving(ctx, userID, savingID); err != nil {
		return nil, err
	}
	return s.repo.Queries().ListExpensesBySaving(ctx, savingID)
}
