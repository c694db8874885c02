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

// AccountService manages accounts and derives billing-cycle views for
// credit cards on every read.
type AccountService struct {
	repo      *storage.Repository
	publisher *events.Publisher

	// now is swapped out by tests that pin the billing-cycle date.
	now func() time.Time
}

func NewAccountService(repo *storage.Repository, publisher *events.Publisher) *AccountService {
	return &AccountService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// AccountInput carries the fields of a new account.
type AccountInput struct {
	Name           string
	Type           core.AccountType
	BankName       string
	OpeningBalance decimal.Decimal

	BillingCycleStartDay *int
	BillDateDay          *int
	DueDateDay           *int
}

// AccountUpdate carries the editable fields of an existing account. Type and
// balance are not editable: the type anchors the sign convention of every
// recorded entry, and the balance only moves through ledger operations or
// recalculation.
type AccountUpdate struct {
	Name     string
	BankName string

	BillingCycleStartDay *int
	BillDateDay          *int
	DueDateDay           *int
}

// AccountView is an account plus its derived billing-cycle figures. Cycle is
// nil for savings accounts and for credit cards without a cycle start day.
type AccountView struct {
	core.Account
	Cycle *core.CycleSummary
}

func (s *AccountService) CreateAccount(ctx context.Context, userID uuid.UUID, in AccountInput) (core.Account, error) {
	acc := core.Account{
		ID:                   uuid.New(),
		UserID:               userID,
		Name:                 in.Name,
		Type:                 in.Type,
		Balance:              in.OpeningBalance,
		BankName:             in.BankName,
		BillingCycleStartDay: in.BillingCycleStartDay,
		BillDateDay:          in.BillDateDay,
		DueDateDay:           in.DueDateDay,
	}
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}

	if err := s.repo.Queries().CreateAccount(ctx, acc); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Created account",
		"account_id", acc.ID, "user_id", userID, "type", acc.Type)
	return acc, nil
}

// GetAccount returns one account with its cycle view.
func (s *AccountService) GetAccount(ctx context.Context, userID, id uuid.UUID) (AccountView, error) {
	q := s.repo.Queries()
	acc, err := q.GetAccount(ctx, id)
	if err != nil {
		return AccountView{}, err
	}
	if acc.UserID != userID {
		return AccountView{}, fmt.Errorf("account %s: %w", id, core.ErrForbidden)
	}

	cycle, err := s.cycleFor(ctx, q, acc)
	if err != nil {
		return AccountView{}, err
	}
	return AccountView{Account: acc, Cycle: cycle}, nil
}

// ListAccounts returns the user's accounts with cycle views attached.
func (s *AccountService) ListAccounts(ctx context.Context, userID uuid.UUID) ([]AccountView, error) {
	q := s.repo.Queries()
	accounts, err := q.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]AccountView, 0, len(accounts))
	for _, acc := range accounts {
		cycle, err := s.cycleFor(ctx, q, acc)
		if err != nil {
			return nil, err
		}
		views = append(views, AccountView{Account: acc, Cycle: cycle})
	}
	return views, nil
}

func (s *AccountService) cycleFor(ctx context.Context, q *storage.Queries, acc core.Account) (*core.CycleSummary, error) {
	if acc.Type != core.CreditCard || acc.BillingCycleStartDay == nil {
		return nil, nil
	}
	expenses, err := q.ListExpensesByAccount(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("list account expenses: %w", err)
	}
	summary, ok := core.BillingCycle(acc, s.now(), expenses)
	if !ok {
		return nil, nil
	}
	return &summary, nil
}

func (s *AccountService) UpdateAccount(ctx context.Context, userID, id uuid.UUID, in AccountUpdate) (core.Account, error) {
	var acc core.Account
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		acc, err = q.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if acc.UserID != userID {
			return fmt.Errorf("account %s: %w", id, core.ErrForbidden)
		}

		acc.Name = in.Name
		acc.BankName = in.BankName
		acc.BillingCycleStartDay = in.BillingCycleStartDay
		acc.BillDateDay = in.BillDateDay
		acc.DueDateDay = in.DueDateDay
		if err := acc.Validate(); err != nil {
			return err
		}
		return q.UpdateAccount(ctx, acc)
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}

	slog.InfoContext(ctx, "Updated account", "account_id", id, "user_id", userID)
	return acc, nil
}

// DeleteAccount removes an account with no recorded entries. An account
// still referenced by expenses or incomes conflicts: deleting it would
// orphan the history the recompute depends on.
func (s *AccountService) DeleteAccount(ctx context.Context, userID, id uuid.UUID) error {
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		acc, err := q.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if acc.UserID != userID {
			return fmt.Errorf("account %s: %w", id, core.ErrForbidden)
		}

		used, err := q.AccountInUse(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: account %q has recorded transactions", core.ErrConflict, acc.Name)
		}
		return q.DeleteAccount(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	slog.InfoContext(ctx, "Deleted account", "account_id", id, "user_id", userID)
	return nil
}

// Recalculate rebuilds the account balance from its full transaction
// history, repairing any drift between the incremental balance and the
// recomputed one, and persists the result.
func (s *AccountService) Recalculate(ctx context.Context, userID, id uuid.UUID) (core.Account, error) {
	var (
		acc core.Account
		evt *events.BalanceEvent
	)
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		acc, err = q.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if acc.UserID != userID {
			return fmt.Errorf("account %s: %w", id, core.ErrForbidden)
		}

		expenses, err := q.ListExpensesByAccount(ctx, id)
		if err != nil {
			return err
		}
		incomes, err := q.ListIncomesByAccount(ctx, id)
		if err != nil {
			return err
		}

		totalExpenses := decimal.Zero
		for _, e := range expenses {
			totalExpenses = totalExpenses.Add(e.Amount)
		}
		totalIncomes := decimal.Zero
		for _, in := range incomes {
			totalIncomes = totalIncomes.Add(in.Amount)
		}

		acc.Balance = core.RecomputedBalance(acc.Type, totalExpenses, totalIncomes)
		if err := q.UpdateAccountBalance(ctx, id, acc.Balance); err != nil {
			return err
		}
		evt = events.NewBalanceEvent(id, acc.Balance.String(), events.CauseRecalculate)
		return nil
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("recalculate account: %w", err)
	}

	slog.InfoContext(ctx, "Recalculated account balance",
		"account_id", id, "user_id", userID, "balance", acc.Balance)
	publishAll(ctx, s.publisher, []*events.BalanceEvent{evt})
	return acc, nil
}
