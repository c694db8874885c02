package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finman/internal/core"
)

func TestRecalculateRepairsDrift(t *testing.T) {
	repo := newRepo(t)
	ledger := NewLedgerService(repo, nil)
	accounts := NewAccountService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	acc := seedAccount(t, repo, userID, core.CreditCard, "0")
	cat := seedCategory(t, repo, userID, "Stuff", core.CategoryExpense)

	_, err := ledger.CreateExpense(ctx, userID, ExpenseInput{
		Name: "a", Amount: dec("300"), Date: date("2025-05-01"),
		CategoryID: cat.ID, AccountID: idp(acc.ID),
	})
	require.NoError(t, err)

	// Corrupt the stored balance behind the ledger's back.
	require.NoError(t, repo.Queries().UpdateAccountBalance(ctx, acc.ID, dec("999")))

	fixed, err := accounts.Recalculate(ctx, userID, acc.ID)
	require.NoError(t, err)
	assert.True(t, fixed.Balance.Equal(dec("300")))
	assert.True(t, accountBalance(t, repo, acc.ID).Equal(dec("300")))
}

func TestRecalculateCrossUserForbidden(t *testing.T) {
	repo := newRepo(t)
	accounts := NewAccountService(repo, nil)
	owner := uuid.New()
	acc := seedAccount(t, repo, owner, core.Savings, "50")

	_, err := accounts.Recalculate(context.Background(), uuid.New(), acc.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestAccountViewCarriesBillingCycle(t *testing.T) {
	repo := newRepo(t)
	ledger := NewLedgerService(repo, nil)
	accounts := NewAccountService(repo, nil)
	// Pin "today" to March 20th; cycle day 15 puts the cycle start on the 15th.
	accounts.now = func() time.Time { return date("2025-03-20") }

	userID := uuid.New()
	ctx := context.Background()

	card := core.Account{
		ID:                   uuid.New(),
		UserID:               userID,
		Name:                 "visa",
		Type:                 core.CreditCard,
		Balance:              dec("0"),
		BillingCycleStartDay: intp(15),
	}
	require.NoError(t, repo.Queries().CreateAccount(ctx, card))
	cat := seedCategory(t, repo, userID, "Stuff", core.CategoryExpense)

	// 1000 before the cycle start, 500 inside the current cycle.
	_, err := ledger.CreateExpense(ctx, userID, ExpenseInput{
		Name: "old", Amount: dec("1000"), Date: date("2025-03-10"),
		CategoryID: cat.ID, AccountID: idp(card.ID),
	})
	require.NoError(t, err)
	_, err = ledger.CreateExpense(ctx, userID, ExpenseInput{
		Name: "new", Amount: dec("500"), Date: date("2025-03-18"),
		CategoryID: cat.ID, AccountID: idp(card.ID),
	})
	require.NoError(t, err)

	view, err := accounts.GetAccount(ctx, userID, card.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Cycle)
	assert.Equal(t, date("2025-03-15"), view.Cycle.CycleStart)
	assert.True(t, view.Cycle.CurrentCycleSpent.Equal(dec("500")))
	assert.True(t, view.Cycle.LastStatementBalance.Equal(dec("1000")))
	assert.False(t, view.Cycle.LastStatementPaid)
}

func TestSavingsAccountHasNoCycleView(t *testing.T) {
	repo := newRepo(t)
	accounts := NewAccountService(repo, nil)
	userID := uuid.New()
	acc := seedAccount(t, repo, userID, core.Savings, "100")

	view, err := accounts.GetAccount(context.Background(), userID, acc.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Cycle)
}

func TestDeleteAccountWithTransactionsConflicts(t *testing.T) {
	repo := newRepo(t)
	ledger := NewLedgerService(repo, nil)
	accounts := NewAccountService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	acc := seedAccount(t, repo, userID, core.Savings, "100")
	cat := seedCategory(t, repo, userID, "Stuff", core.CategoryExpense)
	_, err := ledger.CreateExpense(ctx, userID, ExpenseInput{
		Name: "a", Amount: dec("10"), Date: date("2025-05-01"),
		CategoryID: cat.ID, AccountID: idp(acc.ID),
	})
	require.NoError(t, err)

	err = accounts.DeleteAccount(ctx, userID, acc.ID)
	assert.ErrorIs(t, err, core.ErrConflict)

	// Still there.
	_, err = repo.Queries().GetAccount(ctx, acc.ID)
	assert.NoError(t, err)
}

func TestCreateAccountValidatesType(t *testing.T) {
	repo := newRepo(t)
	accounts := NewAccountService(repo, nil)

	_, err := accounts.CreateAccount(context.Background(), uuid.New(), AccountInput{
		Name: "weird",
		Type: core.AccountType("CHECKING"),
	})
	assert.ErrorIs(t, err, core.ErrValidation)
}
