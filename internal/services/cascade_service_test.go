package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finman/internal/core"
)

func TestDebtPaymentRoundTrip(t *testing.T) {
	repo := newRepo(t)
	svc := NewCascadeService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	card := seedAccount(t, repo, userID, core.CreditCard, "0")
	debt, err := svc.CreateDebt(ctx, userID, DebtInput{
		Name:      "home loan",
		Amount:    dec("10000"),
		TotalEmis: intp(24),
	})
	require.NoError(t, err)
	require.Equal(t, 24, *debt.EmisPending)

	payment, err := svc.RecordDebtPayment(ctx, userID, debt.ID, PaymentInput{
		Amount:    dec("500"),
		Date:      date("2025-04-01"),
		AccountID: idp(card.ID),
	})
	require.NoError(t, err)
	require.Equal(t, &debt.ID, payment.DebtID)

	after, err := svc.GetDebt(ctx, userID, debt.ID)
	require.NoError(t, err)
	assert.True(t, after.Amount.Equal(dec("9500")))
	assert.Equal(t, 23, *after.EmisPending)
	assert.True(t, accountBalance(t, repo, card.ID).Equal(dec("500")))

	// The generated expense lands in the reserved category.
	cat, err := repo.Queries().GetCategory(ctx, payment.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "Debt Repayment", cat.Name)
	assert.Equal(t, core.CategoryExpense, cat.Type)
	require.NotNil(t, cat.AllowedNestingDepth)
	assert.Equal(t, 0, *cat.AllowedNestingDepth)

	// Deleting the payment restores every side effect.
	require.NoError(t, svc.DeleteDebtPayment(ctx, userID, payment.ID))

	restored, err := svc.GetDebt(ctx, userID, debt.ID)
	require.NoError(t, err)
	assert.True(t, restored.Amount.Equal(dec("10000")))
	assert.Equal(t, 24, *restored.EmisPending)
	assert.True(t, accountBalance(t, repo, card.ID).Equal(dec("0")))

	payments, err := svc.ListDebtPayments(ctx, userID, debt.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestDebtPaymentFromSavingsAccount(t *testing.T) {
	repo := newRepo(t)
	svc := NewCascadeService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	savings := seedAccount(t, repo, userID, core.Savings, "1000")
	debt, err := svc.CreateDebt(ctx, userID, DebtInput{Name: "loan", Amount: dec("2000")})
	require.NoError(t, err)

	_, err = svc.RecordDebtPayment(ctx, userID, debt.ID, PaymentInput{
		Amount:    dec("300"),
		Date:      date("2025-04-01"),
		AccountID: idp(savings.ID),
	})
	require.NoError(t, err)

	assert.True(t, accountBalance(t, repo, savings.ID).Equal(dec("700")))
}

func TestDebtPaymentWithoutAccountTouchesNoBalance(t *testing.T) {
	repo := newRepo(t)
	svc := NewCascadeService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	debt, err := svc.CreateDebt(ctx, userID, DebtInput{Name: "loan", Amount: dec("2000")})
	require.NoError(t, err)

	payment, err := svc.RecordDebtPayment(ctx, userID, debt.ID, PaymentInput{
		Amount: dec("300"),
		Date:   date("2025-04-01"),
	})
	require.NoError(t, err)
	assert.Nil(t, payment.AccountID)

	after, err := svc.GetDebt(ctx, userID, debt.ID)
	require.NoError(t, err)
	assert.True(t, after.Amount.Equal(dec("1700")))
}

func TestUpdateDebtPaymentAdjustsPrincipalByDifference(t *testing.T) {
	repo := newRepo(t)
	svc := NewCascadeService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	card := seedAccount(t, repo, userID, core.CreditCard, "0")
	debt, err := svc.CreateDebt(ctx, userID, DebtInput{Name: "loan", Amount: dec("1000")})
	require.NoError(t, err)

	payment, err := svc.RecordDebtPayment(ctx, userID, debt.ID, PaymentInput{
		Amount:    dec("100"),
		Date:      date("2025-04-01"),
		AccountID: idp(card.ID),
	})
	require.NoError(t, err)

	_, err = svc.UpdateDebtPayment(ctx, userID, payment.ID, PaymentInput{
		Amount:    dec("150"),
		Date:      date("2025-04-02"),
		AccountID: idp(card.ID),
	})
	require.NoError(t, err)

	after, err := svc.GetDebt(ctx, userID, debt.ID)
	require.NoError(t, err)
	assert.True(t, after.Amount.Equal(dec("850")))
	assert.True(t, accountBalance(t, repo, card.ID).Equal(dec("150")))
}

func TestDeleteDebtWithPaymentsConflicts(t *testing.T) {
	repo := newRepo(t)
	svc := NewCascadeService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	debt, err := svc.CreateDebt(ctx, userID, DebtInput{Name: "loan", Amount: dec("1000")})
	require.NoError(t, err)
	_, err = svc.RecordDebtPayment(ctx, userID, debt.ID, PaymentInput{
		Amount: dec("100"), Date: date("2025-04-01"),
	})
	require.NoError(t, err)

	err = svc.DeleteDebt(ctx, userID, debt.ID)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestDeleteDebtWithoutPayments(t *testing.T) {
	repo := newRepo(t)
	svc := NewCascadeService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	debt, err := svc.CreateDebt(ctx, userID, DebtInput{Name: "loan", Amount: dec("1000")})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDebt(ctx, userID, debt.ID))
	_, err = svc.GetDebt(ctx, userID, debt.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSavingContributionRoundTrip(t *testing.T) {
	repo := newRepo(t)
	svc := NewCascadeService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	saving, err := svc.CreateSaving(ctx, userID, SavingInput{
		Name:   "emergency fund",
		Amount: dec("200"),
		Target: dec("5000"),
	})
	require.NoError(t, err)

	contribution, err := svc.RecordSavingContribution(ctx, userID, saving.ID, ContributionInput{
		Amount: dec("100"),
		Date:   date("2025-06-01"),
	})
	require.NoError(t, err)
	assert.Nil(t, contribution.AccountID)

	after, err := svc.GetSaving(ctx, userID, saving.ID)
	require.NoError(t, err)
	assert.True(t, after.Amount.Equal(dec("300")))

	cat, err := repo.Queries().GetCategory(ctx, contribution.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "Savings", cat.Name)

	require.NoError(t, svc.DeleteSavingContribution(ctx, userID, contribution.ID))
	restored, err := svc.GetSaving(ctx, userID, saving.ID)
	require.NoError(t, err)
	assert.True(t, restored.Amount.Equal(dec("200")))
}

func TestUpdateSavingContributionAbsorbsDifference(t *testing.T) {
	repo := newRepo(t)
	svc := NewCascadeService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	saving, err := svc.CreateSaving(ctx, userID, SavingInput{Name: "fund", Target: dec("1000")})
	require.NoError(t, err)
	contribution, err := svc.RecordSavingContribution(ctx, userID, saving.ID, ContributionInput{
		Amount: dec("50"), Date: date("2025-06-01"),
	})
	require.NoError(t, err)

	_, err = svc.UpdateSavingContribution(ctx, userID, contribution.ID, ContributionInput{
		Amount: dec("80"), Date: date("2025-06-02"),
	})
	require.NoError(t, err)

	after, err := svc.GetSaving(ctx, userID, saving.ID)
	require.NoError(t, err)
	assert.True(t, after.Amount.Equal(dec("80")))
}

func TestDeleteSavingWithContributionsConflicts(t *testing.T) {
	repo := newRepo(t)
	svc := NewCascadeService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	saving, err := svc.CreateSaving(ctx, userID, SavingInput{Name: "fund", Target: dec("1000")})
	require.NoError(t, err)
	_, err = svc.RecordSavingContribution(ctx, userID, saving.ID, ContributionInput{
		Amount: dec("50"), Date: date("2025-06-01"),
	})
	require.NoError(t, err)

	err = svc.DeleteSaving(ctx, userID, saving.ID)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestReservedCategoryCreatedOnce(t *testing.T) {
	repo := newRepo(t)
	svc := NewCascadeService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	debt, err := svc.CreateDebt(ctx, userID, DebtInput{Name: "loan", Amount: dec("1000")})
	require.NoError(t, err)

	p1, err := svc.RecordDebtPayment(ctx, userID, debt.ID, PaymentInput{Amount: dec("10"), Date: date("2025-04-01")})
	require.NoError(t, err)
	p2, err := svc.RecordDebtPayment(ctx, userID, debt.ID, PaymentInput{Amount: dec("10"), Date: date("2025-05-01")})
	require.NoError(t, err)

	assert.Equal(t, p1.CategoryID, p2.CategoryID)
}

func TestCascadeCrossUserForbidden(t *testing.T) {
	repo := newRepo(t)
	svc := NewCascadeService(repo, nil)
	owner := uuid.New()
	intruder := uuid.New()
	ctx := context.Background()

	debt, err := svc.CreateDebt(ctx, owner, DebtInput{Name: "loan", Amount: dec("1000")})
	require.NoError(t, err)

	_, err = svc.RecordDebtPayment(ctx, intruder, debt.ID, PaymentInput{
		Amount: dec("10"), Date: date("2025-04-01"),
	})
	assert.ErrorIs(t, err, core.ErrForbidden)
}
