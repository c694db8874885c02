package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finman/internal/core"
)

func TestBudgetDuplicateMonthRejected(t *testing.T) {
	repo := newRepo(t)
	svc := NewBudgetService(repo)
	userID := uuid.New()
	ctx := context.Background()

	cat := seedCategory(t, repo, userID, "Food", core.CategoryExpense)

	_, err := svc.Create(ctx, userID, BudgetInput{
		CategoryID: cat.ID,
		Amount:     dec("400"),
		Month:      date("2025-07-01"),
	})
	require.NoError(t, err)

	// Same month given as a mid-month date still collides.
	_, err = svc.Create(ctx, userID, BudgetInput{
		CategoryID: cat.ID,
		Amount:     dec("500"),
		Month:      date("2025-07-15"),
	})
	assert.ErrorIs(t, err, core.ErrValidation)

	// A different month is fine.
	_, err = svc.Create(ctx, userID, BudgetInput{
		CategoryID: cat.ID,
		Amount:     dec("500"),
		Month:      date("2025-08-01"),
	})
	assert.NoError(t, err)
}

func TestBudgetListByMonth(t *testing.T) {
	repo := newRepo(t)
	svc := NewBudgetService(repo)
	userID := uuid.New()
	ctx := context.Background()

	food := seedCategory(t, repo, userID, "Food", core.CategoryExpense)
	travel := seedCategory(t, repo, userID, "Travel", core.CategoryExpense)

	_, err := svc.Create(ctx, userID, BudgetInput{CategoryID: food.ID, Amount: dec("400"), Month: date("2025-07-01")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, BudgetInput{CategoryID: travel.ID, Amount: dec("900"), Month: date("2025-08-01")})
	require.NoError(t, err)

	july := date("2025-07-20")
	got, err := svc.List(ctx, userID, &july)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, food.ID, got[0].CategoryID)

	all, err := svc.List(ctx, userID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBudgetUpdateAmountAndDelete(t *testing.T) {
	repo := newRepo(t)
	svc := NewBudgetService(repo)
	userID := uuid.New()
	ctx := context.Background()

	cat := seedCategory(t, repo, userID, "Food", core.CategoryExpense)
	b, err := svc.Create(ctx, userID, BudgetInput{CategoryID: cat.ID, Amount: dec("400"), Month: date("2025-07-01")})
	require.NoError(t, err)

	updated, err := svc.UpdateAmount(ctx, userID, b.ID, dec("450"))
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(dec("450")))

	require.NoError(t, svc.Delete(ctx, userID, b.ID))
	got, err := svc.List(ctx, userID, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBudgetForeignCategoryIsInvalid(t *testing.T) {
	repo := newRepo(t)
	svc := NewBudgetService(repo)
	ctx := context.Background()

	cat := seedCategory(t, repo, uuid.New(), "Food", core.CategoryExpense)

	_, err := svc.Create(ctx, uuid.New(), BudgetInput{
		CategoryID: cat.ID,
		Amount:     dec("400"),
		Month:      date("2025-07-01"),
	})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestBudgetCrossUserForbidden(t *testing.T) {
	repo := newRepo(t)
	svc := NewBudgetService(repo)
	owner := uuid.New()
	ctx := context.Background()

	cat := seedCategory(t, repo, owner, "Food", core.CategoryExpense)
	b, err := svc.Create(ctx, owner, BudgetInput{CategoryID: cat.ID, Amount: dec("400"), Month: date("2025-07-01")})
	require.NoError(t, err)

	err = svc.Delete(ctx, uuid.New(), b.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)
}
