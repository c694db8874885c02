package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"finman/internal/core"
	"finman/internal/storage"
)

func newRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "finman.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func intp(i int) *int { return &i }

func idp(id uuid.UUID) *uuid.UUID { return &id }

func seedAccount(t *testing.T, repo *storage.Repository, userID uuid.UUID, typ core.AccountType, balance string) core.Account {
	t.Helper()
	acc := core.Account{
		ID:      uuid.New(),
		UserID:  userID,
		Name:    "acct-" + uuid.NewString()[:8],
		Type:    typ,
		Balance: dec(balance),
	}
	require.NoError(t, repo.Queries().CreateAccount(context.Background(), acc))
	return acc
}

func seedCategory(t *testing.T, repo *storage.Repository, userID uuid.UUID, name string, typ core.CategoryType) core.Category {
	t.Helper()
	c := core.Category{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		Type:   typ,
	}
	require.NoError(t, repo.Queries().CreateCategory(context.Background(), c))
	return c
}

func accountBalance(t *testing.T, repo *storage.Repository, id uuid.UUID) decimal.Decimal {
	t.Helper()
	acc, err := repo.Queries().GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}
