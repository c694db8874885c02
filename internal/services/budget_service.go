package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finman/internal/core"
	"finman/internal/storage"
)

// BudgetService manages monthly per-category spending caps. At most one
// budget exists per (user, category, month).
type BudgetService struct {
	repo *storage.Repository
}

func NewBudgetService(repo *storage.Repository) *BudgetService {
	return &BudgetService{repo: repo}
}

// BudgetInput carries the fields of a new budget. Month may be any day of
// the target month; it is normalized to the first.
type BudgetInput struct {
	CategoryID uuid.UUID
	Amount     decimal.Decimal
	Month      time.Time
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Create adds a budget. A second budget for the same category and month is
// rejected as invalid input; the existing one should be updated instead.
func (s *BudgetService) Create(ctx context.Context, userID uuid.UUID, in BudgetInput) (core.Budget, error) {
	if err := core.ValidateAmount(in.Amount); err != nil {
		return core.Budget{}, err
	}

	b := core.Budget{
		ID:         uuid.New(),
		UserID:     userID,
		CategoryID: in.CategoryID,
		Amount:     in.Amount,
		Month:      firstOfMonth(in.Month),
	}

	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := ownedCategory(ctx, q, userID, in.CategoryID, ""); err != nil {
			return err
		}
		exists, err := q.BudgetExists(ctx, userID, in.CategoryID, b.Month)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: a budget for this category and month already exists", core.ErrValidation)
		}
		return q.CreateBudget(ctx, b)
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	slog.InfoContext(ctx, "Created budget",
		"budget_id", b.ID, "user_id", userID, "category_id", in.CategoryID, "month", b.Month.Format("2006-01"))
	return b, nil
}

// UpdateAmount changes a budget's cap.
func (s *BudgetService) UpdateAmount(ctx context.Context, userID, id uuid.UUID, amount decimal.Decimal) (core.Budget, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return core.Budget{}, err
	}

	var b core.Budget
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		b, err = q.GetBudget(ctx, id)
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return fmt.Errorf("budget %s: %w", id, core.ErrForbidden)
		}
		b.Amount = amount
		return q.UpdateBudgetAmount(ctx, id, amount.String())
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}

	slog.InfoContext(ctx, "Updated budget", "budget_id", id, "user_id", userID, "amount", amount)
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		b, err := q.GetBudget(ctx, id)
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return fmt.Errorf("budget %s: %w", id, core.ErrForbidden)
		}
		return q.DeleteBudget(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}

	slog.InfoContext(ctx, "Deleted budget", "budget_id", id, "user_id", userID)
	return nil
}

// List returns the user's budgets; month, when non-nil, restricts the
// listing to that calendar month.
func (s *BudgetService) List(ctx context.Context, userID uuid.UUID, month *time.Time) ([]core.Budget, error) {
	if month != nil {
		m := firstOfMonth(*month)
		month = &m
	}
	return s.repo.Queries().ListBudgets(ctx, userID, month)
}
