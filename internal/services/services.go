// Package services implements the application operations on top of storage:
// the ledger engine, account and category management, debt/saving cascades
// and budgets. Every balance-affecting operation runs inside one storage
// transaction; balance events are published only after commit.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finman/internal/core"
	"finman/internal/events"
	"finman/internal/storage"
)

// ownedAccount loads an account referenced by a request body. A missing or
// foreign account is the caller's input being wrong, so both map to
// ErrValidation rather than leaking which ids exist for other users.
func ownedAccount(ctx context.Context, q *storage.Queries, userID, id uuid.UUID) (core.Account, error) {
	acc, err := q.GetAccount(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Account{}, fmt.Errorf("%w: account %s does not exist", core.ErrValidation, id)
	}
	if err != nil {
		return core.Account{}, err
	}
	if acc.UserID != userID {
		return core.Account{}, fmt.Errorf("%w: account %s does not belong to the user", core.ErrValidation, id)
	}
	return acc, nil
}

// ownedCategory loads a category referenced by a request body, optionally
// requiring a type. Missing, foreign, or mistyped categories are all
// validation failures.
func ownedCategory(ctx context.Context, q *storage.Queries, userID, id uuid.UUID, want core.CategoryType) (core.Category, error) {
	c, err := q.GetCategory(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Category{}, fmt.Errorf("%w: category %s does not exist", core.ErrValidation, id)
	}
	if err != nil {
		return core.Category{}, err
	}
	if c.UserID != userID {
		return core.Category{}, fmt.Errorf("%w: category %s does not belong to the user", core.ErrValidation, id)
	}
	if want != "" && c.Type != want {
		return core.Category{}, fmt.Errorf("%w: category %q is not a %s category", core.ErrValidation, c.Name, want)
	}
	return c, nil
}

func validateEntry(name string, amount decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", core.ErrValidation)
	}
	return core.ValidateAmount(amount)
}

// applyBalanceMoves adjusts account balances when a ledger entry of the
// given kind moves from (oldAcc, oldAmount) to (newAcc, newAmount). Either
// side may be nil: create passes no old side, delete passes no new side.
// When both sides name the same account the reversal and the new delta are
// folded into one write so the intermediate balance is never visible.
//
// Only the new account is ownership-checked; the old side was validated
// when the entry was first recorded.
func applyBalanceMoves(ctx context.Context, q *storage.Queries, userID uuid.UUID, kind core.EntryKind,
	oldAcc *uuid.UUID, oldAmount decimal.Decimal,
	newAcc *uuid.UUID, newAmount decimal.Decimal, cause string) ([]*events.BalanceEvent, error) {

	if oldAcc != nil && newAcc != nil && *oldAcc == *newAcc {
		acc, err := ownedAccount(ctx, q, userID, *newAcc)
		if err != nil {
			return nil, err
		}
		balance := acc.Balance.
			Sub(core.DeltaFor(acc.Type, kind, oldAmount)).
			Add(core.DeltaFor(acc.Type, kind, newAmount))
		if err := q.UpdateAccountBalance(ctx, acc.ID, balance); err != nil {
			return nil, err
		}
		return []*events.BalanceEvent{events.NewBalanceEvent(acc.ID, balance.String(), cause)}, nil
	}

	var evts []*events.BalanceEvent
	if oldAcc != nil {
		acc, err := q.GetAccount(ctx, *oldAcc)
		if err != nil {
			return nil, err
		}
		balance := acc.Balance.Sub(core.DeltaFor(acc.Type, kind, oldAmount))
		if err := q.UpdateAccountBalance(ctx, acc.ID, balance); err != nil {
			return nil, err
		}
		evts = append(evts, events.NewBalanceEvent(acc.ID, balance.String(), cause))
	}
	if newAcc != nil {
		acc, err := ownedAccount(ctx, q, userID, *newAcc)
		if err != nil {
			return nil, err
		}
		balance := acc.Balance.Add(core.DeltaFor(acc.Type, kind, newAmount))
		if err := q.UpdateAccountBalance(ctx, acc.ID, balance); err != nil {
			return nil, err
		}
		evts = append(evts, events.NewBalanceEvent(acc.ID, balance.String(), cause))
	}
	return evts, nil
}

// publishAll pushes balance events after the owning transaction committed.
// Publish failures are logged and swallowed; the mutation already happened.
func publishAll(ctx context.Context, publisher *events.Publisher, evts []*events.BalanceEvent) {
	for _, evt := range evts {
		if err := publisher.PublishBalanceEvent(ctx, evt); err != nil {
			slog.ErrorContext(ctx, "Failed to publish balance event",
				"account_id", evt.AccountID, "cause", evt.Cause, "error", err)
		}
	}
}
