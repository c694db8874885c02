// Package core holds the domain model of the finance manager: accounts,
// categories, ledger entries, debts, savings and budgets, together with the
// pure rules that govern them (sign conventions, billing cycles, category
// nesting). Nothing in this package performs I/O.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	CreditCard AccountType = "CREDIT_CARD"
	Savings    AccountType = "SAVINGS"
)

// ParseAccountType canonicalizes a user-supplied account type.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(strings.ToUpper(strings.TrimSpace(s))) {
	case CreditCard:
		return CreditCard, nil
	case Savings:
		return Savings, nil
	default:
		return "", fmt.Errorf("%w: account type must be CREDIT_CARD or SAVINGS", ErrValidation)
	}
}

type CategoryType string

const (
	CategoryIncome  CategoryType = "INCOME"
	CategoryExpense CategoryType = "EXPENSE"
	CategoryBudget  CategoryType = "BUDGET"
)

// ParseCategoryType canonicalizes a user-supplied category type.
func ParseCategoryType(s string) (CategoryType, error) {
	switch CategoryType(strings.ToUpper(strings.TrimSpace(s))) {
	case CategoryIncome:
		return CategoryIncome, nil
	case CategoryExpense:
		return CategoryExpense, nil
	case CategoryBudget:
		return CategoryBudget, nil
	default:
		return "", fmt.Errorf("%w: category type must be INCOME, EXPENSE, or BUDGET", ErrValidation)
	}
}

// EntryKind distinguishes the two balance-affecting transaction kinds.
type EntryKind string

const (
	KindExpense EntryKind = "expense"
	KindIncome  EntryKind = "income"
)

type Account struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Name     string
	Type     AccountType
	Balance  decimal.Decimal
	BankName string

	// Credit-card cycle fields; nil for savings accounts.
	BillingCycleStartDay *int
	BillDateDay          *int
	DueDateDay           *int
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: account name is required", ErrValidation)
	}
	if a.Type != CreditCard && a.Type != Savings {
		return fmt.Errorf("%w: account type must be CREDIT_CARD or SAVINGS", ErrValidation)
	}
	for _, day := range []*int{a.BillingCycleStartDay, a.BillDateDay, a.DueDateDay} {
		if day != nil && (*day < 1 || *day > 31) {
			return fmt.Errorf("%w: cycle day must be between 1 and 31", ErrValidation)
		}
	}
	return nil
}

// Category is one node of a per-user category forest. The forest is stored
// as an arena of flat rows keyed by id with an explicit parent id; children
// are materialized only on read via BuildTree.
type Category struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Name     string
	Type     CategoryType
	ParentID *uuid.UUID

	// Remaining generations of subcategories allowed beneath this node.
	// nil means unlimited, 0 forbids children.
	AllowedNestingDepth *int
}

// CategoryNode is a category with its children attached, as returned by
// tree reads.
type CategoryNode struct {
	Category
	SubCategories []*CategoryNode
}

type Expense struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	CategoryID  uuid.UUID
	AccountID   *uuid.UUID
	DebtID      *uuid.UUID
	SavingID    *uuid.UUID
	Name        string
	Description string
	Amount      decimal.Decimal
	Date        time.Time
}

// Managed reports whether the expense was generated by a debt payment or a
// saving contribution. Managed expenses are only mutated through their
// owning cascade operation.
func (e Expense) Managed() bool {
	return e.DebtID != nil || e.SavingID != nil
}

type Income struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	CategoryID  uuid.UUID
	AccountID   uuid.UUID
	Name        string
	Description string
	Amount      decimal.Decimal
	Date        time.Time
}

type Debt struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	Description   string
	Amount        decimal.Decimal
	InitialAmount decimal.Decimal
	Interest      decimal.Decimal
	LoanType      string
	TotalEmis     *int
	EmisPending   *int
	StartDate     *time.Time
	EndDate       *time.Time
	DueDate       *time.Time
	CreatedAt     time.Time
}

type Saving struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Category  string
	Amount    decimal.Decimal
	Target    decimal.Decimal
	Date      *time.Time
	CreatedAt time.Time
}

// Budget caps spending for one category in one month. Month is normalized
// to the first day of the month.
type Budget struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	CategoryID uuid.UUID
	Amount     decimal.Decimal
	Month      time.Time
}
