package core

import "github.com/shopspring/decimal"

// signTable encodes how a transaction moves an account balance.
//
// A credit-card balance tracks outstanding debt: spending grows it, repaying
// (income) shrinks it. A savings balance tracks available funds: spending
// shrinks it, income grows it.
var signTable = map[AccountType]map[EntryKind]int64{
	CreditCard: {KindExpense: 1, KindIncome: -1},
	Savings:    {KindExpense: -1, KindIncome: 1},
}

// SignFor returns +1 or -1 for the given account type and entry kind.
func SignFor(t AccountType, kind EntryKind) int64 {
	return signTable[t][kind]
}

// DeltaFor returns the signed balance adjustment caused by recording an
// entry of the given kind. Reversal is the exact negation; callers pass a
// negative amount (or negate the result) to undo an entry.
func DeltaFor(t AccountType, kind EntryKind, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(SignFor(t, kind)))
}

// RecomputedBalance derives an account balance from scratch out of its
// independent expense and income totals. The incrementally maintained
// balance must always agree with this figure; the "recalculate" operation
// exists to restore the equality if it is ever broken.
func RecomputedBalance(t AccountType, totalExpenses, totalIncomes decimal.Decimal) decimal.Decimal {
	if t == CreditCard {
		// spent minus repaid
		return totalExpenses.Sub(totalIncomes)
	}
	// funds added minus funds spent
	return totalIncomes.Sub(totalExpenses)
}
