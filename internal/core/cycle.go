package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CycleSummary describes the state of a credit card's current billing cycle.
// It is derived on every read from the account and its expense history and
// is never persisted, so it cannot drift.
type CycleSummary struct {
	CycleStart           time.Time
	CurrentCycleSpent    decimal.Decimal
	LastStatementBalance decimal.Decimal
	LastStatementPaid    bool
}

// BillingCycle computes the current cycle window and statement figures for a
// credit-card account. The second return value is false when the account is
// not a credit card or has no configured cycle start day.
//
// The cycle starts on BillingCycleStartDay of the current month if today has
// reached that day, otherwise on that day of the previous month. The day is
// clamped for short months (day 31 in February starts on the 28th/29th).
func BillingCycle(acc Account, today time.Time, expenses []Expense) (CycleSummary, bool) {
	if acc.Type != CreditCard || acc.BillingCycleStartDay == nil {
		return CycleSummary{}, false
	}

	day := *acc.BillingCycleStartDay
	year, month, _ := today.Date()
	if today.Day() < day {
		month--
		if month < time.January {
			month = time.December
			year--
		}
	}
	cycleStart := time.Date(year, month, min(day, daysInMonth(year, month)), 0, 0, 0, 0, today.Location())

	spent := decimal.Zero
	for _, e := range expenses {
		if e.AccountID == nil || *e.AccountID != acc.ID {
			continue
		}
		if !e.Date.Before(cycleStart) {
			spent = spent.Add(e.Amount)
		}
	}

	// Whatever part of the debt predates this cycle belongs to the last
	// statement; it counts as paid once it is zero or negative.
	lastStatement := acc.Balance.Sub(spent)

	return CycleSummary{
		CycleStart:           cycleStart,
		CurrentCycleSpent:    spent,
		LastStatementBalance: lastStatement,
		LastStatementPaid:    lastStatement.Sign() <= 0,
	}, true
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
