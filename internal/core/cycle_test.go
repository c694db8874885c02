package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func intPtr(v int) *int { return &v }

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func cardExpense(accountID uuid.UUID, amount string, date time.Time) Expense {
	id := accountID
	d, _ := decimal.NewFromString(amount)
	return Expense{ID: uuid.New(), AccountID: &id, Amount: d, Date: date}
}

func TestBillingCycle(t *testing.T) {
	accID := uuid.New()
	acc := Account{
		ID:                   accID,
		Type:                 CreditCard,
		Balance:              dec(t, "1500"),
		BillingCycleStartDay: intPtr(15),
	}

	// Today the 20th: cycle started on the 15th of this month. 500 spent
	// since then, so 1000 belongs to the last statement.
	today := time.Date(2025, time.June, 20, 0, 0, 0, 0, time.UTC)
	expenses := []Expense{
		cardExpense(accID, "300", time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC)),
		cardExpense(accID, "200", time.Date(2025, time.June, 18, 0, 0, 0, 0, time.UTC)),
		cardExpense(accID, "999", time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)), // before cycle
	}

	sum, ok := BillingCycle(acc, today, expenses)
	if !ok {
		t.Fatal("expected summary for credit card with cycle day")
	}
	wantStart := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	if !sum.CycleStart.Equal(wantStart) {
		t.Errorf("CycleStart = %v, want %v", sum.CycleStart, wantStart)
	}
	if !sum.CurrentCycleSpent.Equal(dec(t, "500")) {
		t.Errorf("CurrentCycleSpent = %s, want 500", sum.CurrentCycleSpent)
	}
	if !sum.LastStatementBalance.Equal(dec(t, "1000")) {
		t.Errorf("LastStatementBalance = %s, want 1000", sum.LastStatementBalance)
	}
	if sum.LastStatementPaid {
		t.Error("LastStatementPaid = true, want false")
	}
}

func TestBillingCyclePreviousMonth(t *testing.T) {
	acc := Account{ID: uuid.New(), Type: CreditCard, Balance: decimal.Zero, BillingCycleStartDay: intPtr(25)}

	// Today the 10th, before the cycle day: the window opened on the 25th
	// of the previous month.
	today := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	sum, ok := BillingCycle(acc, today, nil)
	if !ok {
		t.Fatal("expected summary")
	}
	wantStart := time.Date(2025, time.February, 25, 0, 0, 0, 0, time.UTC)
	if !sum.CycleStart.Equal(wantStart) {
		t.Errorf("CycleStart = %v, want %v", sum.CycleStart, wantStart)
	}
}

func TestBillingCycleClampsShortMonths(t *testing.T) {
	acc := Account{ID: uuid.New(), Type: CreditCard, Balance: decimal.Zero, BillingCycleStartDay: intPtr(31)}

	cases := []struct {
		name  string
		today time.Time
		want  time.Time
	}{
		{
			// Cycle day 31 while standing in March before the 31st: the
			// previous month is February, clamped to the 28th.
			name:  "february clamp",
			today: time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "leap february clamp",
			today: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "thirty day month clamp",
			today: time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "january wraps to december",
			today: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sum, ok := BillingCycle(acc, tc.today, nil)
			if !ok {
				t.Fatal("expected summary")
			}
			if !sum.CycleStart.Equal(tc.want) {
				t.Errorf("CycleStart = %v, want %v", sum.CycleStart, tc.want)
			}
		})
	}
}

func TestBillingCycleNotApplicable(t *testing.T) {
	today := time.Now()

	if _, ok := BillingCycle(Account{Type: Savings}, today, nil); ok {
		t.Error("savings account should have no billing cycle")
	}
	if _, ok := BillingCycle(Account{Type: CreditCard}, today, nil); ok {
		t.Error("credit card without cycle start day should have no billing cycle")
	}
}

func TestBillingCyclePaidStatement(t *testing.T) {
	accID := uuid.New()
	acc := Account{ID: accID, Type: CreditCard, Balance: dec(t, "200"), BillingCycleStartDay: intPtr(1)}
	today := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)

	// Everything on the card was spent inside the current cycle, so the
	// last statement balance is zero and counts as paid.
	expenses := []Expense{
		cardExpense(accID, "200", time.Date(2025, time.July, 3, 0, 0, 0, 0, time.UTC)),
	}
	sum, ok := BillingCycle(acc, today, expenses)
	if !ok {
		t.Fatal("expected summary")
	}
	if !sum.LastStatementPaid {
		t.Errorf("LastStatementPaid = false, want true (balance %s)", sum.LastStatementBalance)
	}
}
