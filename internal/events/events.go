// Package events publishes balance-change notifications to AMQP so external
// consumers (budget alerts, dashboards) can react without polling the
// database. Publishing is best-effort: a failed publish is logged by the
// caller and never fails the originating transaction, which has already
// committed by the time the event goes out.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BalanceEvent announces that an account balance changed and why.
type BalanceEvent struct {
	AccountID uuid.UUID `json:"account_id"`
	Balance   string    `json:"balance"`
	Cause     string    `json:"cause"`
	Timestamp time.Time `json:"timestamp"`
}

// Causes carried on BalanceEvent.
const (
	CauseExpense      = "expense"
	CauseIncome       = "income"
	CauseDebtPayment  = "debt_payment"
	CauseContribution = "saving_contribution"
	CauseRecalculate  = "recalculate"
)

func NewBalanceEvent(accountID uuid.UUID, balance, cause string) *BalanceEvent {
	return &BalanceEvent{
		AccountID: accountID,
		Balance:   balance,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

func (e *BalanceEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func BalanceEventFromJSON(data []byte) (*BalanceEvent, error) {
	var e BalanceEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
