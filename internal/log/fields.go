package log

// Common attribute keys used across the services so log lines stay
// queryable by a single name per concept.
const (
	FieldUserID    = "user_id"
	FieldAccountID = "account_id"
	FieldCategory  = "category_id"
	FieldExpenseID = "expense_id"
	FieldIncomeID  = "income_id"
	FieldDebtID    = "debt_id"
	FieldSavingID  = "saving_id"
	FieldBudgetID  = "budget_id"
	FieldAmount    = "amount"
	FieldBalance   = "balance"
	FieldError     = "error"
)
