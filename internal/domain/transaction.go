package domain

import (
	"time"
)

// TransactionType is the direction of a transaction as shown on the dashboard.
type TransactionType string

const (
	// TransactionTypeIncome is money coming into an account.
	TransactionTypeIncome TransactionType = "income"
	// TransactionTypeExpense is money leaving an account.
	TransactionTypeExpense TransactionType = "expense"
)

// Category is the category relation of a transaction.
type Category struct {
	Name string `json:"name" validate:"required"`
}

// AccountRef is the account relation of a transaction.
type AccountRef struct {
	AccountName string `json:"account_name" validate:"required"`
}

// Transaction is one normalized transaction as consumed by the dashboard views
// and exporters. Category and Account are optional relations; CreatedAt is
// nil when the source did not record it.
type Transaction struct {
	ID              string          `json:"id" validate:"required"`
	Description     string          `json:"description"`
	Amount          float64         `json:"amount"`
	Type            TransactionType `json:"type" validate:"oneof=income expense"`
	TransactionDate time.Time       `json:"transaction_date" validate:"required"`
	CreatedAt       *time.Time      `json:"created_at"`

	Category *Category   `json:"category" validate:"omitempty"`
	Account  *AccountRef `json:"account" validate:"omitempty"`
}

// CategoryName returns the category name or an empty string when the
// transaction has no category.
func (t Transaction) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Name
}

// TypeFromAmount derives the transaction type from a signed amount
// (IN = positive, OUT = negative).
func TypeFromAmount(amount float64) TransactionType {
	if amount < 0 {
		return TransactionTypeExpense
	}
	return TransactionTypeIncome
}
