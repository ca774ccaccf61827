package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
)

// AccountRow is one row of the dashboard accounts query. CurrentBalance is
// the balance_after of the account's latest transaction.
type AccountRow struct {
	AccountID string `bigquery:"account_id"` // REQUIRED

	AccountName   string `bigquery:"account_name"`   // NULLABLE (empty string → "")
	AccountNumber string `bigquery:"account_number"` // NULLABLE
	IBAN          string `bigquery:"iban"`           // NULLABLE
	Currency      string `bigquery:"currency"`       // NULLABLE
	AccountType   string `bigquery:"account_type"`   // NULLABLE

	CurrentBalance *big.Rat               `bigquery:"current_balance"` // NUMERIC, NULL without transactions
	CreatedTS      bigquery.NullTimestamp `bigquery:"created_ts"`      // TIMESTAMP, NULLABLE
}
