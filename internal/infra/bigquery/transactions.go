package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// TransactionRow is one row of the dashboard transactions query: a
// finance.transactions row joined with its account name.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount    *big.Rat            `bigquery:"amount"`    // REQUIRED NUMERIC
	Currency  string              `bigquery:"currency"`  // REQUIRED
	Direction bigquery.NullString `bigquery:"direction"` // NULLABLE: IN or OUT

	RawDescription        string              `bigquery:"raw_description"`        // REQUIRED
	NormalizedDescription bigquery.NullString `bigquery:"normalized_description"` // NULLABLE

	CategoryName bigquery.NullString `bigquery:"category_name"` // NULLABLE
	AccountName  bigquery.NullString `bigquery:"account_name"`  // NULLABLE, from accounts

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED (default CURRENT_TIMESTAMP)
}
