package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// accountsQuery lists accounts with the balance_after of their most recent
// transaction as the current balance.
func accountsQuery(d Dataset) string {
	return `
		WITH latest_balance AS (
			SELECT
				account_id,
				balance_after,
				ROW_NUMBER() OVER (
					PARTITION BY account_id
					ORDER BY transaction_date DESC, created_ts DESC
				) AS rn
			FROM ` + d.Table(transactionsTable) + `
			WHERE balance_after IS NOT NULL
		)
		SELECT
			a.account_id,
			a.account_name,
			a.account_number,
			a.iban,
			a.currency,
			a.account_type,
			b.balance_after AS current_balance,
			a.created_ts
		FROM ` + d.Table(accountsTable) + ` a
		LEFT JOIN latest_balance b
		  ON a.account_id = b.account_id AND b.rn = 1
		WHERE a.closed_date IS NULL
		ORDER BY a.created_ts DESC
	`
}

// ListAccountRowsWithClient retrieves open accounts using the provided
// BigQuery client.
func ListAccountRowsWithClient(ctx context.Context, client *bigquery.Client, d Dataset) ([]*AccountRow, error) {
	it, err := client.Query(accountsQuery(d)).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccountRows: reading query: %w", err)
	}

	var accounts []*AccountRow
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAccountRows: iterating: %w", err)
		}
		accounts = append(accounts, &row)
	}

	return accounts, nil
}
