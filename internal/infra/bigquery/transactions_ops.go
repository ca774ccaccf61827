package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

const (
	transactionsTable = "transactions"
	accountsTable     = "accounts"
	parsingRunsTable  = "parsing_runs"
	investmentsTable  = "investments"
)

// Dataset locates the finance tables.
type Dataset struct {
	ProjectID string
	DatasetID string
}

// Table returns the backquoted, fully qualified name of a table.
func (d Dataset) Table(name string) string {
	return "`" + d.ProjectID + "." + d.DatasetID + "." + name + "`"
}

// transactionsQuery selects transactions of successful parsing runs, so rows
// of superseded runs are never shown, newest first.
func transactionsQuery(d Dataset, withStartDate bool) string {
	var b strings.Builder
	b.WriteString(`
		SELECT
			t.transaction_id,
			t.transaction_date,
			t.amount,
			t.currency,
			t.direction,
			t.raw_description,
			t.normalized_description,
			t.category_name,
			a.account_name,
			t.created_ts
		FROM ` + d.Table(transactionsTable) + ` t
		INNER JOIN ` + d.Table(parsingRunsTable) + ` pr
		  ON t.parsing_run_id = pr.parsing_run_id
		LEFT JOIN ` + d.Table(accountsTable) + ` a
		  ON t.account_id = a.account_id
		WHERE pr.status = 'SUCCESS'`)
	if withStartDate {
		b.WriteString(`
		  AND t.transaction_date >= @start_date`)
	}
	b.WriteString(`
		ORDER BY t.transaction_date DESC, t.created_ts DESC
	`)
	return b.String()
}

// ListTransactionRowsWithClient reads transactions dated on or after since
// using the provided BigQuery client. A zero since reads every transaction.
func ListTransactionRowsWithClient(ctx context.Context, client *bigquery.Client, d Dataset, since time.Time) ([]*TransactionRow, error) {
	q := client.Query(transactionsQuery(d, !since.IsZero()))
	if !since.IsZero() {
		q.Parameters = []bigquery.QueryParameter{
			{Name: "start_date", Value: civil.DateOf(since)},
		}
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionRows: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionRows: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
