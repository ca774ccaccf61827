package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

func investmentsQuery(d Dataset) string {
	return `
		SELECT
			symbol,
			name,
			shares,
			current_price,
			total_value,
			day_change,
			day_change_percent,
			sector,
			market_cap,
			pe_ratio,
			dividend_yield,
			rating,
			updated_ts
		FROM ` + d.Table(investmentsTable) + `
		ORDER BY total_value DESC, symbol
	`
}

// ListInvestmentRowsWithClient retrieves every holding using the provided
// BigQuery client.
func ListInvestmentRowsWithClient(ctx context.Context, client *bigquery.Client, d Dataset) ([]*InvestmentRow, error) {
	it, err := client.Query(investmentsQuery(d)).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListInvestmentRows: reading query: %w", err)
	}

	var rows []*InvestmentRow
	for {
		var row InvestmentRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListInvestmentRows: iterating: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}
