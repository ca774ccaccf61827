package bigquery

import "cloud.google.com/go/bigquery"

// InvestmentRow is one row of finance.investments, a snapshot of a holding
// refreshed by the market data loader.
type InvestmentRow struct {
	Symbol string              `bigquery:"symbol"` // REQUIRED
	Name   bigquery.NullString `bigquery:"name"`   // NULLABLE

	Shares           bigquery.NullFloat64 `bigquery:"shares"`
	CurrentPrice     bigquery.NullFloat64 `bigquery:"current_price"`
	TotalValue       bigquery.NullFloat64 `bigquery:"total_value"`
	DayChange        bigquery.NullFloat64 `bigquery:"day_change"`
	DayChangePercent bigquery.NullFloat64 `bigquery:"day_change_percent"`

	Sector    bigquery.NullString  `bigquery:"sector"`
	MarketCap bigquery.NullString  `bigquery:"market_cap"`
	PERatio   bigquery.NullFloat64 `bigquery:"pe_ratio"`
	Dividend  bigquery.NullFloat64 `bigquery:"dividend_yield"`
	Rating    bigquery.NullString  `bigquery:"rating"`

	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}
