package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/export"
)

// Repository is the BigQuery record source of the dashboard. It holds a
// shared BigQuery client to avoid creating a new connection for each read.
type Repository struct {
	client   *bigquery.Client
	dataset  Dataset
	lookback int
	now      func() time.Time
}

// NewRepository creates a Repository for the configured dataset.
func NewRepository(ctx context.Context, cfg config.BigQueryConfig) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{
		client:   client,
		dataset:  Dataset{ProjectID: cfg.ProjectID, DatasetID: cfg.DatasetID},
		lookback: cfg.LookbackDays,
		now:      time.Now,
	}, nil
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ListTransactions returns the transactions inside the lookback window,
// newest first. Rows that fail validation are skipped.
func (r *Repository) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := ListTransactionRowsWithClient(ctx, r.client, r.dataset, r.since())
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return convertRows(ctx, "transaction", rows, TransactionFromRow), nil
}

// ListAccounts returns the open accounts with their current balances.
func (r *Repository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := ListAccountRowsWithClient(ctx, r.client, r.dataset)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return convertRows(ctx, "account", rows, AccountFromRow), nil
}

// ListInvestments returns every holding, largest position first.
func (r *Repository) ListInvestments(ctx context.Context) ([]domain.Investment, error) {
	rows, err := ListInvestmentRowsWithClient(ctx, r.client, r.dataset)
	if err != nil {
		return nil, fmt.Errorf("ListInvestments: %w", err)
	}
	return convertRows(ctx, "investment", rows, InvestmentFromRow), nil
}

// since returns the first date of the lookback window, or the zero time
// when the window is unbounded.
func (r *Repository) since() time.Time {
	if r.lookback <= 0 {
		return time.Time{}
	}
	return r.now().AddDate(0, 0, -r.lookback)
}

var _ export.Source = (*Repository)(nil)
