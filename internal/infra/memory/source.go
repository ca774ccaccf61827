// Package memory provides an in-memory record source for the dashboard.
// It backs the CLI when no warehouse is available and stands in for
// BigQuery in tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/export"
)

// Source is an in-memory implementation of export.Source.
// It is safe for concurrent use and always hands out copies.
type Source struct {
	mu           sync.RWMutex
	transactions []domain.Transaction
	accounts     []domain.Account
	investments  []domain.Investment
}

// NewSource creates an empty source.
func NewSource() *Source {
	return &Source{}
}

// SetTransactions replaces the stored transactions.
func (s *Source) SetTransactions(txs []domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = slices.Clone(txs)
}

// SetAccounts replaces the stored accounts.
func (s *Source) SetAccounts(accounts []domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = slices.Clone(accounts)
}

// SetInvestments replaces the stored investments.
func (s *Source) SetInvestments(investments []domain.Investment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.investments = slices.Clone(investments)
}

// AddTransaction appends one transaction after validating it.
func (s *Source) AddTransaction(tx domain.Transaction) error {
	if err := domain.Validate(tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, tx)
	return nil
}

// ListTransactions implements export.Source.
func (s *Source) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.transactions), nil
}

// ListAccounts implements export.Source.
func (s *Source) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.accounts), nil
}

// ListInvestments implements export.Source.
func (s *Source) ListInvestments(ctx context.Context) ([]domain.Investment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.investments), nil
}

// NewSampleSource returns a source seeded with a small fixed data set dated
// relative to now.
func NewSampleSource(now time.Time) *Source {
	day := func(offset int) time.Time {
		y, m, d := now.Date()
		return time.Date(y, m, d+offset, 0, 0, 0, 0, time.UTC)
	}
	created := day(-90)

	s := NewSource()
	s.SetTransactions([]domain.Transaction{
		{ID: "tx-1", Description: "Salary ACME Ltd", Amount: 3200, Type: domain.TransactionTypeIncome,
			TransactionDate: day(-1), Category: &domain.Category{Name: "Income"}, Account: &domain.AccountRef{AccountName: "Current Account"}},
		{ID: "tx-2", Description: "Rent", Amount: -1450, Type: domain.TransactionTypeExpense,
			TransactionDate: day(-2), Category: &domain.Category{Name: "Housing"}, Account: &domain.AccountRef{AccountName: "Current Account"}},
		{ID: "tx-3", Description: "Tesco, Camden", Amount: -62.35, Type: domain.TransactionTypeExpense,
			TransactionDate: day(-3), Category: &domain.Category{Name: "Groceries"}, Account: &domain.AccountRef{AccountName: "Credit Card"}},
		{ID: "tx-4", Description: `Refund "Headphones"`, Amount: 89.99, Type: domain.TransactionTypeIncome,
			TransactionDate: day(-12)},
		{ID: "tx-5", Description: "Coffee", Amount: -3.2, Type: domain.TransactionTypeExpense,
			TransactionDate: day(-40), Category: &domain.Category{Name: "Eating Out"}, CreatedAt: &created},
	})
	s.SetAccounts([]domain.Account{
		{ID: "acc-1", AccountName: "Current Account", AccountType: "checking", CurrentBalance: 2841.17, CreatedAt: &created},
		{ID: "acc-2", AccountName: "Credit Card", AccountType: "credit", CurrentBalance: -412.9},
		{ID: "acc-3", AccountName: "Savings", AccountType: "savings", CurrentBalance: 12000},
	})
	updated := day(0)
	s.SetInvestments([]domain.Investment{
		{Symbol: "AAPL", Name: "Apple Inc.", Shares: 10, CurrentPrice: 189.5, TotalValue: 1895, DayChange: 1.25,
			DayChangePercent: 0.66, Sector: "Technology", MarketCap: "2.9T", PE: 29.4, Dividend: 0.5, Rating: "Buy", UpdatedAt: &updated},
		{Symbol: "VWRL", Name: "Vanguard FTSE All-World", Shares: 42.5, CurrentPrice: 108.12, TotalValue: 4595.1,
			DayChange: -0.31, DayChangePercent: -0.29, Sector: "ETF", Rating: "Hold"},
	})
	return s
}

var _ export.Source = (*Source)(nil)
