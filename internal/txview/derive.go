package txview

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// uncategorized is the sort name of a transaction without a category.
const uncategorized = "Uncategorized"

// Stats are the aggregate counts shown above the transactions list.
type Stats struct {
	Total     int `json:"total"`
	Income    int `json:"income"`
	Expense   int `json:"expense"`
	ThisMonth int `json:"this_month"`
}

// View is the derived, display-ready projection of a transaction list.
type View struct {
	State        ViewState            `json:"state"`
	Transactions []domain.Transaction `json:"transactions"`
	Stats        Stats                `json:"stats"`
}

// Derive filters and sorts txs according to state and computes the stats of
// the result, evaluating "this month" against now. txs is not modified.
func Derive(txs []domain.Transaction, state ViewState, now time.Time) View {
	state = state.Normalize()
	result := Apply(txs, state)
	return View{
		State:        state,
		Transactions: result,
		Stats:        ComputeStats(result, now),
	}
}

// Apply returns the filtered and sorted copy of txs for state.
func Apply(txs []domain.Transaction, state ViewState) []domain.Transaction {
	state = state.Normalize()
	term := strings.ToLower(state.SearchTerm)

	result := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if Matches(tx, term, state.FilterType) {
			result = append(result, tx)
		}
	}

	slices.SortStableFunc(result, comparator(state.SortBy))
	return result
}

// Matches reports whether tx passes the search term (already lower-cased)
// and the type filter.
func Matches(tx domain.Transaction, lowerTerm string, filter FilterType) bool {
	matchesSearch := strings.Contains(strings.ToLower(tx.Description), lowerTerm) ||
		(tx.Category != nil && strings.Contains(strings.ToLower(tx.Category.Name), lowerTerm))

	matchesType := filter == FilterAll || filter == "" || string(tx.Type) == string(filter)

	return matchesSearch && matchesType
}

func comparator(key SortKey) func(a, b domain.Transaction) int {
	switch key {
	case SortByAmount:
		return func(a, b domain.Transaction) int {
			return cmp.Compare(math.Abs(b.Amount), math.Abs(a.Amount))
		}
	case SortByCategory:
		return func(a, b domain.Transaction) int {
			ca, cb := sortCategory(a), sortCategory(b)
			if c := strings.Compare(strings.ToLower(ca), strings.ToLower(cb)); c != 0 {
				return c
			}
			return strings.Compare(ca, cb)
		}
	default:
		return func(a, b domain.Transaction) int {
			return b.TransactionDate.Compare(a.TransactionDate)
		}
	}
}

func sortCategory(tx domain.Transaction) string {
	if tx.Category == nil {
		return uncategorized
	}
	return tx.Category.Name
}

// ComputeStats counts txs by type and by whether their calendar date falls in
// the month of now. Transaction dates are read in their own location, so a
// stored calendar date is never shifted into a neighbouring month.
func ComputeStats(txs []domain.Transaction, now time.Time) Stats {
	year, month, _ := now.Date()

	stats := Stats{Total: len(txs)}
	for _, tx := range txs {
		switch tx.Type {
		case domain.TransactionTypeIncome:
			stats.Income++
		case domain.TransactionTypeExpense:
			stats.Expense++
		}

		y, m, _ := tx.TransactionDate.Date()
		if y == year && m == month {
			stats.ThisMonth++
		}
	}
	return stats
}
