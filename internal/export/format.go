package export

import (
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

const (
	// DateLayout is the fixed date rendering of every formatter.
	DateLayout = "2006-01-02"

	// DefaultCategoryName replaces a missing transaction category.
	DefaultCategoryName = "Uncategorized"
	// DefaultAccountName replaces a missing transaction account.
	DefaultAccountName = "Unknown Account"
	// MissingDate replaces an absent created/updated timestamp.
	MissingDate = "N/A"
)

// Column names of the transactions export, in order.
var TransactionColumns = []string{"Date", "Description", "Category", "Account", "Type", "Amount", "Created At"}

// Column names of the accounts export, in order.
var AccountColumns = []string{"Account Name", "Account Type", "Current Balance", "Created At"}

// Column names of the investments export, in order.
var InvestmentColumns = []string{
	"Symbol", "Name", "Shares", "Current Price", "Total Value", "Day Change", "Day Change %",
	"Sector", "Market Cap", "P/E Ratio", "Dividend Yield", "Rating", "Last Updated",
}

// FormatTransactionsForCSV projects transactions into CSV records with the
// columns of TransactionColumns.
func FormatTransactionsForCSV(txs []domain.Transaction) []Record {
	records := make([]Record, 0, len(txs))
	for _, tx := range txs {
		category := DefaultCategoryName
		if tx.Category != nil {
			category = tx.Category.Name
		}
		account := DefaultAccountName
		if tx.Account != nil {
			account = tx.Account.AccountName
		}

		records = append(records, Record{
			{"Date", formatDate(tx.TransactionDate)},
			{"Description", tx.Description},
			{"Category", category},
			{"Account", account},
			{"Type", string(tx.Type)},
			{"Amount", tx.Amount},
			{"Created At", formatOptionalDate(tx.CreatedAt)},
		})
	}
	return records
}

// FormatAccountsForCSV projects accounts into CSV records with the columns
// of AccountColumns.
func FormatAccountsForCSV(accounts []domain.Account) []Record {
	records := make([]Record, 0, len(accounts))
	for _, a := range accounts {
		records = append(records, Record{
			{"Account Name", a.AccountName},
			{"Account Type", a.AccountType},
			{"Current Balance", a.CurrentBalance},
			{"Created At", formatOptionalDate(a.CreatedAt)},
		})
	}
	return records
}

// FormatInvestmentsForCSV projects investments into CSV records with the
// columns of InvestmentColumns.
func FormatInvestmentsForCSV(investments []domain.Investment) []Record {
	records := make([]Record, 0, len(investments))
	for _, inv := range investments {
		records = append(records, Record{
			{"Symbol", inv.Symbol},
			{"Name", inv.Name},
			{"Shares", inv.Shares},
			{"Current Price", inv.CurrentPrice},
			{"Total Value", inv.TotalValue},
			{"Day Change", inv.DayChange},
			{"Day Change %", inv.DayChangePercent},
			{"Sector", inv.Sector},
			{"Market Cap", inv.MarketCap},
			{"P/E Ratio", inv.PE},
			{"Dividend Yield", inv.Dividend},
			{"Rating", inv.Rating},
			{"Last Updated", formatOptionalDate(inv.UpdatedAt)},
		})
	}
	return records
}

// formatDate renders t in its own location so a stored calendar date never
// shifts by a day.
func formatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return MissingDate
	}
	return formatDate(*t)
}
