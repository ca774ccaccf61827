package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/logger"
)

// TransactionFromRow converts a query row into a validated domain
// transaction. The type comes from the direction column and falls back to
// the sign of the amount.
func TransactionFromRow(r *TransactionRow) (domain.Transaction, error) {
	if r.Amount == nil {
		return domain.Transaction{}, fmt.Errorf("TransactionFromRow: %s: amount is NULL", r.TransactionID)
	}
	amount := ratToFloat(r.Amount)

	description := r.RawDescription
	if r.NormalizedDescription.Valid && strings.TrimSpace(r.NormalizedDescription.StringVal) != "" {
		description = r.NormalizedDescription.StringVal
	}

	tx := domain.Transaction{
		ID:          r.TransactionID,
		Description: description,
		Amount:      amount,
		Type:        transactionType(r.Direction.StringVal, amount),
	}
	if !r.TransactionDate.IsZero() {
		tx.TransactionDate = r.TransactionDate.In(time.UTC)
	}
	if !r.CreatedTS.IsZero() {
		created := r.CreatedTS
		tx.CreatedAt = &created
	}
	if r.CategoryName.Valid && r.CategoryName.StringVal != "" {
		tx.Category = &domain.Category{Name: r.CategoryName.StringVal}
	}
	if r.AccountName.Valid && r.AccountName.StringVal != "" {
		tx.Account = &domain.AccountRef{AccountName: r.AccountName.StringVal}
	}

	if err := domain.Validate(tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("TransactionFromRow: %w", err)
	}
	return tx, nil
}

func transactionType(direction string, amount float64) domain.TransactionType {
	switch strings.ToUpper(strings.TrimSpace(direction)) {
	case "IN":
		return domain.TransactionTypeIncome
	case "OUT":
		return domain.TransactionTypeExpense
	}
	return domain.TypeFromAmount(amount)
}

// AccountFromRow converts a query row into a validated domain account. An
// unnamed account is labelled by its number or IBAN.
func AccountFromRow(r *AccountRow) (domain.Account, error) {
	name := strings.TrimSpace(r.AccountName)
	if name == "" {
		name = strings.TrimSpace(r.AccountNumber)
	}
	if name == "" {
		name = strings.TrimSpace(r.IBAN)
	}

	a := domain.Account{
		ID:          r.AccountID,
		AccountName: name,
		AccountType: r.AccountType,
	}
	if r.CurrentBalance != nil {
		a.CurrentBalance = ratToFloat(r.CurrentBalance)
	}
	if r.CreatedTS.Valid {
		created := r.CreatedTS.Timestamp
		a.CreatedAt = &created
	}

	if err := domain.Validate(a); err != nil {
		return domain.Account{}, fmt.Errorf("AccountFromRow: %w", err)
	}
	return a, nil
}

// InvestmentFromRow converts a query row into a validated domain investment.
// NULL numbers become zero and NULL strings become empty.
func InvestmentFromRow(r *InvestmentRow) (domain.Investment, error) {
	inv := domain.Investment{
		Symbol:           strings.ToUpper(strings.TrimSpace(r.Symbol)),
		Name:             r.Name.StringVal,
		Shares:           r.Shares.Float64,
		CurrentPrice:     r.CurrentPrice.Float64,
		TotalValue:       r.TotalValue.Float64,
		DayChange:        r.DayChange.Float64,
		DayChangePercent: r.DayChangePercent.Float64,
		Sector:           r.Sector.StringVal,
		MarketCap:        r.MarketCap.StringVal,
		PE:               r.PERatio.Float64,
		Dividend:         r.Dividend.Float64,
		Rating:           r.Rating.StringVal,
	}
	if r.UpdatedTS.Valid {
		updated := r.UpdatedTS.Timestamp
		inv.UpdatedAt = &updated
	}

	if err := domain.Validate(inv); err != nil {
		return domain.Investment{}, fmt.Errorf("InvestmentFromRow: %w", err)
	}
	return inv, nil
}

// convertRows converts rows with conv, skipping and logging the rows that
// fail conversion.
func convertRows[R any, D any](ctx context.Context, kind string, rows []*R, conv func(*R) (D, error)) []D {
	log := logger.FromContext(ctx)

	out := make([]D, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		d, err := conv(r)
		if err != nil {
			skipped++
			log.Warn().Err(err).Str("kind", kind).Msg("Skipping invalid row")
			continue
		}
		out = append(out, d)
	}

	if skipped > 0 {
		log.Warn().Str("kind", kind).Int("skipped", skipped).Int("kept", len(out)).Msg("Some rows were skipped")
	}
	return out
}

func ratToFloat(r *big.Rat) float64 {
	f, _ := r.Float64()
	return f
}
