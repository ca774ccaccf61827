package domain

import "time"

// Account is a financial account with its current balance.
type Account struct {
	ID             string     `json:"id" validate:"required"`
	AccountName    string     `json:"account_name" validate:"required"`
	AccountType    string     `json:"account_type"`
	CurrentBalance float64    `json:"current_balance"`
	CreatedAt      *time.Time `json:"created_at"`
}

// Investment is a single holding in the investments view.
type Investment struct {
	Symbol           string     `json:"symbol" validate:"required"`
	Name             string     `json:"name"`
	Shares           float64    `json:"shares" validate:"gte=0"`
	CurrentPrice     float64    `json:"current_price"`
	TotalValue       float64    `json:"total_value"`
	DayChange        float64    `json:"day_change"`
	DayChangePercent float64    `json:"day_change_percent"`
	Sector           string     `json:"sector"`
	MarketCap        string     `json:"market_cap"`
	PE               float64    `json:"pe"`
	Dividend         float64    `json:"dividend"`
	Rating           string     `json:"rating"`
	UpdatedAt        *time.Time `json:"updated_at"`
}
