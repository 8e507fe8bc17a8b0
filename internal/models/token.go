package models

import "time"

// Currencies accepted for HKT purchases.
const (
	CurrencyUSD  = "USD"
	CurrencyETH  = "ETH"
	CurrencyUSDT = "USDT"
	CurrencyHKT  = "HKT"
)

// Purchase lifecycle states.
const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusCompleted = "completed"
	PurchaseStatusFailed    = "failed"
)

// HktStats is one market snapshot of the HKT token. The newest snapshot by
// UpdatedAt is the authoritative price.
type HktStats struct {
	ID             string
	CurrentPrice   string // decimal string
	PriceChange24h string
	TotalSupply    string
	MarketCap      string
	Volume24h      string
	UpdatedAt      time.Time
}

// TokenPurchase records one recorded HKT acquisition. Monetary fields are
// decimal strings like the property listing prices.
type TokenPurchase struct {
	ID              string
	UserID          string
	Amount          string
	Currency        string
	PricePerToken   string
	TokensReceived  string
	WalletAddress   string
	TransactionHash string
	Status          string
	CreatedAt       time.Time
}
