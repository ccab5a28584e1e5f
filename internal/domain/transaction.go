package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger entry. Only rows with Success=true are read
// from the ledger; the filter happens at query time, not here.
type Transaction struct {
	TransactionID string
	UserID        string
	OccurredAt    time.Time
	Amount        decimal.Decimal // denominated in Currency
	Currency      string
	Success       bool
}

// ExchangeRate is a multiplicative conversion factor valid for exactly one
// calendar day. A transaction converts via the rate whose (CurrencyFrom,
// RateDate day) matches (Transaction.Currency, Transaction.OccurredAt day).
type ExchangeRate struct {
	CurrencyFrom string
	CurrencyTo   string
	Rate         decimal.Decimal
	RateDate     time.Time
}
