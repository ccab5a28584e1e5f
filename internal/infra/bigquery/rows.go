package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/session-analytics/internal/domain"
)

// numericScale is BigQuery's NUMERIC scale; decimals crossing the NUMERIC
// boundary are read back at this precision.
const numericScale = 9

// TransactionRow is one ledger entry as stored in <dataset>.transactions.
type TransactionRow struct {
	TransactionID string    `bigquery:"transaction_id"` // REQUIRED
	UserID        string    `bigquery:"user_id"`        // REQUIRED
	OccurredAt    time.Time `bigquery:"created_at"`     // REQUIRED TIMESTAMP
	Amount        *big.Rat  `bigquery:"amount"`         // REQUIRED NUMERIC
	Currency      string    `bigquery:"currency"`       // REQUIRED STRING
	Success       bool      `bigquery:"success"`        // REQUIRED BOOL
}

// ExchangeRateRow is one conversion factor as stored in
// <dataset>.exchange_rates, valid for exactly one day.
type ExchangeRateRow struct {
	CurrencyFrom string     `bigquery:"currency_from"` // REQUIRED
	CurrencyTo   string     `bigquery:"currency_to"`   // REQUIRED
	Rate         *big.Rat   `bigquery:"exchange_rate"` // REQUIRED NUMERIC
	RateDate     civil.Date `bigquery:"currency_date"` // REQUIRED DATE
}

// AnalyticsSessionRow is the enriched output row in
// <dataset>.analytics_sessions, keyed by session_id.
type AnalyticsSessionRow struct {
	SessionID   string     `bigquery:"session_id"` // REQUIRED, primary key
	UserID      string     `bigquery:"user_id"`
	Project     string     `bigquery:"project"`
	PageName    string     `bigquery:"page_name"`
	EventsCount int64      `bigquery:"events_count"`
	SessionDate civil.Date `bigquery:"session_date"`

	TransactionsSum *big.Rat `bigquery:"transactions_sum"` // NUMERIC

	FirstSuccessfulTransactionTime bigquery.NullTimestamp `bigquery:"first_successful_transaction_time"` // NULLABLE
	FirstSuccessfulTransactionUSD  *big.Rat               `bigquery:"first_successful_transaction_usd"`  // NUMERIC
}

func (r *TransactionRow) toDomain() domain.Transaction {
	return domain.Transaction{
		TransactionID: r.TransactionID,
		UserID:        r.UserID,
		OccurredAt:    r.OccurredAt,
		Amount:        ratToDecimal(r.Amount),
		Currency:      r.Currency,
		Success:       r.Success,
	}
}

func (r *ExchangeRateRow) toDomain() domain.ExchangeRate {
	return domain.ExchangeRate{
		CurrencyFrom: r.CurrencyFrom,
		CurrencyTo:   r.CurrencyTo,
		Rate:         ratToDecimal(r.Rate),
		RateDate:     r.RateDate.In(time.UTC),
	}
}

func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Decimal{}
	}
	return decimal.NewFromBigRat(r, numericScale)
}
