package pipeline

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/session-analytics/internal/domain"
	"github.com/dvloznov/session-analytics/internal/logger"
)

// Reconciler joins collected sessions against same-day successful
// transactions and derives per-session spend facts in the settlement
// currency. All arithmetic is decimal; binary floats never touch money.
type Reconciler struct {
	settlement string
}

// NewReconciler creates a reconciler normalizing into the given settlement
// currency (e.g. "USD").
func NewReconciler(settlementCurrency string) *Reconciler {
	return &Reconciler{settlement: settlementCurrency}
}

// userDayKey indexes transactions by user and UTC calendar day.
type userDayKey struct {
	UserID string
	Day    string
}

// rateKey indexes exchange rates by source currency and UTC calendar day.
type rateKey struct {
	Currency string
	Day      string
}

// Enrich computes one EnrichedSession per input session, preserving input
// order. Transactions and rates are indexed once up front so each session
// costs one map lookup instead of a table scan.
//
// A transaction with no exchange rate for its (currency, day) contributes
// nothing: it is excluded from the sum and from first-transaction
// eligibility. The miss is logged and the run continues.
func (r *Reconciler) Enrich(ctx context.Context, sessions []domain.Session, txs []domain.Transaction, rates []domain.ExchangeRate) []domain.EnrichedSession {
	log := logger.FromContext(ctx)

	byUserDay := make(map[userDayKey][]domain.Transaction)
	for _, tx := range txs {
		k := userDayKey{UserID: tx.UserID, Day: domain.Day(tx.OccurredAt)}
		byUserDay[k] = append(byUserDay[k], tx)
	}
	// Ascending by time; stable so equal timestamps keep ledger order.
	for _, day := range byUserDay {
		sort.SliceStable(day, func(i, j int) bool {
			return day[i].OccurredAt.Before(day[j].OccurredAt)
		})
	}

	rateByDay := make(map[rateKey]decimal.Decimal)
	for _, rate := range rates {
		if rate.CurrencyTo != r.settlement {
			continue
		}
		rateByDay[rateKey{Currency: rate.CurrencyFrom, Day: domain.Day(rate.RateDate)}] = rate.Rate
	}

	rateMisses := 0
	enriched := make([]domain.EnrichedSession, 0, len(sessions))
	for _, session := range sessions {
		row := domain.EnrichedSession{Session: session}

		day := domain.Day(session.SessionDate)
		for _, tx := range byUserDay[userDayKey{UserID: session.UserID, Day: day}] {
			rate, ok := rateByDay[rateKey{Currency: tx.Currency, Day: domain.Day(tx.OccurredAt)}]
			if !ok {
				rateMisses++
				log.Warn().
					Str("transaction_id", tx.TransactionID).
					Str("currency", tx.Currency).
					Str("day", day).
					Msg("No exchange rate for transaction, excluding from session totals")
				continue
			}

			converted := tx.Amount.Mul(rate)
			row.TransactionsSumUSD = row.TransactionsSumUSD.Add(converted)
			if row.FirstTransactionTime == nil {
				t := tx.OccurredAt
				row.FirstTransactionTime = &t
				row.FirstTransactionUSD = converted
			}
		}

		enriched = append(enriched, row)
	}

	log.Info().
		Int("sessions", len(sessions)).
		Int("transactions", len(txs)).
		Int("rate_misses", rateMisses).
		Msg("Reconciliation complete")

	return enriched
}
