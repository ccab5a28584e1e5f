package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/session-analytics/internal/domain"
	"github.com/dvloznov/session-analytics/internal/pipeline"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func session(id, userID string, date time.Time) domain.Session {
	return domain.Session{
		SessionID:   id,
		UserID:      userID,
		SourceTag:   "a",
		PageName:    "home",
		EventCount:  3,
		SessionDate: date,
	}
}

func TestReconciler_Enrich(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	at := func(hour, min int) time.Time {
		return time.Date(2025, 3, 1, hour, min, 0, 0, time.UTC)
	}
	eurRate := domain.ExchangeRate{CurrencyFrom: "EUR", CurrencyTo: "USD", Rate: dec("1.1"), RateDate: day}
	usdRate := domain.ExchangeRate{CurrencyFrom: "USD", CurrencyTo: "USD", Rate: dec("1.0"), RateDate: day}

	tests := []struct {
		name         string
		sessions     []domain.Session
		txs          []domain.Transaction
		rates        []domain.ExchangeRate
		wantSum      string
		wantFirst    *time.Time
		wantFirstUSD string
	}{
		{
			name:     "single convertible transaction",
			sessions: []domain.Session{session("s1", "u1", day)},
			txs: []domain.Transaction{
				{TransactionID: "t1", UserID: "u1", OccurredAt: at(9, 0), Amount: dec("100"), Currency: "EUR", Success: true},
			},
			rates:        []domain.ExchangeRate{eurRate},
			wantSum:      "110",
			wantFirst:    timePtr(at(9, 0)),
			wantFirstUSD: "110",
		},
		{
			name:     "missing rate excludes transaction but keeps session",
			sessions: []domain.Session{session("s1", "u1", day)},
			txs: []domain.Transaction{
				{TransactionID: "t1", UserID: "u1", OccurredAt: at(9, 0), Amount: dec("100"), Currency: "EUR", Success: true},
			},
			rates:        nil,
			wantSum:      "0",
			wantFirst:    nil,
			wantFirstUSD: "0",
		},
		{
			name:     "two transactions sum and first by time",
			sessions: []domain.Session{session("s1", "u1", day)},
			txs: []domain.Transaction{
				{TransactionID: "t2", UserID: "u1", OccurredAt: at(10, 0), Amount: dec("30"), Currency: "USD", Success: true},
				{TransactionID: "t1", UserID: "u1", OccurredAt: at(9, 0), Amount: dec("50"), Currency: "USD", Success: true},
			},
			rates:        []domain.ExchangeRate{usdRate},
			wantSum:      "80",
			wantFirst:    timePtr(at(9, 0)),
			wantFirstUSD: "50",
		},
		{
			name:         "no transactions for the day",
			sessions:     []domain.Session{session("s1", "u1", day)},
			txs:          nil,
			rates:        []domain.ExchangeRate{usdRate},
			wantSum:      "0",
			wantFirst:    nil,
			wantFirstUSD: "0",
		},
		{
			name:     "transaction on another day does not match",
			sessions: []domain.Session{session("s1", "u1", day)},
			txs: []domain.Transaction{
				{TransactionID: "t1", UserID: "u1", OccurredAt: day.AddDate(0, 0, 1).Add(9 * time.Hour), Amount: dec("100"), Currency: "USD", Success: true},
			},
			rates:        []domain.ExchangeRate{usdRate, {CurrencyFrom: "USD", CurrencyTo: "USD", Rate: dec("1.0"), RateDate: day.AddDate(0, 0, 1)}},
			wantSum:      "0",
			wantFirst:    nil,
			wantFirstUSD: "0",
		},
		{
			name:     "transaction of another user does not match",
			sessions: []domain.Session{session("s1", "u1", day)},
			txs: []domain.Transaction{
				{TransactionID: "t1", UserID: "u2", OccurredAt: at(9, 0), Amount: dec("100"), Currency: "USD", Success: true},
			},
			rates:        []domain.ExchangeRate{usdRate},
			wantSum:      "0",
			wantFirst:    nil,
			wantFirstUSD: "0",
		},
		{
			name:     "unconvertible earlier transaction not eligible as first",
			sessions: []domain.Session{session("s1", "u1", day)},
			txs: []domain.Transaction{
				{TransactionID: "t1", UserID: "u1", OccurredAt: at(8, 0), Amount: dec("999"), Currency: "GBP", Success: true},
				{TransactionID: "t2", UserID: "u1", OccurredAt: at(9, 0), Amount: dec("100"), Currency: "EUR", Success: true},
			},
			rates:        []domain.ExchangeRate{eurRate},
			wantSum:      "110",
			wantFirst:    timePtr(at(9, 0)),
			wantFirstUSD: "110",
		},
		{
			name:     "rate into another settlement currency is ignored",
			sessions: []domain.Session{session("s1", "u1", day)},
			txs: []domain.Transaction{
				{TransactionID: "t1", UserID: "u1", OccurredAt: at(9, 0), Amount: dec("100"), Currency: "EUR", Success: true},
			},
			rates:        []domain.ExchangeRate{{CurrencyFrom: "EUR", CurrencyTo: "GBP", Rate: dec("0.85"), RateDate: day}},
			wantSum:      "0",
			wantFirst:    nil,
			wantFirstUSD: "0",
		},
		{
			name:     "rate from another day is not used",
			sessions: []domain.Session{session("s1", "u1", day)},
			txs: []domain.Transaction{
				{TransactionID: "t1", UserID: "u1", OccurredAt: at(9, 0), Amount: dec("100"), Currency: "EUR", Success: true},
			},
			rates:        []domain.ExchangeRate{{CurrencyFrom: "EUR", CurrencyTo: "USD", Rate: dec("1.1"), RateDate: day.AddDate(0, 0, -1)}},
			wantSum:      "0",
			wantFirst:    nil,
			wantFirstUSD: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := pipeline.NewReconciler("USD")
			got := r.Enrich(context.Background(), tt.sessions, tt.txs, tt.rates)

			if len(got) != len(tt.sessions) {
				t.Fatalf("Enrich() returned %d rows, want %d", len(got), len(tt.sessions))
			}

			row := got[0]
			if !row.TransactionsSumUSD.Equal(dec(tt.wantSum)) {
				t.Errorf("TransactionsSumUSD = %s, want %s", row.TransactionsSumUSD, tt.wantSum)
			}
			if !row.FirstTransactionUSD.Equal(dec(tt.wantFirstUSD)) {
				t.Errorf("FirstTransactionUSD = %s, want %s", row.FirstTransactionUSD, tt.wantFirstUSD)
			}
			switch {
			case tt.wantFirst == nil && row.FirstTransactionTime != nil:
				t.Errorf("FirstTransactionTime = %v, want nil", row.FirstTransactionTime)
			case tt.wantFirst != nil && row.FirstTransactionTime == nil:
				t.Errorf("FirstTransactionTime = nil, want %v", tt.wantFirst)
			case tt.wantFirst != nil && !row.FirstTransactionTime.Equal(*tt.wantFirst):
				t.Errorf("FirstTransactionTime = %v, want %v", row.FirstTransactionTime, tt.wantFirst)
			}
		})
	}
}

func TestReconciler_Enrich_TieBreakIsStable(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	at := day.Add(9 * time.Hour)

	// Two transactions at the identical timestamp: the first one in ledger
	// order must win deterministically.
	txs := []domain.Transaction{
		{TransactionID: "t1", UserID: "u1", OccurredAt: at, Amount: dec("50"), Currency: "USD", Success: true},
		{TransactionID: "t2", UserID: "u1", OccurredAt: at, Amount: dec("30"), Currency: "USD", Success: true},
	}
	rates := []domain.ExchangeRate{{CurrencyFrom: "USD", CurrencyTo: "USD", Rate: dec("1.0"), RateDate: day}}

	r := pipeline.NewReconciler("USD")
	got := r.Enrich(context.Background(), []domain.Session{session("s1", "u1", day)}, txs, rates)

	if !got[0].FirstTransactionUSD.Equal(dec("50")) {
		t.Errorf("FirstTransactionUSD = %s, want 50 (first in ledger order)", got[0].FirstTransactionUSD)
	}
	if !got[0].TransactionsSumUSD.Equal(dec("80")) {
		t.Errorf("TransactionsSumUSD = %s, want 80", got[0].TransactionsSumUSD)
	}
}

func TestReconciler_Enrich_PreservesSessionOrder(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sessions := []domain.Session{
		session("s3", "u1", day),
		session("s1", "u2", day),
		session("s2", "u3", day),
	}

	r := pipeline.NewReconciler("USD")
	got := r.Enrich(context.Background(), sessions, nil, nil)

	if len(got) != 3 {
		t.Fatalf("Enrich() returned %d rows, want 3", len(got))
	}
	for i, want := range []string{"s3", "s1", "s2"} {
		if got[i].SessionID != want {
			t.Errorf("row %d = %q, want %q", i, got[i].SessionID, want)
		}
	}
}

// Session date with a time-of-day component still matches transactions on
// the same calendar day: truncation discards the clock.
func TestReconciler_Enrich_TruncatesSessionTimestamp(t *testing.T) {
	sessionAt := time.Date(2025, 3, 1, 23, 45, 12, 0, time.UTC)
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	txs := []domain.Transaction{
		{TransactionID: "t1", UserID: "u1", OccurredAt: day.Add(2 * time.Hour), Amount: dec("10"), Currency: "USD", Success: true},
	}
	rates := []domain.ExchangeRate{{CurrencyFrom: "USD", CurrencyTo: "USD", Rate: dec("1.0"), RateDate: day}}

	r := pipeline.NewReconciler("USD")
	got := r.Enrich(context.Background(), []domain.Session{session("s1", "u1", sessionAt)}, txs, rates)

	if !got[0].TransactionsSumUSD.Equal(dec("10")) {
		t.Errorf("TransactionsSumUSD = %s, want 10", got[0].TransactionsSumUSD)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
