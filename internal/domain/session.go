package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayFormat is the calendar-day layout used for all same-day matching.
const DayFormat = "2006-01-02"

// Day truncates a timestamp to its UTC calendar day. Time-of-day is
// discarded for every join in the pipeline.
func Day(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// Session represents one user visit to a page on a given date, with its
// child events already aggregated into EventCount by the source query.
type Session struct {
	SessionID   string
	UserID      string
	SourceTag   string // which origin system produced the row
	PageName    string
	EventCount  int64
	SessionDate time.Time // truncated to day for matching via Day()
}

// EnrichedSession is a Session plus the spend facts computed by the
// reconciler. Constructed once per session and immutable afterwards.
type EnrichedSession struct {
	Session

	// TransactionsSumUSD is the sum of all convertible same-day successful
	// transactions, in the settlement currency. Zero when none matched.
	TransactionsSumUSD decimal.Decimal

	// FirstTransactionTime is the timestamp of the earliest convertible
	// same-day transaction, or nil when the day had none.
	FirstTransactionTime *time.Time

	// FirstTransactionUSD is that transaction's converted amount.
	FirstTransactionUSD decimal.Decimal
}
