package pipeline

import (
	"context"

	"github.com/dvloznov/session-analytics/internal/domain"
)

// SourceReader yields the session rows of one origin database. The query
// behind it must already aggregate child events into EventCount and resolve
// one row per session_id.
type SourceReader interface {
	// Label identifies the origin system; it becomes SourceTag on every
	// row the reader produces.
	Label() string

	// ReadSessions returns the source's full session batch in query order.
	ReadSessions(ctx context.Context) ([]domain.Session, error)
}

// LedgerReader provides the full batch snapshot of successful transactions
// and the exchange-rate table. Both are loaded once per run.
type LedgerReader interface {
	ReadSuccessfulTransactions(ctx context.Context) ([]domain.Transaction, error)
	ReadExchangeRates(ctx context.Context) ([]domain.ExchangeRate, error)
}

// SinkWriter persists enriched sessions with at-most-once insertion
// semantics keyed by session_id.
type SinkWriter interface {
	// InsertIfAbsent writes the row unless one with the same session_id
	// already exists. It reports whether a new row was inserted; a
	// duplicate key is not an error.
	InsertIfAbsent(ctx context.Context, row *domain.EnrichedSession) (bool, error)
}

// Archiver stores a snapshot of a run's enriched batch outside the sink.
// It is optional; runs without one skip the archive step.
type Archiver interface {
	// ArchiveRun writes the batch and returns the location it was written to.
	ArchiveRun(ctx context.Context, runID string, batch []domain.EnrichedSession) (string, error)
}
