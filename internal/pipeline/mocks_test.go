package pipeline_test

import (
	"context"
	"fmt"

	"github.com/dvloznov/session-analytics/internal/domain"
)

// mockSourceReader is a func-field mock of pipeline.SourceReader.
type mockSourceReader struct {
	label            string
	ReadSessionsFunc func(ctx context.Context) ([]domain.Session, error)
}

func (m *mockSourceReader) Label() string { return m.label }

func (m *mockSourceReader) ReadSessions(ctx context.Context) ([]domain.Session, error) {
	if m.ReadSessionsFunc != nil {
		return m.ReadSessionsFunc(ctx)
	}
	return nil, nil
}

// mockLedgerReader is a func-field mock of pipeline.LedgerReader.
type mockLedgerReader struct {
	ReadSuccessfulTransactionsFunc func(ctx context.Context) ([]domain.Transaction, error)
	ReadExchangeRatesFunc          func(ctx context.Context) ([]domain.ExchangeRate, error)
}

func (m *mockLedgerReader) ReadSuccessfulTransactions(ctx context.Context) ([]domain.Transaction, error) {
	if m.ReadSuccessfulTransactionsFunc != nil {
		return m.ReadSuccessfulTransactionsFunc(ctx)
	}
	return nil, nil
}

func (m *mockLedgerReader) ReadExchangeRates(ctx context.Context) ([]domain.ExchangeRate, error) {
	if m.ReadExchangeRatesFunc != nil {
		return m.ReadExchangeRatesFunc(ctx)
	}
	return nil, nil
}

// memorySink is an in-memory sink with the real idempotent-insert contract:
// first write per session_id wins, replays are silently skipped.
type memorySink struct {
	rows  map[string]domain.EnrichedSession
	order []string
}

func newMemorySink() *memorySink {
	return &memorySink{rows: make(map[string]domain.EnrichedSession)}
}

func (s *memorySink) InsertIfAbsent(ctx context.Context, row *domain.EnrichedSession) (bool, error) {
	if _, exists := s.rows[row.SessionID]; exists {
		return false, nil
	}
	s.rows[row.SessionID] = *row
	s.order = append(s.order, row.SessionID)
	return true, nil
}

// mockArchiver records the last archived batch.
type mockArchiver struct {
	runID string
	batch []domain.EnrichedSession
}

func (m *mockArchiver) ArchiveRun(ctx context.Context, runID string, batch []domain.EnrichedSession) (string, error) {
	m.runID = runID
	m.batch = batch
	return fmt.Sprintf("gs://test-bucket/runs/%s.jsonl", runID), nil
}
