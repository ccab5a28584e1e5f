package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/session-analytics/internal/domain"
)

// Step is a single stage of a reconciliation run.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State holds the shared batch state across all steps of one run. Each
// stage owns its output exclusively until the next stage consumes it.
type State struct {
	RunID string

	Sessions     []domain.Session
	Transactions []domain.Transaction
	Rates        []domain.ExchangeRate
	Enriched     []domain.EnrichedSession

	Inserted   int
	Skipped    int
	ArchiveURI string
}

// CollectSessionsStep merges the configured sources into one tagged batch.
type CollectSessionsStep struct {
	Collector *Collector
}

func (s *CollectSessionsStep) Execute(ctx context.Context, state *State) error {
	sessions, err := s.Collector.Collect(ctx)
	if err != nil {
		return err
	}
	state.Sessions = sessions
	return nil
}

// LoadLedgerStep reads the full successful-transaction and exchange-rate
// snapshots. A ledger failure aborts the run before any reconciliation.
type LoadLedgerStep struct {
	Ledger LedgerReader
}

func (s *LoadLedgerStep) Execute(ctx context.Context, state *State) error {
	txs, err := s.Ledger.ReadSuccessfulTransactions(ctx)
	if err != nil {
		return fmt.Errorf("ledger: transactions: %w", err)
	}
	rates, err := s.Ledger.ReadExchangeRates(ctx)
	if err != nil {
		return fmt.Errorf("ledger: exchange rates: %w", err)
	}
	state.Transactions = txs
	state.Rates = rates
	return nil
}

// ReconcileStep computes the enriched batch.
type ReconcileStep struct {
	Reconciler *Reconciler
}

func (s *ReconcileStep) Execute(ctx context.Context, state *State) error {
	state.Enriched = s.Reconciler.Enrich(ctx, state.Sessions, state.Transactions, state.Rates)
	return nil
}

// LoadAnalyticsStep persists the enriched batch idempotently.
type LoadAnalyticsStep struct {
	Loader *Loader
}

func (s *LoadAnalyticsStep) Execute(ctx context.Context, state *State) error {
	inserted, skipped, err := s.Loader.Load(ctx, state.Enriched)
	if err != nil {
		return err
	}
	state.Inserted = inserted
	state.Skipped = skipped
	return nil
}

// ArchiveBatchStep snapshots the enriched batch to external storage.
// It is a no-op when no archiver is configured.
type ArchiveBatchStep struct {
	Archiver Archiver
}

func (s *ArchiveBatchStep) Execute(ctx context.Context, state *State) error {
	if s.Archiver == nil {
		return nil
	}
	uri, err := s.Archiver.ArchiveRun(ctx, state.RunID, state.Enriched)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	state.ArchiveURI = uri
	return nil
}

// Pipeline executes a sequence of steps in order. Steps run strictly
// sequentially with a batch barrier between them; the first failing step
// aborts the run.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps against the shared state.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewReconciliationPipeline wires the standard collect → ledger →
// reconcile → load → archive run. archiver may be nil.
func NewReconciliationPipeline(collector *Collector, ledger LedgerReader, reconciler *Reconciler, loader *Loader, archiver Archiver) *Pipeline {
	return NewPipeline(
		&CollectSessionsStep{Collector: collector},
		&LoadLedgerStep{Ledger: ledger},
		&ReconcileStep{Reconciler: reconciler},
		&LoadAnalyticsStep{Loader: loader},
		&ArchiveBatchStep{Archiver: archiver},
	)
}
