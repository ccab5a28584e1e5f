package pipeline

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/session-analytics/internal/archive"
	"github.com/dvloznov/session-analytics/internal/config"
	infraBQ "github.com/dvloznov/session-analytics/internal/infra/bigquery"
	"github.com/dvloznov/session-analytics/internal/infra/postgres"
	"github.com/dvloznov/session-analytics/internal/logger"
)

// Run assembles the collaborators from config, executes one full
// reconciliation run, and tears everything down. Every run is a complete
// batch: there is no partial persistence beyond what the idempotent sink
// provides on replay.
func Run(ctx context.Context, cfg *config.Config, runID string) (*State, error) {
	log := logger.WithRun(logger.FromContext(ctx), runID)
	ctx = logger.WithContext(ctx, log)

	var pools []*pgxpool.Pool
	defer func() {
		for _, pool := range pools {
			pool.Close()
		}
	}()

	sources := make([]SourceReader, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		pool, err := postgres.Connect(ctx, src.DSN)
		if err != nil {
			return nil, fmt.Errorf("run: source %q: %w", src.ID, err)
		}
		pools = append(pools, pool)
		sources = append(sources, postgres.NewSessionSource(pool, src.ID))
	}

	ledger, err := infraBQ.NewLedger(ctx, cfg.ProjectID, cfg.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	defer ledger.Close()

	writer, err := infraBQ.NewAnalyticsWriter(ctx, cfg.ProjectID, cfg.DatasetID, cfg.AnalyticsTable)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	defer writer.Close()

	var archiver Archiver
	if cfg.ArchiveBucket != "" {
		gcs, err := archive.NewGCSArchiver(ctx, cfg.ArchiveBucket)
		if err != nil {
			return nil, fmt.Errorf("run: %w", err)
		}
		defer gcs.Close()
		archiver = gcs
	}

	p := NewReconciliationPipeline(
		NewCollector(sources...),
		ledger,
		NewReconciler(cfg.SettlementCurrency),
		NewLoader(writer),
		archiver,
	)

	state := &State{RunID: runID}
	if err := p.Execute(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}
