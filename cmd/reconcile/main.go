package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/session-analytics/internal/config"
	"github.com/dvloznov/session-analytics/internal/logger"
	"github.com/dvloznov/session-analytics/internal/pipeline"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	runID := flag.String("run-id", "", "Run identifier (defaults to a generated UUID)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration validation failed")
	}
	logger.SetLevel(cfg.LogLevel)

	if *runID == "" {
		*runID = uuid.NewString()
	}

	// Bound the run so the CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("run_id", *runID).
		Int("sources", len(cfg.Sources)).
		Msg("Starting reconciliation run")

	state, err := pipeline.Run(ctx, cfg, *runID)
	if err != nil {
		log.Fatal().Err(err).Str("run_id", *runID).Msg("Reconciliation run failed")
	}

	log.Info().
		Str("run_id", *runID).
		Int("sessions", len(state.Enriched)).
		Int("inserted", state.Inserted).
		Int("skipped", state.Skipped).
		Str("archive_uri", state.ArchiveURI).
		Msg("Reconciliation run completed")

	fmt.Println("Run completed successfully.")
}
