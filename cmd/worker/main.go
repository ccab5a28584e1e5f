package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/session-analytics/internal/config"
	"github.com/dvloznov/session-analytics/internal/jobs"
	"github.com/dvloznov/session-analytics/internal/jobs/inmemory"
	"github.com/dvloznov/session-analytics/internal/logger"
	"github.com/dvloznov/session-analytics/internal/pipeline"
)

func main() {
	// Initialize logger
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration validation failed")
	}
	logger.SetLevel(cfg.LogLevel)

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().
		Dur("interval", cfg.ScheduleInterval).
		Int("max_retries", cfg.MaxRetries).
		Msg("Starting reconciliation worker")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handler executes one full pipeline run per job
	handler := func(ctx context.Context, job jobs.Job) error {
		runJob, ok := job.(*jobs.ReconcileRunJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", runJob.JobID).
			Str("run_id", runJob.RunID).
			Int("attempt", runJob.RetryCount+1).
			Msg("Processing reconciliation run")

		runCtx, cancelRun := context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancelRun()
		runCtx = logger.WithContext(runCtx, log)

		state, err := pipeline.Run(runCtx, cfg, runJob.RunID)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", runJob.JobID).
				Str("run_id", runJob.RunID).
				Msg("Reconciliation run failed")
			return err
		}

		log.Info().
			Str("job_id", runJob.JobID).
			Str("run_id", runJob.RunID).
			Int("inserted", state.Inserted).
			Int("skipped", state.Skipped).
			Msg("Reconciliation run completed")

		return nil
	}

	// Start consuming jobs
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Publish runs on the configured cadence, starting with one right away
	go func() {
		publish := func() {
			job := &jobs.ReconcileRunJob{
				TriggeredBy: "ticker",
				MaxRetries:  cfg.MaxRetries,
				RetryDelay:  cfg.RetryDelay,
			}
			if err := jobQueue.PublishReconcileRun(ctx, job); err != nil {
				log.Error().Err(err).Msg("Failed to publish reconciliation run")
			}
		}

		publish()
		ticker := time.NewTicker(cfg.ScheduleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				publish()
			}
		}
	}()

	log.Info().Msg("Worker started, scheduling runs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")

	// Cancel context to stop the scheduler and worker
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for the in-flight run
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker exited")
}
