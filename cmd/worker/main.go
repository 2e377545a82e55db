package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/agricole-sync/internal/config"
	"github.com/dvloznov/agricole-sync/internal/jobs"
	"github.com/dvloznov/agricole-sync/internal/jobs/inmemory"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/pipeline"
)

func main() {
	interval := flag.Duration("interval", 24*time.Hour, "Time between two scheduled syncs")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to read configuration")
	}
	log := logger.NewWithConfig(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	store, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(1, jobStore)

	log.Info().Dur("interval", *interval).Int("bank_id", cfg.BankID).Msg("Starting worker service")

	if err := jobQueue.Start(ctx, pipeline.NewJobHandler(cfg, store)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Schedule a sync now and then every interval. A tick that finds the previous sync
	// still queued is dropped.
	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for {
			schedule(ctx, jobQueue)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()

	log.Info().Msg("Worker service exited")
}

func schedule(ctx context.Context, q jobs.Publisher) {
	log := logger.FromContext(ctx)

	pubCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	job := &jobs.SyncJob{}
	if err := q.PublishSync(pubCtx, job); err != nil {
		log.Warn().Err(err).Msg("Skipping scheduled sync")
		return
	}
	log.Info().Str("job_id", job.JobID).Msg("Scheduled sync")
}
