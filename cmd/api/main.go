package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/agricole-sync/internal/api/handlers"
	"github.com/dvloznov/agricole-sync/internal/api/middleware"
	"github.com/dvloznov/agricole-sync/internal/config"
	"github.com/dvloznov/agricole-sync/internal/jobs/inmemory"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/pipeline"
)

func main() {
	// Parse command-line flags
	var (
		port  = flag.String("port", "8080", "HTTP server port")
		token = flag.String("token", os.Getenv("API_TOKEN"), "Bearer token required on /api routes (or set API_TOKEN env)")
	)
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
	if *token == "" {
		log.Warn().Msg("No API token configured - the API is open to anyone reaching it")
	}

	ctx := logger.WithContext(context.Background(), log)

	store, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(16, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Msg("Starting sync worker")
		if err := jobQueue.Start(workerCtx, pipeline.NewJobHandler(cfg, store)); err != nil {
			log.Error().Err(err).Msg("Sync worker stopped with error")
		}
	}()

	mux := handlers.NewRouter(
		handlers.NewSyncsHandler(jobQueue, log),
		handlers.NewAccountsHandler(store, log),
		handlers.NewJobsHandler(jobStore, log),
	)

	// Apply middleware
	handler := middleware.RequestID(
		middleware.Recovery(log)(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth(*token)(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Int("bank_id", cfg.BankID).Str("store", cfg.Store).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// A sync in flight gets the rest of the shutdown window before its context is cancelled.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
