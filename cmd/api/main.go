package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/networth-labs/tracker/internal/api"
	"github.com/networth-labs/tracker/internal/archive"
	"github.com/networth-labs/tracker/internal/config"
	"github.com/networth-labs/tracker/internal/extraction"
	"github.com/networth-labs/tracker/internal/filestore"
	"github.com/networth-labs/tracker/internal/jobs"
	"github.com/networth-labs/tracker/internal/jobs/inmemory"
	"github.com/networth-labs/tracker/internal/logger"
	"github.com/networth-labs/tracker/internal/observability"
	"github.com/networth-labs/tracker/internal/pipeline"
	"github.com/networth-labs/tracker/internal/positions"
	"github.com/networth-labs/tracker/internal/rates"
	"github.com/networth-labs/tracker/internal/reconcile"
	"github.com/networth-labs/tracker/internal/store"
	"github.com/networth-labs/tracker/internal/store/gormstore"
	"github.com/networth-labs/tracker/internal/store/memstore"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New()

	ctx := context.Background()

	// Pick the store backend
	var st store.Store
	if cfg.MySQLDSN != "" {
		gs, err := gormstore.Open(cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MySQL")
		}
		defer func() {
			if err := gs.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close store")
			}
		}()
		st = gs
	} else {
		log.Warn().Msg("No MYSQL_DSN configured - using in-memory store, data is lost on restart")
		st = memstore.New()
	}

	// Pick the statement file backend
	var files filestore.Store
	if cfg.GCSBucket != "" {
		gcs, err := filestore.NewGCS(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS file store")
		}
		defer gcs.Close()
		files = gcs
	} else {
		local, err := filestore.NewLocal(cfg.StorageDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create local file store")
		}
		log.Info().Str("dir", cfg.StorageDir).Msg("Storing statement files on local disk")
		files = local
	}

	// Extraction run archive, best effort
	var sink archive.Sink = archive.NopSink{}
	if cfg.GCPProject != "" {
		bq, err := archive.NewBigQuery(ctx, cfg.GCPProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery archive")
		}
		defer bq.Close()
		sink = bq
	} else {
		log.Warn().Msg("No GOOGLE_CLOUD_PROJECT configured - extraction runs will not be archived")
	}

	extractor := extraction.NewClient(extraction.Config{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err := extractor.Ready(); err != nil {
		log.Warn().Msg("No GEMINI_API_KEY configured - statement processing will fail until one is set")
	}

	positionsSvc := positions.NewService(st, st, cfg.DefaultCurrency)
	engine := reconcile.New(st, st, cfg.DefaultCurrency)
	ratesSvc := rates.NewService(rates.NewFetcher(nil, cfg.RatesURL), st, st, cfg.RatesBase)
	metrics := observability.NewMetrics()

	task := pipeline.NewTask(pipeline.TaskConfig{
		Uploads:    st,
		Files:      files,
		Extractor:  extractor,
		Reconciler: engine,
		Archive:    sink,
		Metrics:    metrics,
		Retry: pipeline.RetryPolicy{
			MaxRetries:  cfg.MaxRetries,
			BackoffBase: cfg.BackoffBase,
		},
	})

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueSize, cfg.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		psJob, ok := job.(*jobs.ProcessStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", psJob.JobID).
			Str("upload_id", psJob.UploadID).
			Msg("Processing statement job")

		res, err := task.ProcessUpload(ctx, psJob.UploadID)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", psJob.JobID).
				Str("upload_id", psJob.UploadID).
				Msg("Statement pipeline failed")
			return err
		}

		// Domain outcomes, FAILED included, are final. Returning an error
		// here would make the queue retry a decided statement.
		log.Info().
			Str("job_id", psJob.JobID).
			Str("upload_id", psJob.UploadID).
			Str("status", res.Status).
			Int("attempts", res.Attempts).
			Msg("Statement job finished")
		return nil
	}

	// Start job consumers in background
	go func() {
		log.Info().Int("workers", cfg.Workers).Msg("Starting job workers")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job workers stopped with error")
		}
	}()

	router := api.NewRouter(api.Deps{
		Log:       log,
		Store:     st,
		Files:     files,
		Publisher: jobQueue,
		JobStore:  jobStore,
		Positions: positionsSvc,
		Rates:     ratesSvc,
		Archive:   sink,
		Metrics:   metrics,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
